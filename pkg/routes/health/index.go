package health

import (
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"
)

// Endpoint describes one route of the API index
type Endpoint struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

// Index is the body of the API index
type Index struct {
	Name      string     `json:"name"`
	Version   string     `json:"version"`
	Endpoints []Endpoint `json:"endpoints"`
}

var listed = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// RegisterIndex serves the list of routes registered on e under path. Routes are read on
// every request so the index includes routes registered later.
func RegisterIndex(e *echo.Echo, path, name, version string) {
	e.GET(path, func(c echo.Context) error {
		endpoints := make([]Endpoint, 0)
		for _, r := range e.Routes() {
			if r.Path == path || !listed[r.Method] {
				continue
			}
			endpoints = append(endpoints, Endpoint{Method: r.Method, Path: r.Path})
		}
		sort.Slice(endpoints, func(i, j int) bool {
			if endpoints[i].Path != endpoints[j].Path {
				return endpoints[i].Path < endpoints[j].Path
			}
			return endpoints[i].Method < endpoints[j].Method
		})

		return c.JSON(http.StatusOK, Index{Name: name, Version: version, Endpoints: endpoints})
	})
}
