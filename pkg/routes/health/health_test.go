package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(c *Checker) *echo.Echo {
	e := echo.New()
	c.RegisterRoutes(e.Group("/api"))
	return e
}

func get(e *echo.Echo, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealth(t *testing.T) {
	ok := func(detail string) Check {
		return func(context.Context) (string, error) { return detail, nil }
	}
	failing := func(context.Context) (string, error) { return "", errors.New("connection refused") }

	tests := []struct {
		name       string
		checks     map[string]Check
		wantStatus int
		want       map[string]string
	}{
		{
			name:       "no checks",
			wantStatus: http.StatusOK,
			want:       map[string]string{},
		},
		{
			name:       "all healthy",
			checks:     map[string]Check{"database": ok("9 records"), "cache": ok("")},
			wantStatus: http.StatusOK,
			want:       map[string]string{"database": "healthy", "cache": "healthy"},
		},
		{
			name:       "one failing check",
			checks:     map[string]Check{"database": ok("9 records"), "cache": failing},
			wantStatus: http.StatusServiceUnavailable,
			want:       map[string]string{"database": "healthy", "cache": "unhealthy"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker("1.2.3")
			for name, check := range tt.checks {
				c.AddCheck(name, check)
			}

			rec := get(newServer(c), "/api/health")

			require.Equal(t, tt.wantStatus, rec.Code)
			var status HealthStatus
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
			assert.Equal(t, "1.2.3", status.Version)

			got := make(map[string]string, len(status.Checks))
			for name, result := range status.Checks {
				got[name] = result.Status
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHealth_Detail(t *testing.T) {
	c := NewChecker("dev")
	c.AddCheck("database", func(context.Context) (string, error) { return "9 records", nil })

	rec := get(newServer(c), "/api/health")

	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "9 records", status.Checks["database"].Message)
}

func TestLiveAndReady(t *testing.T) {
	c := NewChecker("dev")
	e := newServer(c)

	assert.Equal(t, http.StatusOK, get(e, "/api/health/live").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(e, "/api/health/ready").Code)

	c.SetReady(true)
	assert.Equal(t, http.StatusOK, get(e, "/api/health/ready").Code)

	c.SetReady(false)
	assert.Equal(t, http.StatusServiceUnavailable, get(e, "/api/health/ready").Code)
}

func TestIndex(t *testing.T) {
	e := echo.New()
	RegisterIndex(e, "/api", "customer-search", "dev")
	NewChecker("dev").RegisterRoutes(e.Group("/api"))
	e.POST("/api/imports/:platform", func(c echo.Context) error { return nil })

	rec := get(e, "/api")

	require.Equal(t, http.StatusOK, rec.Code)
	var index Index
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &index))
	assert.Equal(t, "customer-search", index.Name)
	assert.Equal(t, []Endpoint{
		{Method: http.MethodGet, Path: "/api/health"},
		{Method: http.MethodGet, Path: "/api/health/live"},
		{Method: http.MethodGet, Path: "/api/health/ready"},
		{Method: http.MethodPost, Path: "/api/imports/:platform"},
	}, index.Endpoints)
}
