package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	utils "github.com/diogoqz/api-consulta-hotmart/pkg/context"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

type fakeVerifier struct {
	claims *UserClaims
}

func (f fakeVerifier) Verify(_ context.Context, raw string) (*UserClaims, error) {
	if raw != "good" {
		return nil, errors.New("bad signature")
	}
	return f.claims, nil
}

func newServer() *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = Error(testLogger())
	e.Use(Context())
	e.Use(Logger(testLogger()))
	return e
}

func TestContextSetsRequestID(t *testing.T) {
	e := newServer()
	e.GET("/id", func(c echo.Context) error {
		return c.String(http.StatusOK, utils.GetRequestID(c.Request().Context()))
	})

	t.Run("generated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/id", nil))
		assert.NotEmpty(t, rec.Body.String())
		assert.Equal(t, rec.Body.String(), rec.Header().Get(echo.HeaderXRequestID))
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/id", nil)
		req.Header.Set(echo.HeaderXRequestID, "req-1")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, "req-1", rec.Body.String())
	})
}

func TestErrorHandler(t *testing.T) {
	e := newServer()
	e.GET("/http", func(c echo.Context) error {
		return httperror.NewHTTPError(http.StatusNotFound, "import run not found")
	})
	e.GET("/echo", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusBadRequest, "bad query")
	})
	e.GET("/plain", func(c echo.Context) error {
		return errors.New("boom")
	})

	tests := []struct {
		path    string
		code    int
		message string
	}{
		{"/http", http.StatusNotFound, "import run not found"},
		{"/echo", http.StatusBadRequest, "bad query"},
		{"/plain", http.StatusInternalServerError, "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.Header.Set(echo.HeaderXRequestID, "req-2")
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.code, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Contains(t, body.Message, tt.message)
			assert.Equal(t, "req-2", body.RequestID)
		})
	}
}

func TestAuthentication(t *testing.T) {
	e := newServer()
	verifier := fakeVerifier{claims: &UserClaims{Sub: "user-1", Email: "ops@x.com"}}
	g := e.Group("", Authentication(testLogger(), verifier))
	g.GET("/me", func(c echo.Context) error {
		ctx := c.Request().Context()
		return c.String(http.StatusOK, utils.GetUserID(ctx)+"|"+utils.GetUserEmail(ctx))
	})

	tests := []struct {
		name   string
		header string
		code   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"invalid", "Bearer bad", http.StatusUnauthorized},
		{"valid", "Bearer good", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tt.code, rec.Code)
			if tt.code == http.StatusOK {
				assert.Equal(t, "user-1|ops@x.com", rec.Body.String())
			}
		})
	}
}
