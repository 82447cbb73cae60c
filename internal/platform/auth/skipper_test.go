package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestAuthSkipper_PublicPaths(t *testing.T) {
	for _, path := range []string{"/health", "/metrics", "/api/v1/auth/login", "/api/v1/auth/signup"} {
		t.Run(path, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, path, nil)
			c := e.NewContext(req, httptest.NewRecorder())
			c.SetPath(path)

			if !AuthSkipper(c) {
				t.Errorf("expected AuthSkipper to return true for %s", path)
			}
		})
	}
}

func TestAuthSkipper_ProtectedPaths(t *testing.T) {
	for _, path := range []string{
		"/api/v1/auth/me",
		"/api/v1/auth/logout",
		"/api/v1/appointments",
		"/api/v1/admin/dashboard",
		"/",
		"/health/extra",
	} {
		t.Run(path, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, path, nil)
			c := e.NewContext(req, httptest.NewRecorder())
			c.SetPath(path)

			if AuthSkipper(c) {
				t.Errorf("expected AuthSkipper to return false for %s", path)
			}
		})
	}
}

func TestIsPublicPath(t *testing.T) {
	if !IsPublicPath("/health") {
		t.Error("expected /health to be public")
	}
	if IsPublicPath("/api/v1/registrations") {
		t.Error("expected /api/v1/registrations to be protected")
	}
}

func TestAuthSkipper_GroupCatchAll(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/v1/*")

	if !AuthSkipper(c) {
		t.Error("expected AuthSkipper to let an unmatched path reach the 404 handler")
	}
}
