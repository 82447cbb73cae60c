package identity

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/platform/auth"
)

func newTestHandler(t *testing.T) (*Handler, *echo.Echo) {
	svc, _ := newTestService(t)
	return NewHandler(svc), echo.New()
}

func jsonContext(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	return he.Code
}

func TestHandler_Login(t *testing.T) {
	h, e := newTestHandler(t)

	c, rec := jsonContext(e, http.MethodPost, "/api/v1/auth/login", `{"email":"john@example.com","password":"patient123"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var res LoginResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Token == "" || res.User.Name != "John Doe" {
		t.Errorf("unexpected result %+v", res)
	}
	if strings.Contains(rec.Body.String(), "passwordHash") {
		t.Error("password hash leaked in login response")
	}
}

func TestHandler_Login_Unauthorized(t *testing.T) {
	h, e := newTestHandler(t)
	c, _ := jsonContext(e, http.MethodPost, "/api/v1/auth/login", `{"email":"john@example.com","password":"nope"}`)
	if code := httpCode(t, h.Login(c)); code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", code)
	}
}

func TestHandler_Signup(t *testing.T) {
	h, e := newTestHandler(t)
	body := `{"name":"Jane Roe","email":"jane@example.com","phone":"5550001111","password":"secret1","confirmPassword":"secret1","agreeTerms":true}`

	c, rec := jsonContext(e, http.MethodPost, "/api/v1/auth/signup", body)
	if err := h.Signup(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	c, _ = jsonContext(e, http.MethodPost, "/api/v1/auth/signup", body)
	if code := httpCode(t, h.Signup(c)); code != http.StatusConflict {
		t.Errorf("duplicate: expected 409, got %d", code)
	}

	c, _ = jsonContext(e, http.MethodPost, "/api/v1/auth/signup", `{"name":"x"}`)
	if code := httpCode(t, h.Signup(c)); code != http.StatusBadRequest {
		t.Errorf("invalid: expected 400, got %d", code)
	}
}

func TestHandler_MeAndLogout(t *testing.T) {
	h, e := newTestHandler(t)

	c, rec := jsonContext(e, http.MethodGet, "/api/v1/auth/me", "")
	ctx := auth.WithPrincipal(c.Request().Context(), &auth.Principal{UserID: "admin@hms.com", Role: auth.RoleAdmin})
	c.SetRequest(c.Request().WithContext(ctx))
	if err := h.Me(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var p Profile
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatal(err)
	}
	if p.Role != auth.RoleAdmin {
		t.Errorf("unexpected profile %+v", p)
	}

	c, rec = jsonContext(e, http.MethodPost, "/api/v1/auth/logout", "")
	c.SetRequest(c.Request().WithContext(ctx))
	if err := h.Logout(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}

func TestSessionMiddleware_WithService(t *testing.T) {
	h, e := newTestHandler(t)
	api := e.Group("/api/v1", auth.SessionMiddleware(h.svc))
	h.RegisterRoutes(api)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"dr.smith@hms.com","password":"doctor123"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login through middleware: %d %s", rec.Code, rec.Body.String())
	}
	var res LoginResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+res.Token)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "dr.smith@hms.com") {
		t.Errorf("me with token: %d %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("me without token: expected 401, got %d", rec.Code)
	}
}
