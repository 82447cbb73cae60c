package catalog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	e := echo.New()
	NewHandler(mustDefault(t)).RegisterRoutes(e.Group("/api/v1"))
	return e
}

func doGet(e *echo.Echo, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandler_GetDoctor(t *testing.T) {
	e := newTestServer(t)

	rec := doGet(e, "/api/v1/doctors/3")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var d Doctor
	if err := json.Unmarshal(rec.Body.Bytes(), &d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.ID != 3 {
		t.Errorf("expected doctor 3, got %d", d.ID)
	}
}

func TestHandler_NotFoundAndBadID(t *testing.T) {
	e := newTestServer(t)
	tests := []struct {
		target string
		code   int
	}{
		{"/api/v1/doctors/999", http.StatusNotFound},
		{"/api/v1/doctors/abc", http.StatusBadRequest},
		{"/api/v1/hospitals/999", http.StatusNotFound},
		{"/api/v1/hospitals/x/doctors", http.StatusBadRequest},
		{"/api/v1/doctors?minExperience=-1", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			if rec := doGet(e, tt.target); rec.Code != tt.code {
				t.Errorf("expected %d, got %d", tt.code, rec.Code)
			}
		})
	}
}

func TestHandler_ListDoctorsPaginates(t *testing.T) {
	e := newTestServer(t)

	rec := doGet(e, "/api/v1/doctors?sort=price&limit=2&offset=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Data    []Doctor `json:"data"`
		Total   int      `json:"total"`
		HasMore bool     `json:"hasMore"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Total != 8 || !body.HasMore {
		t.Errorf("unexpected paging: total=%d hasMore=%v", body.Total, body.HasMore)
	}
	if len(body.Data) != 2 || body.Data[0].ID != 3 || body.Data[1].ID != 5 {
		t.Errorf("unexpected page %+v", body.Data)
	}
}

func TestHandler_ListHospitalDoctors(t *testing.T) {
	e := newTestServer(t)

	rec := doGet(e, "/api/v1/hospitals/3/doctors")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var doctors []Doctor
	if err := json.Unmarshal(rec.Body.Bytes(), &doctors); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(doctors) != 1 || doctors[0].ID != 7 {
		t.Errorf("unexpected doctors %+v", doctors)
	}
}

func TestHandler_ListHospitalsByType(t *testing.T) {
	e := newTestServer(t)

	rec := doGet(e, "/api/v1/hospitals?type=private")
	var body struct {
		Data []Hospital `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Data) != 1 || body.Data[0].ID != 2 {
		t.Errorf("unexpected hospitals %+v", body.Data)
	}
}
