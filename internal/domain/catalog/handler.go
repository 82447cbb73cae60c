package catalog

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/platform/apperr"
	"github.com/hms/hms/pkg/pagination"
)

type Handler struct {
	catalog *Provider
}

func NewHandler(p *Provider) *Handler {
	return &Handler{catalog: p}
}

// RegisterRoutes mounts the catalog under api. Every signed-in role may read.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/hospitals", h.ListHospitals)
	api.GET("/hospitals/:id", h.GetHospital)
	api.GET("/hospitals/:id/doctors", h.ListHospitalDoctors)
	api.GET("/doctors", h.ListDoctors)
	api.GET("/doctors/:id", h.GetDoctor)
}

func (h *Handler) ListHospitals(c echo.Context) error {
	hospitals := h.catalog.SearchHospitals(HospitalQuery{
		Type: c.QueryParam("type"),
		Text: c.QueryParam("q"),
	})
	return c.JSON(http.StatusOK, pagination.Page(hospitals, pagination.FromContext(c)))
}

func (h *Handler) GetHospital(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid hospital id")
	}
	hospital, err := h.catalog.Hospital(id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, hospital)
}

func (h *Handler) ListHospitalDoctors(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid hospital id")
	}
	hospital, err := h.catalog.Hospital(id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	doctors := h.catalog.DoctorsAtHospital(hospital.Name)
	if doctors == nil {
		doctors = []Doctor{}
	}
	return c.JSON(http.StatusOK, doctors)
}

func (h *Handler) ListDoctors(c echo.Context) error {
	minExp := 0
	if v := c.QueryParam("minExperience"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid minExperience")
		}
		minExp = n
	}
	doctors := h.catalog.SearchDoctors(DoctorQuery{
		Specialty:     c.QueryParam("specialty"),
		Text:          c.QueryParam("q"),
		MinExperience: minExp,
		Sort:          DoctorSort(c.QueryParam("sort")),
	})
	return c.JSON(http.StatusOK, pagination.Page(doctors, pagination.FromContext(c)))
}

func (h *Handler) GetDoctor(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	doctor, err := h.catalog.Doctor(id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, doctor)
}
