package admin

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/domain/registration"
	"github.com/hms/hms/internal/domain/scheduling"
	"github.com/hms/hms/internal/platform/apperr"
	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/admin", auth.RequireRole(auth.RoleAdmin))
	g.GET("/dashboard", h.GetDashboard)
	g.GET("/users", h.ListUsers)
	g.GET("/registrations", h.ListRegistrations)
	g.GET("/appointments", h.ListAppointments)
	g.POST("/registrations/:owner/:id/approve", h.ApproveRegistration)
	g.POST("/registrations/:owner/:id/reject", h.RejectRegistration)
}

func (h *Handler) GetDashboard(c echo.Context) error {
	d, err := h.svc.Dashboard(c.Request().Context())
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) ListUsers(c echo.Context) error {
	users, err := h.svc.Users(c.Request().Context())
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.Page(users, pagination.FromContext(c)))
}

func (h *Handler) ListRegistrations(c echo.Context) error {
	var status registration.Status
	if q := c.QueryParam("status"); q != "" {
		st, err := registration.ParseStatus(q)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		status = st
	}
	regs, err := h.svc.Registrations(c.Request().Context(), status)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.Page(regs, pagination.FromContext(c)))
}

func (h *Handler) ListAppointments(c echo.Context) error {
	var status scheduling.AppointmentStatus
	if q := c.QueryParam("status"); q != "" {
		st, err := scheduling.ParseAppointmentStatus(q)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		status = st
	}
	appts, err := h.svc.Appointments(c.Request().Context(), status)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.Page(appts, pagination.FromContext(c)))
}

func (h *Handler) ApproveRegistration(c echo.Context) error {
	reg, err := h.svc.ApproveRegistration(c.Request().Context(), c.Param("owner"), c.Param("id"))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, reg)
}

func (h *Handler) RejectRegistration(c echo.Context) error {
	reg, err := h.svc.RejectRegistration(c.Request().Context(), c.Param("owner"), c.Param("id"))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, reg)
}
