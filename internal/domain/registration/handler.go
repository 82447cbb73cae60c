package registration

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/platform/apperr"
	"github.com/hms/hms/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	patients := api.Group("/registrations", auth.RequireRole(auth.RolePatient))
	patients.POST("", h.Submit)
	patients.GET("", h.List)
}

func (h *Handler) Submit(c echo.Context) error {
	var req SubmitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	reg, err := h.svc.Submit(c.Request().Context(), auth.UserIDFromContext(c.Request().Context()), req)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, reg)
}

func (h *Handler) List(c echo.Context) error {
	regs, err := h.svc.List(c.Request().Context(), auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if regs == nil {
		regs = []Registration{}
	}
	return c.JSON(http.StatusOK, regs)
}
