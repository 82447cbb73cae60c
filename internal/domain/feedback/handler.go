package feedback

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

// RegisterRoutes lets any signed-in user submit and admins read.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/feedback", h.Submit)

	admin := api.Group("/admin/feedback", auth.RequireRole(auth.RoleAdmin))
	admin.GET("", h.List)
	admin.GET("/stats", h.Stats)
}

func (h *Handler) Submit(c echo.Context) error {
	var req SubmitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p, _ := auth.PrincipalFromContext(c.Request().Context())
	fb, err := h.svc.Submit(c.Request().Context(), p, req)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, fb)
}

func (h *Handler) List(c echo.Context) error {
	items, err := h.svc.List(c.Request().Context())
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if items == nil {
		items = []Feedback{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Stats(c echo.Context) error {
	st, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, st)
}
