package scheduling

import (
	"net/http"
	"strconv"

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
	// Grid and availability are visible to every signed-in role.
	api.GET("/slots", h.ListSlots)
	api.GET("/doctors/:id/availability", h.GetAvailability)

	patients := api.Group("", auth.RequireRole(auth.RolePatient))
	patients.POST("/appointments", h.BookAppointment)
	patients.GET("/appointments", h.ListAppointments)
	patients.GET("/appointments/:id", h.GetAppointment)
	patients.POST("/appointments/:id/cancel", h.CancelAppointment)
	patients.POST("/appointments/:id/reschedule", h.RescheduleAppointment)
}

type slotsResponse struct {
	Slots           []string `json:"slots"`
	StartHour       int      `json:"startHour"`
	EndHour         int      `json:"endHour"`
	DurationMinutes int      `json:"durationMinutes"`
}

func (h *Handler) ListSlots(c echo.Context) error {
	g := h.svc.Grid()
	return c.JSON(http.StatusOK, slotsResponse{
		Slots:           g.Slots(),
		StartHour:       g.StartHour,
		EndHour:         g.EndHour,
		DurationMinutes: g.DurationMinutes,
	})
}

type availabilityResponse struct {
	DoctorID int                `json:"doctorId"`
	Date     string             `json:"date"`
	Slots    []SlotAvailability `json:"slots"`
}

func (h *Handler) GetAvailability(c echo.Context) error {
	doctorID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	date := c.QueryParam("date")
	if date == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "date is required")
	}
	slots, err := h.svc.Availability(c.Request().Context(), doctorID, date)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, availabilityResponse{DoctorID: doctorID, Date: date, Slots: slots})
}

func (h *Handler) BookAppointment(c echo.Context) error {
	var req BookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.PatientID = auth.UserIDFromContext(c.Request().Context())
	appt, err := h.svc.Book(c.Request().Context(), req)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, appt)
}

func (h *Handler) ListAppointments(c echo.Context) error {
	view, err := ParseView(c.QueryParam("view"))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	appts, err := h.svc.List(c.Request().Context(), auth.UserIDFromContext(c.Request().Context()), view)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, appts)
}

func (h *Handler) GetAppointment(c echo.Context) error {
	id, err := appointmentID(c)
	if err != nil {
		return err
	}
	appt, err := h.svc.Get(c.Request().Context(), auth.UserIDFromContext(c.Request().Context()), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) CancelAppointment(c echo.Context) error {
	id, err := appointmentID(c)
	if err != nil {
		return err
	}
	appt, err := h.svc.Cancel(c.Request().Context(), auth.UserIDFromContext(c.Request().Context()), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) RescheduleAppointment(c echo.Context) error {
	id, err := appointmentID(c)
	if err != nil {
		return err
	}
	var req RescheduleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	appt, err := h.svc.Reschedule(c.Request().Context(), auth.UserIDFromContext(c.Request().Context()), id, req)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, appt)
}

func appointmentID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}
	return id, nil
}
