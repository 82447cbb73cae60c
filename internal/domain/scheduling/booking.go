package scheduling

import (
	"time"

	"github.com/hms/hms/internal/domain/catalog"
	"github.com/hms/hms/internal/platform/apperr"
	"github.com/hms/hms/pkg/validate"
)

// DefaultHorizonMonths bounds how far ahead a booking may be made.
const DefaultHorizonMonths = 3

// Engine validates and builds appointments. It holds no mutable state of its
// own; callers supply the current appointments and the current time.
type Engine struct {
	Grid          SlotGrid
	HorizonMonths int
	IDs           IDSource
}

// NewEngine fills in defaults for an invalid grid, a non-positive horizon or
// a nil id source.
func NewEngine(grid SlotGrid, horizonMonths int, ids IDSource) *Engine {
	if !grid.Valid() {
		grid = DefaultGrid()
	}
	if horizonMonths <= 0 {
		horizonMonths = DefaultHorizonMonths
	}
	if ids == nil {
		ids = UnixMilliIDs
	}
	return &Engine{Grid: grid, HorizonMonths: horizonMonths, IDs: ids}
}

// Book checks req against existing (the doctor's appointments on req.Date)
// and returns the new confirmed appointment for the caller to persist.
//
// Checks run in a fixed order: unknown doctor, malformed input, date outside
// [today, today+HorizonMonths], slot not on the grid, slot not free.
func (e *Engine) Book(req BookingRequest, doctor *catalog.Doctor, existing []Appointment, now time.Time) (*Appointment, error) {
	if doctor == nil {
		return nil, apperr.Newf(apperr.ErrNotFound, "doctor %d", req.DoctorID)
	}
	if err := validate.Struct(req); err != nil {
		return nil, apperr.Newf(apperr.ErrValidation, "%v", err)
	}
	if req.DoctorID != 0 && req.DoctorID != doctor.ID {
		return nil, apperr.Newf(apperr.ErrValidation, "doctorId %d does not match doctor %d", req.DoctorID, doctor.ID)
	}
	day, err := ParseDate(req.Date, now.Location())
	if err != nil {
		return nil, err
	}
	if err := e.checkHorizon(day, now); err != nil {
		return nil, err
	}
	if !e.Grid.Contains(req.Time) {
		return nil, apperr.Newf(apperr.ErrInvalidSlot, "%q", req.Time)
	}

	avail, err := e.Grid.Availability(doctor.ID, req.Date, existing, now)
	if err != nil {
		return nil, err
	}
	if state, _ := stateOf(avail, req.Time); state != SlotFree {
		return nil, apperr.Newf(apperr.ErrSlotUnavailable, "doctor %d on %s at %s is %s", doctor.ID, req.Date, req.Time, state)
	}

	return &Appointment{
		ID:              e.IDs.NextID(now),
		PatientID:       req.PatientID,
		PatientName:     req.PatientName,
		PatientPhone:    req.PatientPhone,
		PatientEmail:    req.PatientEmail,
		DoctorID:        doctor.ID,
		DoctorName:      doctor.Name,
		Specialty:       doctor.Specialty,
		Hospital:        doctor.Hospital,
		Date:            req.Date,
		Time:            req.Time,
		Reason:          req.Reason,
		Notes:           req.Notes,
		Status:          StatusConfirmed,
		ConsultationFee: doctor.ConsultationFee,
		BookedAt:        now,
	}, nil
}

func (e *Engine) checkHorizon(day, now time.Time) error {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	last := today.AddDate(0, e.HorizonMonths, 0)
	if day.Before(today) || day.After(last) {
		return apperr.Newf(apperr.ErrOutOfRangeDate, "%s not within %s..%s",
			day.Format(DateLayout), today.Format(DateLayout), last.Format(DateLayout))
	}
	return nil
}

// Reschedule cancels old and books the same doctor at req. existing holds
// the doctor's appointments on req.Date; if old is among them its slot is
// treated as released. Nothing is returned unless both steps succeed.
func (e *Engine) Reschedule(old Appointment, req RescheduleRequest, doctor *catalog.Doctor, existing []Appointment, now time.Time) (cancelled Appointment, booked *Appointment, err error) {
	cancelled, err = CancelAppointment(old, now)
	if err != nil {
		return Appointment{}, nil, err
	}

	view := make([]Appointment, len(existing))
	for i, a := range existing {
		if a.ID == old.ID {
			a = cancelled
		}
		view[i] = a
	}

	booked, err = e.Book(BookingRequest{
		PatientID:    old.PatientID,
		PatientName:  old.PatientName,
		PatientPhone: old.PatientPhone,
		PatientEmail: old.PatientEmail,
		DoctorID:     old.DoctorID,
		Date:         req.Date,
		Time:         req.Time,
		Reason:       old.Reason,
		Notes:        old.Notes,
	}, doctor, view, now)
	if err != nil {
		return Appointment{}, nil, err
	}
	from := old.ID
	booked.RescheduledFrom = &from
	return cancelled, booked, nil
}

// BookAppointment books against the default grid and horizon. A nil ids
// uses the millisecond timestamp.
func BookAppointment(req BookingRequest, doctor *catalog.Doctor, existing []Appointment, now time.Time, ids IDSource) (*Appointment, error) {
	return NewEngine(DefaultGrid(), DefaultHorizonMonths, ids).Book(req, doctor, existing, now)
}

// CancelAppointment moves a confirmed appointment to cancelled. appt itself
// is left untouched; the updated copy is returned.
func CancelAppointment(appt Appointment, now time.Time) (Appointment, error) {
	switch appt.Status {
	case StatusConfirmed:
		appt.Status = StatusCancelled
		at := now
		appt.CancelledAt = &at
		return appt, nil
	case StatusCancelled:
		return appt, apperr.Newf(apperr.ErrAlreadyCancelled, "appointment %d", appt.ID)
	default:
		return appt, apperr.Newf(apperr.ErrInvalidTransition, "appointment %d is %s", appt.ID, appt.Status)
	}
}
