package scheduling

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hms/hms/internal/domain/catalog"
	"github.com/hms/hms/internal/platform/apperr"
	"github.com/hms/hms/internal/platform/metrics"
)

var tracer = otel.Tracer("hms/internal/domain/scheduling")

// DoctorLookup resolves catalog doctors by id.
type DoctorLookup interface {
	Doctor(id int) (*catalog.Doctor, error)
}

// Service runs the engine against the store. The doctor-day document is
// updated with a compare-and-set, so the engine's slot re-check and the
// write commit together; two bookings for one slot cannot both succeed.
type Service struct {
	repo    Repository
	doctors DoctorLookup
	engine  *Engine
	now     func() time.Time
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

type Option func(*Service)

// WithClock sets the time source. Its location is the clinic time zone.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(repo Repository, doctors DoctorLookup, engine *Engine, opts ...Option) *Service {
	if engine == nil {
		engine = NewEngine(DefaultGrid(), DefaultHorizonMonths, &MonotonicIDs{})
	}
	s := &Service{
		repo:    repo,
		doctors: doctors,
		engine:  engine,
		now:     time.Now,
		logger:  zerolog.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Grid() SlotGrid { return s.engine.Grid }

// Availability reports the grid for doctorID on date as of now.
func (s *Service) Availability(ctx context.Context, doctorID int, date string) ([]SlotAvailability, error) {
	ctx, span := tracer.Start(ctx, "scheduling.Availability", trace.WithAttributes(
		attribute.Int("hms.doctor_id", doctorID),
		attribute.String("hms.date", date),
	))
	defer span.End()

	doctor, err := s.doctors.Doctor(doctorID)
	if err != nil {
		return nil, endSpan(span, err)
	}
	now := s.now()
	if _, err := ParseDate(date, now.Location()); err != nil {
		return nil, endSpan(span, err)
	}
	appts, err := s.repo.DayAppointments(ctx, doctor.ID, date)
	if err != nil {
		return nil, endSpan(span, fmt.Errorf("load schedule: %w", err))
	}
	return s.engine.Grid.Availability(doctor.ID, date, appts, now)
}

// Book commits a new appointment for req.PatientID.
func (s *Service) Book(ctx context.Context, req BookingRequest) (appt *Appointment, err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "scheduling.Book", trace.WithAttributes(
		attribute.Int("hms.doctor_id", req.DoctorID),
		attribute.String("hms.date", req.Date),
		attribute.String("hms.slot", req.Time),
	))
	defer span.End()
	defer func() {
		s.metrics.ObserveBooking(err, time.Since(start).Seconds())
		endSpan(span, err)
	}()

	doctor, err := s.doctors.Doctor(req.DoctorID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	// Input errors surface before any store key is derived from the date.
	if _, err := s.engine.Book(req, doctor, nil, now); err != nil && !errors.Is(err, apperr.ErrSlotUnavailable) {
		return nil, err
	}

	var booked *Appointment
	err = s.repo.UpdateDay(ctx, doctor.ID, req.Date, func(cur []Appointment) ([]Appointment, error) {
		a, err := s.engine.Book(req, doctor, cur, now)
		if err != nil {
			return nil, err
		}
		booked = a
		return append(cur, *a), nil
	})
	if err != nil {
		s.logger.Info().Err(err).
			Int("doctor_id", doctor.ID).Str("date", req.Date).Str("slot", req.Time).
			Msg("booking rejected")
		return nil, err
	}

	err = s.repo.UpdatePatient(ctx, req.PatientID, func(cur []Appointment) ([]Appointment, error) {
		return append(cur, *booked), nil
	})
	if err != nil {
		s.compensateDay(ctx, booked.DoctorID, booked.Date, func(cur []Appointment) ([]Appointment, error) {
			return removeAppointment(cur, booked.ID), nil
		})
		return nil, fmt.Errorf("record appointment for %s: %w", req.PatientID, err)
	}

	span.SetAttributes(attribute.Int64("hms.appointment_id", booked.ID))
	s.logger.Info().
		Int64("appointment_id", booked.ID).Str("patient_id", booked.PatientID).
		Int("doctor_id", booked.DoctorID).Str("date", booked.Date).Str("slot", booked.Time).
		Msg("appointment booked")
	return booked, nil
}

// Cancel cancels one of patientID's appointments and frees its slot.
func (s *Service) Cancel(ctx context.Context, patientID string, id int64) (appt *Appointment, err error) {
	ctx, span := tracer.Start(ctx, "scheduling.Cancel", trace.WithAttributes(
		attribute.Int64("hms.appointment_id", id),
	))
	defer span.End()
	defer func() {
		s.metrics.ObserveCancellation(err)
		endSpan(span, err)
	}()

	old, err := s.Get(ctx, patientID, id)
	if err != nil {
		return nil, err
	}
	now := s.now()

	var cancelled Appointment
	var before *Appointment
	err = s.repo.UpdateDay(ctx, old.DoctorID, old.Date, func(cur []Appointment) ([]Appointment, error) {
		before = nil
		src := *old
		i := indexOf(cur, id)
		if i >= 0 {
			src = cur[i]
		}
		c, err := CancelAppointment(src, now)
		if err != nil {
			return nil, err
		}
		cancelled = c
		if i >= 0 {
			prev := cur[i]
			before = &prev
			cur[i] = c
		}
		return cur, nil
	})
	if err != nil {
		return nil, err
	}

	err = s.repo.UpdatePatient(ctx, patientID, func(cur []Appointment) ([]Appointment, error) {
		i := indexOf(cur, id)
		if i < 0 {
			return nil, apperr.Newf(apperr.ErrNotFound, "appointment %d", id)
		}
		cur[i] = cancelled
		return cur, nil
	})
	if err != nil {
		if before != nil {
			restore := *before
			s.compensateDay(ctx, old.DoctorID, old.Date, func(cur []Appointment) ([]Appointment, error) {
				return replaceAppointment(cur, restore), nil
			})
		}
		return nil, fmt.Errorf("record cancellation: %w", err)
	}

	s.logger.Info().Int64("appointment_id", id).Str("patient_id", patientID).Msg("appointment cancelled")
	return &cancelled, nil
}

// Reschedule cancels appointment id and books the same doctor at req. Either
// both changes are stored or neither is.
func (s *Service) Reschedule(ctx context.Context, patientID string, id int64, req RescheduleRequest) (appt *Appointment, err error) {
	ctx, span := tracer.Start(ctx, "scheduling.Reschedule", trace.WithAttributes(
		attribute.Int64("hms.appointment_id", id),
		attribute.String("hms.date", req.Date),
		attribute.String("hms.slot", req.Time),
	))
	defer span.End()
	defer func() {
		s.metrics.ObserveReschedule(err)
		endSpan(span, err)
	}()

	old, err := s.Get(ctx, patientID, id)
	if err != nil {
		return nil, err
	}
	doctor, err := s.doctors.Doctor(old.DoctorID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if _, err := ParseDate(req.Date, now.Location()); err != nil {
		return nil, err
	}

	var cancelled Appointment
	var booked *Appointment
	if req.Date == old.Date {
		err = s.repo.UpdateDay(ctx, doctor.ID, req.Date, func(cur []Appointment) ([]Appointment, error) {
			src := *old
			if i := indexOf(cur, id); i >= 0 {
				src = cur[i]
			}
			c, b, err := s.engine.Reschedule(src, req, doctor, cur, now)
			if err != nil {
				return nil, err
			}
			cancelled, booked = c, b
			return append(replaceAppointment(cur, c), *b), nil
		})
		if err != nil {
			return nil, err
		}
	} else {
		err = s.repo.UpdateDay(ctx, doctor.ID, req.Date, func(cur []Appointment) ([]Appointment, error) {
			c, b, err := s.engine.Reschedule(*old, req, doctor, cur, now)
			if err != nil {
				return nil, err
			}
			cancelled, booked = c, b
			return append(cur, *b), nil
		})
		if err != nil {
			return nil, err
		}
		err = s.repo.UpdateDay(ctx, old.DoctorID, old.Date, func(cur []Appointment) ([]Appointment, error) {
			i := indexOf(cur, id)
			if i < 0 {
				return cur, nil
			}
			c, err := CancelAppointment(cur[i], now)
			if err != nil {
				return nil, err
			}
			cur[i] = c
			return cur, nil
		})
		if err != nil {
			newID := booked.ID
			s.compensateDay(ctx, doctor.ID, req.Date, func(cur []Appointment) ([]Appointment, error) {
				return removeAppointment(cur, newID), nil
			})
			return nil, err
		}
	}

	err = s.repo.UpdatePatient(ctx, patientID, func(cur []Appointment) ([]Appointment, error) {
		if indexOf(cur, id) < 0 {
			return nil, apperr.Newf(apperr.ErrNotFound, "appointment %d", id)
		}
		return append(replaceAppointment(cur, cancelled), *booked), nil
	})
	if err != nil {
		original, newID := *old, booked.ID
		s.compensateDay(ctx, doctor.ID, req.Date, func(cur []Appointment) ([]Appointment, error) {
			return removeAppointment(cur, newID), nil
		})
		s.compensateDay(ctx, original.DoctorID, original.Date, func(cur []Appointment) ([]Appointment, error) {
			return replaceAppointment(cur, original), nil
		})
		return nil, fmt.Errorf("record reschedule: %w", err)
	}

	s.logger.Info().
		Int64("appointment_id", booked.ID).Int64("rescheduled_from", id).
		Str("date", booked.Date).Str("slot", booked.Time).
		Msg("appointment rescheduled")
	return booked, nil
}

// Get returns one of patientID's appointments.
func (s *Service) Get(ctx context.Context, patientID string, id int64) (*Appointment, error) {
	appts, err := s.repo.PatientAppointments(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}
	if i := indexOf(appts, id); i >= 0 {
		return &appts[i], nil
	}
	return nil, apperr.Newf(apperr.ErrNotFound, "appointment %d", id)
}

// View selects which of a patient's appointments List returns.
type View string

const (
	ViewUpcoming View = "upcoming"
	ViewHistory  View = "history"
	ViewAll      View = "all"
)

func ParseView(s string) (View, error) {
	switch v := View(s); v {
	case ViewUpcoming, ViewHistory, ViewAll:
		return v, nil
	case "":
		return ViewUpcoming, nil
	}
	return "", apperr.Newf(apperr.ErrValidation, "unknown view %q", s)
}

// List returns patientID's appointments for view. Upcoming holds
// non-cancelled appointments that start after now, soonest first. History
// holds everything that started at or before now, latest first. All is every
// appointment in start order.
func (s *Service) List(ctx context.Context, patientID string, view View) ([]Appointment, error) {
	appts, err := s.repo.PatientAppointments(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}
	now := s.now()
	out := make([]Appointment, 0, len(appts))
	for _, a := range appts {
		started := !startOf(a, now.Location()).After(now)
		switch view {
		case ViewUpcoming:
			if a.Occupies() && !started {
				out = append(out, a)
			}
		case ViewHistory:
			if started {
				out = append(out, a)
			}
		default:
			out = append(out, a)
		}
	}
	loc := now.Location()
	sort.SliceStable(out, func(i, j int) bool {
		if view == ViewHistory {
			return startOf(out[i], loc).After(startOf(out[j], loc))
		}
		return startOf(out[i], loc).Before(startOf(out[j], loc))
	})
	return out, nil
}

func (s *Service) ListUpcoming(ctx context.Context, patientID string) ([]Appointment, error) {
	return s.List(ctx, patientID, ViewUpcoming)
}

func (s *Service) ListHistory(ctx context.Context, patientID string) ([]Appointment, error) {
	return s.List(ctx, patientID, ViewHistory)
}

// AllAppointments returns every patient's appointments, most recently booked
// first.
func (s *Service) AllAppointments(ctx context.Context) ([]Appointment, error) {
	byPatient, err := s.repo.AllByPatient(ctx)
	if err != nil {
		return nil, err
	}
	var out []Appointment
	for _, appts := range byPatient {
		out = append(out, appts...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].BookedAt.Equal(out[j].BookedAt) {
			return out[i].BookedAt.After(out[j].BookedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// compensateDay undoes a doctor-day write after a later step failed. It runs
// even if ctx was cancelled.
func (s *Service) compensateDay(ctx context.Context, doctorID int, date string, fn AppointmentsFunc) {
	if err := s.repo.UpdateDay(context.WithoutCancel(ctx), doctorID, date, fn); err != nil {
		s.logger.Error().Err(err).
			Int("doctor_id", doctorID).Str("date", date).
			Msg("failed to roll back schedule document")
	}
}

func startOf(a Appointment, loc *time.Location) time.Time {
	day, err := time.ParseInLocation(DateLayout, a.Date, loc)
	if err != nil || len(a.Time) != 5 {
		return time.Time{}
	}
	return slotStart(day, a.Time)
}

func indexOf(appts []Appointment, id int64) int {
	for i, a := range appts {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func replaceAppointment(appts []Appointment, a Appointment) []Appointment {
	if i := indexOf(appts, a.ID); i >= 0 {
		appts[i] = a
	}
	return appts
}

func removeAppointment(appts []Appointment, id int64) []Appointment {
	out := appts[:0]
	for _, a := range appts {
		if a.ID != id {
			out = append(out, a)
		}
	}
	return out
}

func endSpan(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperr.Code(err))
	}
	return err
}
