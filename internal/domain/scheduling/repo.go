package scheduling

import (
	"context"
	"fmt"
	"strings"

	"github.com/hms/hms/internal/platform/store"
)

// AppointmentsFunc transforms a list of appointments inside an atomic update.
type AppointmentsFunc func(current []Appointment) ([]Appointment, error)

// Repository persists appointments twice: in the doctor-day schedule
// document, which is the booking guard, and in the owning patient's list.
type Repository interface {
	DayAppointments(ctx context.Context, doctorID int, date string) ([]Appointment, error)
	UpdateDay(ctx context.Context, doctorID int, date string, fn AppointmentsFunc) error
	PatientAppointments(ctx context.Context, patientID string) ([]Appointment, error)
	UpdatePatient(ctx context.Context, patientID string, fn AppointmentsFunc) error
	// AllByPatient returns every patient list, keyed by patient id.
	AllByPatient(ctx context.Context) (map[string][]Appointment, error)
}

type storeRepo struct {
	s store.Store
}

func NewStoreRepository(s store.Store) Repository {
	return &storeRepo{s: s}
}

func (r *storeRepo) list(ctx context.Context, key string) ([]Appointment, error) {
	var out []Appointment
	if _, err := store.GetJSON(ctx, r.s, key, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *storeRepo) DayAppointments(ctx context.Context, doctorID int, date string) ([]Appointment, error) {
	return r.list(ctx, store.ScheduleKey(doctorID, date))
}

func (r *storeRepo) UpdateDay(ctx context.Context, doctorID int, date string, fn AppointmentsFunc) error {
	return store.UpdateJSON(ctx, r.s, store.ScheduleKey(doctorID, date), func(cur []Appointment) ([]Appointment, error) {
		return fn(cur)
	})
}

func (r *storeRepo) PatientAppointments(ctx context.Context, patientID string) ([]Appointment, error) {
	return r.list(ctx, store.AppointmentsKey(patientID))
}

func (r *storeRepo) UpdatePatient(ctx context.Context, patientID string, fn AppointmentsFunc) error {
	return store.UpdateJSON(ctx, r.s, store.AppointmentsKey(patientID), func(cur []Appointment) ([]Appointment, error) {
		return fn(cur)
	})
}

func (r *storeRepo) AllByPatient(ctx context.Context) (map[string][]Appointment, error) {
	keys, err := r.s.Keys(ctx, store.AppointmentsPrefix)
	if err != nil {
		return nil, fmt.Errorf("list appointment partitions: %w", err)
	}
	out := make(map[string][]Appointment, len(keys))
	for _, k := range keys {
		appts, err := r.list(ctx, k)
		if err != nil {
			return nil, err
		}
		out[strings.TrimPrefix(k, store.AppointmentsPrefix)] = appts
	}
	return out, nil
}
