// Package store provides the namespaced key -> JSON document persistence used
// by the booking core. Backends: an in-process map, Redis, and a Postgres
// JSONB table. All of them implement Update as a compare-and-set so that a
// read-check-write sequence on one key commits atomically.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrNotFound is returned by Get when the key has never been written.
	ErrNotFound = errors.New("store: key not found")
	// ErrConflict is returned by Update when optimistic retries are exhausted.
	ErrConflict = errors.New("store: concurrent modification")
)

// UpdateFunc receives the current document (nil when the key is absent) and
// returns the document to write. Returning an error aborts the update and
// leaves the stored value untouched. The function may be invoked more than
// once by optimistic backends and must not call back into the store.
type UpdateFunc func(current []byte) ([]byte, error)

// Store is the record store contract.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Update(ctx context.Context, key string, fn UpdateFunc) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	Ping(ctx context.Context) error
	Close() error
}

// Well-known keys and partitions.
const (
	UsersKey            = "hms_users"
	FeedbacksKey        = "hms_feedbacks"
	SessionPrefix       = "session_"
	AppointmentsPrefix  = "appointments_"
	RegistrationsPrefix = "registrations_"
	SchedulePrefix      = "schedule_"
)

func SessionKey(email string) string           { return SessionPrefix + email }
func AppointmentsKey(patientID string) string  { return AppointmentsPrefix + patientID }
func RegistrationsKey(patientID string) string { return RegistrationsPrefix + patientID }

// ScheduleKey addresses the per doctor-day document that holds every
// appointment booked with doctorID on date.
func ScheduleKey(doctorID int, date string) string {
	return SchedulePrefix + strconv.Itoa(doctorID) + "_" + date
}

// GetJSON decodes the document at key into dst. It reports false, with a nil
// error, when the key is absent.
func GetJSON(ctx context.Context, s Store, key string, dst any) (bool, error) {
	raw, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("store: decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes v and writes it at key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}

// UpdateJSON runs a typed compare-and-set on key. An absent key is presented
// to fn as the zero value of T.
func UpdateJSON[T any](ctx context.Context, s Store, key string, fn func(current T) (T, error)) error {
	return s.Update(ctx, key, func(raw []byte) ([]byte, error) {
		var current T
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &current); err != nil {
				return nil, fmt.Errorf("store: decode %s: %w", key, err)
			}
		}
		next, err := fn(current)
		if err != nil {
			return nil, err
		}
		out, err := json.Marshal(next)
		if err != nil {
			return nil, fmt.Errorf("store: encode %s: %w", key, err)
		}
		return out, nil
	})
}
