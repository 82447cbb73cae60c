package registration

import (
	"context"
	"fmt"
	"strings"

	"github.com/hms/hms/internal/platform/store"
)

// RegistrationsFunc transforms one patient's registrations inside an atomic
// update.
type RegistrationsFunc func(current []Registration) ([]Registration, error)

// Repository stores registrations in one list per patient.
type Repository interface {
	List(ctx context.Context, patientID string) ([]Registration, error)
	Update(ctx context.Context, patientID string, fn RegistrationsFunc) error
	AllByPatient(ctx context.Context) (map[string][]Registration, error)
}

type storeRepo struct {
	s store.Store
}

func NewStoreRepository(s store.Store) Repository {
	return &storeRepo{s: s}
}

func (r *storeRepo) List(ctx context.Context, patientID string) ([]Registration, error) {
	return r.list(ctx, store.RegistrationsKey(patientID))
}

func (r *storeRepo) list(ctx context.Context, key string) ([]Registration, error) {
	var out []Registration
	if _, err := store.GetJSON(ctx, r.s, key, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *storeRepo) Update(ctx context.Context, patientID string, fn RegistrationsFunc) error {
	return store.UpdateJSON(ctx, r.s, store.RegistrationsKey(patientID), func(cur []Registration) ([]Registration, error) {
		return fn(cur)
	})
}

func (r *storeRepo) AllByPatient(ctx context.Context) (map[string][]Registration, error) {
	keys, err := r.s.Keys(ctx, store.RegistrationsPrefix)
	if err != nil {
		return nil, fmt.Errorf("list registration partitions: %w", err)
	}
	out := make(map[string][]Registration, len(keys))
	for _, k := range keys {
		regs, err := r.list(ctx, k)
		if err != nil {
			return nil, err
		}
		out[strings.TrimPrefix(k, store.RegistrationsPrefix)] = regs
	}
	return out, nil
}
