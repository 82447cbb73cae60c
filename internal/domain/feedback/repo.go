package feedback

import (
	"context"

	"github.com/hms/hms/internal/platform/store"
)

// Repository keeps every submission in one shared list.
type Repository interface {
	List(ctx context.Context) ([]Feedback, error)
	Update(ctx context.Context, fn func(current []Feedback) ([]Feedback, error)) error
}

type storeRepo struct {
	s store.Store
}

func NewStoreRepository(s store.Store) Repository {
	return &storeRepo{s: s}
}

func (r *storeRepo) List(ctx context.Context) ([]Feedback, error) {
	var out []Feedback
	if _, err := store.GetJSON(ctx, r.s, store.FeedbacksKey, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *storeRepo) Update(ctx context.Context, fn func(current []Feedback) ([]Feedback, error)) error {
	return store.UpdateJSON(ctx, r.s, store.FeedbacksKey, fn)
}
