package feedback

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hms/hms/internal/platform/apperr"
	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/internal/platform/metrics"
	"github.com/hms/hms/pkg/validate"
)

var tracer = otel.Tracer("hms/internal/domain/feedback")

const anonymous = "Anonymous"

type Service struct {
	repo    Repository
	now     func() time.Time
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, now: time.Now, logger: zerolog.Nop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Submit stores a rating from the signed-in user. The id is the submission
// time in milliseconds, bumped past any id already stored.
func (s *Service) Submit(ctx context.Context, by *auth.Principal, req SubmitRequest) (fb *Feedback, err error) {
	ctx, span := tracer.Start(ctx, "feedback.Submit", trace.WithAttributes(
		attribute.Int("hms.rating", req.Rating),
	))
	defer span.End()
	defer func() {
		s.metrics.ObserveFeedback(err)
		endSpan(span, err)
	}()

	if by == nil {
		return nil, apperr.Newf(apperr.ErrUnauthorized, "feedback requires a signed-in user")
	}
	if err := validate.Struct(req); err != nil {
		return nil, apperr.Newf(apperr.ErrValidation, "%v", err)
	}

	now := s.now().UTC()
	fb = &Feedback{
		Rating:    req.Rating,
		Message:   strings.TrimSpace(req.Message),
		Timestamp: now,
		UserID:    by.UserID,
		UserName:  by.Name,
	}
	if strings.TrimSpace(fb.UserName) == "" {
		fb.UserName = anonymous
	}
	err = s.repo.Update(ctx, func(cur []Feedback) ([]Feedback, error) {
		fb.ID = nextID(cur, now.UnixMilli())
		return append(cur, *fb), nil
	})
	if err != nil {
		return nil, fmt.Errorf("store feedback: %w", err)
	}

	s.logger.Info().Int64("feedback_id", fb.ID).Str("user_id", fb.UserID).
		Int("rating", fb.Rating).Msg("feedback submitted")
	return fb, nil
}

func nextID(cur []Feedback, id int64) int64 {
	for _, f := range cur {
		if f.ID >= id {
			id = f.ID + 1
		}
	}
	return id
}

// List returns every submission, newest first.
func (s *Service) List(ctx context.Context) ([]Feedback, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load feedback: %w", err)
	}
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].Timestamp.Equal(items[j].Timestamp) {
			return items[i].Timestamp.After(items[j].Timestamp)
		}
		return items[i].ID > items[j].ID
	})
	return items, nil
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("load feedback: %w", err)
	}
	return Summarize(items), nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperr.Code(err))
	}
}
