package registration

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
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

var tracer = otel.Tracer("hms/internal/domain/registration")

// Catalog resolves the hospital and doctor a registration points at.
type Catalog interface {
	Hospital(id int) (*catalog.Hospital, error)
	Doctor(id int) (*catalog.Doctor, error)
}

type Service struct {
	repo    Repository
	catalog Catalog
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

func NewService(repo Repository, c Catalog, opts ...Option) *Service {
	s := &Service{repo: repo, catalog: c, now: time.Now, logger: zerolog.Nop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Submit runs the workflow for patientID and stores the pending
// registration. Ids are unique within the patient's list.
func (s *Service) Submit(ctx context.Context, patientID string, req SubmitRequest) (reg *Registration, err error) {
	ctx, span := tracer.Start(ctx, "registration.Submit", trace.WithAttributes(
		attribute.Int("hms.hospital_id", req.HospitalID),
		attribute.Int("hms.doctor_id", req.DoctorID),
	))
	defer span.End()
	defer func() {
		s.metrics.ObserveRegistration("submit", err)
		endSpan(span, err)
	}()

	hospital, err := s.catalog.Hospital(req.HospitalID)
	if err != nil {
		return nil, err
	}
	doctor, err := s.catalog.Doctor(req.DoctorID)
	if err != nil {
		return nil, err
	}
	reg, err = SubmitRegistration(patientID, hospital, doctor, req.Details, s.now())
	if err != nil {
		return nil, err
	}

	base := reg.ID
	err = s.repo.Update(ctx, patientID, func(cur []Registration) ([]Registration, error) {
		reg.ID = uniqueID(cur, base)
		return append(cur, *reg), nil
	})
	if err != nil {
		return nil, fmt.Errorf("store registration: %w", err)
	}

	s.logger.Info().
		Str("registration_id", reg.ID).Str("patient_id", patientID).
		Int("hospital_id", reg.HospitalID).Int("doctor_id", reg.DoctorID).
		Msg("registration submitted")
	return reg, nil
}

// uniqueID bumps the numeric suffix of id until no registration in cur
// uses it.
func uniqueID(cur []Registration, id string) string {
	taken := make(map[string]bool, len(cur))
	for _, r := range cur {
		taken[r.ID] = true
	}
	n, err := strconv.ParseInt(strings.TrimPrefix(id, "REG"), 10, 64)
	if err != nil {
		return id
	}
	for taken[id] {
		n = (n + 1) % idModulus
		id = formatID(n)
	}
	return id
}

// List returns patientID's registrations, newest first.
func (s *Service) List(ctx context.Context, patientID string) ([]Registration, error) {
	regs, err := s.repo.List(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("load registrations: %w", err)
	}
	sortNewestFirst(regs)
	return regs, nil
}

// All returns every patient's registrations, newest first.
func (s *Service) All(ctx context.Context) ([]Registration, error) {
	byPatient, err := s.repo.AllByPatient(ctx)
	if err != nil {
		return nil, err
	}
	var out []Registration
	for _, regs := range byPatient {
		out = append(out, regs...)
	}
	sortNewestFirst(out)
	return out, nil
}

func sortNewestFirst(regs []Registration) {
	sort.SliceStable(regs, func(i, j int) bool {
		if !regs[i].RegistrationDate.Equal(regs[j].RegistrationDate) {
			return regs[i].RegistrationDate.After(regs[j].RegistrationDate)
		}
		return regs[i].ID > regs[j].ID
	})
}

// Approve approves owner's registration id.
func (s *Service) Approve(ctx context.Context, owner, id string) (*Registration, error) {
	return s.transition(ctx, "approve", owner, id, Approve)
}

// Reject rejects owner's registration id.
func (s *Service) Reject(ctx context.Context, owner, id string) (*Registration, error) {
	return s.transition(ctx, "reject", owner, id, Reject)
}

func (s *Service) transition(ctx context.Context, name, owner, id string, fn func(Registration, time.Time) (Registration, error)) (reg *Registration, err error) {
	ctx, span := tracer.Start(ctx, "registration."+name, trace.WithAttributes(
		attribute.String("hms.registration_id", id),
	))
	defer span.End()
	defer func() {
		s.metrics.ObserveRegistration(name, err)
		endSpan(span, err)
	}()

	now := s.now()
	var updated Registration
	err = s.repo.Update(ctx, owner, func(cur []Registration) ([]Registration, error) {
		for i, r := range cur {
			if r.ID != id {
				continue
			}
			next, err := fn(r, now)
			if err != nil {
				return nil, err
			}
			cur[i], updated = next, next
			return cur, nil
		}
		return nil, apperr.Newf(apperr.ErrNotFound, "registration %s for %s", id, owner)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("registration_id", id).Str("patient_id", owner).
		Str("status", string(updated.Status)).Msg("registration reviewed")
	return &updated, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperr.Code(err))
	}
}
