package admin

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hms/hms/internal/domain/catalog"
	"github.com/hms/hms/internal/domain/identity"
	"github.com/hms/hms/internal/domain/registration"
	"github.com/hms/hms/internal/domain/scheduling"
)

const (
	recentPerSource = 5
	recentTotal     = 10
)

type UserSource interface {
	Users(ctx context.Context) ([]identity.User, error)
}

type AppointmentSource interface {
	AllAppointments(ctx context.Context) ([]scheduling.Appointment, error)
}

type RegistrationSource interface {
	All(ctx context.Context) ([]registration.Registration, error)
	Approve(ctx context.Context, owner, id string) (*registration.Registration, error)
	Reject(ctx context.Context, owner, id string) (*registration.Registration, error)
}

type HospitalSource interface {
	Hospitals() []catalog.Hospital
}

// Service aggregates the other domains for the admin views. It owns no
// data of its own.
type Service struct {
	users     UserSource
	appts     AppointmentSource
	regs      RegistrationSource
	hospitals HospitalSource
	now       func() time.Time
}

func NewService(users UserSource, appts AppointmentSource, regs RegistrationSource, hospitals HospitalSource, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{users: users, appts: appts, regs: regs, hospitals: hospitals, now: now}
}

// Dashboard loads users, appointments and registrations in parallel and
// summarises them.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	var (
		users []identity.User
		appts []scheduling.Appointment
		regs  []registration.Registration
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		users, err = s.users.Users(gctx)
		return err
	})
	g.Go(func() (err error) {
		appts, err = s.appts.AllAppointments(gctx)
		return err
	})
	g.Go(func() (err error) {
		regs, err = s.regs.All(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load dashboard: %w", err)
	}

	today := s.now().Format(time.DateOnly)
	stats := Stats{
		TotalUsers:         len(users),
		TotalAppointments:  len(appts),
		TotalRegistrations: len(regs),
		TotalHospitals:     len(s.hospitals.Hospitals()),
	}
	for _, a := range appts {
		if a.Date == today {
			stats.TodayAppointments++
		}
	}
	for _, r := range regs {
		if r.Status == registration.StatusPending {
			stats.PendingRegistrations++
		}
	}
	return &Dashboard{Stats: stats, RecentActivity: recentActivity(regs, appts)}, nil
}

// recentActivity merges the latest registrations and bookings. Both inputs
// are already newest first.
func recentActivity(regs []registration.Registration, appts []scheduling.Appointment) []Activity {
	out := make([]Activity, 0, recentPerSource*2)
	for _, r := range regs[:min(len(regs), recentPerSource)] {
		out = append(out, Activity{
			Type:    ActivityRegistration,
			Message: "New patient registration: " + r.PatientName,
			Time:    r.RegistrationDate,
			Status:  string(r.Status),
		})
	}
	for _, a := range appts[:min(len(appts), recentPerSource)] {
		out = append(out, Activity{
			Type:    ActivityAppointment,
			Message: "Appointment booked with " + a.DoctorName,
			Time:    a.BookedAt,
			Status:  string(a.Status),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.After(out[j].Time) })
	return out[:min(len(out), recentTotal)]
}

func (s *Service) Users(ctx context.Context) ([]identity.Profile, error) {
	users, err := s.users.Users(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]identity.Profile, len(users))
	for i, u := range users {
		out[i] = u.Profile()
	}
	return out, nil
}

// Registrations lists every registration, optionally only those in status.
func (s *Service) Registrations(ctx context.Context, status registration.Status) ([]registration.Registration, error) {
	regs, err := s.regs.All(ctx)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return regs, nil
	}
	out := regs[:0]
	for _, r := range regs {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out, nil
}

// Appointments lists every appointment, optionally only those in status.
func (s *Service) Appointments(ctx context.Context, status scheduling.AppointmentStatus) ([]scheduling.Appointment, error) {
	appts, err := s.appts.AllAppointments(ctx)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return appts, nil
	}
	out := appts[:0]
	for _, a := range appts {
		if a.Status == status {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Service) ApproveRegistration(ctx context.Context, owner, id string) (*registration.Registration, error) {
	return s.regs.Approve(ctx, owner, id)
}

func (s *Service) RejectRegistration(ctx context.Context, owner, id string) (*registration.Registration, error) {
	return s.regs.Reject(ctx, owner, id)
}
