package admin

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hms/hms/internal/domain/catalog"
	"github.com/hms/hms/internal/domain/identity"
	"github.com/hms/hms/internal/domain/registration"
	"github.com/hms/hms/internal/domain/scheduling"
	"github.com/hms/hms/internal/platform/apperr"
)

var testNow = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

type fakeUsers struct {
	users []identity.User
	err   error
}

func (f *fakeUsers) Users(context.Context) ([]identity.User, error) { return f.users, f.err }

type fakeAppointments struct {
	appts []scheduling.Appointment
}

func (f *fakeAppointments) AllAppointments(context.Context) ([]scheduling.Appointment, error) {
	return append([]scheduling.Appointment(nil), f.appts...), nil
}

type fakeRegistrations struct {
	regs     []registration.Registration
	approved []string
}

func (f *fakeRegistrations) All(context.Context) ([]registration.Registration, error) {
	return append([]registration.Registration(nil), f.regs...), nil
}

func (f *fakeRegistrations) Approve(_ context.Context, owner, id string) (*registration.Registration, error) {
	for i, r := range f.regs {
		if r.PatientID == owner && r.ID == id {
			next, err := registration.Approve(r, testNow)
			if err != nil {
				return nil, err
			}
			f.regs[i] = next
			f.approved = append(f.approved, id)
			return &next, nil
		}
	}
	return nil, apperr.Newf(apperr.ErrNotFound, "registration %s", id)
}

func (f *fakeRegistrations) Reject(_ context.Context, owner, id string) (*registration.Registration, error) {
	return nil, apperr.Newf(apperr.ErrNotFound, "registration %s", id)
}

type fakeHospitals int

func (f fakeHospitals) Hospitals() []catalog.Hospital { return make([]catalog.Hospital, int(f)) }

// fixtures returns n appointments and n registrations, newest first, with
// timestamps interleaved: registration i at -2i minutes, appointment i at
// -(2i+1) minutes.
func fixtures(n int) ([]scheduling.Appointment, []registration.Registration) {
	appts := make([]scheduling.Appointment, n)
	regs := make([]registration.Registration, n)
	for i := 0; i < n; i++ {
		date := "2024-06-11"
		if i%2 == 0 {
			date = testNow.Format(time.DateOnly)
		}
		appts[i] = scheduling.Appointment{
			ID:         int64(100 + i),
			DoctorName: fmt.Sprintf("Dr. %d", i),
			Date:       date,
			Status:     scheduling.StatusConfirmed,
			BookedAt:   testNow.Add(-time.Duration(2*i+1) * time.Minute),
		}
		status := registration.StatusApproved
		if i < 2 {
			status = registration.StatusPending
		}
		regs[i] = registration.Registration{
			ID:               fmt.Sprintf("REG%08d", i),
			PatientID:        "john@example.com",
			Details:          registration.Details{PatientName: fmt.Sprintf("Patient %d", i)},
			RegistrationDate: testNow.Add(-time.Duration(2*i) * time.Minute),
			Status:           status,
		}
	}
	return appts, regs
}

func newTestService(n int) (*Service, *fakeRegistrations) {
	appts, regs := fixtures(n)
	fr := &fakeRegistrations{regs: regs}
	users := &fakeUsers{users: []identity.User{{ID: 1}, {ID: 2}, {ID: 3}}}
	return NewService(users, &fakeAppointments{appts: appts}, fr, fakeHospitals(4), func() time.Time { return testNow }), fr
}

func TestDashboard_Stats(t *testing.T) {
	svc, _ := newTestService(7)
	d, err := svc.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Stats{
		TotalUsers:           3,
		TotalAppointments:    7,
		TotalRegistrations:   7,
		TotalHospitals:       4,
		TodayAppointments:    4,
		PendingRegistrations: 2,
	}
	if d.Stats != want {
		t.Errorf("stats = %+v, want %+v", d.Stats, want)
	}
}

func TestDashboard_RecentActivity(t *testing.T) {
	svc, _ := newTestService(7)
	d, err := svc.Dashboard(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(d.RecentActivity) != 10 {
		t.Fatalf("expected 10 activities, got %d", len(d.RecentActivity))
	}
	// Five of each source, alternating, newest first.
	for i, a := range d.RecentActivity {
		wantType := ActivityRegistration
		if i%2 == 1 {
			wantType = ActivityAppointment
		}
		if a.Type != wantType {
			t.Errorf("activity %d type = %s, want %s", i, a.Type, wantType)
		}
		if i > 0 && a.Time.After(d.RecentActivity[i-1].Time) {
			t.Errorf("activity %d out of order", i)
		}
	}
	if d.RecentActivity[0].Message != "New patient registration: Patient 0" {
		t.Errorf("unexpected message %q", d.RecentActivity[0].Message)
	}
	if d.RecentActivity[1].Message != "Appointment booked with Dr. 0" {
		t.Errorf("unexpected message %q", d.RecentActivity[1].Message)
	}
}

func TestDashboard_FewRecords(t *testing.T) {
	svc, _ := newTestService(2)
	d, err := svc.Dashboard(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(d.RecentActivity) != 4 {
		t.Errorf("expected 4 activities, got %d", len(d.RecentActivity))
	}
}

func TestDashboard_SourceError(t *testing.T) {
	svc, _ := newTestService(1)
	svc.users = &fakeUsers{err: errors.New("store down")}
	if _, err := svc.Dashboard(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestService_FilteredLists(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(7)

	pending, err := svc.Registrations(ctx, registration.StatusPending)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 {
		t.Errorf("expected 2 pending, got %d", len(pending))
	}
	all, _ := svc.Registrations(ctx, "")
	if len(all) != 7 {
		t.Errorf("expected 7 registrations, got %d", len(all))
	}
	cancelled, _ := svc.Appointments(ctx, scheduling.StatusCancelled)
	if len(cancelled) != 0 {
		t.Errorf("expected no cancelled appointments, got %d", len(cancelled))
	}
}

func TestService_ApproveDelegates(t *testing.T) {
	svc, fr := newTestService(3)
	reg, err := svc.ApproveRegistration(context.Background(), "john@example.com", "REG00000000")
	if err != nil {
		t.Fatal(err)
	}
	if reg.Status != registration.StatusApproved || len(fr.approved) != 1 {
		t.Errorf("approve not applied: %+v", reg)
	}
	if _, err := svc.ApproveRegistration(context.Background(), "john@example.com", "REG00000002"); !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Errorf("approving an approved registration: got %v", err)
	}
}
