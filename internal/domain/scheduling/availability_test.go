package scheduling

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/hms/hms/internal/platform/apperr"
)

var testNow = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

func appt(id int64, doctorID int, date, slot string, status AppointmentStatus) Appointment {
	return Appointment{ID: id, PatientID: "john@example.com", DoctorID: doctorID, Date: date, Time: slot, Status: status}
}

func stateMap(t *testing.T, avail []SlotAvailability) map[string]SlotState {
	t.Helper()
	m := make(map[string]SlotState, len(avail))
	for _, a := range avail {
		m[a.Slot] = a.State
	}
	return m
}

func TestComputeAvailability_NoAppointments(t *testing.T) {
	avail, err := ComputeAvailability(7, "2024-06-10", nil, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, a := range avail {
		if a.State != SlotFree {
			t.Errorf("slot %s = %s, want free", a.Slot, a.State)
		}
	}
}

func TestComputeAvailability_PartitionsGrid(t *testing.T) {
	appts := []Appointment{
		appt(1, 7, "2024-06-01", "09:00", StatusConfirmed),
		appt(2, 7, "2024-06-01", "14:00", StatusCancelled),
		appt(3, 7, "2024-06-01", "15:30", StatusCompleted),
		appt(4, 8, "2024-06-01", "16:00", StatusConfirmed),
	}
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	avail, err := ComputeAvailability(7, "2024-06-01", appts, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	grid := DefaultSlots()
	if len(avail) != len(grid) {
		t.Fatalf("expected %d entries, got %d", len(grid), len(avail))
	}
	seen := map[string]int{}
	for i, a := range avail {
		if a.Slot != grid[i] {
			t.Errorf("entry %d is %s, want %s", i, a.Slot, grid[i])
		}
		seen[a.Slot]++
	}
	for _, s := range grid {
		if seen[s] != 1 {
			t.Errorf("slot %s appears %d times", s, seen[s])
		}
	}

	// 09:00 has elapsed but is booked; 12:00 starts exactly at now; the
	// cancelled 14:00 is released; the completed 15:30 still holds its slot;
	// 16:00 belongs to another doctor.
	states := stateMap(t, avail)
	want := map[string]SlotState{
		"09:00": SlotBooked,
		"11:30": SlotPast,
		"12:00": SlotPast,
		"12:30": SlotFree,
		"14:00": SlotFree,
		"15:30": SlotBooked,
		"16:00": SlotFree,
	}
	for slot, st := range want {
		if states[slot] != st {
			t.Errorf("slot %s = %s, want %s", slot, states[slot], st)
		}
	}
}

func TestComputeAvailability_BookedBeatsPast(t *testing.T) {
	appts := []Appointment{appt(1, 3, "2020-01-01", "09:00", StatusConfirmed)}

	avail, err := ComputeAvailability(3, "2020-01-01", appts, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	states := stateMap(t, avail)
	if states["09:00"] != SlotBooked {
		t.Errorf("09:00 = %s, want booked", states["09:00"])
	}
	if states["09:30"] != SlotPast {
		t.Errorf("09:30 = %s, want past", states["09:30"])
	}
}

func TestComputeAvailability_Idempotent(t *testing.T) {
	appts := []Appointment{
		appt(1, 7, "2024-06-10", "10:00", StatusConfirmed),
		appt(2, 7, "2024-06-10", "11:00", StatusCancelled),
	}
	snapshot := append([]Appointment(nil), appts...)

	a, err := ComputeAvailability(7, "2024-06-10", appts, testNow)
	if err != nil {
		t.Fatal(err)
	}
	b, err := ComputeAvailability(7, "2024-06-10", appts, testNow)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("repeated calls differ")
	}
	if !reflect.DeepEqual(appts, snapshot) {
		t.Error("input appointments were modified")
	}
}

func TestComputeAvailability_UsesNowLocation(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	// 09:15 local on 2024-06-10 is 04:15 UTC.
	now := time.Date(2024, 6, 10, 4, 15, 0, 0, time.UTC).In(loc)

	avail, err := ComputeAvailability(1, "2024-06-10", nil, now)
	if err != nil {
		t.Fatal(err)
	}
	states := stateMap(t, avail)
	if states["09:00"] != SlotPast || states["09:30"] != SlotFree {
		t.Errorf("09:00=%s 09:30=%s, want past/free", states["09:00"], states["09:30"])
	}
}

func TestComputeAvailability_InvalidDate(t *testing.T) {
	for _, d := range []string{"", "2024-6-10", "10/06/2024", "2024-02-30"} {
		_, err := ComputeAvailability(7, d, nil, testNow)
		if !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("date %q: expected ErrValidation, got %v", d, err)
		}
	}
}
