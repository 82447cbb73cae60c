package scheduling

import (
	"time"

	"github.com/hms/hms/internal/platform/apperr"
)

// DateLayout is the wire and storage format for appointment dates.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD date as midnight in loc.
func ParseDate(date string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return time.Time{}, apperr.Newf(apperr.ErrValidation, "invalid date %q, want YYYY-MM-DD", date)
	}
	return d, nil
}

// slotStart combines a day and an "HH:MM" grid label. Labels come from the
// grid, so they are always well formed.
func slotStart(day time.Time, label string) time.Time {
	h := int(label[0]-'0')*10 + int(label[1]-'0')
	m := int(label[3]-'0')*10 + int(label[4]-'0')
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, day.Location())
}

// Availability classifies every grid slot of date for doctorID. A slot held
// by a non-cancelled appointment is booked even when it has already started;
// otherwise a slot whose start is at or before now is past. The date is read
// in now's location. appts is not modified.
func (g SlotGrid) Availability(doctorID int, date string, appts []Appointment, now time.Time) ([]SlotAvailability, error) {
	day, err := ParseDate(date, now.Location())
	if err != nil {
		return nil, err
	}

	booked := make(map[string]bool)
	for _, a := range appts {
		if a.DoctorID == doctorID && a.Date == date && a.Occupies() {
			booked[a.Time] = true
		}
	}

	slots := g.Slots()
	out := make([]SlotAvailability, len(slots))
	for i, label := range slots {
		state := SlotFree
		switch {
		case booked[label]:
			state = SlotBooked
		case !slotStart(day, label).After(now):
			state = SlotPast
		}
		out[i] = SlotAvailability{Slot: label, State: state}
	}
	return out, nil
}

// ComputeAvailability evaluates the default 09:00-18:00 half-hour grid.
func ComputeAvailability(doctorID int, date string, appts []Appointment, now time.Time) ([]SlotAvailability, error) {
	return DefaultGrid().Availability(doctorID, date, appts, now)
}

func stateOf(avail []SlotAvailability, label string) (SlotState, bool) {
	for _, a := range avail {
		if a.Slot == label {
			return a.State, true
		}
	}
	return "", false
}
