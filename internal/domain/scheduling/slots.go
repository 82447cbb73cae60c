package scheduling

import "fmt"

const (
	DefaultStartHour       = 9
	DefaultEndHour         = 18
	DefaultDurationMinutes = 30
)

// SlotGrid describes the bookable day: slots start every DurationMinutes in
// [StartHour, EndHour). A slot that would run past EndHour is not offered.
type SlotGrid struct {
	StartHour       int
	EndHour         int
	DurationMinutes int
}

func DefaultGrid() SlotGrid {
	return SlotGrid{StartHour: DefaultStartHour, EndHour: DefaultEndHour, DurationMinutes: DefaultDurationMinutes}
}

// Valid reports whether the grid yields at least one slot.
func (g SlotGrid) Valid() bool {
	return g.StartHour >= 0 && g.EndHour <= 24 && g.EndHour > g.StartHour &&
		g.DurationMinutes > 0 && g.DurationMinutes <= (g.EndHour-g.StartHour)*60
}

// Slots returns the labels in increasing order.
func (g SlotGrid) Slots() []string {
	return GenerateSlots(g.StartHour, g.EndHour, g.DurationMinutes)
}

func (g SlotGrid) Contains(label string) bool {
	for _, s := range g.Slots() {
		if s == label {
			return true
		}
	}
	return false
}

// GenerateSlots returns zero-padded "HH:MM" labels. An empty grid is not an
// error: end <= start, a non-positive duration, or hours outside 0..24 all
// yield an empty slice.
func GenerateSlots(startHour, endHour, durationMinutes int) []string {
	g := SlotGrid{StartHour: startHour, EndHour: endHour, DurationMinutes: durationMinutes}
	if !g.Valid() {
		return []string{}
	}
	end := endHour * 60
	slots := make([]string, 0, (end-startHour*60)/durationMinutes)
	for m := startHour * 60; m+durationMinutes <= end; m += durationMinutes {
		slots = append(slots, fmt.Sprintf("%02d:%02d", m/60, m%60))
	}
	return slots
}

// DefaultSlots is GenerateSlots(9, 18, 30).
func DefaultSlots() []string {
	return DefaultGrid().Slots()
}

// IsGridSlot reports membership in the default grid.
func IsGridSlot(label string) bool {
	return DefaultGrid().Contains(label)
}
