package scheduling

import (
	"encoding/json"
	"fmt"
	"time"
)

// AppointmentStatus is a closed enumeration. Decoding rejects unknown values
// so a corrupt store document cannot smuggle in a new state.
type AppointmentStatus string

const (
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusCompleted AppointmentStatus = "completed"
)

func ParseAppointmentStatus(s string) (AppointmentStatus, error) {
	switch st := AppointmentStatus(s); st {
	case StatusConfirmed, StatusCancelled, StatusCompleted:
		return st, nil
	}
	return "", fmt.Errorf("unknown appointment status %q", s)
}

func (s *AppointmentStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	st, err := ParseAppointmentStatus(raw)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// SlotState is the computed state of one grid slot.
type SlotState string

const (
	SlotFree   SlotState = "free"
	SlotBooked SlotState = "booked"
	SlotPast   SlotState = "past"
)

type SlotAvailability struct {
	Slot  string    `json:"slot"`
	State SlotState `json:"state"`
}

// Appointment is owned by one patient and never hard-deleted. Date is
// YYYY-MM-DD and Time is a grid label HH:MM, both in the clinic time zone.
type Appointment struct {
	ID              int64             `json:"id"`
	PatientID       string            `json:"patientId"`
	PatientName     string            `json:"patientName"`
	PatientPhone    string            `json:"patientPhone"`
	PatientEmail    string            `json:"patientEmail"`
	DoctorID        int               `json:"doctorId"`
	DoctorName      string            `json:"doctorName"`
	Specialty       string            `json:"specialty"`
	Hospital        string            `json:"hospital,omitempty"`
	Date            string            `json:"date"`
	Time            string            `json:"time"`
	Reason          string            `json:"reason,omitempty"`
	Notes           string            `json:"notes,omitempty"`
	Status          AppointmentStatus `json:"status"`
	ConsultationFee float64           `json:"consultationFee"`
	BookedAt        time.Time         `json:"bookedAt"`
	CancelledAt     *time.Time        `json:"cancelledAt,omitempty"`
	RescheduledFrom *int64            `json:"rescheduledFrom,omitempty"`
}

// Occupies reports whether the appointment holds its slot.
func (a Appointment) Occupies() bool {
	return a.Status != StatusCancelled
}

// BookingRequest carries the patient's input. PatientID is the owning
// user's key and is filled in from the session, never from the body.
type BookingRequest struct {
	PatientID    string `json:"-" validate:"notblank"`
	PatientName  string `json:"patientName" validate:"notblank"`
	PatientPhone string `json:"patientPhone" validate:"contact_phone"`
	PatientEmail string `json:"patientEmail" validate:"contact_email"`
	DoctorID     int    `json:"doctorId"`
	Date         string `json:"date" validate:"notblank"`
	Time         string `json:"time" validate:"notblank"`
	Reason       string `json:"reason,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// RescheduleRequest moves an appointment to another slot with the same doctor.
type RescheduleRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
}
