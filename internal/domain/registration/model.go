package registration

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status of a submitted registration. Pending is the only state that admits
// a transition.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusApproved, StatusRejected:
		return st, nil
	}
	return "", fmt.Errorf("unknown registration status %q", s)
}

func (s *Status) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	st, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// Details is what the patient enters on the last step of the form.
type Details struct {
	PatientName      string `json:"patientName" validate:"notblank"`
	PatientEmail     string `json:"patientEmail" validate:"contact_email"`
	PatientPhone     string `json:"patientPhone" validate:"contact_phone"`
	Age              int    `json:"age,omitempty" validate:"gte=0,lte=150"`
	Gender           string `json:"gender,omitempty" validate:"omitempty,oneof=male female other"`
	Address          string `json:"address,omitempty"`
	EmergencyContact string `json:"emergencyContact,omitempty"`
	MedicalHistory   string `json:"medicalHistory,omitempty"`
}

// Registration links a patient to a hospital and doctor pending admin
// review. Hospital and doctor fields are copied from the catalog at
// submission.
type Registration struct {
	ID        string `json:"registrationId"`
	PatientID string `json:"patientId"`
	Details

	HospitalID      int     `json:"hospitalId"`
	HospitalName    string  `json:"hospitalName"`
	DoctorID        int     `json:"doctorId"`
	DoctorName      string  `json:"doctorName"`
	Specialty       string  `json:"specialty"`
	ConsultationFee float64 `json:"consultationFee"`

	RegistrationDate time.Time  `json:"registrationDate"`
	Status           Status     `json:"status"`
	ApprovedAt       *time.Time `json:"approvedAt,omitempty"`
	RejectedAt       *time.Time `json:"rejectedAt,omitempty"`
}

// SubmitRequest is the single-call form of the workflow used by the API.
type SubmitRequest struct {
	HospitalID int `json:"hospitalId"`
	DoctorID   int `json:"doctorId"`
	Details
}
