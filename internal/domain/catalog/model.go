package catalog

import "fmt"

// HospitalType classifies a hospital.
type HospitalType string

const (
	HospitalGovernment HospitalType = "government"
	HospitalPrivate    HospitalType = "private"
	HospitalSpecialty  HospitalType = "specialty"
)

func ParseHospitalType(s string) (HospitalType, error) {
	switch t := HospitalType(s); t {
	case HospitalGovernment, HospitalPrivate, HospitalSpecialty:
		return t, nil
	}
	return "", fmt.Errorf("unknown hospital type %q", s)
}

// DoctorAvailability is the doctor's advertised status, independent of the
// slot grid.
type DoctorAvailability string

const (
	DoctorAvailable DoctorAvailability = "available"
	DoctorBusy      DoctorAvailability = "busy"
)

func ParseDoctorAvailability(s string) (DoctorAvailability, error) {
	switch a := DoctorAvailability(s); a {
	case DoctorAvailable, DoctorBusy:
		return a, nil
	}
	return "", fmt.Errorf("unknown doctor availability %q", s)
}

type Hospital struct {
	ID          int          `json:"id"`
	Name        string       `json:"name"`
	Location    string       `json:"location"`
	Type        HospitalType `json:"type"`
	Specialties []string     `json:"specialties"`
	Beds        int          `json:"beds"`
	Rating      float64      `json:"rating"`
	Address     string       `json:"address,omitempty"`
	Phone       string       `json:"phone,omitempty"`
	Emergency   bool         `json:"emergency,omitempty"`
}

// Doctor refers to its hospital by name only.
type Doctor struct {
	ID              int                `json:"id"`
	Name            string             `json:"name"`
	Specialty       string             `json:"specialty"`
	Subspecialty    []string           `json:"subspecialty"`
	Hospital        string             `json:"hospital"`
	Experience      int                `json:"experience"`
	Education       []string           `json:"education"`
	Languages       []string           `json:"languages"`
	ConsultationFee float64            `json:"consultationFee"`
	Rating          float64            `json:"rating"`
	ReviewCount     int                `json:"reviewCount"`
	Availability    DoctorAvailability `json:"availability"`
}

func (d Doctor) validate() error {
	if d.ID <= 0 {
		return fmt.Errorf("doctor %q: id must be positive", d.Name)
	}
	if d.Name == "" || d.Hospital == "" {
		return fmt.Errorf("doctor %d: name and hospital are required", d.ID)
	}
	if d.ConsultationFee < 0 {
		return fmt.Errorf("doctor %d: negative consultation fee", d.ID)
	}
	if _, err := ParseDoctorAvailability(string(d.Availability)); err != nil {
		return fmt.Errorf("doctor %d: %w", d.ID, err)
	}
	return nil
}

func (h Hospital) validate() error {
	if h.ID <= 0 {
		return fmt.Errorf("hospital %q: id must be positive", h.Name)
	}
	if h.Name == "" {
		return fmt.Errorf("hospital %d: name is required", h.ID)
	}
	if _, err := ParseHospitalType(string(h.Type)); err != nil {
		return fmt.Errorf("hospital %d: %w", h.ID, err)
	}
	return nil
}
