// Package catalog serves the read-only hospital and doctor reference data.
package catalog

import (
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hms/hms/internal/platform/apperr"
)

//go:embed fixtures/hospitals.json fixtures/doctors.json
var fixtures embed.FS

const (
	hospitalsFile = "hospitals.json"
	doctorsFile   = "doctors.json"
)

// Provider is immutable after Load and safe for concurrent use. Lookups hand
// out copies; slice fields inside a copy are shared and must not be modified.
type Provider struct {
	hospitals    []Hospital
	doctors      []Doctor
	hospitalByID map[int]int
	doctorByID   map[int]int
}

// Load decodes {"hospitals":[...]} and {"doctors":[...]} documents.
func Load(hospitals, doctors io.Reader) (*Provider, error) {
	var hdoc struct {
		Hospitals []Hospital `json:"hospitals"`
	}
	if err := json.NewDecoder(hospitals).Decode(&hdoc); err != nil {
		return nil, fmt.Errorf("decode hospitals: %w", err)
	}
	var ddoc struct {
		Doctors []Doctor `json:"doctors"`
	}
	if err := json.NewDecoder(doctors).Decode(&ddoc); err != nil {
		return nil, fmt.Errorf("decode doctors: %w", err)
	}
	return New(hdoc.Hospitals, ddoc.Doctors)
}

// New builds a provider from already decoded records.
func New(hospitals []Hospital, doctors []Doctor) (*Provider, error) {
	p := &Provider{
		hospitals:    append([]Hospital(nil), hospitals...),
		doctors:      append([]Doctor(nil), doctors...),
		hospitalByID: make(map[int]int, len(hospitals)),
		doctorByID:   make(map[int]int, len(doctors)),
	}
	for i, h := range p.hospitals {
		if err := h.validate(); err != nil {
			return nil, err
		}
		if _, dup := p.hospitalByID[h.ID]; dup {
			return nil, fmt.Errorf("duplicate hospital id %d", h.ID)
		}
		p.hospitalByID[h.ID] = i
	}
	for i, d := range p.doctors {
		if err := d.validate(); err != nil {
			return nil, err
		}
		if _, dup := p.doctorByID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate doctor id %d", d.ID)
		}
		p.doctorByID[d.ID] = i
	}
	return p, nil
}

// LoadDir reads hospitals.json and doctors.json from dir.
func LoadDir(dir string) (*Provider, error) {
	hf, err := os.Open(filepath.Join(dir, hospitalsFile))
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer hf.Close()
	df, err := os.Open(filepath.Join(dir, doctorsFile))
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer df.Close()
	return Load(hf, df)
}

// LoadDefault loads the fixtures compiled into the binary.
func LoadDefault() (*Provider, error) {
	hf, err := fixtures.Open("fixtures/" + hospitalsFile)
	if err != nil {
		return nil, err
	}
	defer hf.Close()
	df, err := fixtures.Open("fixtures/" + doctorsFile)
	if err != nil {
		return nil, err
	}
	defer df.Close()
	return Load(hf, df)
}

func (p *Provider) Doctor(id int) (*Doctor, error) {
	i, ok := p.doctorByID[id]
	if !ok {
		return nil, apperr.Newf(apperr.ErrNotFound, "doctor %d", id)
	}
	d := p.doctors[i]
	return &d, nil
}

func (p *Provider) Hospital(id int) (*Hospital, error) {
	i, ok := p.hospitalByID[id]
	if !ok {
		return nil, apperr.Newf(apperr.ErrNotFound, "hospital %d", id)
	}
	h := p.hospitals[i]
	return &h, nil
}

// Doctors returns every doctor in fixture order.
func (p *Provider) Doctors() []Doctor {
	return append([]Doctor(nil), p.doctors...)
}

// Hospitals returns every hospital in fixture order.
func (p *Provider) Hospitals() []Hospital {
	return append([]Hospital(nil), p.hospitals...)
}

// DoctorsAtHospital matches doctors whose hospital name equals name exactly.
func (p *Provider) DoctorsAtHospital(name string) []Doctor {
	var out []Doctor
	for _, d := range p.doctors {
		if d.Hospital == name {
			out = append(out, d)
		}
	}
	return out
}
