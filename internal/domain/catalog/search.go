package catalog

import (
	"sort"
	"strings"
)

// DoctorSort orders doctor search results.
type DoctorSort string

const (
	SortByName       DoctorSort = "name"
	SortByExperience DoctorSort = "experience"
	SortByRating     DoctorSort = "rating"
	SortByPrice      DoctorSort = "price"
)

// DoctorQuery filters doctors. Zero values match everything.
type DoctorQuery struct {
	// Specialty matches the specialty or any subspecialty, case-insensitive
	// substring. "all" is the same as empty.
	Specialty string
	// Text matches name, specialty, hospital or education.
	Text          string
	MinExperience int
	Sort          DoctorSort
}

func (q DoctorQuery) matches(d Doctor) bool {
	if spec := strings.ToLower(q.Specialty); spec != "" && spec != "all" {
		if !strings.Contains(strings.ToLower(d.Specialty), spec) && !anyContains(d.Subspecialty, spec) {
			return false
		}
	}
	if text := strings.ToLower(strings.TrimSpace(q.Text)); text != "" {
		if !strings.Contains(strings.ToLower(d.Name), text) &&
			!strings.Contains(strings.ToLower(d.Specialty), text) &&
			!strings.Contains(strings.ToLower(d.Hospital), text) &&
			!anyContains(d.Education, text) {
			return false
		}
	}
	return d.Experience >= q.MinExperience
}

// SearchDoctors filters and sorts the catalog. Unknown sort keys fall back to
// rating, highest first.
func (p *Provider) SearchDoctors(q DoctorQuery) []Doctor {
	out := make([]Doctor, 0, len(p.doctors))
	for _, d := range p.doctors {
		if q.matches(d) {
			out = append(out, d)
		}
	}

	var less func(a, b Doctor) bool
	switch q.Sort {
	case SortByName:
		less = func(a, b Doctor) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	case SortByExperience:
		less = func(a, b Doctor) bool { return a.Experience > b.Experience }
	case SortByPrice:
		less = func(a, b Doctor) bool { return a.ConsultationFee < b.ConsultationFee }
	default:
		less = func(a, b Doctor) bool { return a.Rating > b.Rating }
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// HospitalQuery filters hospitals by type and free text over name, location
// and specialties.
type HospitalQuery struct {
	Type string
	Text string
}

func (p *Provider) SearchHospitals(q HospitalQuery) []Hospital {
	text := strings.ToLower(strings.TrimSpace(q.Text))
	out := make([]Hospital, 0, len(p.hospitals))
	for _, h := range p.hospitals {
		if q.Type != "" && q.Type != "all" && string(h.Type) != q.Type {
			continue
		}
		if text != "" &&
			!strings.Contains(strings.ToLower(h.Name), text) &&
			!strings.Contains(strings.ToLower(h.Location), text) &&
			!anyContains(h.Specialties, text) {
			continue
		}
		out = append(out, h)
	}
	return out
}

func anyContains(values []string, lowerNeedle string) bool {
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), lowerNeedle) {
			return true
		}
	}
	return false
}
