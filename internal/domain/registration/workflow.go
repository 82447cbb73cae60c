package registration

import (
	"fmt"
	"time"

	"github.com/hms/hms/internal/domain/catalog"
	"github.com/hms/hms/internal/platform/apperr"
	"github.com/hms/hms/pkg/validate"
)

// Step is the position of a Workflow in the registration form.
type Step int

const (
	CollectingHospital Step = iota + 1
	CollectingDoctor
	CollectingDetails
	Submitted
)

func (s Step) String() string {
	switch s {
	case CollectingHospital:
		return "collecting_hospital"
	case CollectingDoctor:
		return "collecting_doctor"
	case CollectingDetails:
		return "collecting_details"
	case Submitted:
		return "submitted"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// Workflow walks one patient through the registration form. Going back keeps
// whatever was entered; only Submit produces a record.
type Workflow struct {
	patientID string
	step      Step
	hospital  *catalog.Hospital
	doctor    *catalog.Doctor
	details   Details
}

func NewWorkflow(patientID string) *Workflow {
	return &Workflow{patientID: patientID, step: CollectingHospital}
}

func (w *Workflow) Step() Step                  { return w.step }
func (w *Workflow) Hospital() *catalog.Hospital { return w.hospital }
func (w *Workflow) Doctor() *catalog.Doctor     { return w.doctor }
func (w *Workflow) Details() Details            { return w.details }

func (w *Workflow) expect(step Step) error {
	if w.step != step {
		return apperr.Newf(apperr.ErrInvalidTransition, "workflow is at %s, not %s", w.step, step)
	}
	return nil
}

// SelectHospital records the hospital. A previously chosen doctor who does
// not work there is dropped.
func (w *Workflow) SelectHospital(h *catalog.Hospital) error {
	if err := w.expect(CollectingHospital); err != nil {
		return err
	}
	if h == nil {
		return apperr.Newf(apperr.ErrNotFound, "hospital")
	}
	w.hospital = h
	if w.doctor != nil && w.doctor.Hospital != h.Name {
		w.doctor = nil
	}
	return nil
}

// SelectDoctor records the doctor, who must practise at the chosen hospital.
func (w *Workflow) SelectDoctor(d *catalog.Doctor) error {
	if err := w.expect(CollectingDoctor); err != nil {
		return err
	}
	if d == nil {
		return apperr.Newf(apperr.ErrNotFound, "doctor")
	}
	if d.Hospital != w.hospital.Name {
		return apperr.Newf(apperr.ErrValidation, "doctor %d does not practise at %s", d.ID, w.hospital.Name)
	}
	w.doctor = d
	return nil
}

func (w *Workflow) SetDetails(d Details) error {
	if err := w.expect(CollectingDetails); err != nil {
		return err
	}
	w.details = d
	return nil
}

// Next advances once the current step is complete. The details step is left
// only through Submit.
func (w *Workflow) Next() error {
	switch w.step {
	case CollectingHospital:
		if w.hospital == nil {
			return apperr.Newf(apperr.ErrValidation, "hospital is required")
		}
	case CollectingDoctor:
		if w.doctor == nil {
			return apperr.Newf(apperr.ErrValidation, "doctor is required")
		}
	default:
		return apperr.Newf(apperr.ErrInvalidTransition, "cannot advance from %s", w.step)
	}
	w.step++
	return nil
}

// Back moves to the previous step. It is a no-op on the first step.
func (w *Workflow) Back() error {
	switch w.step {
	case Submitted:
		return apperr.Newf(apperr.ErrInvalidTransition, "registration already submitted")
	case CollectingHospital:
		return nil
	}
	w.step--
	return nil
}

// Submit validates the details and returns the pending registration.
func (w *Workflow) Submit(now time.Time) (*Registration, error) {
	if err := w.expect(CollectingDetails); err != nil {
		return nil, err
	}
	if err := validate.Struct(w.details); err != nil {
		return nil, apperr.Newf(apperr.ErrValidation, "%v", err)
	}
	w.step = Submitted
	return &Registration{
		ID:               NewID(now),
		PatientID:        w.patientID,
		Details:          w.details,
		HospitalID:       w.hospital.ID,
		HospitalName:     w.hospital.Name,
		DoctorID:         w.doctor.ID,
		DoctorName:       w.doctor.Name,
		Specialty:        w.doctor.Specialty,
		ConsultationFee:  w.doctor.ConsultationFee,
		RegistrationDate: now,
		Status:           StatusPending,
	}, nil
}

// SubmitRegistration runs every step of the workflow in order.
func SubmitRegistration(patientID string, hospital *catalog.Hospital, doctor *catalog.Doctor, details Details, now time.Time) (*Registration, error) {
	w := NewWorkflow(patientID)
	if err := w.SelectHospital(hospital); err != nil {
		return nil, err
	}
	if err := w.Next(); err != nil {
		return nil, err
	}
	if err := w.SelectDoctor(doctor); err != nil {
		return nil, err
	}
	if err := w.Next(); err != nil {
		return nil, err
	}
	if err := w.SetDetails(details); err != nil {
		return nil, err
	}
	return w.Submit(now)
}

// NewID derives a registration id from the last eight digits of the
// millisecond timestamp.
func NewID(now time.Time) string {
	return formatID(now.UnixMilli() % idModulus)
}

const idModulus = 100_000_000

func formatID(n int64) string { return fmt.Sprintf("REG%08d", n) }

// Approve moves a pending registration to approved.
func Approve(r Registration, now time.Time) (Registration, error) {
	if r.Status != StatusPending {
		return r, apperr.Newf(apperr.ErrInvalidTransition, "registration %s is %s", r.ID, r.Status)
	}
	at := now
	r.Status = StatusApproved
	r.ApprovedAt = &at
	return r, nil
}

// Reject moves a pending registration to rejected.
func Reject(r Registration, now time.Time) (Registration, error) {
	if r.Status != StatusPending {
		return r, apperr.Newf(apperr.ErrInvalidTransition, "registration %s is %s", r.ID, r.Status)
	}
	at := now
	r.Status = StatusRejected
	r.RejectedAt = &at
	return r, nil
}
