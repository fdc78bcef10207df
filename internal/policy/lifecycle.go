package policy

import (
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/epcr-service/internal/domain"
)

// Field names as persisted. Rejections report these.
const (
	FieldStatus           = "status"
	FieldDisposition      = "disposition"
	FieldHospitalName     = "hospitalName"
	FieldEMSUnit          = "emsUnit"
	FieldChiefComplaint   = "chiefComplaint"
	FieldNarrative        = "narrative"
	FieldPatientSignature = "patientSignature"
	FieldEMTSignature     = "emtSignature"
)

// AssessmentState is the part of an assessment the lifecycle rules govern.
type AssessmentState struct {
	Status                    domain.AssessmentStatus
	Disposition               domain.Disposition
	HospitalName              string
	EMSUnit                   string
	ChiefComplaint            string
	Narrative                 string
	PatientSignature          *string
	PatientSignatureTimestamp *time.Time
	EMTSignature              *string
	EMTSignatureTimestamp     *time.Time
}

// AssessmentChange is a partial update. Nil fields are left untouched. An empty
// signature clears it.
type AssessmentChange struct {
	Status           *domain.AssessmentStatus
	Disposition      *domain.Disposition
	HospitalName     *string
	EMSUnit          *string
	ChiefComplaint   *string
	Narrative        *string
	PatientSignature *string
	EMTSignature     *string
}

// IsEmpty reports whether the change touches no field.
func (c AssessmentChange) IsEmpty() bool {
	return c.Status == nil && c.Disposition == nil && c.HospitalName == nil && c.EMSUnit == nil &&
		c.ChiefComplaint == nil && c.Narrative == nil && c.PatientSignature == nil && c.EMTSignature == nil
}

// Fields lists the names of the fields c touches.
func (c AssessmentChange) Fields() []string {
	var fields []string
	add := func(set bool, name string) {
		if set {
			fields = append(fields, name)
		}
	}
	add(c.Status != nil, FieldStatus)
	add(c.Disposition != nil, FieldDisposition)
	add(c.HospitalName != nil, FieldHospitalName)
	add(c.EMSUnit != nil, FieldEMSUnit)
	add(c.ChiefComplaint != nil, FieldChiefComplaint)
	add(c.Narrative != nil, FieldNarrative)
	add(c.PatientSignature != nil, FieldPatientSignature)
	add(c.EMTSignature != nil, FieldEMTSignature)
	return fields
}

// RejectionKind classifies why a transition was refused.
type RejectionKind string

const (
	RejectRecordLocked         RejectionKind = "RECORD_LOCKED"
	RejectMissingRequiredField RejectionKind = "MISSING_REQUIRED_FIELD"
	RejectInvalidValue         RejectionKind = "INVALID_VALUE"
)

// Rejection describes a refused transition. Field is the first offending field and
// Missing lists every unmet completion requirement.
type Rejection struct {
	Kind    RejectionKind
	Field   string
	Missing []string
}

func (r Rejection) String() string {
	if r.Field == "" {
		return string(r.Kind)
	}
	return fmt.Sprintf("%s(%s)", r.Kind, r.Field)
}

// Outcome is either an accepted merged state or a rejection.
type Outcome struct {
	State     AssessmentState
	Rejection *Rejection
}

// Accepted reports whether the transition was allowed.
func (o Outcome) Accepted() bool {
	return o.Rejection == nil
}

// ValidateTransition checks a proposed change against the current state and returns the
// merged state on success. It panics when current is itself malformed, which means the
// caller loaded inconsistent data.
func ValidateTransition(current AssessmentState, proposed AssessmentChange, actorRole domain.Role, now time.Time) Outcome {
	mustBeWellFormed(current)

	if current.Status == domain.AssessmentComplete && !actorRole.IsAdmin() {
		return rejected(Rejection{Kind: RejectRecordLocked})
	}
	if proposed.Status != nil && !proposed.Status.Valid() {
		return rejected(Rejection{Kind: RejectInvalidValue, Field: FieldStatus})
	}
	if proposed.Disposition != nil && !proposed.Disposition.Valid() {
		return rejected(Rejection{Kind: RejectInvalidValue, Field: FieldDisposition})
	}

	next := current
	if proposed.Status != nil {
		next.Status = *proposed.Status
	}
	if proposed.Disposition != nil {
		next.Disposition = *proposed.Disposition
	}
	if proposed.HospitalName != nil {
		next.HospitalName = *proposed.HospitalName
	}
	if proposed.EMSUnit != nil {
		next.EMSUnit = *proposed.EMSUnit
	}
	if proposed.ChiefComplaint != nil {
		next.ChiefComplaint = *proposed.ChiefComplaint
	}
	if proposed.Narrative != nil {
		next.Narrative = *proposed.Narrative
	}
	next.PatientSignature, next.PatientSignatureTimestamp = applySignature(
		current.PatientSignature, current.PatientSignatureTimestamp, proposed.PatientSignature, now)
	next.EMTSignature, next.EMTSignatureTimestamp = applySignature(
		current.EMTSignature, current.EMTSignatureTimestamp, proposed.EMTSignature, now)

	if next.Status == domain.AssessmentComplete {
		if missing := MissingForCompletion(next); len(missing) > 0 {
			return rejected(Rejection{Kind: RejectMissingRequiredField, Field: missing[0], Missing: missing})
		}
	}
	return Outcome{State: next}
}

// MissingForCompletion lists the fields that keep s from being complete, disposition
// requirements first and the EMT signature last.
func MissingForCompletion(s AssessmentState) []string {
	var missing []string
	switch s.Disposition {
	case domain.DispositionNone:
		missing = append(missing, FieldDisposition)
	case domain.DispositionTransported:
		if blank(s.HospitalName) {
			missing = append(missing, FieldHospitalName)
		}
		if blank(s.EMSUnit) {
			missing = append(missing, FieldEMSUnit)
		}
	case domain.DispositionRMA:
		if !present(s.PatientSignature) {
			missing = append(missing, FieldPatientSignature)
		}
	case domain.DispositionEloped:
	}
	if !present(s.EMTSignature) {
		missing = append(missing, FieldEMTSignature)
	}
	return missing
}

// applySignature sets, re-stamps or clears one signature/timestamp pair.
func applySignature(cur *string, curAt *time.Time, proposed *string, now time.Time) (*string, *time.Time) {
	if proposed == nil {
		return cur, curAt
	}
	if blank(*proposed) {
		return nil, nil
	}
	value := *proposed
	stamp := now
	return &value, &stamp
}

func mustBeWellFormed(s AssessmentState) {
	if !s.Status.Valid() {
		panic(fmt.Sprintf("policy: assessment state has unknown status %q", s.Status))
	}
	if !s.Disposition.Valid() {
		panic(fmt.Sprintf("policy: assessment state has unknown disposition %q", s.Disposition))
	}
}

func rejected(r Rejection) Outcome {
	return Outcome{Rejection: &r}
}

func present(s *string) bool {
	return s != nil && !blank(*s)
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// StateOf extracts the lifecycle-governed fields of a.
func StateOf(a domain.Assessment) AssessmentState {
	return AssessmentState{
		Status:                    a.Status,
		Disposition:               a.Disposition,
		HospitalName:              a.HospitalName,
		EMSUnit:                   a.EMSUnit,
		ChiefComplaint:            a.ChiefComplaint,
		Narrative:                 a.Narrative,
		PatientSignature:          a.PatientSignature,
		PatientSignatureTimestamp: a.PatientSignatureTimestamp,
		EMTSignature:              a.EMTSignature,
		EMTSignatureTimestamp:     a.EMTSignatureTimestamp,
	}
}

// ApplyTo copies s onto a, leaving identity and version fields alone.
func (s AssessmentState) ApplyTo(a *domain.Assessment) {
	a.Status = s.Status
	a.Disposition = s.Disposition
	a.HospitalName = s.HospitalName
	a.EMSUnit = s.EMSUnit
	a.ChiefComplaint = s.ChiefComplaint
	a.Narrative = s.Narrative
	a.PatientSignature = s.PatientSignature
	a.PatientSignatureTimestamp = s.PatientSignatureTimestamp
	a.EMTSignature = s.EMTSignature
	a.EMTSignatureTimestamp = s.EMTSignatureTimestamp
}
