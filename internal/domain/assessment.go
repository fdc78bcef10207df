package domain

import "time"

// AssessmentStatus enumerates the lifecycle states of a patient care record.
type AssessmentStatus string

const (
	AssessmentIncomplete AssessmentStatus = "incomplete"
	AssessmentComplete   AssessmentStatus = "complete"
)

// Valid reports whether s is a known status.
func (s AssessmentStatus) Valid() bool {
	return s == AssessmentIncomplete || s == AssessmentComplete
}

// Disposition is the outcome category of a patient encounter. The zero value means unset.
type Disposition string

const (
	DispositionNone        Disposition = ""
	DispositionTransported Disposition = "transported"
	DispositionRMA         Disposition = "rma"
	DispositionEloped      Disposition = "eloped"
)

// Valid reports whether d is unset or one of the known dispositions.
func (d Disposition) Valid() bool {
	switch d {
	case DispositionNone, DispositionTransported, DispositionRMA, DispositionEloped:
		return true
	}
	return false
}

// Assessment is the clinical record attached one-to-one to a Patient.
type Assessment struct {
	PatientID                 string
	Status                    AssessmentStatus
	Disposition               Disposition
	HospitalName              string
	EMSUnit                   string
	ChiefComplaint            string
	Narrative                 string
	PatientSignature          *string
	PatientSignatureTimestamp *time.Time
	EMTSignature              *string
	EMTSignatureTimestamp     *time.Time
	Version                   int64
	UpdatedAt                 time.Time
	UpdatedBy                 *string
}
