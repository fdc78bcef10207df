package dto

import (
	"time"

	"github.com/spec-kit/epcr-service/internal/domain"
)

// CreatePatientRequest payload.
type CreatePatientRequest struct {
	TriageTag      domain.TriageTag `json:"triageTag"`
	ChiefComplaint string           `json:"chiefComplaint"`
}

// UpdateTriageRequest payload.
type UpdateTriageRequest struct {
	TriageTag domain.TriageTag `json:"triageTag"`
}

// PatientResponse describes a patient.
type PatientResponse struct {
	ID        string           `json:"id"`
	EventID   string           `json:"eventId"`
	TriageTag domain.TriageTag `json:"triageTag"`
	CreatedBy string           `json:"createdBy"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// PageMeta carries the cursor for the next page of a filtered listing.
type PageMeta struct {
	NextOffset *int `json:"nextOffset"`
}

// PatientCreatedResponse returns the patient with its fresh assessment.
type PatientCreatedResponse struct {
	Patient    PatientResponse    `json:"patient"`
	Assessment AssessmentResponse `json:"assessment"`
}

// UpdateAssessmentRequest is a partial edit. Absent fields are left alone; an empty
// signature clears it.
type UpdateAssessmentRequest struct {
	Version          *int64  `json:"version"`
	Status           *string `json:"status"`
	Disposition      *string `json:"disposition"`
	HospitalName     *string `json:"hospitalName"`
	EMSUnit          *string `json:"emsUnit"`
	ChiefComplaint   *string `json:"chiefComplaint"`
	Narrative        *string `json:"narrative"`
	PatientSignature *string `json:"patientSignature"`
	EMTSignature     *string `json:"emtSignature"`
}

// AssessmentResponse describes an assessment.
type AssessmentResponse struct {
	PatientID                 string                  `json:"patientId"`
	Status                    domain.AssessmentStatus `json:"status"`
	Disposition               *domain.Disposition     `json:"disposition"`
	HospitalName              string                  `json:"hospitalName"`
	EMSUnit                   string                  `json:"emsUnit"`
	ChiefComplaint            string                  `json:"chiefComplaint"`
	Narrative                 string                  `json:"narrative"`
	PatientSignature          *string                 `json:"patientSignature"`
	PatientSignatureTimestamp *time.Time              `json:"patientSignatureTimestamp"`
	EMTSignature              *string                 `json:"emtSignature"`
	EMTSignatureTimestamp     *time.Time              `json:"emtSignatureTimestamp"`
	Version                   int64                   `json:"version"`
	UpdatedAt                 time.Time               `json:"updatedAt"`
	UpdatedBy                 *string                 `json:"updatedBy"`
}
