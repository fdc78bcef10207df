package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/epcr-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventPatientCreated      EventType = "patient_created"
	EventAssessmentUpdated   EventType = "assessment_updated"
	EventAssessmentCompleted EventType = "assessment_completed"
	EventAssessmentReopened  EventType = "assessment_reopened"
	EventAssignmentCreated   EventType = "assignment_created"
	EventAssignmentRemoved   EventType = "assignment_removed"
)

// Event represents a domain event emitted by services. DeploymentID names the
// emergency-response event the change happened in.
type Event struct {
	ID           string      `json:"id"`
	Type         EventType   `json:"type"`
	DeploymentID string      `json:"deployment_id"`
	PatientID    string      `json:"patient_id,omitempty"`
	ActorID      string      `json:"actor_id"`
	Timestamp    time.Time   `json:"timestamp"`
	Payload      interface{} `json:"payload"`
}

// New stamps an event with a fresh id.
func New(eventType EventType, deploymentID, patientID, actorID string, at time.Time, payload interface{}) Event {
	return Event{
		ID:           uuid.NewString(),
		Type:         eventType,
		DeploymentID: deploymentID,
		PatientID:    patientID,
		ActorID:      actorID,
		Timestamp:    at,
		Payload:      payload,
	}
}

// PatientCreatedPayload payload.
type PatientCreatedPayload struct {
	TriageTag domain.TriageTag `json:"triage_tag,omitempty"`
}

// AssessmentChangedPayload payload shared by the assessment events.
type AssessmentChangedPayload struct {
	OldStatus   domain.AssessmentStatus `json:"old_status"`
	NewStatus   domain.AssessmentStatus `json:"new_status"`
	Disposition domain.Disposition      `json:"disposition,omitempty"`
	Version     int64                   `json:"version"`
	Fields      []string                `json:"fields"`
}

// AssignmentPayload payload.
type AssignmentPayload struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
}
