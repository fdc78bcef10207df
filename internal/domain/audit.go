package domain

import "time"

// AuditAction enumerates audited operations.
type AuditAction string

const (
	AuditRead   AuditAction = "READ"
	AuditCreate AuditAction = "CREATE"
	AuditUpdate AuditAction = "UPDATE"
	AuditDelete AuditAction = "DELETE"
)

// AuditResource enumerates audited resource kinds.
type AuditResource string

const (
	ResourceEvent      AuditResource = "EVENT"
	ResourcePatient    AuditResource = "PATIENT"
	ResourceAssessment AuditResource = "ASSESSMENT"
	ResourceUser       AuditResource = "USER"
	ResourceVenue      AuditResource = "VENUE"
)

// AuditOutcome records whether the audited action was permitted.
type AuditOutcome string

const (
	AuditSuccess AuditOutcome = "SUCCESS"
	AuditDenied  AuditOutcome = "DENIED"
)

// AuditEntry is an immutable audit trail record.
type AuditEntry struct {
	ID         string         `json:"id"`
	ActorID    string         `json:"actor_id"`
	Action     AuditAction    `json:"action"`
	Resource   AuditResource  `json:"resource"`
	ResourceID *string        `json:"resource_id,omitempty"`
	Outcome    AuditOutcome   `json:"outcome"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}
