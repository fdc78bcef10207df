package dto

import (
	"time"

	"github.com/spec-kit/epcr-service/internal/domain"
)

// CreateUserRequest payload.
type CreateUserRequest struct {
	Email string      `json:"email"`
	Name  string      `json:"name"`
	Role  domain.Role `json:"role"`
}

// UpdateRoleRequest payload.
type UpdateRoleRequest struct {
	Role domain.Role `json:"role"`
}

// UserResponse describes a staff account.
type UserResponse struct {
	ID        string      `json:"id"`
	Email     string      `json:"email"`
	Name      string      `json:"name"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"createdAt"`
}

// CreateVenueRequest payload.
type CreateVenueRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// VenueResponse describes a venue.
type VenueResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// AuditLogResponse describes one audit entry.
type AuditLogResponse struct {
	ID         string               `json:"id"`
	ActorID    string               `json:"actorId"`
	Action     domain.AuditAction   `json:"action"`
	Resource   domain.AuditResource `json:"resource"`
	ResourceID *string              `json:"resourceId"`
	Outcome    domain.AuditOutcome  `json:"outcome"`
	Details    map[string]any       `json:"details,omitempty"`
	CreatedAt  time.Time            `json:"createdAt"`
}
