package dto

import (
	"time"

	"github.com/spec-kit/epcr-service/internal/domain"
)

// EventRequest payload for event create and replace.
type EventRequest struct {
	Name      string    `json:"name"`
	VenueID   *string   `json:"venueId"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Timezone  string    `json:"timezone"`
}

// EventResponse describes an event.
type EventResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	VenueID   *string   `json:"venueId"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Timezone  string    `json:"timezone"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AssignStaffRequest payload.
type AssignStaffRequest struct {
	UserID string      `json:"userId"`
	Role   domain.Role `json:"role"`
}

// AssignmentResponse describes a staff assignment.
type AssignmentResponse struct {
	UserID    string      `json:"userId"`
	EventID   string      `json:"eventId"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"createdAt"`
}
