package domain

import "time"

// Venue is the location hosting one or more events.
type Venue struct {
	ID        string
	Name      string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Event is an emergency-response deployment that owns patients.
type Event struct {
	ID        string
	Name      string
	VenueID   *string
	StartDate time.Time
	EndDate   time.Time
	// Timezone is stored as entered; date-window arithmetic does not consult it.
	Timezone  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StaffAssignment grants a user visibility into an event's patients.
type StaffAssignment struct {
	UserID    string
	EventID   string
	Role      Role
	CreatedAt time.Time
}
