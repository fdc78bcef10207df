// Package policy holds the access-control and record-lifecycle rules for patient care
// records. Everything here is a pure function of its inputs.
package policy

import (
	"time"

	"github.com/spec-kit/epcr-service/internal/domain"
)

// RollingWindow is how far back from now an assigned EMT can reach a patient record.
const RollingWindow = 24 * time.Hour

// Actor is the caller a decision is made for.
type Actor struct {
	ID   string
	Role domain.Role
}

// EventWindow carries the event fields the access rules read.
type EventWindow struct {
	ID        string
	StartDate time.Time
}

// PatientRef carries the patient fields the access rules read.
type PatientRef struct {
	ID        string
	EventID   string
	CreatedAt time.Time
}

// AccessBasis explains which rule produced a decision. It is meant for logs and
// metrics only; callers must not surface it to the requester.
type AccessBasis string

const (
	BasisAdmin         AccessBasis = "admin"
	BasisAssigned      AccessBasis = "assigned"
	BasisRollingWindow AccessBasis = "rolling_window"
	BasisSameDay       AccessBasis = "same_day"
	BasisNoAssignment  AccessBasis = "no_assignment"
	BasisWindowExpired AccessBasis = "window_expired"
	BasisUnknownRole   AccessBasis = "unknown_role"
)

// Access is the outcome of ResolveAccess. CanRead and CanWrite are always equal.
type Access struct {
	CanRead  bool
	CanWrite bool
	Basis    AccessBasis
}

// Granted reports whether any access was given.
func (a Access) Granted() bool {
	return a.CanRead
}

// AccessController decides whether an actor may see or change a patient record.
type AccessController struct {
	loc *time.Location
}

// NewAccessController builds a controller that truncates instants to calendar dates in
// loc. A nil loc means time.Local.
func NewAccessController(loc *time.Location) *AccessController {
	if loc == nil {
		loc = time.Local
	}
	return &AccessController{loc: loc}
}

// ResolveAccess applies the role, assignment and time-window rules. The caller must have
// verified that patient belongs to event.
func (c *AccessController) ResolveAccess(actor Actor, event EventWindow, patient PatientRef, now time.Time, hasAssignment bool) Access {
	switch actor.Role {
	case domain.RoleAdmin:
		return grant(BasisAdmin)
	case domain.RoleEMT:
		if !hasAssignment {
			return deny(BasisNoAssignment)
		}
		if !patient.CreatedAt.Before(now.Add(-RollingWindow)) {
			return grant(BasisRollingWindow)
		}
		if c.sameCalendarDate(patient.CreatedAt, event.StartDate) {
			return grant(BasisSameDay)
		}
		return deny(BasisWindowExpired)
	default:
		return deny(BasisUnknownRole)
	}
}

// ResolveEventAccess decides whether an actor may see an event itself or add patients
// to it. No time window applies at the event level.
func (c *AccessController) ResolveEventAccess(actor Actor, hasAssignment bool) Access {
	switch actor.Role {
	case domain.RoleAdmin:
		return grant(BasisAdmin)
	case domain.RoleEMT:
		if hasAssignment {
			return grant(BasisAssigned)
		}
		return deny(BasisNoAssignment)
	default:
		return deny(BasisUnknownRole)
	}
}

func (c *AccessController) sameCalendarDate(a, b time.Time) bool {
	ay, am, ad := a.In(c.loc).Date()
	by, bm, bd := b.In(c.loc).Date()
	return ay == by && am == bm && ad == bd
}

func grant(basis AccessBasis) Access {
	return Access{CanRead: true, CanWrite: true, Basis: basis}
}

func deny(basis AccessBasis) Access {
	return Access{Basis: basis}
}
