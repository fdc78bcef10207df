package domain

import "time"

// TriageTag is a severity classification. It is not part of the record lifecycle.
type TriageTag string

const (
	TriageNone      TriageTag = ""
	TriageImmediate TriageTag = "RED"
	TriageDelayed   TriageTag = "YELLOW"
	TriageMinor     TriageTag = "GREEN"
	TriageExpectant TriageTag = "BLACK"
)

// Valid reports whether t is empty or one of the known tags.
func (t TriageTag) Valid() bool {
	switch t {
	case TriageNone, TriageImmediate, TriageDelayed, TriageMinor, TriageExpectant:
		return true
	}
	return false
}

// Patient is a person treated during an event.
type Patient struct {
	ID        string
	EventID   string
	TriageTag TriageTag
	CreatedAt time.Time
	CreatedBy string
	UpdatedAt time.Time
}
