package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/epcr-service/internal/domain"
)

var eventStart = time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC)

func emt() Actor { return Actor{ID: "emt-1", Role: domain.RoleEMT} }
func admin() Actor { return Actor{ID: "admin-1", Role: domain.RoleAdmin} }

func event() EventWindow {
	return EventWindow{ID: "event-1", StartDate: eventStart}
}

func patientAt(created time.Time) PatientRef {
	return PatientRef{ID: "patient-1", EventID: "event-1", CreatedAt: created}
}

func TestResolveAccess_AdminAlwaysGranted(t *testing.T) {
	ctrl := NewAccessController(time.UTC)
	now := eventStart.Add(30 * 24 * time.Hour)

	cases := []struct {
		name          string
		created       time.Time
		hasAssignment bool
	}{
		{"unassigned old patient", eventStart.Add(48 * time.Hour), false},
		{"assigned fresh patient", now.Add(-time.Minute), true},
		{"unassigned patient from before the event", eventStart.Add(-72 * time.Hour), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			access := ctrl.ResolveAccess(admin(), event(), patientAt(tc.created), now, tc.hasAssignment)
			assert.True(t, access.CanRead)
			assert.True(t, access.CanWrite)
			assert.Equal(t, BasisAdmin, access.Basis)
		})
	}
}

func TestResolveAccess_UnassignedEMTDenied(t *testing.T) {
	ctrl := NewAccessController(time.UTC)
	now := eventStart.Add(time.Hour)

	for _, created := range []time.Time{now, now.Add(-time.Minute), eventStart} {
		access := ctrl.ResolveAccess(emt(), event(), patientAt(created), now, false)
		assert.False(t, access.CanRead)
		assert.False(t, access.CanWrite)
		assert.Equal(t, BasisNoAssignment, access.Basis)
	}
}

func TestResolveAccess_AssignedEMTWindows(t *testing.T) {
	ctrl := NewAccessController(time.UTC)
	now := eventStart.Add(48 * time.Hour)

	cases := []struct {
		name    string
		created time.Time
		now     time.Time
		granted bool
		basis   AccessBasis
	}{
		{"created 23h ago", now.Add(-23 * time.Hour), now, true, BasisRollingWindow},
		{"created exactly 24h ago", now.Add(-24 * time.Hour), now, true, BasisRollingWindow},
		{"created 25h ago on a later day than the event", now.Add(-25 * time.Hour), now, false, BasisWindowExpired},
		{"created on event start day, days ago", time.Date(2024, time.June, 1, 23, 0, 0, 0, time.UTC), eventStart.Add(96 * time.Hour), true, BasisSameDay},
		{"created just before midnight of the day before the event", time.Date(2024, time.May, 31, 23, 59, 0, 0, time.UTC), eventStart.Add(72 * time.Hour), false, BasisWindowExpired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			access := ctrl.ResolveAccess(emt(), event(), patientAt(tc.created), tc.now, true)
			assert.Equal(t, tc.granted, access.CanRead)
			assert.Equal(t, tc.granted, access.CanWrite)
			assert.Equal(t, tc.basis, access.Basis)
		})
	}
}

func TestResolveAccess_SameDayUsesConfiguredLocation(t *testing.T) {
	start := time.Date(2024, time.June, 1, 23, 30, 0, 0, time.UTC)
	created := time.Date(2024, time.June, 2, 0, 30, 0, 0, time.UTC)
	now := created.Add(72 * time.Hour)
	ev := EventWindow{ID: "event-1", StartDate: start}

	utc := NewAccessController(time.UTC)
	assert.False(t, utc.ResolveAccess(emt(), ev, patientAt(created), now, true).Granted())

	eastern := NewAccessController(time.FixedZone("UTC-4", -4*60*60))
	assert.True(t, eastern.ResolveAccess(emt(), ev, patientAt(created), now, true).Granted())
}

func TestResolveAccess_UnknownRoleDenied(t *testing.T) {
	ctrl := NewAccessController(time.UTC)
	actor := Actor{ID: "x", Role: domain.Role("DISPATCHER")}
	access := ctrl.ResolveAccess(actor, event(), patientAt(eventStart), eventStart, true)
	assert.False(t, access.Granted())
	assert.Equal(t, BasisUnknownRole, access.Basis)
}

func TestResolveAccess_ReadEqualsWrite(t *testing.T) {
	ctrl := NewAccessController(time.UTC)
	now := eventStart.Add(5 * 24 * time.Hour)
	for h := 0; h < 24*7; h += 5 {
		created := eventStart.Add(time.Duration(h) * time.Hour)
		for _, actor := range []Actor{admin(), emt()} {
			for _, assigned := range []bool{true, false} {
				access := ctrl.ResolveAccess(actor, event(), patientAt(created), now, assigned)
				assert.Equal(t, access.CanRead, access.CanWrite)
			}
		}
	}
}

func TestResolveEventAccess(t *testing.T) {
	ctrl := NewAccessController(nil)
	assert.True(t, ctrl.ResolveEventAccess(admin(), false).Granted())
	assert.True(t, ctrl.ResolveEventAccess(emt(), true).Granted())
	assert.False(t, ctrl.ResolveEventAccess(emt(), false).Granted())
}
