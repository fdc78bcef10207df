package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/epcr-service/internal/domain"
	"github.com/spec-kit/epcr-service/internal/events"
	"github.com/spec-kit/epcr-service/internal/policy"
	apperrors "github.com/spec-kit/epcr-service/pkg/util/errorutil"
)

func ptr[T any](v T) *T { return &v }

func completeTransported() policy.AssessmentChange {
	return policy.AssessmentChange{
		Status:       ptr(domain.AssessmentComplete),
		Disposition:  ptr(domain.DispositionTransported),
		HospitalName: ptr("General"),
		EMSUnit:      ptr("Medic 7"),
		EMTSignature: ptr("J. Doe"),
	}
}

func TestUpdateAssessmentCompletes(t *testing.T) {
	f := newFixture()
	id := f.addPatient(f.event.ID, testNow.Add(-time.Hour))

	updated, err := f.assessments.UpdateAssessment(context.Background(), f.emt, f.event.ID, id, AssessmentUpdateInput{
		Version: ptr(int64(1)),
		Change:  completeTransported(),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.AssessmentComplete, updated.Status)
	assert.Equal(t, int64(2), updated.Version)
	require.NotNil(t, updated.EMTSignatureTimestamp)
	assert.Equal(t, testNow, *updated.EMTSignatureTimestamp)
	require.NotNil(t, updated.UpdatedBy)
	assert.Equal(t, f.emt.ID, *updated.UpdatedBy)

	assert.Equal(t, domain.AssessmentComplete, f.store.assessments[id].Status)
	assert.Equal(t, []events.EventType{events.EventAssessmentCompleted}, f.published.types())

	last := f.audits.last()
	assert.Equal(t, domain.AuditUpdate, last.Action)
	assert.Equal(t, domain.ResourceAssessment, last.Resource)
	assert.Equal(t, domain.AuditSuccess, last.Outcome)
}

func TestUpdateAssessmentMissingFields(t *testing.T) {
	f := newFixture()
	id := f.addPatient(f.event.ID, testNow.Add(-time.Hour))

	_, err := f.assessments.UpdateAssessment(context.Background(), f.emt, f.event.ID, id, AssessmentUpdateInput{
		Change: policy.AssessmentChange{
			Status:      ptr(domain.AssessmentComplete),
			Disposition: ptr(domain.DispositionTransported),
		},
	})
	require.Error(t, err)
	de := apperrors.ToDomainError(err)
	assert.Equal(t, http.StatusBadRequest, de.HTTPStatus)
	assert.Equal(t, "MISSING_REQUIRED_FIELD", de.Code)
	assert.Equal(t, policy.FieldHospitalName, de.Details["field"])
	assert.Equal(t, []string{policy.FieldHospitalName, policy.FieldEMSUnit, policy.FieldEMTSignature}, de.Details["missing"])

	assert.Equal(t, domain.AssessmentIncomplete, f.store.assessments[id].Status)
	assert.Equal(t, int64(1), f.store.assessments[id].Version)
	assert.Equal(t, domain.AuditDenied, f.audits.last().Outcome)
	assert.Empty(t, f.published.types())
}

func TestUpdateAssessmentLockedForEMT(t *testing.T) {
	f := newFixture()
	id := f.addPatient(f.event.ID, testNow.Add(-time.Hour))
	_, err := f.assessments.UpdateAssessment(context.Background(), f.emt, f.event.ID, id, AssessmentUpdateInput{Change: completeTransported()})
	require.NoError(t, err)

	_, err = f.assessments.UpdateAssessment(context.Background(), f.emt, f.event.ID, id, AssessmentUpdateInput{
		Change: policy.AssessmentChange{Narrative: ptr("late note")},
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusLocked, statusOf(err))
	assert.Equal(t, "RECORD_LOCKED", apperrors.ToDomainError(err).Code)
	assert.Empty(t, f.store.assessments[id].Narrative)
}

func TestAdminReopensCompletedAssessment(t *testing.T) {
	f := newFixture()
	id := f.addPatient(f.event.ID, testNow.Add(-time.Hour))
	_, err := f.assessments.UpdateAssessment(context.Background(), f.emt, f.event.ID, id, AssessmentUpdateInput{Change: completeTransported()})
	require.NoError(t, err)

	reopened, err := f.assessments.UpdateAssessment(context.Background(), f.admin, f.event.ID, id, AssessmentUpdateInput{
		Change: policy.AssessmentChange{Status: ptr(domain.AssessmentIncomplete)},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.AssessmentIncomplete, reopened.Status)
	assert.Equal(t, []events.EventType{events.EventAssessmentCompleted, events.EventAssessmentReopened}, f.published.types())

	edited, err := f.assessments.UpdateAssessment(context.Background(), f.emt, f.event.ID, id, AssessmentUpdateInput{
		Change: policy.AssessmentChange{Narrative: ptr("addendum")},
	})
	require.NoError(t, err)
	assert.Equal(t, "addendum", edited.Narrative)
	assert.Equal(t, events.EventAssessmentUpdated, f.published.types()[2])
}

func TestUpdateAssessmentStaleVersion(t *testing.T) {
	f := newFixture()
	id := f.addPatient(f.event.ID, testNow.Add(-time.Hour))

	_, err := f.assessments.UpdateAssessment(context.Background(), f.emt, f.event.ID, id, AssessmentUpdateInput{
		Version: ptr(int64(7)),
		Change:  policy.AssessmentChange{Narrative: ptr("n")},
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, statusOf(err))
}

func TestUpdateAssessmentLosesRace(t *testing.T) {
	f := newFixture()
	id := f.addPatient(f.event.ID, testNow.Add(-time.Hour))
	f.store.forceConflict = true

	_, err := f.assessments.UpdateAssessment(context.Background(), f.emt, f.event.ID, id, AssessmentUpdateInput{
		Change: policy.AssessmentChange{Narrative: ptr("n")},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrVersionConflict))
	assert.Equal(t, http.StatusConflict, statusOf(err))
	assert.Empty(t, f.published.types())
}

func TestUpdateAssessmentOutsideWindowIsForbidden(t *testing.T) {
	f := newFixture()
	// May 31: before the event start day and past the rolling window.
	id := f.addPatient(f.event.ID, testNow.Add(-72*time.Hour))

	_, err := f.assessments.UpdateAssessment(context.Background(), f.emt, f.event.ID, id, AssessmentUpdateInput{
		Change: policy.AssessmentChange{Narrative: ptr("n")},
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, statusOf(err))
	assert.Equal(t, int64(1), f.store.assessments[id].Version)
}

func TestUpdateAssessmentOnEventStartDayIsAllowed(t *testing.T) {
	f := newFixture()
	// June 1 12:00 is past the rolling window but on the event start day.
	id := f.addPatient(f.event.ID, testNow.Add(-48*time.Hour))

	updated, err := f.assessments.UpdateAssessment(context.Background(), f.emt, f.event.ID, id, AssessmentUpdateInput{
		Change: policy.AssessmentChange{Narrative: ptr("n")},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)
	assert.Equal(t, testNow, updated.UpdatedAt)
}

func TestUpdateAssessmentRejectsEmptyAndInvalidInput(t *testing.T) {
	f := newFixture()
	id := f.addPatient(f.event.ID, testNow.Add(-time.Hour))

	_, err := f.assessments.UpdateAssessment(context.Background(), f.emt, f.event.ID, id, AssessmentUpdateInput{})
	assert.Equal(t, http.StatusBadRequest, statusOf(err))

	_, err = f.assessments.UpdateAssessment(context.Background(), f.emt, f.event.ID, id, AssessmentUpdateInput{
		Change: policy.AssessmentChange{Disposition: ptr(domain.Disposition("teleported"))},
	})
	de := apperrors.ToDomainError(err)
	assert.Equal(t, http.StatusBadRequest, de.HTTPStatus)
	assert.Equal(t, policy.FieldDisposition, de.Details["field"])
}

func TestGetAssessmentAuditsRead(t *testing.T) {
	f := newFixture()
	id := f.addPatient(f.event.ID, testNow.Add(-time.Hour))

	a, err := f.assessments.GetAssessment(context.Background(), f.emt, f.event.ID, id)
	require.NoError(t, err)
	assert.Equal(t, id, a.PatientID)

	last := f.audits.last()
	assert.Equal(t, domain.AuditRead, last.Action)
	require.NotNil(t, last.ResourceID)
	assert.Equal(t, id, *last.ResourceID)
}
