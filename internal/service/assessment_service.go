package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/epcr-service/internal/domain"
	"github.com/spec-kit/epcr-service/internal/events"
	"github.com/spec-kit/epcr-service/internal/observability"
	"github.com/spec-kit/epcr-service/internal/policy"
	"github.com/spec-kit/epcr-service/internal/repository"
	apperrors "github.com/spec-kit/epcr-service/pkg/util/errorutil"
)

// AssessmentService applies lifecycle-checked edits to patient assessments.
type AssessmentService struct {
	gate        *Gate
	assessments repository.AssessmentRepository
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// AssessmentDependencies bundles collaborators for the assessment service.
type AssessmentDependencies struct {
	Gate           *Gate
	AssessmentRepo repository.AssessmentRepository
	Dispatcher     events.Dispatcher
	Metrics        *observability.Metrics
	Logger         *zap.Logger
}

// AssessmentUpdateInput is a partial edit. Version, when set, must match the stored
// version or the update fails with a conflict.
type AssessmentUpdateInput struct {
	Version *int64
	Change  policy.AssessmentChange
}

// NewAssessmentService constructs the service.
func NewAssessmentService(deps AssessmentDependencies) *AssessmentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssessmentService{
		gate:        deps.Gate,
		assessments: deps.AssessmentRepo,
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		logger:      logger,
	}
}

// GetAssessment returns the patient's assessment.
func (s *AssessmentService) GetAssessment(ctx context.Context, actor policy.Actor, eventID, patientID string) (*domain.Assessment, error) {
	_, patient, err := s.gate.AuthorizePatient(ctx, actor, eventID, patientID, domain.AuditRead, domain.ResourceAssessment)
	if err != nil {
		return nil, err
	}
	assessment, err := s.assessments.GetByPatientID(ctx, patient.ID)
	if err != nil {
		return nil, err
	}
	s.gate.Audit(ctx, actor, domain.AuditRead, domain.ResourceAssessment, patient.ID, nil)
	return assessment, nil
}

// UpdateAssessment validates input against the record lifecycle and persists the merged
// state with a conditional write.
func (s *AssessmentService) UpdateAssessment(ctx context.Context, actor policy.Actor, eventID, patientID string, input AssessmentUpdateInput) (*domain.Assessment, error) {
	if input.Change.IsEmpty() {
		return nil, apperrors.NewValidationError("no fields to update", nil)
	}

	event, patient, err := s.gate.AuthorizePatient(ctx, actor, eventID, patientID, domain.AuditUpdate, domain.ResourceAssessment)
	if err != nil {
		return nil, err
	}

	current, err := s.assessments.GetByPatientID(ctx, patient.ID)
	if err != nil {
		return nil, err
	}
	if input.Version != nil && *input.Version != current.Version {
		s.metrics.RecordTransition("conflict")
		return nil, apperrors.NewConflict("record was modified concurrently", map[string]any{
			"expected_version": *input.Version,
			"current_version":  current.Version,
		})
	}

	now := s.gate.Now()
	outcome := policy.ValidateTransition(policy.StateOf(*current), input.Change, actor.Role, now)
	if !outcome.Accepted() {
		return nil, s.reject(ctx, actor, patient.ID, *outcome.Rejection)
	}

	updated := *current
	outcome.State.ApplyTo(&updated)
	actorID := actor.ID
	updated.UpdatedBy = &actorID
	updated.UpdatedAt = now
	if err := s.assessments.UpdateIfVersion(ctx, &updated, current.Version); err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			s.metrics.RecordTransition("conflict")
		}
		return nil, err
	}

	fields := input.Change.Fields()
	s.metrics.RecordTransition("accepted")
	s.gate.Audit(ctx, actor, domain.AuditUpdate, domain.ResourceAssessment, patient.ID, map[string]any{
		"fields":  fields,
		"status":  updated.Status,
		"version": updated.Version,
	})
	s.publishEvent(ctx, events.New(transitionEventType(current.Status, updated.Status), event.ID, patient.ID, actor.ID, now,
		events.AssessmentChangedPayload{
			OldStatus:   current.Status,
			NewStatus:   updated.Status,
			Disposition: updated.Disposition,
			Version:     updated.Version,
			Fields:      fields,
		}))
	return &updated, nil
}

func (s *AssessmentService) reject(ctx context.Context, actor policy.Actor, patientID string, r policy.Rejection) error {
	s.metrics.RecordTransition(string(r.Kind))
	s.gate.record(ctx, actor, domain.AuditUpdate, domain.ResourceAssessment, patientID, domain.AuditDenied, map[string]any{
		"reason": string(r.Kind),
		"field":  r.Field,
	})

	switch r.Kind {
	case policy.RejectRecordLocked:
		return apperrors.NewRecordLocked()
	case policy.RejectMissingRequiredField:
		return apperrors.NewMissingRequiredField(r.Field, r.Missing)
	default:
		return apperrors.NewValidationError("invalid value", map[string]any{"field": r.Field})
	}
}

func transitionEventType(from, to domain.AssessmentStatus) events.EventType {
	switch {
	case from != domain.AssessmentComplete && to == domain.AssessmentComplete:
		return events.EventAssessmentCompleted
	case from == domain.AssessmentComplete && to != domain.AssessmentComplete:
		return events.EventAssessmentReopened
	default:
		return events.EventAssessmentUpdated
	}
}

func (s *AssessmentService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
