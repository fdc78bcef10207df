package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/epcr-service/internal/domain"
	"github.com/spec-kit/epcr-service/internal/events"
	"github.com/spec-kit/epcr-service/internal/policy"
	"github.com/spec-kit/epcr-service/internal/repository"
	apperrors "github.com/spec-kit/epcr-service/pkg/util/errorutil"
)

// PatientService coordinates patient workflows inside an event.
type PatientService struct {
	gate       *Gate
	patients   repository.PatientRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// PatientDependencies bundles collaborators for the patient service.
type PatientDependencies struct {
	Gate        *Gate
	PatientRepo repository.PatientRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// PatientCreateInput describes a new patient.
type PatientCreateInput struct {
	TriageTag      domain.TriageTag
	ChiefComplaint string
}

// PatientListFilter narrows patient listing.
type PatientListFilter struct {
	TriageTag *domain.TriageTag
	Limit     int
	Offset    int
}

// NewPatientService constructs the service.
func NewPatientService(deps PatientDependencies) *PatientService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PatientService{
		gate:       deps.Gate,
		patients:   deps.PatientRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// CreatePatient registers a patient and its empty assessment in one step.
func (s *PatientService) CreatePatient(ctx context.Context, actor policy.Actor, eventID string, input PatientCreateInput) (*domain.Patient, *domain.Assessment, error) {
	if !input.TriageTag.Valid() {
		return nil, nil, apperrors.NewValidationError("invalid triage tag", map[string]any{"field": "triageTag"})
	}
	event, err := s.gate.AuthorizeEvent(ctx, actor, eventID, domain.AuditCreate)
	if err != nil {
		return nil, nil, err
	}

	now := s.gate.Now()
	patient := &domain.Patient{
		EventID:   event.ID,
		TriageTag: input.TriageTag,
		CreatedBy: actor.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	actorID := actor.ID
	assessment := &domain.Assessment{
		Status:         domain.AssessmentIncomplete,
		Disposition:    domain.DispositionNone,
		ChiefComplaint: input.ChiefComplaint,
		UpdatedAt:      now,
		UpdatedBy:      &actorID,
	}
	if err := s.patients.CreateWithAssessment(ctx, patient, assessment); err != nil {
		return nil, nil, err
	}

	s.gate.Audit(ctx, actor, domain.AuditCreate, domain.ResourcePatient, patient.ID, map[string]any{"event_id": event.ID})
	s.publishEvent(ctx, events.New(events.EventPatientCreated, event.ID, patient.ID, actor.ID, now,
		events.PatientCreatedPayload{TriageTag: patient.TriageTag}))
	return patient, assessment, nil
}

// PatientPage is one page of visible patients. NextOffset is the source offset to pass
// for the following page, nil once the event's patients are exhausted.
type PatientPage struct {
	Patients   []domain.Patient
	NextOffset *int
}

// maxListScans bounds how many source pages one listing call reads while filling a page.
const maxListScans = 10

// ListPatients returns the event's patients the actor may access. Offsets count source
// rows, so hidden patients never produce a short page unless the scan bound is reached;
// clients page by following NextOffset.
func (s *PatientService) ListPatients(ctx context.Context, actor policy.Actor, eventID string, filter PatientListFilter) (*PatientPage, error) {
	if filter.TriageTag != nil && !filter.TriageTag.Valid() {
		return nil, apperrors.NewValidationError("invalid triage tag", map[string]any{"field": "triageTag"})
	}
	event, err := s.gate.AuthorizeEvent(ctx, actor, eventID, domain.AuditRead)
	if err != nil {
		return nil, err
	}

	// AuthorizeEvent already established the assignment for non-admins.
	hasAssignment := !actor.Role.IsAdmin()
	now := s.gate.Now()
	limit, offset := repository.NormalizePage(filter.Limit, filter.Offset)
	visible := make([]domain.Patient, 0, limit)
	scanned := 0
	exhausted := false

	for scans := 0; scans < maxListScans && len(visible) < limit && !exhausted; scans++ {
		batch, err := s.patients.ListByEvent(ctx, event.ID, repository.PatientFilter{
			TriageTag: filter.TriageTag,
			Limit:     limit,
			Offset:    offset,
		})
		if err != nil {
			return nil, err
		}
		consumed := 0
		for _, p := range batch {
			if len(visible) == limit {
				break
			}
			consumed++
			if s.gate.CanAccessPatient(actor, event, p, hasAssignment, now) {
				visible = append(visible, p)
			}
		}
		offset += consumed
		scanned += consumed
		exhausted = len(batch) < limit && consumed == len(batch)
	}

	page := &PatientPage{Patients: visible}
	if !exhausted {
		next := offset
		page.NextOffset = &next
	}
	s.gate.Audit(ctx, actor, domain.AuditRead, domain.ResourceEvent, event.ID, map[string]any{
		"listed":   len(visible),
		"filtered": scanned - len(visible),
	})
	return page, nil
}

// GetPatient returns a single patient.
func (s *PatientService) GetPatient(ctx context.Context, actor policy.Actor, eventID, patientID string) (*domain.Patient, error) {
	_, patient, err := s.gate.AuthorizePatient(ctx, actor, eventID, patientID, domain.AuditRead, domain.ResourcePatient)
	if err != nil {
		return nil, err
	}
	s.gate.Audit(ctx, actor, domain.AuditRead, domain.ResourcePatient, patient.ID, nil)
	return patient, nil
}

// UpdateTriage changes a patient's triage tag. The tag is outside the record lifecycle
// and stays editable after the assessment is complete.
func (s *PatientService) UpdateTriage(ctx context.Context, actor policy.Actor, eventID, patientID string, tag domain.TriageTag) (*domain.Patient, error) {
	if !tag.Valid() {
		return nil, apperrors.NewValidationError("invalid triage tag", map[string]any{"field": "triageTag"})
	}
	_, patient, err := s.gate.AuthorizePatient(ctx, actor, eventID, patientID, domain.AuditUpdate, domain.ResourcePatient)
	if err != nil {
		return nil, err
	}

	updated, err := s.patients.UpdateTriage(ctx, patient.ID, tag, s.gate.Now())
	if err != nil {
		return nil, err
	}
	s.gate.Audit(ctx, actor, domain.AuditUpdate, domain.ResourcePatient, patient.ID, map[string]any{
		"triage_from": patient.TriageTag,
		"triage_to":   tag,
	})
	return updated, nil
}

// DeletePatient removes a patient and its assessment. Admin only.
func (s *PatientService) DeletePatient(ctx context.Context, actor policy.Actor, eventID, patientID string) error {
	if !actor.Role.IsAdmin() {
		return s.gate.deny(ctx, actor, domain.AuditDelete, domain.ResourcePatient, patientID, "admin_required", nil)
	}
	_, patient, err := s.gate.AuthorizePatient(ctx, actor, eventID, patientID, domain.AuditDelete, domain.ResourcePatient)
	if err != nil {
		return err
	}
	if err := s.patients.Delete(ctx, patient.ID); err != nil {
		return err
	}
	s.gate.Audit(ctx, actor, domain.AuditDelete, domain.ResourcePatient, patient.ID, map[string]any{"event_id": eventID})
	return nil
}

func (s *PatientService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
