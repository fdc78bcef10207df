package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/epcr-service/internal/audit"
	"github.com/spec-kit/epcr-service/internal/domain"
	"github.com/spec-kit/epcr-service/internal/observability"
	"github.com/spec-kit/epcr-service/internal/policy"
	"github.com/spec-kit/epcr-service/internal/repository"
	apperrors "github.com/spec-kit/epcr-service/pkg/util/errorutil"
)

// AssignmentLookup reports whether a user is staffed on an event.
type AssignmentLookup interface {
	HasAssignment(ctx context.Context, userID, eventID string) (bool, error)
}

type repoAssignmentLookup struct {
	repo repository.AssignmentRepository
}

// NewAssignmentLookup adapts an assignment repository.
func NewAssignmentLookup(repo repository.AssignmentRepository) AssignmentLookup {
	return repoAssignmentLookup{repo: repo}
}

func (l repoAssignmentLookup) HasAssignment(ctx context.Context, userID, eventID string) (bool, error) {
	return l.repo.Exists(ctx, eventID, userID)
}

// validID reports whether id is a well-formed record identifier.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// errAccessDenied is the single rendering of every denial cause.
func errAccessDenied() error {
	return apperrors.NewForbidden("access denied")
}

// Gate loads the records a request names and runs them through the AccessController.
// Every denial is audited and counted; successes are audited by the caller once the
// action has happened.
type Gate struct {
	controller  *policy.AccessController
	assignments AssignmentLookup
	events      repository.EventRepository
	patients    repository.PatientRepository
	clock       policy.Clock
	auditor     *audit.Auditor
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// GateDependencies bundles the gate's collaborators.
type GateDependencies struct {
	Controller  *policy.AccessController
	Assignments AssignmentLookup
	EventRepo   repository.EventRepository
	PatientRepo repository.PatientRepository
	Clock       policy.Clock
	Auditor     *audit.Auditor
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// NewGate constructs the gate.
func NewGate(deps GateDependencies) *Gate {
	clock := deps.Clock
	if clock == nil {
		clock = policy.SystemClock{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	controller := deps.Controller
	if controller == nil {
		controller = policy.NewAccessController(nil)
	}
	return &Gate{
		controller:  controller,
		assignments: deps.Assignments,
		events:      deps.EventRepo,
		patients:    deps.PatientRepo,
		clock:       clock,
		auditor:     deps.Auditor,
		metrics:     deps.Metrics,
		logger:      logger,
	}
}

// Now returns the gate's clock reading.
func (g *Gate) Now() time.Time {
	return g.clock.Now()
}

// AuthorizeEvent checks that actor may see eventID and add patients to it.
func (g *Gate) AuthorizeEvent(ctx context.Context, actor policy.Actor, eventID string, action domain.AuditAction) (*domain.Event, error) {
	if !validID(eventID) {
		return nil, g.deny(ctx, actor, action, domain.ResourceEvent, eventID, "malformed_id", apperrors.NewNotFound("event", nil))
	}
	event, err := g.events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, g.deny(ctx, actor, action, domain.ResourceEvent, eventID, "event_not_found", apperrors.NewNotFound("event", nil))
		}
		return nil, err
	}

	hasAssignment, err := g.hasAssignment(ctx, actor, eventID)
	if err != nil {
		return nil, err
	}
	access := g.controller.ResolveEventAccess(actor, hasAssignment)
	g.metrics.RecordAccessDecision(string(access.Basis), access.Granted())
	if !access.Granted() {
		return nil, g.deny(ctx, actor, action, domain.ResourceEvent, eventID, string(access.Basis), nil)
	}
	return event, nil
}

// AuthorizePatient loads the event and patient and resolves actor's access to the
// patient's record. A patient that is missing or belongs to another event is denied the
// same way as one outside the time window, except for admins who get NotFound.
func (g *Gate) AuthorizePatient(ctx context.Context, actor policy.Actor, eventID, patientID string, action domain.AuditAction, resource domain.AuditResource) (*domain.Event, *domain.Patient, error) {
	if !validID(eventID) {
		return nil, nil, g.deny(ctx, actor, action, resource, patientID, "malformed_id", apperrors.NewNotFound("event", nil))
	}
	if !validID(patientID) {
		return nil, nil, g.deny(ctx, actor, action, resource, patientID, "malformed_id", apperrors.NewNotFound("patient", nil))
	}
	event, err := g.events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, g.deny(ctx, actor, action, resource, patientID, "event_not_found", apperrors.NewNotFound("event", nil))
		}
		return nil, nil, err
	}

	patient, err := g.patients.GetByID(ctx, patientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, g.deny(ctx, actor, action, resource, patientID, "patient_not_found", apperrors.NewNotFound("patient", nil))
		}
		return nil, nil, err
	}
	if patient.EventID != event.ID {
		return nil, nil, g.deny(ctx, actor, action, resource, patientID, "event_mismatch", apperrors.NewNotFound("patient", nil))
	}

	hasAssignment, err := g.hasAssignment(ctx, actor, event.ID)
	if err != nil {
		return nil, nil, err
	}
	access := g.controller.ResolveAccess(
		actor,
		policy.EventWindow{ID: event.ID, StartDate: event.StartDate},
		policy.PatientRef{ID: patient.ID, EventID: patient.EventID, CreatedAt: patient.CreatedAt},
		g.clock.Now(),
		hasAssignment,
	)
	g.metrics.RecordAccessDecision(string(access.Basis), access.Granted())
	if !access.Granted() {
		return nil, nil, g.deny(ctx, actor, action, resource, patientID, string(access.Basis), nil)
	}
	return event, patient, nil
}

// CanAccessPatient resolves access for an already-loaded patient of event without
// auditing. It backs list filtering.
func (g *Gate) CanAccessPatient(actor policy.Actor, event *domain.Event, patient domain.Patient, hasAssignment bool, now time.Time) bool {
	access := g.controller.ResolveAccess(
		actor,
		policy.EventWindow{ID: event.ID, StartDate: event.StartDate},
		policy.PatientRef{ID: patient.ID, EventID: patient.EventID, CreatedAt: patient.CreatedAt},
		now,
		hasAssignment,
	)
	return access.Granted()
}

// Audit records a successful action.
func (g *Gate) Audit(ctx context.Context, actor policy.Actor, action domain.AuditAction, resource domain.AuditResource, resourceID string, details map[string]any) {
	g.record(ctx, actor, action, resource, resourceID, domain.AuditSuccess, details)
}

func (g *Gate) record(ctx context.Context, actor policy.Actor, action domain.AuditAction, resource domain.AuditResource, resourceID string, outcome domain.AuditOutcome, details map[string]any) {
	g.auditor.Log(ctx, audit.Entry{
		ActorID:    actor.ID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Outcome:    outcome,
		Details:    details,
	})
}

func (g *Gate) hasAssignment(ctx context.Context, actor policy.Actor, eventID string) (bool, error) {
	if actor.Role.IsAdmin() || g.assignments == nil {
		return false, nil
	}
	return g.assignments.HasAssignment(ctx, actor.ID, eventID)
}

// deny audits a refusal and picks the error the caller sees. adminErr, when set, is
// returned to admins in place of the uniform Forbidden.
func (g *Gate) deny(ctx context.Context, actor policy.Actor, action domain.AuditAction, resource domain.AuditResource, resourceID, reason string, adminErr error) error {
	g.record(ctx, actor, action, resource, resourceID, domain.AuditDenied, map[string]any{"reason": reason})
	g.logger.Debug("access denied",
		zap.String("actor_id", actor.ID),
		zap.String("resource", string(resource)),
		zap.String("resource_id", resourceID),
		zap.String("reason", reason))
	if adminErr != nil && actor.Role.IsAdmin() {
		return adminErr
	}
	return errAccessDenied()
}
