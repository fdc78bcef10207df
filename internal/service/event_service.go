package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/epcr-service/internal/domain"
	"github.com/spec-kit/epcr-service/internal/events"
	"github.com/spec-kit/epcr-service/internal/policy"
	"github.com/spec-kit/epcr-service/internal/repository"
	apperrors "github.com/spec-kit/epcr-service/pkg/util/errorutil"
)

// EventService manages events and their staff assignments.
type EventService struct {
	gate        *Gate
	events      repository.EventRepository
	venues      repository.VenueRepository
	users       repository.UserRepository
	assignments repository.AssignmentRepository
	dispatcher  events.Dispatcher
	logger      *zap.Logger
}

// EventDependencies bundles collaborators for the event service.
type EventDependencies struct {
	Gate           *Gate
	EventRepo      repository.EventRepository
	VenueRepo      repository.VenueRepository
	UserRepo       repository.UserRepository
	AssignmentRepo repository.AssignmentRepository
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
}

// EventInput describes an event create or replace payload.
type EventInput struct {
	Name      string
	VenueID   *string
	StartDate time.Time
	EndDate   time.Time
	Timezone  string
}

// NewEventService constructs the service.
func NewEventService(deps EventDependencies) *EventService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventService{
		gate:        deps.Gate,
		events:      deps.EventRepo,
		venues:      deps.VenueRepo,
		users:       deps.UserRepo,
		assignments: deps.AssignmentRepo,
		dispatcher:  deps.Dispatcher,
		logger:      logger,
	}
}

// CreateEvent adds an event. Admin only.
func (s *EventService) CreateEvent(ctx context.Context, actor policy.Actor, input EventInput) (*domain.Event, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	event := &domain.Event{}
	if err := s.applyInput(ctx, event, input); err != nil {
		return nil, err
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, err
	}
	s.gate.Audit(ctx, actor, domain.AuditCreate, domain.ResourceEvent, event.ID, nil)
	return event, nil
}

// ListEvents returns every event to admins and the assigned events to everyone else.
func (s *EventService) ListEvents(ctx context.Context, actor policy.Actor, limit, offset int) ([]domain.Event, error) {
	if actor.Role.IsAdmin() {
		return s.events.List(ctx, limit, offset)
	}
	return s.events.ListForUser(ctx, actor.ID, limit, offset)
}

// GetEvent returns one event the actor is admitted to.
func (s *EventService) GetEvent(ctx context.Context, actor policy.Actor, eventID string) (*domain.Event, error) {
	return s.gate.AuthorizeEvent(ctx, actor, eventID, domain.AuditRead)
}

// UpdateEvent replaces an event's editable fields. Admin only.
func (s *EventService) UpdateEvent(ctx context.Context, actor policy.Actor, eventID string, input EventInput) (*domain.Event, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !validID(eventID) {
		return nil, apperrors.NewNotFound("event", map[string]any{"id": eventID})
	}
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, notFoundAs(err, "event", eventID)
	}
	if err := s.applyInput(ctx, event, input); err != nil {
		return nil, err
	}
	if err := s.events.Update(ctx, event); err != nil {
		return nil, notFoundAs(err, "event", eventID)
	}
	s.gate.Audit(ctx, actor, domain.AuditUpdate, domain.ResourceEvent, event.ID, nil)
	return event, nil
}

// DeleteEvent removes an event with its patients and assignments. Admin only.
func (s *EventService) DeleteEvent(ctx context.Context, actor policy.Actor, eventID string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if !validID(eventID) {
		return apperrors.NewNotFound("event", map[string]any{"id": eventID})
	}
	if err := s.events.Delete(ctx, eventID); err != nil {
		return notFoundAs(err, "event", eventID)
	}
	s.gate.Audit(ctx, actor, domain.AuditDelete, domain.ResourceEvent, eventID, nil)
	return nil
}

// AssignStaff staffs a user on an event. Admin only.
func (s *EventService) AssignStaff(ctx context.Context, actor policy.Actor, eventID, userID string, role domain.Role) (*domain.StaffAssignment, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !validID(eventID) {
		return nil, apperrors.NewNotFound("event", map[string]any{"id": eventID})
	}
	if !validID(userID) {
		return nil, apperrors.NewNotFound("user", map[string]any{"id": userID})
	}
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		return nil, notFoundAs(err, "event", eventID)
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundAs(err, "user", userID)
	}
	if role == "" {
		role = user.Role
	}
	if !role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"field": "role"})
	}

	assignment := &domain.StaffAssignment{UserID: user.ID, EventID: eventID, Role: role}
	if err := s.assignments.Create(ctx, assignment); err != nil {
		return nil, err
	}
	s.gate.Audit(ctx, actor, domain.AuditCreate, domain.ResourceEvent, eventID, map[string]any{"assigned_user_id": user.ID, "role": role})
	s.publishEvent(ctx, events.New(events.EventAssignmentCreated, eventID, "", actor.ID, s.gate.Now(),
		events.AssignmentPayload{UserID: user.ID, Role: role}))
	return assignment, nil
}

// UnassignStaff removes a user from an event. Admin only.
func (s *EventService) UnassignStaff(ctx context.Context, actor policy.Actor, eventID, userID string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if !validID(eventID) || !validID(userID) {
		return apperrors.NewNotFound("assignment", map[string]any{"id": userID})
	}
	if err := s.assignments.Delete(ctx, eventID, userID); err != nil {
		return notFoundAs(err, "assignment", userID)
	}
	s.gate.Audit(ctx, actor, domain.AuditDelete, domain.ResourceEvent, eventID, map[string]any{"unassigned_user_id": userID})
	s.publishEvent(ctx, events.New(events.EventAssignmentRemoved, eventID, "", actor.ID, s.gate.Now(),
		events.AssignmentPayload{UserID: userID}))
	return nil
}

// ListStaff lists an event's assignments. Admin only.
func (s *EventService) ListStaff(ctx context.Context, actor policy.Actor, eventID string) ([]domain.StaffAssignment, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !validID(eventID) {
		return nil, apperrors.NewNotFound("event", map[string]any{"id": eventID})
	}
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		return nil, notFoundAs(err, "event", eventID)
	}
	return s.assignments.ListByEvent(ctx, eventID)
}

func (s *EventService) applyInput(ctx context.Context, event *domain.Event, input EventInput) error {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
	}
	if input.StartDate.IsZero() || input.EndDate.IsZero() {
		return apperrors.NewValidationError("startDate and endDate are required", map[string]any{"field": "startDate"})
	}
	if input.EndDate.Before(input.StartDate) {
		return apperrors.NewValidationError("endDate must not precede startDate", map[string]any{"field": "endDate"})
	}
	tz := strings.TrimSpace(input.Timezone)
	if tz == "" {
		tz = "UTC"
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return apperrors.NewValidationError("unknown timezone", map[string]any{"field": "timezone"})
	}
	if input.VenueID != nil && *input.VenueID != "" {
		if !validID(*input.VenueID) {
			return apperrors.NewValidationError("unknown venue", map[string]any{"field": "venueId"})
		}
		if _, err := s.venues.GetByID(ctx, *input.VenueID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewValidationError("unknown venue", map[string]any{"field": "venueId"})
			}
			return err
		}
		event.VenueID = input.VenueID
	} else {
		event.VenueID = nil
	}

	event.Name = name
	event.StartDate = input.StartDate
	event.EndDate = input.EndDate
	event.Timezone = tz
	return nil
}

func (s *EventService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func notFoundAs(err error, resource, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	return err
}
