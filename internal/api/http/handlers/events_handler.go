package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/epcr-service/internal/api/dto"
	"github.com/spec-kit/epcr-service/internal/service"
)

// EventsHandler exposes events and their staff.
type EventsHandler struct {
	events *service.EventService
}

// NewEventsHandler constructs handler.
func NewEventsHandler(events *service.EventService) *EventsHandler {
	return &EventsHandler{events: events}
}

func eventInput(req dto.EventRequest) service.EventInput {
	var venueID *string
	if req.VenueID != nil {
		venueID = optionalString(*req.VenueID)
	}
	return service.EventInput{
		Name:      req.Name,
		VenueID:   venueID,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Timezone:  req.Timezone,
	}
}

// Create handles POST /events.
func (h *EventsHandler) Create(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.EventRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	event, err := h.events.CreateEvent(c.UserContext(), actor, eventInput(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": eventResponse(event)})
}

// List handles GET /events.
func (h *EventsHandler) List(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	limit, offset := parsePage(c, 20)
	events, err := h.events.ListEvents(c.UserContext(), actor, limit, offset)
	if err != nil {
		return err
	}
	resp := make([]dto.EventResponse, 0, len(events))
	for i := range events {
		resp = append(resp, eventResponse(&events[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Get handles GET /events/:eventId.
func (h *EventsHandler) Get(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	event, err := h.events.GetEvent(c.UserContext(), actor, c.Params("eventId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": eventResponse(event)})
}

// Update handles PUT /events/:eventId.
func (h *EventsHandler) Update(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.EventRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	event, err := h.events.UpdateEvent(c.UserContext(), actor, c.Params("eventId"), eventInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": eventResponse(event)})
}

// Delete handles DELETE /events/:eventId.
func (h *EventsHandler) Delete(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	if err := h.events.DeleteEvent(c.UserContext(), actor, c.Params("eventId")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// AssignStaff handles POST /events/:eventId/staff.
func (h *EventsHandler) AssignStaff(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.AssignStaffRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	assignment, err := h.events.AssignStaff(c.UserContext(), actor, c.Params("eventId"), req.UserID, req.Role)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": assignmentResponse(assignment)})
}

// UnassignStaff handles DELETE /events/:eventId/staff/:userId.
func (h *EventsHandler) UnassignStaff(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	if err := h.events.UnassignStaff(c.UserContext(), actor, c.Params("eventId"), c.Params("userId")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ListStaff handles GET /events/:eventId/staff.
func (h *EventsHandler) ListStaff(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	assignments, err := h.events.ListStaff(c.UserContext(), actor, c.Params("eventId"))
	if err != nil {
		return err
	}
	resp := make([]dto.AssignmentResponse, 0, len(assignments))
	for i := range assignments {
		resp = append(resp, assignmentResponse(&assignments[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}
