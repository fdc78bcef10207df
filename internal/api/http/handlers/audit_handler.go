package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/epcr-service/internal/api/dto"
	"github.com/spec-kit/epcr-service/internal/domain"
	"github.com/spec-kit/epcr-service/internal/repository"
	"github.com/spec-kit/epcr-service/internal/service"
)

// AuditHandler exposes the audit trail to administrators.
type AuditHandler struct {
	audits *service.AuditService
}

// NewAuditHandler constructs handler.
func NewAuditHandler(audits *service.AuditService) *AuditHandler {
	return &AuditHandler{audits: audits}
}

// List handles GET /audit-logs.
func (h *AuditHandler) List(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	filter := repository.AuditFilter{
		ActorID:    optionalString(c.Query("actorId")),
		ResourceID: optionalString(c.Query("resourceId")),
		From:       parseTime(c.Query("from")),
		To:         parseTime(c.Query("to")),
	}
	if resource := c.Query("resource"); resource != "" {
		r := domain.AuditResource(resource)
		filter.Resource = &r
	}
	if outcome := c.Query("outcome"); outcome != "" {
		o := domain.AuditOutcome(outcome)
		filter.Outcome = &o
	}
	filter.Limit, filter.Offset = parsePage(c, 50)

	entries, err := h.audits.ListAuditLogs(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	resp := make([]dto.AuditLogResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, dto.AuditLogResponse{
			ID:         e.ID,
			ActorID:    e.ActorID,
			Action:     e.Action,
			Resource:   e.Resource,
			ResourceID: e.ResourceID,
			Outcome:    e.Outcome,
			Details:    e.Details,
			CreatedAt:  e.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": resp})
}
