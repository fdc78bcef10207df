package service

import (
	"context"

	"github.com/spec-kit/epcr-service/internal/domain"
	"github.com/spec-kit/epcr-service/internal/policy"
	"github.com/spec-kit/epcr-service/internal/repository"
)

// AuditService exposes the stored audit trail to administrators.
type AuditService struct {
	audits repository.AuditRepository
}

// NewAuditService constructs the service.
func NewAuditService(audits repository.AuditRepository) *AuditService {
	return &AuditService{audits: audits}
}

// ListAuditLogs returns entries matching filter, newest first.
func (s *AuditService) ListAuditLogs(ctx context.Context, actor policy.Actor, filter repository.AuditFilter) ([]domain.AuditEntry, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.audits.List(ctx, filter)
}
