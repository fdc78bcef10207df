package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/epcr-service/internal/domain"
)

// Auditor stamps entries and hands them to a Recorder. Recording failures are logged
// and never surface to the caller.
type Auditor struct {
	recorder Recorder
	logger   *zap.Logger
	now      func() time.Time
}

// NewAuditor builds an auditor. A nil recorder makes it log-only.
func NewAuditor(recorder Recorder, logger *zap.Logger, now func() time.Time) *Auditor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &Auditor{recorder: recorder, logger: logger, now: now}
}

// Entry describes one audited action.
type Entry struct {
	ActorID    string
	Action     domain.AuditAction
	Resource   domain.AuditResource
	ResourceID string
	Outcome    domain.AuditOutcome
	Details    map[string]any
}

// Log records e.
func (a *Auditor) Log(ctx context.Context, e Entry) {
	if a == nil {
		return
	}
	entry := &domain.AuditEntry{
		ID:        uuid.NewString(),
		ActorID:   e.ActorID,
		Action:    e.Action,
		Resource:  e.Resource,
		Outcome:   e.Outcome,
		Details:   e.Details,
		CreatedAt: a.now().UTC(),
	}
	if e.ResourceID != "" {
		id := e.ResourceID
		entry.ResourceID = &id
	}

	fields := []zap.Field{
		zap.String("actor_id", entry.ActorID),
		zap.String("action", string(entry.Action)),
		zap.String("resource", string(entry.Resource)),
		zap.String("resource_id", e.ResourceID),
		zap.String("outcome", string(entry.Outcome)),
	}
	if a.recorder == nil {
		a.logger.Info("audit", fields...)
		return
	}
	if err := a.recorder.Record(ctx, entry); err != nil {
		a.logger.Error("audit record failed", append(fields, zap.Error(err))...)
	}
}
