// Package audit records who touched which record and whether they were allowed to.
package audit

import (
	"context"
	"errors"

	"github.com/spec-kit/epcr-service/internal/domain"
	"github.com/spec-kit/epcr-service/internal/repository"
)

// Recorder persists or forwards a single audit entry.
type Recorder interface {
	Record(ctx context.Context, entry *domain.AuditEntry) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, entry *domain.AuditEntry) error

// Record calls f.
func (f RecorderFunc) Record(ctx context.Context, entry *domain.AuditEntry) error {
	return f(ctx, entry)
}

// PostgresRecorder writes entries to the audit_logs table.
type PostgresRecorder struct {
	repo repository.AuditRepository
}

// NewPostgresRecorder builds a recorder over repo.
func NewPostgresRecorder(repo repository.AuditRepository) *PostgresRecorder {
	return &PostgresRecorder{repo: repo}
}

// Record inserts entry.
func (r *PostgresRecorder) Record(ctx context.Context, entry *domain.AuditEntry) error {
	return r.repo.Create(ctx, entry)
}

// Multi fans an entry out to every recorder, in order, and joins their errors.
type Multi []Recorder

// Record implements Recorder.
func (m Multi) Record(ctx context.Context, entry *domain.AuditEntry) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Record(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
