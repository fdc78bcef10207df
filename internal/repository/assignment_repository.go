package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/epcr-service/internal/domain"
)

// AssignmentRepository persists event staff assignments.
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *domain.StaffAssignment) error
	Delete(ctx context.Context, eventID, userID string) error
	Exists(ctx context.Context, eventID, userID string) (bool, error)
	ListByEvent(ctx context.Context, eventID string) ([]domain.StaffAssignment, error)
}

type assignmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssignmentRepository instantiates the repository.
func NewAssignmentRepository(pool *pgxpool.Pool) AssignmentRepository {
	return &assignmentRepository{pool: pool}
}

func (r *assignmentRepository) Create(ctx context.Context, assignment *domain.StaffAssignment) error {
	const query = `
        INSERT INTO staff_assignments (user_id, event_id, role)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_id, event_id) DO UPDATE SET role = EXCLUDED.role
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query, assignment.UserID, assignment.EventID, assignment.Role).
		Scan(&assignment.CreatedAt)
}

func (r *assignmentRepository) Delete(ctx context.Context, eventID, userID string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM staff_assignments WHERE event_id=$1 AND user_id=$2`, eventID, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *assignmentRepository) Exists(ctx context.Context, eventID, userID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM staff_assignments WHERE event_id=$1 AND user_id=$2)`,
		eventID, userID,
	).Scan(&exists)
	return exists, err
}

func (r *assignmentRepository) ListByEvent(ctx context.Context, eventID string) ([]domain.StaffAssignment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id, event_id, role, created_at FROM staff_assignments WHERE event_id=$1 ORDER BY created_at`,
		eventID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StaffAssignment
	for rows.Next() {
		var a domain.StaffAssignment
		if err := rows.Scan(&a.UserID, &a.EventID, &a.Role, &a.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}
