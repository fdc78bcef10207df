package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/epcr-service/internal/domain"
)

// PatientFilter narrows an event's patient listing.
type PatientFilter struct {
	TriageTag *domain.TriageTag
	Limit     int
	Offset    int
}

// PatientRepository persists patients.
type PatientRepository interface {
	// CreateWithAssessment inserts the patient and its initial assessment atomically.
	// patient.CreatedAt is stored as given.
	CreateWithAssessment(ctx context.Context, patient *domain.Patient, assessment *domain.Assessment) error
	GetByID(ctx context.Context, id string) (*domain.Patient, error)
	ListByEvent(ctx context.Context, eventID string, filter PatientFilter) ([]domain.Patient, error)
	UpdateTriage(ctx context.Context, id string, tag domain.TriageTag, at time.Time) (*domain.Patient, error)
	Delete(ctx context.Context, id string) error
}

type patientRepository struct {
	pool *pgxpool.Pool
}

// NewPatientRepository instantiates the repository.
func NewPatientRepository(pool *pgxpool.Pool) PatientRepository {
	return &patientRepository{pool: pool}
}

const patientColumns = `id, event_id, triage_tag, created_by, created_at, updated_at`

func (r *patientRepository) CreateWithAssessment(ctx context.Context, patient *domain.Patient, assessment *domain.Assessment) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const insertPatient = `
        INSERT INTO patients (event_id, triage_tag, created_by, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id`
	if err := tx.QueryRow(ctx, insertPatient,
		patient.EventID,
		patient.TriageTag,
		patient.CreatedBy,
		patient.CreatedAt,
		patient.UpdatedAt,
	).Scan(&patient.ID); err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}

	assessment.PatientID = patient.ID
	const insertAssessment = `
        INSERT INTO assessments (patient_id, status, disposition, chief_complaint, narrative, updated_by, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING version`
	if err := tx.QueryRow(ctx, insertAssessment,
		assessment.PatientID,
		assessment.Status,
		assessment.Disposition,
		assessment.ChiefComplaint,
		assessment.Narrative,
		assessment.UpdatedBy,
		assessment.UpdatedAt,
	).Scan(&assessment.Version); err != nil {
		return fmt.Errorf("insert assessment: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *patientRepository) GetByID(ctx context.Context, id string) (*domain.Patient, error) {
	patient, err := scanPatient(r.pool.QueryRow(ctx, `SELECT `+patientColumns+` FROM patients WHERE id=$1`, id))
	if err != nil {
		return nil, err
	}
	return &patient, nil
}

func (r *patientRepository) ListByEvent(ctx context.Context, eventID string, filter PatientFilter) ([]domain.Patient, error) {
	args := []any{eventID}
	where := "event_id=$1"
	if filter.TriageTag != nil {
		args = append(args, *filter.TriageTag)
		where += fmt.Sprintf(" AND triage_tag=$%d", len(args))
	}

	limit, offset := NormalizePage(filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM patients WHERE %s ORDER BY created_at DESC, id LIMIT %d OFFSET %d`,
		patientColumns, where, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Patient
	for rows.Next() {
		patient, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, patient)
	}
	return result, rows.Err()
}

func (r *patientRepository) UpdateTriage(ctx context.Context, id string, tag domain.TriageTag, at time.Time) (*domain.Patient, error) {
	const query = `UPDATE patients SET triage_tag=$1, updated_at=$2 WHERE id=$3 RETURNING ` + patientColumns
	patient, err := scanPatient(r.pool.QueryRow(ctx, query, tag, at, id))
	if err != nil {
		return nil, err
	}
	return &patient, nil
}

func (r *patientRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM patients WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanPatient(row pgx.Row) (domain.Patient, error) {
	var patient domain.Patient
	err := row.Scan(
		&patient.ID,
		&patient.EventID,
		&patient.TriageTag,
		&patient.CreatedBy,
		&patient.CreatedAt,
		&patient.UpdatedAt,
	)
	return patient, err
}
