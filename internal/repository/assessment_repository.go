package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/epcr-service/internal/domain"
)

// AssessmentRepository persists patient assessments.
type AssessmentRepository interface {
	GetByPatientID(ctx context.Context, patientID string) (*domain.Assessment, error)
	// UpdateIfVersion writes assessment only when the stored version equals
	// expectedVersion, then bumps the version. It returns domain.ErrVersionConflict when
	// the row changed underneath the caller and pgx.ErrNoRows when it is gone. UpdatedAt is
	// stored as given.
	UpdateIfVersion(ctx context.Context, assessment *domain.Assessment, expectedVersion int64) error
}

type assessmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssessmentRepository instantiates the repository.
func NewAssessmentRepository(pool *pgxpool.Pool) AssessmentRepository {
	return &assessmentRepository{pool: pool}
}

func (r *assessmentRepository) GetByPatientID(ctx context.Context, patientID string) (*domain.Assessment, error) {
	const query = `
        SELECT patient_id, status, disposition, hospital_name, ems_unit, chief_complaint, narrative,
               patient_signature, patient_signature_timestamp, emt_signature, emt_signature_timestamp,
               version, updated_at, updated_by
        FROM assessments WHERE patient_id=$1`

	var a domain.Assessment
	if err := r.pool.QueryRow(ctx, query, patientID).Scan(
		&a.PatientID,
		&a.Status,
		&a.Disposition,
		&a.HospitalName,
		&a.EMSUnit,
		&a.ChiefComplaint,
		&a.Narrative,
		&a.PatientSignature,
		&a.PatientSignatureTimestamp,
		&a.EMTSignature,
		&a.EMTSignatureTimestamp,
		&a.Version,
		&a.UpdatedAt,
		&a.UpdatedBy,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *assessmentRepository) UpdateIfVersion(ctx context.Context, a *domain.Assessment, expectedVersion int64) error {
	const query = `
        UPDATE assessments SET
            status=$1, disposition=$2, hospital_name=$3, ems_unit=$4, chief_complaint=$5, narrative=$6,
            patient_signature=$7, patient_signature_timestamp=$8, emt_signature=$9, emt_signature_timestamp=$10,
            updated_by=$11, version=version+1, updated_at=$12
        WHERE patient_id=$13 AND version=$14
        RETURNING version`

	err := r.pool.QueryRow(ctx, query,
		a.Status,
		a.Disposition,
		a.HospitalName,
		a.EMSUnit,
		a.ChiefComplaint,
		a.Narrative,
		a.PatientSignature,
		a.PatientSignatureTimestamp,
		a.EMTSignature,
		a.EMTSignatureTimestamp,
		a.UpdatedBy,
		a.UpdatedAt,
		a.PatientID,
		expectedVersion,
	).Scan(&a.Version)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM assessments WHERE patient_id=$1)`, a.PatientID).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return domain.ErrVersionConflict
	}
	return pgx.ErrNoRows
}
