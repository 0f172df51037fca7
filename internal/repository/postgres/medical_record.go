package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/medisched/clinic-api/internal/model"
	apperrors "github.com/medisched/clinic-api/pkg/errors"
)

func (r *medicalRecordRepository) Create(ctx context.Context, record *model.MedicalRecord) error {
	now := time.Now()
	record.CreatedAt = now
	record.UpdatedAt = now
	if record.RecordedAt.IsZero() {
		record.RecordedAt = now
	}

	err := r.db.GetContext(ctx, &record.ID, `
		INSERT INTO medical_records (patient_id, doctor_id, diagnosis, treatment, recorded_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`,
		record.PatientID,
		record.DoctorID,
		record.Diagnosis,
		record.Treatment,
		record.RecordedAt,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create medical record: %w", err)
	}
	return nil
}

func (r *medicalRecordRepository) Get(ctx context.Context, id int64) (*model.MedicalRecord, error) {
	query := `
		SELECT id, patient_id, doctor_id, diagnosis, treatment, recorded_at, created_at, updated_at
		FROM medical_records
		WHERE id = $1
	`
	var record model.MedicalRecord
	err := r.db.GetContext(ctx, &record, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("medical record", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get medical record: %w", err)
	}
	return &record, nil
}

func (r *medicalRecordRepository) ListByPatient(ctx context.Context, patientID int64) ([]*model.MedicalRecord, error) {
	query := `
		SELECT id, patient_id, doctor_id, diagnosis, treatment, recorded_at, created_at, updated_at
		FROM medical_records
		WHERE patient_id = $1
		ORDER BY recorded_at DESC
	`
	var records []*model.MedicalRecord
	if err := r.db.SelectContext(ctx, &records, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list medical records: %w", err)
	}
	return records, nil
}

func (r *medicalRecordRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM medical_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete medical record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NewNotFound("medical record", nil)
	}
	return nil
}
