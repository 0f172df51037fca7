package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/medisched/clinic-api/internal/model"
	apperrors "github.com/medisched/clinic-api/pkg/errors"
)

func (r *patientRepository) CreateWithAccount(ctx context.Context, account *model.Account, patient *model.Patient) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		now := time.Now()
		account.CreatedAt = now
		account.UpdatedAt = now

		_, err := tx.ExecContext(ctx, `
			INSERT INTO accounts (id, email, password_hash, role, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, account.ID, account.Email, account.PasswordHash, account.Role, account.CreatedAt, account.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create account: %w", err)
		}

		patient.AccountID = account.ID
		patient.CreatedAt = now
		patient.UpdatedAt = now

		err = tx.GetContext(ctx, &patient.ID, `
			INSERT INTO patients (account_id, name, email, phone, date_of_birth, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`, patient.AccountID, patient.Name, patient.Email, patient.Phone, patient.DateOfBirth, patient.CreatedAt, patient.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create patient: %w", err)
		}
		return nil
	})
}

func (r *patientRepository) Get(ctx context.Context, id int64) (*model.Patient, error) {
	query := `
		SELECT id, account_id, name, email, phone, date_of_birth, created_at, updated_at
		FROM patients
		WHERE id = $1
	`
	var patient model.Patient
	err := r.db.GetContext(ctx, &patient, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("patient", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return &patient, nil
}

func (r *patientRepository) GetByAccountID(ctx context.Context, accountID string) (*model.Patient, error) {
	query := `
		SELECT id, account_id, name, email, phone, date_of_birth, created_at, updated_at
		FROM patients
		WHERE account_id = $1
	`
	var patient model.Patient
	err := r.db.GetContext(ctx, &patient, query, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("patient", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient by account: %w", err)
	}
	return &patient, nil
}

func (r *patientRepository) Update(ctx context.Context, patient *model.Patient) error {
	query := `
		UPDATE patients
		SET name = $1, email = $2, phone = $3, updated_at = $4
		WHERE id = $5
	`
	patient.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		patient.Name,
		patient.Email,
		patient.Phone,
		patient.UpdatedAt,
		patient.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update patient: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NewNotFound("patient", nil)
	}
	return nil
}

func (r *patientRepository) DeleteWithAccount(ctx context.Context, id int64) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var accountID string
		err := tx.GetContext(ctx, &accountID, `DELETE FROM patients WHERE id = $1 RETURNING account_id`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NewNotFound("patient", err)
		}
		if err != nil {
			return fmt.Errorf("failed to delete patient: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, accountID); err != nil {
			return fmt.Errorf("failed to delete account %s: %w", accountID, err)
		}
		return nil
	})
}

func (r *patientRepository) List(ctx context.Context) ([]*model.Patient, error) {
	query := `
		SELECT id, account_id, name, email, phone, date_of_birth, created_at, updated_at
		FROM patients
		ORDER BY name ASC
	`
	var patients []*model.Patient
	if err := r.db.SelectContext(ctx, &patients, query); err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}
