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

// CreateWithAccount inserts the account and its doctor row in one
// transaction so registration is atomic to the caller.
func (r *doctorRepository) CreateWithAccount(ctx context.Context, account *model.Account, doctor *model.Doctor) error {
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

		doctor.AccountID = account.ID
		doctor.CreatedAt = now
		doctor.UpdatedAt = now

		err = tx.GetContext(ctx, &doctor.ID, `
			INSERT INTO doctors (account_id, name, email, phone, specialty, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`, doctor.AccountID, doctor.Name, doctor.Email, doctor.Phone, doctor.Specialty, doctor.CreatedAt, doctor.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create doctor: %w", err)
		}
		return nil
	})
}

func (r *doctorRepository) Get(ctx context.Context, id int64) (*model.Doctor, error) {
	query := `
		SELECT id, account_id, name, email, phone, specialty, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`
	var doctor model.Doctor
	err := r.db.GetContext(ctx, &doctor, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("doctor", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get doctor: %w", err)
	}
	return &doctor, nil
}

func (r *doctorRepository) GetByAccountID(ctx context.Context, accountID string) (*model.Doctor, error) {
	query := `
		SELECT id, account_id, name, email, phone, specialty, created_at, updated_at
		FROM doctors
		WHERE account_id = $1
	`
	var doctor model.Doctor
	err := r.db.GetContext(ctx, &doctor, query, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("doctor", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get doctor by account: %w", err)
	}
	return &doctor, nil
}

func (r *doctorRepository) Update(ctx context.Context, doctor *model.Doctor) error {
	query := `
		UPDATE doctors
		SET name = $1, email = $2, phone = $3, specialty = $4, updated_at = $5
		WHERE id = $6
	`
	doctor.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		doctor.Name,
		doctor.Email,
		doctor.Phone,
		doctor.Specialty,
		doctor.UpdatedAt,
		doctor.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update doctor: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NewNotFound("doctor", nil)
	}
	return nil
}

// DeleteWithAccount removes the doctor row and its owning account in a
// single transaction. Appointments and medical records keep their rows;
// the schema nulls their doctor_id.
func (r *doctorRepository) DeleteWithAccount(ctx context.Context, id int64) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var accountID string
		err := tx.GetContext(ctx, &accountID, `DELETE FROM doctors WHERE id = $1 RETURNING account_id`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NewNotFound("doctor", err)
		}
		if err != nil {
			return fmt.Errorf("failed to delete doctor: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, accountID); err != nil {
			return fmt.Errorf("failed to delete account %s: %w", accountID, err)
		}
		return nil
	})
}

func (r *doctorRepository) List(ctx context.Context) ([]*model.Doctor, error) {
	query := `
		SELECT id, account_id, name, email, phone, specialty, created_at, updated_at
		FROM doctors
		ORDER BY name ASC
	`
	var doctors []*model.Doctor
	if err := r.db.SelectContext(ctx, &doctors, query); err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	return doctors, nil
}
