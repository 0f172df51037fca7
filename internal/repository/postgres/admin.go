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

func (r *adminRepository) CreateWithAccount(ctx context.Context, account *model.Account, admin *model.Admin) error {
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

		admin.AccountID = account.ID
		admin.CreatedAt = now
		admin.UpdatedAt = now

		err = tx.GetContext(ctx, &admin.ID, `
			INSERT INTO admins (account_id, name, email, phone, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, admin.AccountID, admin.Name, admin.Email, admin.Phone, admin.CreatedAt, admin.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create admin: %w", err)
		}
		return nil
	})
}

func (r *adminRepository) Get(ctx context.Context, id int64) (*model.Admin, error) {
	query := `
		SELECT id, account_id, name, email, phone, created_at, updated_at
		FROM admins
		WHERE id = $1
	`
	var admin model.Admin
	err := r.db.GetContext(ctx, &admin, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("admin", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}
	return &admin, nil
}

func (r *adminRepository) GetByAccountID(ctx context.Context, accountID string) (*model.Admin, error) {
	query := `
		SELECT id, account_id, name, email, phone, created_at, updated_at
		FROM admins
		WHERE account_id = $1
	`
	var admin model.Admin
	err := r.db.GetContext(ctx, &admin, query, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("admin", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get admin by account: %w", err)
	}
	return &admin, nil
}

func (r *adminRepository) DeleteWithAccount(ctx context.Context, id int64) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var accountID string
		err := tx.GetContext(ctx, &accountID, `DELETE FROM admins WHERE id = $1 RETURNING account_id`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NewNotFound("admin", err)
		}
		if err != nil {
			return fmt.Errorf("failed to delete admin: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, accountID); err != nil {
			return fmt.Errorf("failed to delete account %s: %w", accountID, err)
		}
		return nil
	})
}

func (r *adminRepository) List(ctx context.Context) ([]*model.Admin, error) {
	query := `
		SELECT id, account_id, name, email, phone, created_at, updated_at
		FROM admins
		ORDER BY name ASC
	`
	var admins []*model.Admin
	if err := r.db.SelectContext(ctx, &admins, query); err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	return admins, nil
}
