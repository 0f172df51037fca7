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

func (r *accountRepository) Create(ctx context.Context, account *model.Account) error {
	query := `
		INSERT INTO accounts (id, email, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	account.CreatedAt = time.Now()
	account.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		account.ID,
		account.Email,
		account.PasswordHash,
		account.Role,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (r *accountRepository) Get(ctx context.Context, id string) (*model.Account, error) {
	query := `
		SELECT id, email, password_hash, role, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`
	var account model.Account
	err := r.db.GetContext(ctx, &account, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("account", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	query := `
		SELECT id, email, password_hash, role, created_at, updated_at
		FROM accounts
		WHERE email = $1
	`
	var account model.Account
	err := r.db.GetContext(ctx, &account, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("account", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account by email: %w", err)
	}
	return &account, nil
}

func (r *accountRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NewNotFound("account", nil)
	}
	return nil
}

// NextID advances the per-role counter and formats the account id the way
// the legacy data does: role prefix plus a zero-padded sequence ("D007").
// The UPDATE ... RETURNING keeps concurrent registrations from sharing an id.
func (r *accountRepository) NextID(ctx context.Context, role model.Role) (string, error) {
	query := `
		UPDATE account_sequences
		SET last_value = last_value + 1
		WHERE role_prefix = $1
		RETURNING last_value
	`
	var seq int64
	err := r.db.GetContext(ctx, &seq, query, role.IDPrefix())
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("no sequence registered for role %s", role)
	}
	if err != nil {
		return "", fmt.Errorf("failed to advance account sequence: %w", err)
	}
	return fmt.Sprintf("%s%03d", role.IDPrefix(), seq), nil
}
