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

func (r *appointmentRepository) CreateWithEvent(ctx context.Context, appointment *model.Appointment, event *model.OutboxEvent) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		now := time.Now()
		appointment.CreatedAt = now
		appointment.UpdatedAt = now

		err := tx.GetContext(ctx, &appointment.ID, `
			INSERT INTO appointments (doctor_id, patient_id, scheduled_at, status, notes, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`,
			appointment.DoctorID,
			appointment.PatientID,
			appointment.ScheduledAt,
			appointment.Status,
			appointment.Notes,
			appointment.CreatedAt,
			appointment.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create appointment: %w", err)
		}
		return insertOutboxEvent(ctx, tx, event)
	})
}

func (r *appointmentRepository) Get(ctx context.Context, id int64) (*model.Appointment, error) {
	query := `
		SELECT id, doctor_id, patient_id, scheduled_at, status, notes, created_at, updated_at
		FROM appointments
		WHERE id = $1
	`
	var appointment model.Appointment
	err := r.db.GetContext(ctx, &appointment, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("appointment", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) UpdateWithEvent(ctx context.Context, appointment *model.Appointment, event *model.OutboxEvent) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		appointment.UpdatedAt = time.Now()

		result, err := tx.ExecContext(ctx, `
			UPDATE appointments
			SET doctor_id = $1, patient_id = $2, scheduled_at = $3, status = $4, notes = $5, updated_at = $6
			WHERE id = $7
		`,
			appointment.DoctorID,
			appointment.PatientID,
			appointment.ScheduledAt,
			appointment.Status,
			appointment.Notes,
			appointment.UpdatedAt,
			appointment.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update appointment: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return apperrors.NewNotFound("appointment", nil)
		}
		return insertOutboxEvent(ctx, tx, event)
	})
}

func (r *appointmentRepository) DeleteWithEvent(ctx context.Context, id int64, event *model.OutboxEvent) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM appointments WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete appointment: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return apperrors.NewNotFound("appointment", nil)
		}
		return insertOutboxEvent(ctx, tx, event)
	})
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	query := `
		SELECT id, doctor_id, patient_id, scheduled_at, status, notes, created_at, updated_at
		FROM appointments
		WHERE 1=1
	`
	args := []interface{}{}
	argCount := 1

	if filters != nil {
		if filters.DoctorID != nil {
			query += fmt.Sprintf(" AND doctor_id = $%d", argCount)
			args = append(args, *filters.DoctorID)
			argCount++
		}
		if filters.PatientID != nil {
			query += fmt.Sprintf(" AND patient_id = $%d", argCount)
			args = append(args, *filters.PatientID)
			argCount++
		}
		if filters.Status != "" {
			query += fmt.Sprintf(" AND status = $%d", argCount)
			args = append(args, filters.Status)
			argCount++
		}
		if !filters.StartDate.IsZero() {
			query += fmt.Sprintf(" AND scheduled_at >= $%d", argCount)
			args = append(args, filters.StartDate)
			argCount++
		}
		if !filters.EndDate.IsZero() {
			query += fmt.Sprintf(" AND scheduled_at <= $%d", argCount)
			args = append(args, filters.EndDate)
			argCount++
		}
	}

	query += " ORDER BY scheduled_at ASC"

	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

// CheckConflicts reports whether another appointment for the doctor falls
// strictly inside the window around scheduledAt. The bounds are exclusive:
// a booking exactly `window` away does not conflict. blockCancelled keeps
// the historical behavior of counting cancelled slots as occupied.
func (r *appointmentRepository) CheckConflicts(ctx context.Context, doctorID int64, scheduledAt time.Time, window time.Duration, blockCancelled bool, excludeID *int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1
			AND scheduled_at > $2
			AND scheduled_at < $3
	`
	args := []interface{}{doctorID, scheduledAt.Add(-window), scheduledAt.Add(window)}
	argCount := 4

	if !blockCancelled {
		query += fmt.Sprintf(" AND status != $%d", argCount)
		args = append(args, model.AppointmentStatusCancelled)
		argCount++
	}
	if excludeID != nil {
		query += fmt.Sprintf(" AND id != $%d", argCount)
		args = append(args, *excludeID)
	}

	query += ")"

	var hasConflict bool
	if err := r.db.GetContext(ctx, &hasConflict, query, args...); err != nil {
		return false, fmt.Errorf("failed to check conflicts: %w", err)
	}
	return hasConflict, nil
}
