package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const createAccountsTable = `
CREATE TABLE IF NOT EXISTS accounts (
    id VARCHAR(16) PRIMARY KEY,
    email VARCHAR(255) NOT NULL UNIQUE,
    password_hash VARCHAR(255) NOT NULL,
    role VARCHAR(16) NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const createAccountSequencesTable = `
CREATE TABLE IF NOT EXISTS account_sequences (
    role_prefix VARCHAR(1) PRIMARY KEY,
    last_value BIGINT NOT NULL DEFAULT 0
)`

const seedAccountSequences = `
INSERT INTO account_sequences (role_prefix, last_value)
VALUES ('D', 0), ('P', 0), ('A', 0)
ON CONFLICT (role_prefix) DO NOTHING`

const createDoctorsTable = `
CREATE TABLE IF NOT EXISTS doctors (
    id BIGSERIAL PRIMARY KEY,
    account_id VARCHAR(16) NOT NULL UNIQUE REFERENCES accounts(id),
    name VARCHAR(255) NOT NULL,
    email VARCHAR(255) NOT NULL,
    phone VARCHAR(32) NOT NULL DEFAULT '',
    specialty VARCHAR(128) NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const createPatientsTable = `
CREATE TABLE IF NOT EXISTS patients (
    id BIGSERIAL PRIMARY KEY,
    account_id VARCHAR(16) NOT NULL UNIQUE REFERENCES accounts(id),
    name VARCHAR(255) NOT NULL,
    email VARCHAR(255) NOT NULL,
    phone VARCHAR(32) NOT NULL DEFAULT '',
    date_of_birth DATE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const createAdminsTable = `
CREATE TABLE IF NOT EXISTS admins (
    id BIGSERIAL PRIMARY KEY,
    account_id VARCHAR(16) NOT NULL UNIQUE REFERENCES accounts(id),
    name VARCHAR(255) NOT NULL,
    email VARCHAR(255) NOT NULL,
    phone VARCHAR(32) NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const createAppointmentsTable = `
CREATE TABLE IF NOT EXISTS appointments (
    id BIGSERIAL PRIMARY KEY,
    doctor_id BIGINT REFERENCES doctors(id) ON DELETE SET NULL,
    patient_id BIGINT REFERENCES patients(id) ON DELETE SET NULL,
    scheduled_at TIMESTAMPTZ NOT NULL,
    status VARCHAR(16) NOT NULL DEFAULT 'Scheduled',
    notes TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const createMedicalRecordsTable = `
CREATE TABLE IF NOT EXISTS medical_records (
    id BIGSERIAL PRIMARY KEY,
    patient_id BIGINT REFERENCES patients(id) ON DELETE SET NULL,
    doctor_id BIGINT REFERENCES doctors(id) ON DELETE SET NULL,
    diagnosis TEXT NOT NULL DEFAULT '',
    treatment TEXT NOT NULL DEFAULT '',
    recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const createOutboxEventsTable = `
CREATE TABLE IF NOT EXISTS outbox_events (
    id UUID PRIMARY KEY,
    event_type VARCHAR(64) NOT NULL,
    payload JSONB NOT NULL,
    status VARCHAR(16) NOT NULL DEFAULT 'pending',
    error_message TEXT,
    retry_count INT NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    processed_at TIMESTAMPTZ,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const createAppointmentsIndexes = `
CREATE INDEX IF NOT EXISTS idx_appointments_doctor_slot
    ON appointments (doctor_id, scheduled_at);
CREATE INDEX IF NOT EXISTS idx_appointments_patient
    ON appointments (patient_id)`

const createMedicalRecordsIndexes = `
CREATE INDEX IF NOT EXISTS idx_medical_records_patient
    ON medical_records (patient_id)`

const createOutboxIndexes = `
CREATE INDEX IF NOT EXISTS idx_outbox_events_pending
    ON outbox_events (created_at) WHERE status = 'pending'`

// EnsureSchema creates all tables and indexes if they do not exist and
// seeds the per-role account id sequences.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	statements := []string{
		createAccountsTable,
		createAccountSequencesTable,
		seedAccountSequences,
		createDoctorsTable,
		createPatientsTable,
		createAdminsTable,
		createAppointmentsTable,
		createMedicalRecordsTable,
		createOutboxEventsTable,
		createAppointmentsIndexes,
		createMedicalRecordsIndexes,
		createOutboxIndexes,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
