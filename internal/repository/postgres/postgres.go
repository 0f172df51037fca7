package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/medisched/clinic-api/internal/repository"
)

type accountRepository struct {
	BaseRepository
}

type doctorRepository struct {
	BaseRepository
}

type patientRepository struct {
	BaseRepository
}

type adminRepository struct {
	BaseRepository
}

type appointmentRepository struct {
	BaseRepository
}

type medicalRecordRepository struct {
	BaseRepository
}

type outboxRepository struct {
	BaseRepository
}

func NewAccountRepository(db *sqlx.DB) repository.AccountRepository {
	return &accountRepository{NewBaseRepository(db)}
}

func NewDoctorRepository(db *sqlx.DB) repository.DoctorRepository {
	return &doctorRepository{NewBaseRepository(db)}
}

func NewPatientRepository(db *sqlx.DB) repository.PatientRepository {
	return &patientRepository{NewBaseRepository(db)}
}

func NewAdminRepository(db *sqlx.DB) repository.AdminRepository {
	return &adminRepository{NewBaseRepository(db)}
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{NewBaseRepository(db)}
}

func NewMedicalRecordRepository(db *sqlx.DB) repository.MedicalRecordRepository {
	return &medicalRecordRepository{NewBaseRepository(db)}
}

func NewOutboxRepository(db *sqlx.DB) repository.OutboxRepository {
	return &outboxRepository{NewBaseRepository(db)}
}
