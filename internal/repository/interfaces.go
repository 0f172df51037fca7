package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medisched/clinic-api/internal/model"
)

// All repository interfaces in one file
type (
	// AccountRepository handles authentication records. Account ids are
	// generated per role as <prefix><3-digit sequence>, e.g. "D007".
	AccountRepository interface {
		Create(ctx context.Context, account *model.Account) error
		Get(ctx context.Context, id string) (*model.Account, error)
		GetByEmail(ctx context.Context, email string) (*model.Account, error)
		Delete(ctx context.Context, id string) error
		NextID(ctx context.Context, role model.Role) (string, error)
	}

	// DoctorRepository owns doctor rows. CreateWithAccount and
	// DeleteWithAccount keep the account and its role-entity row in one
	// transaction.
	DoctorRepository interface {
		CreateWithAccount(ctx context.Context, account *model.Account, doctor *model.Doctor) error
		Get(ctx context.Context, id int64) (*model.Doctor, error)
		GetByAccountID(ctx context.Context, accountID string) (*model.Doctor, error)
		Update(ctx context.Context, doctor *model.Doctor) error
		DeleteWithAccount(ctx context.Context, id int64) error
		List(ctx context.Context) ([]*model.Doctor, error)
	}

	PatientRepository interface {
		CreateWithAccount(ctx context.Context, account *model.Account, patient *model.Patient) error
		Get(ctx context.Context, id int64) (*model.Patient, error)
		GetByAccountID(ctx context.Context, accountID string) (*model.Patient, error)
		Update(ctx context.Context, patient *model.Patient) error
		DeleteWithAccount(ctx context.Context, id int64) error
		List(ctx context.Context) ([]*model.Patient, error)
	}

	AdminRepository interface {
		CreateWithAccount(ctx context.Context, account *model.Account, admin *model.Admin) error
		Get(ctx context.Context, id int64) (*model.Admin, error)
		GetByAccountID(ctx context.Context, accountID string) (*model.Admin, error)
		DeleteWithAccount(ctx context.Context, id int64) error
		List(ctx context.Context) ([]*model.Admin, error)
	}

	// AppointmentRepository persists bookings. The *WithEvent variants
	// record the outbox event in the same transaction as the mutation.
	AppointmentRepository interface {
		CreateWithEvent(ctx context.Context, appointment *model.Appointment, event *model.OutboxEvent) error
		Get(ctx context.Context, id int64) (*model.Appointment, error)
		UpdateWithEvent(ctx context.Context, appointment *model.Appointment, event *model.OutboxEvent) error
		DeleteWithEvent(ctx context.Context, id int64, event *model.OutboxEvent) error
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
		CheckConflicts(ctx context.Context, doctorID int64, scheduledAt time.Time, window time.Duration, blockCancelled bool, excludeID *int64) (bool, error)
	}

	MedicalRecordRepository interface {
		Create(ctx context.Context, record *model.MedicalRecord) error
		Get(ctx context.Context, id int64) (*model.MedicalRecord, error)
		ListByPatient(ctx context.Context, patientID int64) ([]*model.MedicalRecord, error)
		Delete(ctx context.Context, id int64) error
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkFailed(ctx context.Context, id uuid.UUID, errMessage string) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
