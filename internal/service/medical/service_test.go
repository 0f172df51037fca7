package medical

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medisched/clinic-api/internal/model"
	apperrors "github.com/medisched/clinic-api/pkg/errors"
)

type fakeRecordRepo struct {
	records map[int64]*model.MedicalRecord
	nextID  int64
}

func (r *fakeRecordRepo) Create(_ context.Context, record *model.MedicalRecord) error {
	r.nextID++
	record.ID = r.nextID
	r.records[record.ID] = record
	return nil
}

func (r *fakeRecordRepo) Get(_ context.Context, id int64) (*model.MedicalRecord, error) {
	record, ok := r.records[id]
	if !ok {
		return nil, apperrors.NewNotFound("medical record", nil)
	}
	return record, nil
}

func (r *fakeRecordRepo) ListByPatient(_ context.Context, patientID int64) ([]*model.MedicalRecord, error) {
	var out []*model.MedicalRecord
	for _, record := range r.records {
		if record.PatientID != nil && *record.PatientID == patientID {
			out = append(out, record)
		}
	}
	return out, nil
}

func (r *fakeRecordRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.records[id]; !ok {
		return apperrors.NewNotFound("medical record", nil)
	}
	delete(r.records, id)
	return nil
}

type fakePatientRepo struct{ ids map[int64]bool }

func (r *fakePatientRepo) CreateWithAccount(context.Context, *model.Account, *model.Patient) error {
	return nil
}

func (r *fakePatientRepo) Get(_ context.Context, id int64) (*model.Patient, error) {
	if !r.ids[id] {
		return nil, apperrors.NewNotFound("patient", nil)
	}
	return &model.Patient{ID: id}, nil
}

func (r *fakePatientRepo) GetByAccountID(context.Context, string) (*model.Patient, error) {
	return nil, apperrors.NewNotFound("patient", nil)
}

func (r *fakePatientRepo) Update(context.Context, *model.Patient) error { return nil }

func (r *fakePatientRepo) DeleteWithAccount(context.Context, int64) error { return nil }

func (r *fakePatientRepo) List(context.Context) ([]*model.Patient, error) { return nil, nil }

type fakeDoctorRepo struct{ ids map[int64]bool }

func (r *fakeDoctorRepo) CreateWithAccount(context.Context, *model.Account, *model.Doctor) error {
	return nil
}

func (r *fakeDoctorRepo) Get(_ context.Context, id int64) (*model.Doctor, error) {
	if !r.ids[id] {
		return nil, apperrors.NewNotFound("doctor", nil)
	}
	return &model.Doctor{ID: id}, nil
}

func (r *fakeDoctorRepo) GetByAccountID(context.Context, string) (*model.Doctor, error) {
	return nil, apperrors.NewNotFound("doctor", nil)
}

func (r *fakeDoctorRepo) Update(context.Context, *model.Doctor) error { return nil }

func (r *fakeDoctorRepo) DeleteWithAccount(context.Context, int64) error { return nil }

func (r *fakeDoctorRepo) List(context.Context) ([]*model.Doctor, error) { return nil, nil }

func newTestService() *Service {
	return NewService(
		&fakeRecordRepo{records: make(map[int64]*model.MedicalRecord)},
		&fakePatientRepo{ids: map[int64]bool{10: true}},
		&fakeDoctorRepo{ids: map[int64]bool{1: true}},
	)
}

func TestRecordLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	record, err := svc.CreateRecord(ctx, &model.CreateMedicalRecordRequest{
		PatientID: 10, DoctorID: 1, Diagnosis: "lupus", Treatment: "it is never lupus",
	})
	require.NoError(t, err)
	require.NotZero(t, record.ID)

	got, err := svc.GetRecord(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, "lupus", got.Diagnosis)

	records, err := svc.ListPatientRecords(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	require.NoError(t, svc.DeleteRecord(ctx, record.ID))
	_, err = svc.GetRecord(ctx, record.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCreateRecordValidatesReferences(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	_, err := svc.CreateRecord(ctx, &model.CreateMedicalRecordRequest{PatientID: 99, DoctorID: 1})
	assert.True(t, apperrors.IsNotFound(err))

	_, err = svc.CreateRecord(ctx, &model.CreateMedicalRecordRequest{PatientID: 10, DoctorID: 99})
	assert.True(t, apperrors.IsNotFound(err))
}
