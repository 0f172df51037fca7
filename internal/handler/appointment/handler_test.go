package appointment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medisched/clinic-api/internal/middleware"
	"github.com/medisched/clinic-api/internal/model"
	"github.com/medisched/clinic-api/internal/service/appointment"
	"github.com/medisched/clinic-api/internal/service/identity"
	apperrors "github.com/medisched/clinic-api/pkg/errors"
	"github.com/medisched/clinic-api/pkg/logger"
)

type fakeAccountRepo struct {
	accounts map[string]*model.Account
}

func (r *fakeAccountRepo) Create(context.Context, *model.Account) error { return nil }

func (r *fakeAccountRepo) Get(_ context.Context, id string) (*model.Account, error) {
	account, ok := r.accounts[id]
	if !ok {
		return nil, apperrors.NewNotFound("account", nil)
	}
	return account, nil
}

func (r *fakeAccountRepo) GetByEmail(context.Context, string) (*model.Account, error) {
	return nil, apperrors.NewNotFound("account", nil)
}

func (r *fakeAccountRepo) Delete(context.Context, string) error { return nil }

func (r *fakeAccountRepo) NextID(context.Context, model.Role) (string, error) { return "", nil }

type fakeDoctorRepo struct {
	doctors map[string]*model.Doctor
}

func (r *fakeDoctorRepo) CreateWithAccount(context.Context, *model.Account, *model.Doctor) error {
	return nil
}

func (r *fakeDoctorRepo) Get(_ context.Context, id int64) (*model.Doctor, error) {
	for _, doctor := range r.doctors {
		if doctor.ID == id {
			return doctor, nil
		}
	}
	return nil, apperrors.NewNotFound("doctor", nil)
}

func (r *fakeDoctorRepo) GetByAccountID(_ context.Context, accountID string) (*model.Doctor, error) {
	doctor, ok := r.doctors[accountID]
	if !ok {
		return nil, apperrors.NewNotFound("doctor", nil)
	}
	return doctor, nil
}

func (r *fakeDoctorRepo) Update(context.Context, *model.Doctor) error { return nil }

func (r *fakeDoctorRepo) DeleteWithAccount(context.Context, int64) error { return nil }

func (r *fakeDoctorRepo) List(context.Context) ([]*model.Doctor, error) { return nil, nil }

type fakePatientRepo struct {
	patients map[string]*model.Patient
}

func (r *fakePatientRepo) CreateWithAccount(context.Context, *model.Account, *model.Patient) error {
	return nil
}

func (r *fakePatientRepo) Get(_ context.Context, id int64) (*model.Patient, error) {
	for _, patient := range r.patients {
		if patient.ID == id {
			return patient, nil
		}
	}
	return nil, apperrors.NewNotFound("patient", nil)
}

func (r *fakePatientRepo) GetByAccountID(_ context.Context, accountID string) (*model.Patient, error) {
	patient, ok := r.patients[accountID]
	if !ok {
		return nil, apperrors.NewNotFound("patient", nil)
	}
	return patient, nil
}

func (r *fakePatientRepo) Update(context.Context, *model.Patient) error { return nil }

func (r *fakePatientRepo) DeleteWithAccount(context.Context, int64) error { return nil }

func (r *fakePatientRepo) List(context.Context) ([]*model.Patient, error) { return nil, nil }

type fakeAdminRepo struct {
	admins map[string]*model.Admin
}

func (r *fakeAdminRepo) CreateWithAccount(context.Context, *model.Account, *model.Admin) error {
	return nil
}

func (r *fakeAdminRepo) Get(context.Context, int64) (*model.Admin, error) {
	return nil, apperrors.NewNotFound("admin", nil)
}

func (r *fakeAdminRepo) GetByAccountID(_ context.Context, accountID string) (*model.Admin, error) {
	admin, ok := r.admins[accountID]
	if !ok {
		return nil, apperrors.NewNotFound("admin", nil)
	}
	return admin, nil
}

func (r *fakeAdminRepo) DeleteWithAccount(context.Context, int64) error { return nil }

func (r *fakeAdminRepo) List(context.Context) ([]*model.Admin, error) { return nil, nil }

type fakeTokenIssuer struct{}

func (fakeTokenIssuer) GenerateToken(*model.Account) (string, time.Time, error) {
	return "", time.Time{}, nil
}

type fakeAppointmentRepo struct {
	appointments []*model.Appointment
}

func (r *fakeAppointmentRepo) CreateWithEvent(context.Context, *model.Appointment, *model.OutboxEvent) error {
	return nil
}

func (r *fakeAppointmentRepo) Get(context.Context, int64) (*model.Appointment, error) {
	return nil, apperrors.NewNotFound("appointment", nil)
}

func (r *fakeAppointmentRepo) UpdateWithEvent(context.Context, *model.Appointment, *model.OutboxEvent) error {
	return nil
}

func (r *fakeAppointmentRepo) DeleteWithEvent(context.Context, int64, *model.OutboxEvent) error {
	return nil
}

func (r *fakeAppointmentRepo) List(_ context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	var out []*model.Appointment
	for _, apt := range r.appointments {
		if filters != nil && filters.DoctorID != nil && (apt.DoctorID == nil || *apt.DoctorID != *filters.DoctorID) {
			continue
		}
		if filters != nil && filters.PatientID != nil && (apt.PatientID == nil || *apt.PatientID != *filters.PatientID) {
			continue
		}
		out = append(out, apt)
	}
	return out, nil
}

func (r *fakeAppointmentRepo) CheckConflicts(context.Context, int64, time.Time, time.Duration, bool, *int64) (bool, error) {
	return false, nil
}

// Doctor D001 resolves to doctor id 7 and patient P003 resolves to
// patient id 7, so role-blind filtering would hand one the other's list.
func newTestHandler() *Handler {
	accounts := &fakeAccountRepo{accounts: map[string]*model.Account{
		"D001": {ID: "D001", Email: "house@clinic.test", Role: model.RoleDoctor},
		"P003": {ID: "P003", Email: "amy@clinic.test", Role: model.RolePatient},
		"A001": {ID: "A001", Email: "root@clinic.test", Role: model.RoleAdmin},
	}}
	doctors := &fakeDoctorRepo{doctors: map[string]*model.Doctor{
		"D001": {ID: 7, AccountID: "D001", Name: "Gregory House"},
	}}
	patients := &fakePatientRepo{patients: map[string]*model.Patient{
		"P003": {ID: 7, AccountID: "P003", Name: "Amy Reed"},
	}}
	admins := &fakeAdminRepo{admins: map[string]*model.Admin{
		"A001": {ID: 7, AccountID: "A001", Name: "Root Admin"},
	}}
	identitySvc := identity.NewService(accounts, doctors, patients, admins, fakeTokenIssuer{}, logger.NewLogger(nil))

	doctorID := int64(7)
	patientID := int64(7)
	repo := &fakeAppointmentRepo{appointments: []*model.Appointment{
		{ID: 1, DoctorID: &doctorID, ScheduledAt: time.Now(), Status: model.AppointmentStatusScheduled, Notes: "doctor slot"},
		{ID: 2, PatientID: &patientID, ScheduledAt: time.Now(), Status: model.AppointmentStatusScheduled, Notes: "patient slot"},
	}}
	appointmentSvc := appointment.NewService(repo, doctors, nil, appointment.Config{}, logger.NewLogger(nil), nil)

	return NewHandler(appointmentSvc, identitySvc)
}

func invokeMyAppointments(t *testing.T, h *Handler, accountID string, role model.Role) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/me/appointments", nil)
	c.Set(middleware.ContextAccountID, accountID)
	c.Set(middleware.ContextRole, string(role))
	h.MyAppointments(c)
	return w
}

func TestMyAppointmentsFiltersByCallersRole(t *testing.T) {
	h := newTestHandler()

	w := invokeMyAppointments(t, h, "D001", model.RoleDoctor)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "doctor slot")
	assert.NotContains(t, w.Body.String(), "patient slot")

	w = invokeMyAppointments(t, h, "P003", model.RolePatient)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "patient slot")
	assert.NotContains(t, w.Body.String(), "doctor slot")
}

func TestMyAppointmentsRejectsAdmin(t *testing.T) {
	h := newTestHandler()

	w := invokeMyAppointments(t, h, "A001", model.RoleAdmin)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.NotContains(t, w.Body.String(), "doctor slot")
	assert.NotContains(t, w.Body.String(), "patient slot")
}
