package appointment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medisched/clinic-api/internal/model"
	apperrors "github.com/medisched/clinic-api/pkg/errors"
	"github.com/medisched/clinic-api/pkg/logger"
)

type fakeAppointmentRepo struct {
	mu           sync.Mutex
	appointments map[int64]*model.Appointment
	events       []*model.OutboxEvent
	nextID       int64
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{appointments: make(map[int64]*model.Appointment)}
}

func (r *fakeAppointmentRepo) CreateWithEvent(_ context.Context, apt *model.Appointment, event *model.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	apt.ID = r.nextID
	stored := *apt
	r.appointments[apt.ID] = &stored
	if event != nil {
		r.events = append(r.events, event)
	}
	return nil
}

func (r *fakeAppointmentRepo) Get(_ context.Context, id int64) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	apt, ok := r.appointments[id]
	if !ok {
		return nil, apperrors.NewNotFound("appointment", nil)
	}
	copied := *apt
	return &copied, nil
}

func (r *fakeAppointmentRepo) UpdateWithEvent(_ context.Context, apt *model.Appointment, event *model.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.appointments[apt.ID]; !ok {
		return apperrors.NewNotFound("appointment", nil)
	}
	stored := *apt
	r.appointments[apt.ID] = &stored
	if event != nil {
		r.events = append(r.events, event)
	}
	return nil
}

func (r *fakeAppointmentRepo) DeleteWithEvent(_ context.Context, id int64, event *model.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.appointments[id]; !ok {
		return apperrors.NewNotFound("appointment", nil)
	}
	delete(r.appointments, id)
	if event != nil {
		r.events = append(r.events, event)
	}
	return nil
}

func (r *fakeAppointmentRepo) List(_ context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Appointment, 0, len(r.appointments))
	for _, apt := range r.appointments {
		if filters != nil && filters.DoctorID != nil && (apt.DoctorID == nil || *apt.DoctorID != *filters.DoctorID) {
			continue
		}
		copied := *apt
		out = append(out, &copied)
	}
	return out, nil
}

// Mirrors the SQL predicate: a conflict is another appointment for the same
// doctor strictly inside (t-window, t+window).
func (r *fakeAppointmentRepo) CheckConflicts(_ context.Context, doctorID int64, scheduledAt time.Time, window time.Duration, blockCancelled bool, excludeID *int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lower := scheduledAt.Add(-window)
	upper := scheduledAt.Add(window)
	for _, apt := range r.appointments {
		if apt.DoctorID == nil || *apt.DoctorID != doctorID {
			continue
		}
		if excludeID != nil && apt.ID == *excludeID {
			continue
		}
		if !blockCancelled && apt.Status == model.AppointmentStatusCancelled {
			continue
		}
		if apt.ScheduledAt.After(lower) && apt.ScheduledAt.Before(upper) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeAppointmentRepo) eventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, len(r.events))
	for i, e := range r.events {
		types[i] = e.EventType
	}
	return types
}

type fakeDoctorRepo struct {
	doctors map[int64]*model.Doctor
}

func (r *fakeDoctorRepo) CreateWithAccount(context.Context, *model.Account, *model.Doctor) error {
	return nil
}

func (r *fakeDoctorRepo) Get(_ context.Context, id int64) (*model.Doctor, error) {
	doctor, ok := r.doctors[id]
	if !ok {
		return nil, apperrors.NewNotFound("doctor", nil)
	}
	return doctor, nil
}

func (r *fakeDoctorRepo) GetByAccountID(context.Context, string) (*model.Doctor, error) {
	return nil, apperrors.NewNotFound("doctor", nil)
}

func (r *fakeDoctorRepo) Update(context.Context, *model.Doctor) error { return nil }

func (r *fakeDoctorRepo) DeleteWithAccount(context.Context, int64) error { return nil }

func (r *fakeDoctorRepo) List(context.Context) ([]*model.Doctor, error) { return nil, nil }

func newTestService(cfg Config) (*Service, *fakeAppointmentRepo) {
	repo := newFakeAppointmentRepo()
	doctors := &fakeDoctorRepo{doctors: map[int64]*model.Doctor{
		1: {ID: 1, Name: "Gregory House"},
		2: {ID: 2, Name: "James Wilson"},
	}}
	svc := NewService(repo, doctors, nil, cfg, logger.NewLogger(nil), nil)
	return svc, repo
}

func at(hour, minute int) time.Time {
	return time.Date(2026, time.September, 1, hour, minute, 0, 0, time.UTC)
}

func TestCreateRejectsOverlappingSlot(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(Config{})

	first, err := svc.Create(ctx, &model.CreateAppointmentRequest{DoctorID: 1, PatientID: 10, ScheduledAt: at(9, 0)})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusScheduled, first.Status)

	// 25 minutes later is inside the 30-minute window
	_, err = svc.Create(ctx, &model.CreateAppointmentRequest{DoctorID: 1, ScheduledAt: at(9, 25)})
	assert.True(t, apperrors.IsConflict(err))

	// 35 minutes later is clear
	_, err = svc.Create(ctx, &model.CreateAppointmentRequest{DoctorID: 1, ScheduledAt: at(9, 35)})
	assert.NoError(t, err)

	// A different doctor shares the slot freely
	_, err = svc.Create(ctx, &model.CreateAppointmentRequest{DoctorID: 2, ScheduledAt: at(9, 0)})
	assert.NoError(t, err)
}

func TestCreateAllowsExactWindowBoundary(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(Config{})

	_, err := svc.Create(ctx, &model.CreateAppointmentRequest{DoctorID: 1, ScheduledAt: at(9, 0)})
	require.NoError(t, err)

	// Exactly 30 minutes apart is not a conflict, the boundary is open
	_, err = svc.Create(ctx, &model.CreateAppointmentRequest{DoctorID: 1, ScheduledAt: at(9, 30)})
	assert.NoError(t, err)

	_, err = svc.Create(ctx, &model.CreateAppointmentRequest{DoctorID: 1, ScheduledAt: at(8, 30)})
	assert.NoError(t, err)
}

func TestCreateUnknownDoctor(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(Config{})

	_, err := svc.Create(ctx, &model.CreateAppointmentRequest{DoctorID: 99, ScheduledAt: at(9, 0)})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCancelledSlotPolicy(t *testing.T) {
	ctx := context.Background()

	// Default policy: a cancelled appointment frees its slot
	svc, _ := newTestService(Config{})
	apt, err := svc.Create(ctx, &model.CreateAppointmentRequest{DoctorID: 1, ScheduledAt: at(9, 0)})
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, apt.ID)
	require.NoError(t, err)
	_, err = svc.Create(ctx, &model.CreateAppointmentRequest{DoctorID: 1, ScheduledAt: at(9, 10)})
	assert.NoError(t, err)

	// Conservative policy keeps the cancelled slot occupied
	svc, _ = newTestService(Config{BlockCancelledSlots: true})
	apt, err = svc.Create(ctx, &model.CreateAppointmentRequest{DoctorID: 1, ScheduledAt: at(9, 0)})
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, apt.ID)
	require.NoError(t, err)
	_, err = svc.Create(ctx, &model.CreateAppointmentRequest{DoctorID: 1, ScheduledAt: at(9, 10)})
	assert.True(t, apperrors.IsConflict(err))
}

func TestUpdateExcludesOwnSlot(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(Config{})

	apt, err := svc.Create(ctx, &model.CreateAppointmentRequest{DoctorID: 1, ScheduledAt: at(9, 0)})
	require.NoError(t, err)

	// Nudging the time within its own window must not self-conflict
	newTime := at(9, 10)
	updated, err := svc.Update(ctx, apt.ID, &model.UpdateAppointmentRequest{ScheduledAt: &newTime})
	require.NoError(t, err)
	assert.True(t, updated.ScheduledAt.Equal(newTime))

	// But moving onto another appointment's slot still conflicts
	_, err = svc.Create(ctx, &model.CreateAppointmentRequest{DoctorID: 1, ScheduledAt: at(11, 0)})
	require.NoError(t, err)
	clash := at(11, 5)
	_, err = svc.Update(ctx, apt.ID, &model.UpdateAppointmentRequest{ScheduledAt: &clash})
	assert.True(t, apperrors.IsConflict(err))
}

func TestStatusTransitions(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(Config{})

	apt, err := svc.Create(ctx, &model.CreateAppointmentRequest{DoctorID: 1, ScheduledAt: at(9, 0)})
	require.NoError(t, err)

	completed := model.AppointmentStatusCompleted
	_, err = svc.Update(ctx, apt.ID, &model.UpdateAppointmentRequest{Status: &completed})
	require.NoError(t, err)

	// Completed is terminal
	scheduled := model.AppointmentStatusScheduled
	_, err = svc.Update(ctx, apt.ID, &model.UpdateAppointmentRequest{Status: &scheduled})
	assert.True(t, apperrors.IsConflict(err))

	cancelled := model.AppointmentStatusCancelled
	_, err = svc.Update(ctx, apt.ID, &model.UpdateAppointmentRequest{Status: &cancelled})
	assert.True(t, apperrors.IsConflict(err))

	// Cancelled is terminal too
	apt2, err := svc.Create(ctx, &model.CreateAppointmentRequest{DoctorID: 1, ScheduledAt: at(10, 0)})
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, apt2.ID)
	require.NoError(t, err)
	_, err = svc.Update(ctx, apt2.ID, &model.UpdateAppointmentRequest{Status: &completed})
	assert.True(t, apperrors.IsConflict(err))

	// Same-status write is a no-op transition, other fields still apply
	apt3, err := svc.Create(ctx, &model.CreateAppointmentRequest{DoctorID: 1, ScheduledAt: at(12, 0)})
	require.NoError(t, err)
	notes := "bring referral"
	updated, err := svc.Update(ctx, apt3.ID, &model.UpdateAppointmentRequest{Status: &scheduled, Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, "bring referral", updated.Notes)

	bogus := model.AppointmentStatus("Rescheduled")
	_, err = svc.Update(ctx, apt3.ID, &model.UpdateAppointmentRequest{Status: &bogus})
	require.Error(t, err)
	assert.False(t, apperrors.IsConflict(err))

	types := repo.eventTypes()
	assert.Contains(t, types, model.EventAppointmentCreated)
	assert.Contains(t, types, model.EventAppointmentUpdated)
	assert.Contains(t, types, model.EventAppointmentCancelled)
}

func TestDeleteEmitsEvent(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(Config{})

	apt, err := svc.Create(ctx, &model.CreateAppointmentRequest{DoctorID: 1, ScheduledAt: at(9, 0)})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, apt.ID))
	_, err = svc.Get(ctx, apt.ID)
	assert.True(t, apperrors.IsNotFound(err))
	assert.Contains(t, repo.eventTypes(), model.EventAppointmentDeleted)

	assert.Error(t, svc.Delete(ctx, apt.ID))
}

func TestConcurrentBookingsSameSlot(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(Config{})

	const attempts = 16
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(ctx, &model.CreateAppointmentRequest{DoctorID: 1, ScheduledAt: at(9, 0)})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, apperrors.IsConflict(err))
		}
	}
	assert.Equal(t, 1, succeeded)

	appointments, err := repo.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, appointments, 1)
}

func TestCustomConflictWindow(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(Config{ConflictWindow: 10 * time.Minute})

	_, err := svc.Create(ctx, &model.CreateAppointmentRequest{DoctorID: 1, ScheduledAt: at(9, 0)})
	require.NoError(t, err)

	_, err = svc.Create(ctx, &model.CreateAppointmentRequest{DoctorID: 1, ScheduledAt: at(9, 5)})
	assert.True(t, apperrors.IsConflict(err))

	_, err = svc.Create(ctx, &model.CreateAppointmentRequest{DoctorID: 1, ScheduledAt: at(9, 10)})
	assert.NoError(t, err)
}
