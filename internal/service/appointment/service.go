package appointment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/medisched/clinic-api/internal/email"
	"github.com/medisched/clinic-api/internal/model"
	"github.com/medisched/clinic-api/internal/repository"
	"github.com/medisched/clinic-api/pkg/circuitbreaker"
	apperrors "github.com/medisched/clinic-api/pkg/errors"
	"github.com/medisched/clinic-api/pkg/logger"
	"github.com/medisched/clinic-api/pkg/metrics"
)

// DefaultConflictWindow is the interval around a booking inside which no
// other appointment for the same doctor may exist. The boundary is open:
// two bookings exactly 30 minutes apart are allowed.
const DefaultConflictWindow = 30 * time.Minute

// Config carries the scheduling policy knobs.
type Config struct {
	// ConflictWindow overrides DefaultConflictWindow when positive.
	ConflictWindow time.Duration
	// BlockCancelledSlots keeps cancelled appointments counting as
	// occupied, the conservative historical policy. Off by default:
	// only active bookings block a slot.
	BlockCancelledSlots bool
}

// doctorLocks serializes booking writes per doctor so that conflict check
// and insert act as one step. Two concurrent requests for the same doctor
// cannot both observe a free slot.
type doctorLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func (d *doctorLocks) get(doctorID int64) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.locks[doctorID]
	if !ok {
		l = &sync.Mutex{}
		d.locks[doctorID] = l
	}
	return l
}

type Service struct {
	repo       repository.AppointmentRepository
	doctorRepo repository.DoctorRepository
	emailSvc   email.Service
	emailCB    *circuitbreaker.CircuitBreaker
	cfg        Config
	locks      doctorLocks
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

func NewService(
	repo repository.AppointmentRepository,
	doctorRepo repository.DoctorRepository,
	emailSvc email.Service,
	cfg Config,
	logger *logger.Logger,
	m *metrics.Metrics,
) *Service {
	if cfg.ConflictWindow <= 0 {
		cfg.ConflictWindow = DefaultConflictWindow
	}
	return &Service{
		repo:       repo,
		doctorRepo: doctorRepo,
		emailSvc:   emailSvc,
		emailCB:    circuitbreaker.New(circuitbreaker.Settings{Name: "email", MaxFailures: 5, Timeout: time.Minute}),
		cfg:        cfg,
		locks:      doctorLocks{locks: make(map[int64]*sync.Mutex)},
		logger:     logger,
		metrics:    m,
	}
}

// CheckConflict reports whether booking the doctor at the given time would
// collide with an existing appointment inside the conflict window.
// excludeID omits one appointment from the comparison so an update does not
// conflict with its own unchanged slot.
func (s *Service) CheckConflict(ctx context.Context, doctorID int64, scheduledAt time.Time, excludeID *int64) (bool, error) {
	start := time.Now()
	hasConflict, err := s.repo.CheckConflicts(ctx, doctorID, scheduledAt, s.cfg.ConflictWindow, s.cfg.BlockCancelledSlots, excludeID)
	if s.metrics != nil {
		s.metrics.ConflictCheckTime.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return false, fmt.Errorf("failed to check conflicts: %w", err)
	}
	return hasConflict, nil
}

// Create books a new appointment. The conflict check and the insert run
// under the doctor's lock, closing the check-then-act race between
// concurrent requests for the same doctor.
func (s *Service) Create(ctx context.Context, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	if _, err := s.doctorRepo.Get(ctx, req.DoctorID); err != nil {
		return nil, fmt.Errorf("failed to load doctor: %w", err)
	}

	lock := s.locks.get(req.DoctorID)
	lock.Lock()
	defer lock.Unlock()

	hasConflict, err := s.CheckConflict(ctx, req.DoctorID, req.ScheduledAt, nil)
	if err != nil {
		return nil, err
	}
	if hasConflict {
		if s.metrics != nil {
			s.metrics.BookingsRejected.WithLabelValues("conflict").Inc()
		}
		return nil, apperrors.NewConflict(
			fmt.Sprintf("doctor %d already has an appointment within %s of %s",
				req.DoctorID, s.cfg.ConflictWindow, req.ScheduledAt.Format(time.RFC3339)),
			nil,
		)
	}

	apt := &model.Appointment{
		DoctorID:    &req.DoctorID,
		ScheduledAt: req.ScheduledAt,
		Status:      model.AppointmentStatusScheduled,
		Notes:       req.Notes,
	}
	if req.PatientID != 0 {
		apt.PatientID = &req.PatientID
	}

	event, err := model.NewAppointmentEvent(model.EventAppointmentCreated, apt)
	if err != nil {
		return nil, fmt.Errorf("failed to build event: %w", err)
	}

	if err := s.repo.CreateWithEvent(ctx, apt, event); err != nil {
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}

	if s.metrics != nil {
		s.metrics.BookingsAccepted.Inc()
	}
	s.notify(ctx, apt, "appointment booked")
	s.logger.Info("appointment created",
		"appointment_id", apt.ID, "doctor_id", req.DoctorID, "scheduled_at", apt.ScheduledAt)
	return apt, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return apt, nil
}

func (s *Service) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	appointments, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

// Update rewrites an existing appointment. Status changes must follow the
// transition table (Scheduled may complete or cancel; Completed and
// Cancelled are terminal). A doctor or time change re-runs the conflict
// check with the appointment's own id excluded, so keeping the current
// slot is never a self-conflict.
func (s *Service) Update(ctx context.Context, id int64, req *model.UpdateAppointmentRequest) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}

	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, apperrors.NewBadRequest(fmt.Sprintf("invalid status %q", *req.Status), nil)
		}
		if !apt.Status.CanTransition(*req.Status) {
			return nil, apperrors.NewConflict(
				fmt.Sprintf("illegal status transition %s -> %s", apt.Status, *req.Status), nil)
		}
	}

	newDoctorID := apt.DoctorID
	if req.DoctorID != nil {
		newDoctorID = req.DoctorID
	}
	newTime := apt.ScheduledAt
	if req.ScheduledAt != nil {
		newTime = *req.ScheduledAt
	}

	slotChanged := (req.ScheduledAt != nil && !req.ScheduledAt.Equal(apt.ScheduledAt)) ||
		(req.DoctorID != nil && (apt.DoctorID == nil || *req.DoctorID != *apt.DoctorID))

	if slotChanged && newDoctorID != nil {
		lock := s.locks.get(*newDoctorID)
		lock.Lock()
		defer lock.Unlock()

		hasConflict, err := s.CheckConflict(ctx, *newDoctorID, newTime, &id)
		if err != nil {
			return nil, err
		}
		if hasConflict {
			if s.metrics != nil {
				s.metrics.BookingsRejected.WithLabelValues("conflict").Inc()
			}
			return nil, apperrors.NewConflict(
				fmt.Sprintf("doctor %d already has an appointment within %s of %s",
					*newDoctorID, s.cfg.ConflictWindow, newTime.Format(time.RFC3339)),
				nil,
			)
		}
	}

	apt.DoctorID = newDoctorID
	apt.ScheduledAt = newTime
	if req.PatientID != nil {
		apt.PatientID = req.PatientID
	}
	if req.Status != nil {
		apt.Status = *req.Status
	}
	if req.Notes != nil {
		apt.Notes = *req.Notes
	}

	eventType := model.EventAppointmentUpdated
	if req.Status != nil && *req.Status == model.AppointmentStatusCancelled {
		eventType = model.EventAppointmentCancelled
	}
	event, err := model.NewAppointmentEvent(eventType, apt)
	if err != nil {
		return nil, fmt.Errorf("failed to build event: %w", err)
	}

	if err := s.repo.UpdateWithEvent(ctx, apt, event); err != nil {
		return nil, fmt.Errorf("failed to update appointment: %w", err)
	}

	s.notify(ctx, apt, "appointment updated")
	return apt, nil
}

// Cancel is the Scheduled -> Cancelled transition.
func (s *Service) Cancel(ctx context.Context, id int64) (*model.Appointment, error) {
	cancelled := model.AppointmentStatusCancelled
	return s.Update(ctx, id, &model.UpdateAppointmentRequest{Status: &cancelled})
}

// Delete hard-deletes the row. Cancellation is the normal path; this is
// the admin surface for removing a record outright.
func (s *Service) Delete(ctx context.Context, id int64) error {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get appointment: %w", err)
	}

	event, err := model.NewAppointmentEvent(model.EventAppointmentDeleted, apt)
	if err != nil {
		return fmt.Errorf("failed to build event: %w", err)
	}

	if err := s.repo.DeleteWithEvent(ctx, id, event); err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	return nil
}

// notify sends a best-effort email; a failure never blocks the booking.
// The breaker stops hammering a dead SMTP host once sends start failing.
func (s *Service) notify(ctx context.Context, apt *model.Appointment, subject string) {
	if s.emailSvc == nil || apt.DoctorID == nil {
		return
	}
	doctor, err := s.doctorRepo.Get(ctx, *apt.DoctorID)
	if err != nil {
		return
	}
	body := fmt.Sprintf("%s: %s with Dr. %s", subject, apt.ScheduledAt.Format(time.RFC1123), doctor.Name)
	err = s.emailCB.Execute(func() error {
		return s.emailSvc.SendCustom(ctx, doctor.Email, subject, body)
	})
	if err != nil {
		s.logger.Warn("failed to send appointment notification",
			"appointment_id", apt.ID, "error", err.Error())
	}
}
