package model

import (
	"time"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "Scheduled"
	AppointmentStatusCompleted AppointmentStatus = "Completed"
	AppointmentStatusCancelled AppointmentStatus = "Cancelled"
)

// appointmentTransitions is the legal state machine. Completed and
// Cancelled are terminal.
var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentStatusScheduled: {AppointmentStatusCompleted, AppointmentStatusCancelled},
	AppointmentStatusCompleted: {},
	AppointmentStatusCancelled: {},
}

// CanTransition reports whether an appointment may move from its current
// status to the target status. Same-status writes are allowed so that
// updating other fields does not require a transition.
func (s AppointmentStatus) CanTransition(to AppointmentStatus) bool {
	if s == to {
		return true
	}
	for _, next := range appointmentTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusScheduled, AppointmentStatusCompleted, AppointmentStatusCancelled:
		return true
	}
	return false
}

// Appointment references doctor and patient through nullable keys: deleting
// either party nulls the reference and keeps the appointment as history.
type Appointment struct {
	ID          int64             `db:"id" json:"id"`
	DoctorID    *int64            `db:"doctor_id" json:"doctor_id"`
	PatientID   *int64            `db:"patient_id" json:"patient_id"`
	ScheduledAt time.Time         `db:"scheduled_at" json:"scheduled_at"`
	Status      AppointmentStatus `db:"status" json:"status"`
	Notes       string            `db:"notes" json:"notes,omitempty"`
	CreatedAt   time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at" json:"updated_at"`
}

type CreateAppointmentRequest struct {
	DoctorID    int64     `json:"doctor_id" binding:"required"`
	PatientID   int64     `json:"patient_id"`
	ScheduledAt time.Time `json:"scheduled_at" binding:"required"`
	Notes       string    `json:"notes" binding:"max=1000"`
}

type UpdateAppointmentRequest struct {
	DoctorID    *int64             `json:"doctor_id"`
	PatientID   *int64             `json:"patient_id"`
	ScheduledAt *time.Time         `json:"scheduled_at"`
	Status      *AppointmentStatus `json:"status" binding:"omitempty,oneof=Scheduled Completed Cancelled"`
	Notes       *string            `json:"notes" binding:"omitempty,max=1000"`
}

type AppointmentFilters struct {
	DoctorID  *int64
	PatientID *int64
	Status    AppointmentStatus
	StartDate time.Time
	EndDate   time.Time
}
