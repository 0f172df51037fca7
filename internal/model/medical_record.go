package model

import "time"

// MedicalRecord keeps the same orphaning policy as Appointment: deleting
// the patient or doctor nulls the reference, the record itself survives.
type MedicalRecord struct {
	ID         int64     `db:"id" json:"id"`
	PatientID  *int64    `db:"patient_id" json:"patient_id"`
	DoctorID   *int64    `db:"doctor_id" json:"doctor_id"`
	Diagnosis  string    `db:"diagnosis" json:"diagnosis"`
	Treatment  string    `db:"treatment" json:"treatment"`
	RecordedAt time.Time `db:"recorded_at" json:"recorded_at"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

type CreateMedicalRecordRequest struct {
	PatientID int64  `json:"patient_id" binding:"required"`
	DoctorID  int64  `json:"doctor_id" binding:"required"`
	Diagnosis string `json:"diagnosis" binding:"required,max=2000"`
	Treatment string `json:"treatment" binding:"max=2000"`
}
