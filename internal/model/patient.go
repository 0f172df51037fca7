package model

import "time"

type Patient struct {
	ID          int64      `db:"id" json:"id"`
	AccountID   string     `db:"account_id" json:"account_id"`
	Name        string     `db:"name" json:"name"`
	Email       string     `db:"email" json:"email"`
	Phone       string     `db:"phone" json:"phone,omitempty"`
	DateOfBirth *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

type UpdatePatientRequest struct {
	Name  *string `json:"name" binding:"omitempty,max=120"`
	Email *string `json:"email" binding:"omitempty,email"`
	Phone *string `json:"phone" binding:"omitempty,max=32"`
}
