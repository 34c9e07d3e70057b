package models

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrInvalidTimeRange is returned when an appointment does not end after it starts.
var ErrInvalidTimeRange = errors.New("end_time must be after start_time")

type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
	AppointmentNoShow    AppointmentStatus = "no-show"
)

var appointmentStatuses = []interface{}{
	AppointmentScheduled,
	AppointmentConfirmed,
	AppointmentCompleted,
	AppointmentCancelled,
	AppointmentNoShow,
}

// Appointment model
type Appointment struct {
	ID        string            `gorm:"primaryKey;column:id;size:36" json:"id"`
	Title     string            `gorm:"column:title;not null" json:"title"`
	Type      string            `gorm:"column:type" json:"type"`
	StartTime time.Time         `gorm:"column:start_time;not null;index" json:"start_time"`
	EndTime   time.Time         `gorm:"column:end_time;not null" json:"end_time"`
	Status    AppointmentStatus `gorm:"column:status;not null;index" json:"status"`
	PatientID *string           `gorm:"column:patient_id;size:36;index" json:"patient_id"`
	Notes     string            `gorm:"column:notes;type:text" json:"notes"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Appointment) TableName() string {
	return "appointments"
}

func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = AppointmentScheduled
	}
	return nil
}

// Validate enforces required fields and end_time > start_time.
func (a Appointment) Validate() error {
	err := validation.ValidateStruct(&a,
		validation.Field(&a.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&a.StartTime, validation.Required),
		validation.Field(&a.EndTime, validation.Required),
		validation.Field(&a.Status, validation.In(appointmentStatuses...)),
	)
	if err != nil {
		return err
	}
	if !a.EndTime.After(a.StartTime) {
		return ErrInvalidTimeRange
	}
	return nil
}

// ValidAppointmentStatus reports whether s is a known appointment status.
func ValidAppointmentStatus(s AppointmentStatus) bool {
	for _, known := range appointmentStatuses {
		if known == s {
			return true
		}
	}
	return false
}

// AppointmentFilter narrows an appointment listing. Zero values match everything.
type AppointmentFilter struct {
	From      time.Time
	To        time.Time
	PatientID string
}
