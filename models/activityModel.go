package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ActivityType string

const (
	ActivityPatientCreated ActivityType = "patient_created"
	ActivityStageChanged   ActivityType = "stage_changed"
	ActivityHandoffChanged ActivityType = "handoff_changed"
	ActivityMessageSent    ActivityType = "message_sent"
	ActivityTagged         ActivityType = "tagged"
)

// Activity is an audit log entry attached to a patient.
type Activity struct {
	ID          string       `gorm:"primaryKey;column:id;size:36" json:"id"`
	PatientID   string       `gorm:"column:patient_id;size:36;not null;index" json:"patient_id"`
	Type        ActivityType `gorm:"column:type;not null" json:"type"`
	Description string       `gorm:"column:description" json:"description"`
	ActorID     string       `gorm:"column:actor_id;size:36" json:"actor_id,omitempty"`
	CreatedAt   time.Time    `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
}

func (Activity) TableName() string {
	return "activities"
}

func (a *Activity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
