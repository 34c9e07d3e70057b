package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tag model
type Tag struct {
	ID        string    `gorm:"primaryKey;column:id;size:36" json:"id"`
	Name      string    `gorm:"column:name;not null;uniqueIndex" json:"name"`
	Color     string    `gorm:"column:color" json:"color"`
	Type      string    `gorm:"column:type" json:"type"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Tag) TableName() string {
	return "tags"
}

func (t *Tag) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

func (t Tag) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Name, validation.Required, validation.Length(1, 50)),
		validation.Field(&t.Color, validation.Length(0, 20)),
	)
}

// PatientTag is the join row between patients and tags.
type PatientTag struct {
	PatientID string    `gorm:"primaryKey;column:patient_id;size:36" json:"patient_id"`
	TagID     string    `gorm:"primaryKey;column:tag_id;size:36" json:"tag_id"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (PatientTag) TableName() string {
	return "patient_tags"
}
