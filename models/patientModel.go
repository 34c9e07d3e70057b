package models

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PatientSchemaVersion is the version written on every new patient row.
const PatientSchemaVersion = 1

// PipelineStage is one of the five lifecycle buckets a patient occupies.
type PipelineStage string

const (
	StageLead      PipelineStage = "lead"
	StageContacted PipelineStage = "contacted"
	StageScheduled PipelineStage = "scheduled"
	StageActive    PipelineStage = "active"
	StageInactive  PipelineStage = "inactive"
)

// PipelineStages lists the stages in board column order.
var PipelineStages = []PipelineStage{
	StageLead,
	StageContacted,
	StageScheduled,
	StageActive,
	StageInactive,
}

// Valid reports whether s is one of the five known stages.
func (s PipelineStage) Valid() bool {
	for _, stage := range PipelineStages {
		if s == stage {
			return true
		}
	}
	return false
}

// ParseStage converts a raw column id into a stage.
func ParseStage(raw string) (PipelineStage, error) {
	s := PipelineStage(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown pipeline stage %q", raw)
	}
	return s, nil
}

// Patient model
type Patient struct {
	ID              string            `gorm:"primaryKey;column:id;size:36" json:"id"`
	FirstName       string            `gorm:"column:first_name;not null" json:"first_name"`
	LastName        string            `gorm:"column:last_name;not null;index" json:"last_name"`
	Email           string            `gorm:"column:email;index" json:"email"`
	Phone           string            `gorm:"column:phone" json:"phone"`
	ChatID          string            `gorm:"column:chat_id;index" json:"chat_id"`
	Channel         string            `gorm:"column:channel" json:"channel"`
	DateOfBirth     string            `gorm:"column:date_of_birth" json:"date_of_birth"`
	Notes           string            `gorm:"column:notes;type:text" json:"notes"`
	PipelineStage   PipelineStage     `gorm:"column:pipeline_stage;not null;index" json:"pipeline_stage"`
	AIEnabled       bool              `gorm:"column:ai_enabled;not null" json:"ai_enabled"`
	AssignedToHuman bool              `gorm:"column:assigned_to_human;not null" json:"assigned_to_human"`
	SchemaVersion   int               `gorm:"column:schema_version;not null" json:"schema_version"`
	Extensions      datatypes.JSONMap `gorm:"column:extensions" json:"extensions,omitempty"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	Tags            []Tag             `gorm:"many2many:patient_tags;joinForeignKey:PatientID;joinReferences:TagID" json:"tags,omitempty"`
}

func (Patient) TableName() string {
	return "patients"
}

// BeforeCreate fills the id, stage and schema version of new rows.
func (p *Patient) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.PipelineStage == "" {
		p.PipelineStage = StageLead
	}
	if p.SchemaVersion == 0 {
		p.SchemaVersion = PatientSchemaVersion
	}
	return nil
}

// FullName joins first and last name.
func (p Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}

// Validate checks the form fields of a patient.
func (p Patient) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.FirstName, validation.Required, validation.Length(1, 100)),
		validation.Field(&p.LastName, validation.Required, validation.Length(1, 100)),
		validation.Field(&p.Email, is.EmailFormat),
		validation.Field(&p.PipelineStage, validation.By(validStage)),
	)
}

func validStage(value interface{}) error {
	s, _ := value.(PipelineStage)
	if s == "" || s.Valid() {
		return nil
	}
	return fmt.Errorf("must be one of lead, contacted, scheduled, active, inactive")
}

// PatientFilter narrows a patient listing.
type PatientFilter struct {
	Stage  PipelineStage
	Search string
}
