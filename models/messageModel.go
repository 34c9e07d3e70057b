package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SenderType string

const (
	SenderPatient SenderType = "patient"
	SenderAI      SenderType = "ai"
	SenderHuman   SenderType = "human"
)

// Message is one entry of the flat message log. Conversations are never
// stored, they are derived by grouping on SessionID.
type Message struct {
	ID         string     `gorm:"primaryKey;column:id;size:36" json:"id"`
	SessionID  string     `gorm:"column:session_id;not null;index" json:"session_id"`
	PatientID  *string    `gorm:"column:patient_id;size:36;index" json:"patient_id"`
	SenderType SenderType `gorm:"column:sender_type;not null" json:"sender_type"`
	Channel    string     `gorm:"column:channel" json:"channel"`
	Content    string     `gorm:"column:content;type:text" json:"content"`
	MediaType  string     `gorm:"column:media_type" json:"media_type,omitempty"`
	MediaURL   string     `gorm:"column:media_url" json:"media_url,omitempty"`
	Caption    string     `gorm:"column:caption" json:"caption,omitempty"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
}

func (Message) TableName() string {
	return "messages"
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// ValidSenderType reports whether s is patient, ai or human.
func ValidSenderType(s SenderType) bool {
	return s == SenderPatient || s == SenderAI || s == SenderHuman
}
