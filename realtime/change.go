// Package realtime turns database row changes into push notifications:
// PostgreSQL triggers NOTIFY, a Listener fans the changes out to in-process
// subscribers, and a Hub forwards them to WebSocket clients.
package realtime

import (
	"encoding/json"
	"fmt"
)

// Change is one row change reported by the notify trigger.
type Change struct {
	Table     string `json:"table"`
	Op        string `json:"op"`
	ID        string `json:"id"`
	PatientID string `json:"patient_id,omitempty"`
}

// ParseChange decodes a trigger payload.
func ParseChange(payload string) (Change, error) {
	var c Change
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return Change{}, fmt.Errorf("invalid change payload: %w", err)
	}
	if c.Table == "" {
		return Change{}, fmt.Errorf("invalid change payload: missing table")
	}
	return c, nil
}

// Filter selects changes. Empty fields match everything; PatientID matches the
// row's patient reference (or the row id itself for the patients table).
type Filter struct {
	Table     string
	PatientID string
}

func (f Filter) Match(c Change) bool {
	if f.Table != "" && f.Table != c.Table {
		return false
	}
	if f.PatientID == "" {
		return true
	}
	if c.PatientID == f.PatientID {
		return true
	}
	return c.Table == "patients" && c.ID == f.PatientID
}

// Topics lists the hub topics a change is published to.
func (c Change) Topics() []string {
	topics := []string{c.Table}
	patientID := c.PatientID
	if patientID == "" && c.Table == "patients" {
		patientID = c.ID
	}
	if patientID != "" {
		topics = append(topics, fmt.Sprintf("%s:patient_id=%s", c.Table, patientID))
	}
	return topics
}
