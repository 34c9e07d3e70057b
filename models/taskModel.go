package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
)

// Task model
type Task struct {
	ID          string     `gorm:"primaryKey;column:id;size:36" json:"id"`
	Title       string     `gorm:"column:title;not null" json:"title"`
	Description string     `gorm:"column:description;type:text" json:"description"`
	Status      TaskStatus `gorm:"column:status;not null;index" json:"status"`
	DueAt       *time.Time `gorm:"column:due_at" json:"due_at"`
	PatientID   *string    `gorm:"column:patient_id;size:36;index" json:"patient_id"`
	AssigneeID  *string    `gorm:"column:assignee_id;size:36;index" json:"assignee_id"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Task) TableName() string {
	return "tasks"
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = TaskTodo
	}
	return nil
}

func (t Task) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&t.Status, validation.In(TaskTodo, TaskInProgress, TaskDone)),
	)
}

// ValidTaskStatus reports whether s is todo, in_progress or done.
func ValidTaskStatus(s TaskStatus) bool {
	return s == TaskTodo || s == TaskInProgress || s == TaskDone
}

type TaskFilter struct {
	Status     TaskStatus
	PatientID  string
	AssigneeID string
}
