package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionPaid      TransactionStatus = "paid"
	TransactionCancelled TransactionStatus = "cancelled"
)

// Transaction is a ledger entry. AmountCents is always positive; the sign
// comes from Type.
type Transaction struct {
	ID          string            `gorm:"primaryKey;column:id;size:36" json:"id"`
	Description string            `gorm:"column:description;not null" json:"description"`
	AmountCents int64             `gorm:"column:amount_cents;not null" json:"amount_cents"`
	Type        TransactionType   `gorm:"column:type;not null;index" json:"type"`
	Status      TransactionStatus `gorm:"column:status;not null;index" json:"status"`
	Category    string            `gorm:"column:category" json:"category"`
	OccurredAt  time.Time         `gorm:"column:occurred_at;not null;index" json:"occurred_at"`
	PatientID   *string           `gorm:"column:patient_id;size:36;index" json:"patient_id"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = TransactionPending
	}
	if t.OccurredAt.IsZero() {
		t.OccurredAt = time.Now()
	}
	return nil
}

func (t Transaction) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Description, validation.Required),
		validation.Field(&t.AmountCents, validation.Required, validation.Min(int64(1))),
		validation.Field(&t.Type, validation.Required, validation.In(TransactionIncome, TransactionExpense)),
		validation.Field(&t.Status, validation.In(TransactionPending, TransactionCompleted, TransactionPaid, TransactionCancelled)),
	)
}

// Settled reports whether the entry counts towards the balance.
func (t Transaction) Settled() bool {
	return t.Status == TransactionCompleted || t.Status == TransactionPaid
}

// Signed returns the amount with expenses negative.
func (t Transaction) Signed() int64 {
	if t.Type == TransactionExpense {
		return -t.AmountCents
	}
	return t.AmountCents
}

type TransactionFilter struct {
	From   time.Time
	To     time.Time
	Type   TransactionType
	Status TransactionStatus
}
