package model

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
)

type PaymentKind string

const (
	PaymentKindDeposit PaymentKind = "deposit"
	PaymentKindBalance PaymentKind = "balance"
	PaymentKindRefund  PaymentKind = "refund"
)

// Payment is an immutable ledger entry of money movement tied to an
// appointment. Charges carry a positive Amount, refunds a negative one;
// refunds are new rows, never deletions of earlier entries.
type Payment struct {
	ID            uuid.UUID     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	AppointmentID uuid.UUID     `gorm:"type:uuid;not null;index" json:"appointment_id"`
	Kind          PaymentKind   `gorm:"size:16;not null" json:"kind"`
	Amount        int64         `gorm:"not null" json:"amount"`
	Currency      string        `gorm:"size:3;not null;default:USD" json:"currency"`
	Status        PaymentStatus `gorm:"size:16;not null;default:PENDING;index" json:"status"`

	SenderID   uuid.UUID `gorm:"type:uuid;not null" json:"sender_id"`
	ReceiverID uuid.UUID `gorm:"type:uuid;not null" json:"receiver_id"`

	Description string  `gorm:"size:255" json:"description"`
	ExternalRef *string `gorm:"size:255;index" json:"external_ref,omitempty"`

	// Set on the original charge row when (part of) it has been refunded.
	RefundedAt     *time.Time `json:"refunded_at,omitempty"`
	RefundedAmount int64      `gorm:"not null;default:0" json:"refunded_amount"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }
