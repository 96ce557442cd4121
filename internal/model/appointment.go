package model

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentStatus is one of the appointment lifecycle states. AwaitingDeposit
// sits between a client accepting a deposit-backed proposal and the deposit
// actually clearing; the legacy system folded both meanings into Proposed.
type AppointmentStatus string

const (
	StatusProposed        AppointmentStatus = "PROPOSED"
	StatusAwaitingDeposit AppointmentStatus = "AWAITING_DEPOSIT"
	StatusAccepted        AppointmentStatus = "ACCEPTED"
	StatusConfirmed       AppointmentStatus = "CONFIRMED"
	StatusCompleted       AppointmentStatus = "COMPLETED"
	StatusCancelled       AppointmentStatus = "CANCELLED"
	StatusRescheduled     AppointmentStatus = "RESCHEDULED"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusProposed, StatusAwaitingDeposit, StatusAccepted, StatusConfirmed,
		StatusCompleted, StatusCancelled, StatusRescheduled:
		return true
	}
	return false
}

// Appointment is a scheduled engagement between a client and a pro.
// Rows are never hard-deleted; cancellation is a status.
type Appointment struct {
	ID     uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Status AppointmentStatus `gorm:"size:20;not null;default:PROPOSED;index" json:"status"`

	Title           string    `gorm:"size:255;not null" json:"title"`
	StartDate       time.Time `gorm:"not null;index" json:"start_date"`
	EndDate         time.Time `gorm:"not null" json:"end_date"`
	DurationMinutes int       `gorm:"not null" json:"duration_minutes"`

	// Money is stored in minor units of Currency.
	PriceAmount     int64  `gorm:"not null" json:"price_amount"`
	Currency        string `gorm:"size:3;not null;default:USD" json:"currency"`
	DepositRequired bool   `gorm:"not null;default:false" json:"deposit_required"`
	DepositAmount   int64  `gorm:"not null;default:0" json:"deposit_amount"`

	ClientID uuid.UUID `gorm:"type:uuid;not null;index" json:"client_id"`
	ProID    uuid.UUID `gorm:"type:uuid;not null;index" json:"pro_id"`

	// ConversationID links the client↔pro chat thread. ProposedDates holds the
	// pro's offered start times for the client to choose from. Both used to be
	// string-encoded inside Notes.
	ConversationID *uuid.UUID  `gorm:"type:uuid;index" json:"conversation_id,omitempty"`
	ProposedDates  []time.Time `gorm:"serializer:json" json:"proposed_dates,omitempty"`
	Notes          *string     `gorm:"type:text" json:"notes,omitempty"`

	DepositPaidAt      *time.Time `json:"deposit_paid_at,omitempty"`
	FullyPaidAt        *time.Time `json:"fully_paid_at,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancellationReason *string    `gorm:"type:text" json:"cancellation_reason,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Appointment) TableName() string { return "appointments" }

// DepositPaid reports whether the deposit requirement is satisfied.
func (a *Appointment) DepositPaid() bool {
	return !a.DepositRequired || a.DepositPaidAt != nil
}

// FullyPaid reports whether the full price has been settled.
func (a *Appointment) FullyPaid() bool {
	return a.FullyPaidAt != nil
}

// RoleOf resolves a user's role relative to this appointment. Admins keep
// their global role; anyone else must be a party to the appointment.
func (a *Appointment) RoleOf(userID uuid.UUID, globalRole Role) (Role, bool) {
	if globalRole == RoleAdmin {
		return RoleAdmin, true
	}
	switch userID {
	case a.ClientID:
		return RoleClient, true
	case a.ProID:
		return RolePro, true
	}
	return "", false
}
