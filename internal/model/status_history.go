package model

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentStatusHistory is the append-only audit trail of transitions.
// Rows are created once per transition and never mutated or deleted.
type AppointmentStatusHistory struct {
	ID            uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	AppointmentID uuid.UUID         `gorm:"type:uuid;not null;index" json:"appointment_id"`
	OldStatus     AppointmentStatus `gorm:"size:20;not null" json:"old_status"`
	NewStatus     AppointmentStatus `gorm:"size:20;not null" json:"new_status"`
	ChangedBy     uuid.UUID         `gorm:"type:uuid;not null" json:"changed_by"`
	Reason        *string           `gorm:"type:text" json:"reason,omitempty"`
	Metadata      map[string]any    `gorm:"serializer:json" json:"metadata,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

func (AppointmentStatusHistory) TableName() string { return "appointment_status_histories" }
