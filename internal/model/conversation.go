package model

import (
	"time"

	"github.com/google/uuid"
)

type Conversation struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ParticipantA  uuid.UUID  `gorm:"type:uuid;not null;index" json:"participant_a"`
	ParticipantB  uuid.UUID  `gorm:"type:uuid;not null;index" json:"participant_b"`
	LastMessageAt *time.Time `gorm:"index" json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (Conversation) TableName() string { return "conversations" }
