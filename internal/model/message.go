package model

import (
	"time"

	"github.com/google/uuid"
)

type MessageKind string

const (
	MessageKindUser   MessageKind = "user"
	MessageKindSystem MessageKind = "system"
)

type Message struct {
	ID             uuid.UUID   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ConversationID uuid.UUID   `gorm:"type:uuid;not null;index" json:"conversation_id"`
	// SenderID is nil for system messages emitted by appointment transitions.
	SenderID *uuid.UUID  `gorm:"type:uuid;index" json:"sender_id,omitempty"`
	Kind     MessageKind `gorm:"size:16;not null;default:user" json:"kind"`
	Content  string      `gorm:"type:text;not null" json:"content"`

	CreatedAt time.Time `json:"created_at"`
}

func (Message) TableName() string { return "messages" }
