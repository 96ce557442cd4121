package model

import (
	"time"

	"github.com/google/uuid"
)

type Notification struct {
	ID     uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Type   string         `gorm:"size:64;not null" json:"type"`
	Title  string         `gorm:"size:255;not null" json:"title"`
	Body   *string        `gorm:"type:text" json:"body,omitempty"`
	Data   map[string]any `gorm:"serializer:json" json:"data,omitempty"`
	IsRead bool           `gorm:"not null;default:false;index" json:"is_read"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Notification) TableName() string { return "notifications" }
