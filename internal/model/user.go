package model

import (
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of actor roles recognized by the transition table.
type Role string

const (
	RoleClient Role = "client"
	RolePro    Role = "pro"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleClient, RolePro, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	DisplayName string    `gorm:"size:120;not null" json:"display_name"`
	Email       string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Role        Role      `gorm:"size:16;not null;default:client" json:"role"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }
