package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// User is keyed naturally by email (case-insensitive unique); the
// materializer creates one on first sight of an unknown payer.
type User struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	Name       string       `gorm:"not null" json:"name"`
	Email      string       `gorm:"not null" json:"email"`
	Phone      string       `json:"phone,omitempty"`
	IsVerified bool         `gorm:"not null;default:false" json:"is_verified"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (User) TableName() string { return "users" }
