package domain

import "time"

// Slot is a bookable unit (a court, a room) identified by a short string
// id referenced from booking intents.
type Slot struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	OpenTime  string    `gorm:"not null" json:"open_time"`
	CloseTime string    `gorm:"not null" json:"close_time"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Slot) TableName() string { return "slots" }
