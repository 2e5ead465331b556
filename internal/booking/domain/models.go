package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

var (
	// ErrSlotAlreadyBooked means a different payment already holds the
	// (slot, date) pair. Business conflict, surfaced to the caller.
	ErrSlotAlreadyBooked = errors.New("slot_already_booked")
)

// Booking is one slot on one date. At most one non-cancelled booking may
// exist per (slot_id, date); the store enforces it with a partial unique
// index and the materializer recovers from violations by re-reading.
type Booking struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID           snowflake.ID `gorm:"not null;index" json:"user_id"`
	SlotID           string       `gorm:"not null" json:"slot_id"`
	Date             string       `gorm:"not null" json:"date"`
	StartTime        string       `gorm:"not null" json:"start_time"`
	EndTime          string       `gorm:"not null" json:"end_time"`
	Status           Status       `gorm:"type:text;not null" json:"status"`
	AmountPaid       *int64       `json:"amount_paid,omitempty"`
	Currency         string       `json:"currency,omitempty"`
	PaymentReference string       `json:"payment_reference,omitempty"`
	CreatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Booking) TableName() string { return "bookings" }

// PartialError reports a materialization that booked some days before
// failing, carrying the ids created so far so the reconciler can finish
// the rest instead of starting over.
type PartialError struct {
	Created []snowflake.ID
	Err     error
}

func (e *PartialError) Error() string {
	ids := make([]string, 0, len(e.Created))
	for _, id := range e.Created {
		ids = append(ids, id.String())
	}
	return fmt.Sprintf("materialized %d booking(s) [%s] before failing: %v",
		len(e.Created), strings.Join(ids, ","), e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }
