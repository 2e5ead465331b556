package domain

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Status is the local payment state machine:
// created -> pending -> {success, failed}. Terminal states never
// transition again; a failed payment is retried with a new reference.
type Status string

const (
	StatusCreated Status = "created"
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

var (
	ErrUnknownReference = errors.New("unknown_reference")
	ErrInvalidAmount    = errors.New("invalid_amount")
	ErrInvalidCurrency  = errors.New("invalid_currency")

	// ErrLinkConflict means a payment already links to a different booking
	// set than the one being attached. Never auto-resolved.
	ErrLinkConflict = errors.New("link_conflict")
)

// Payment is the engine's audit record of one payment intent. Rows are
// never deleted; status is written only by the lifecycle manager and
// linked_booking_ids only by the linker, each through conditional updates.
type Payment struct {
	ID               snowflake.ID   `gorm:"primaryKey" json:"id"`
	Reference        string         `gorm:"not null;uniqueIndex" json:"reference"`
	Amount           int64          `gorm:"not null" json:"amount"`
	Currency         string         `gorm:"not null" json:"currency"`
	Status           Status         `gorm:"type:text;not null" json:"status"`
	RawIntent        datatypes.JSON `gorm:"column:raw_intent;type:jsonb;not null" json:"raw_intent"`
	LinkedBookingIDs datatypes.JSON `gorm:"column:linked_booking_ids;type:jsonb" json:"linked_booking_ids,omitempty"`
	GatewayURL       string         `gorm:"column:gateway_url" json:"gateway_url,omitempty"`
	FailureReason    string         `json:"failure_reason,omitempty"`
	CreatedAt        time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }

// Linked reports whether booking ids have been attached.
func (p *Payment) Linked() bool {
	return len(p.LinkedBookingIDs) > 0 && string(p.LinkedBookingIDs) != "null"
}

// BookingIDs decodes the linked booking id set. Empty when not yet linked.
func (p *Payment) BookingIDs() ([]snowflake.ID, error) {
	if !p.Linked() {
		return nil, nil
	}
	var raw []string
	if err := json.Unmarshal(p.LinkedBookingIDs, &raw); err != nil {
		return nil, err
	}
	ids := make([]snowflake.ID, 0, len(raw))
	for _, s := range raw {
		id, err := snowflake.ParseString(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// MarshalBookingIDs encodes a booking id sequence for storage. IDs are
// stored as strings so the JSON survives 53-bit consumers.
func MarshalBookingIDs(ids []snowflake.ID) (datatypes.JSON, error) {
	raw := make([]string, 0, len(ids))
	for _, id := range ids {
		raw = append(raw, id.String())
	}
	out, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(out), nil
}

// SameBookingIDs reports whether two id sequences are identical in content
// regardless of order.
func SameBookingIDs(a, b []snowflake.ID) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[snowflake.ID]int, len(a))
	for _, id := range a {
		seen[id]++
	}
	for _, id := range b {
		seen[id]--
		if seen[id] < 0 {
			return false
		}
	}
	return true
}
