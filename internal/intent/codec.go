package intent

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMalformed marks intent metadata that cannot be repaired automatically.
// Payments carrying it stay in their current status until an operator fixes
// the stored payload.
var ErrMalformed = errors.New("malformed_intent")

// UserDetails is the payer identity captured at payment-creation time.
type UserDetails struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// DateSlot is one (calendar date, slot) pair the payment purchases.
type DateSlot struct {
	Date   string `json:"date"`
	SlotID string `json:"slotId"`
}

// BookingIntent is the normalized description of what a payment purchases.
// Both the current multi-day shape and the legacy single-day shape decode
// into this structure.
type BookingIntent struct {
	User      UserDetails `json:"userDetails"`
	Pairs     []DateSlot  `json:"dateSlotPairs"`
	StartTime string      `json:"startTime"`
	EndTime   string      `json:"endTime"`
}

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// rawIntent accepts both wire shapes. The legacy shape carries a single
// date plus slot object instead of dateSlotPairs.
type rawIntent struct {
	UserDetails *UserDetails `json:"userDetails"`
	Pairs       []DateSlot   `json:"dateSlotPairs"`
	Date        string       `json:"date"`
	Slot        *rawSlot     `json:"slot"`
	StartTime   string       `json:"startTime"`
	EndTime     string       `json:"endTime"`
}

type rawSlot struct {
	ID string `json:"id"`
}

// Decode validates and normalizes raw intent metadata. It is pure: no
// store access, deterministic for identical input, so first processing and
// reconciliation replay always derive the same bookings.
func Decode(raw []byte) (BookingIntent, error) {
	var in rawIntent
	if err := json.Unmarshal(raw, &in); err != nil {
		return BookingIntent{}, fmt.Errorf("%w: invalid json: %v", ErrMalformed, err)
	}

	if in.UserDetails == nil || strings.TrimSpace(in.UserDetails.Email) == "" {
		return BookingIntent{}, fmt.Errorf("%w: missing userDetails.email", ErrMalformed)
	}

	pairs := in.Pairs
	if len(pairs) == 0 && (in.Date != "" || in.Slot != nil) {
		// Legacy single-day shape.
		if in.Slot == nil {
			return BookingIntent{}, fmt.Errorf("%w: legacy shape missing slot", ErrMalformed)
		}
		pairs = []DateSlot{{Date: in.Date, SlotID: in.Slot.ID}}
	}
	if len(pairs) == 0 {
		return BookingIntent{}, fmt.Errorf("%w: empty dateSlotPairs", ErrMalformed)
	}

	out := BookingIntent{
		User: UserDetails{
			Name:  strings.TrimSpace(in.UserDetails.Name),
			Email: strings.ToLower(strings.TrimSpace(in.UserDetails.Email)),
			Phone: strings.TrimSpace(in.UserDetails.Phone),
		},
		Pairs:     make([]DateSlot, 0, len(pairs)),
		StartTime: strings.TrimSpace(in.StartTime),
		EndTime:   strings.TrimSpace(in.EndTime),
	}

	for i, p := range pairs {
		slotID := strings.TrimSpace(p.SlotID)
		if slotID == "" || strings.ContainsAny(slotID, " \t\n") {
			return BookingIntent{}, fmt.Errorf("%w: malformed slot id at index %d", ErrMalformed, i)
		}
		date := strings.TrimSpace(p.Date)
		if _, err := time.Parse(dateLayout, date); err != nil {
			return BookingIntent{}, fmt.Errorf("%w: malformed date %q at index %d", ErrMalformed, p.Date, i)
		}
		out.Pairs = append(out.Pairs, DateSlot{Date: date, SlotID: slotID})
	}

	if err := validateTimeOfDay("startTime", out.StartTime); err != nil {
		return BookingIntent{}, err
	}
	if err := validateTimeOfDay("endTime", out.EndTime); err != nil {
		return BookingIntent{}, err
	}

	return out, nil
}

// Encode serializes an intent in the current wire shape.
func Encode(in BookingIntent) ([]byte, error) {
	return json.Marshal(in)
}

func validateTimeOfDay(field, value string) error {
	if value == "" {
		return fmt.Errorf("%w: missing %s", ErrMalformed, field)
	}
	if _, err := time.Parse(timeLayout, value); err != nil {
		return fmt.Errorf("%w: %s %q is not a time of day", ErrMalformed, field, value)
	}
	return nil
}
