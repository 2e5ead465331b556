package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/slotworks/bookpay/internal/intent"
)

// CreateIntentRequest opens a payment intent. RawIntent is the opaque
// booking-intent metadata persisted verbatim on the payment row; it must
// decode cleanly before anything reaches the gateway.
type CreateIntentRequest struct {
	Amount    int64
	Currency  string
	User      intent.UserDetails
	RawIntent []byte
}

// VerifyResult is the outcome of VerifyAndMaterialize. BookingIDs is
// non-empty only for success-status payments.
type VerifyResult struct {
	Status     Status
	BookingIDs []snowflake.ID
}

type Service interface {
	// CreateIntent generates a fresh reference, registers the intent with
	// the gateway and persists the pending payment. Nothing is persisted
	// when the gateway call fails.
	CreateIntent(ctx context.Context, req CreateIntentRequest) (*Payment, error)

	// Verify asks the gateway for the payment's status and records a
	// terminal result through a conditional update. A verify of an
	// already-terminal payment is a no-op returning the stored row.
	Verify(ctx context.Context, reference string) (*Payment, error)

	// VerifyAndMaterialize drives verify -> materialize -> link and
	// returns the terminal state with its booking ids. Pending payments
	// return with no error and no ids.
	VerifyAndMaterialize(ctx context.Context, reference string) (VerifyResult, error)
}
