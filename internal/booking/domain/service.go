package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	paymentdomain "github.com/slotworks/bookpay/internal/payment/domain"
)

type Service interface {
	// Materialize turns a success-status payment's stored intent into
	// booking rows exactly once and returns their ids in intent order.
	// Idempotent under retry: existing rows from a previous partial run
	// are reused, never duplicated.
	Materialize(ctx context.Context, payment *paymentdomain.Payment) ([]snowflake.ID, error)
}
