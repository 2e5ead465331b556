package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, booking *Booking) error

	// FindActive returns the non-cancelled booking for (slotID, date),
	// or nil when the pair is free.
	FindActive(ctx context.Context, db *gorm.DB, slotID, date string) (*Booking, error)

	FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]*Booking, error)

	// BackfillPayment records the paying reference and amount on already
	// materialized bookings.
	BackfillPayment(ctx context.Context, db *gorm.DB, ids []snowflake.ID, amountPaid int64, currency, paymentReference string, updatedAt time.Time) error
}
