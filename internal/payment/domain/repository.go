package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	FindByReference(ctx context.Context, db *gorm.DB, reference string) (*Payment, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payment, error)

	// UpdateStatusIf writes the new status only when the current status
	// equals from; reports whether the row was updated. This is the single
	// linearization point for concurrent verifies.
	UpdateStatusIf(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to Status, failureReason string, updatedAt time.Time) (bool, error)

	// SetLinkedBookings sets linked_booking_ids only when currently empty.
	SetLinkedBookings(ctx context.Context, db *gorm.DB, id snowflake.ID, ids datatypes.JSON, updatedAt time.Time) (bool, error)

	// ListOrphans returns success payments with no linked bookings inside
	// the optional window, oldest first.
	ListOrphans(ctx context.Context, db *gorm.DB, from, to *time.Time, limit int) ([]*Payment, error)

	// ListStuckPending returns pending payments created before the cutoff.
	ListStuckPending(ctx context.Context, db *gorm.DB, cutoff time.Time, limit int) ([]*Payment, error)
}
