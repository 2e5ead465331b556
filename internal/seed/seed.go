package seed

import (
	"context"
	"errors"
	"time"

	slotdomain "github.com/slotworks/bookpay/internal/slot/domain"
	"github.com/slotworks/bookpay/pkg/db"
	"gorm.io/gorm"
)

var defaultSlots = []slotdomain.Slot{
	{ID: "s1", Name: "Court 1", OpenTime: "08:00", CloseTime: "22:00", IsActive: true},
	{ID: "s2", Name: "Court 2", OpenTime: "08:00", CloseTime: "22:00", IsActive: true},
	{ID: "s3", Name: "Court 3", OpenTime: "10:00", CloseTime: "20:00", IsActive: true},
}

// EnsureDefaultSlots seeds the bookable slots for startup bootstrap so a
// fresh install can take bookings immediately.
func EnsureDefaultSlots(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("seed database handle is required")
	}

	ctx := context.Background()
	now := time.Now().UTC()
	return conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, slot := range defaultSlots {
			slot.CreatedAt = now
			err := tx.Exec(
				`INSERT INTO slots (id, name, open_time, close_time, is_active, created_at)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				slot.ID, slot.Name, slot.OpenTime, slot.CloseTime, slot.IsActive, slot.CreatedAt,
			).Error
			if err != nil && !db.IsDuplicateKeyErr(err) {
				return err
			}
		}
		return nil
	})
}
