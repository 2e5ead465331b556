package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/slotworks/bookpay/internal/booking/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, booking *domain.Booking) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO bookings (
			id, user_id, slot_id, date, start_time, end_time, status,
			amount_paid, currency, payment_reference, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		booking.ID,
		booking.UserID,
		booking.SlotID,
		booking.Date,
		booking.StartTime,
		booking.EndTime,
		booking.Status,
		booking.AmountPaid,
		booking.Currency,
		booking.PaymentReference,
		booking.CreatedAt,
		booking.UpdatedAt,
	).Error
}

const selectColumns = `id, user_id, slot_id, date, start_time, end_time, status,
	amount_paid, currency, payment_reference, created_at, updated_at`

func (r *repo) FindActive(ctx context.Context, db *gorm.DB, slotID, date string) (*domain.Booking, error) {
	var booking domain.Booking
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+`
		 FROM bookings
		 WHERE slot_id = ? AND date = ? AND status != ?
		 LIMIT 1`,
		slotID,
		date,
		domain.StatusCancelled,
	).Scan(&booking).Error
	if err != nil {
		return nil, err
	}
	if booking.ID == 0 {
		return nil, nil
	}
	return &booking, nil
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]*domain.Booking, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var bookings []*domain.Booking
	err := db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("id IN ?", ids).
		Order("date asc, slot_id asc").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *repo) BackfillPayment(ctx context.Context, db *gorm.DB, ids []snowflake.ID, amountPaid int64, currency, paymentReference string, updatedAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`UPDATE bookings
		 SET amount_paid = ?, currency = ?, payment_reference = ?, updated_at = ?
		 WHERE id IN ?`,
		amountPaid,
		currency,
		paymentReference,
		updatedAt,
		ids,
	).Error
}
