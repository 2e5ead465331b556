package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/slotworks/bookpay/internal/payment/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payments (
			id, reference, amount, currency, status, raw_intent,
			linked_booking_ids, gateway_url, failure_reason, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID,
		payment.Reference,
		payment.Amount,
		payment.Currency,
		payment.Status,
		payment.RawIntent,
		payment.LinkedBookingIDs,
		payment.GatewayURL,
		payment.FailureReason,
		payment.CreatedAt,
		payment.UpdatedAt,
	).Error
}

const selectColumns = `id, reference, amount, currency, status, raw_intent,
	linked_booking_ids, gateway_url, failure_reason, created_at, updated_at`

func (r *repo) FindByReference(ctx context.Context, db *gorm.DB, reference string) (*domain.Payment, error) {
	var payment domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+` FROM payments WHERE reference = ? LIMIT 1`,
		reference,
	).Scan(&payment).Error
	if err != nil {
		return nil, err
	}
	if payment.ID == 0 {
		return nil, nil
	}
	return &payment, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Payment, error) {
	var payment domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+` FROM payments WHERE id = ? LIMIT 1`,
		id,
	).Scan(&payment).Error
	if err != nil {
		return nil, err
	}
	if payment.ID == 0 {
		return nil, nil
	}
	return &payment, nil
}

func (r *repo) UpdateStatusIf(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to domain.Status, failureReason string, updatedAt time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE payments
		 SET status = ?, failure_reason = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		to,
		failureReason,
		updatedAt,
		id,
		from,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) SetLinkedBookings(ctx context.Context, db *gorm.DB, id snowflake.ID, ids datatypes.JSON, updatedAt time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE payments
		 SET linked_booking_ids = ?, updated_at = ?
		 WHERE id = ? AND linked_booking_ids IS NULL`,
		ids,
		updatedAt,
		id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) ListOrphans(ctx context.Context, db *gorm.DB, from, to *time.Time, limit int) ([]*domain.Payment, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Payment{}).
		Where("status = ?", domain.StatusSuccess).
		Where("linked_booking_ids IS NULL")
	if from != nil {
		stmt = stmt.Where("created_at >= ?", *from)
	}
	if to != nil {
		stmt = stmt.Where("created_at <= ?", *to)
	}

	var payments []*domain.Payment
	err := stmt.
		Order("created_at asc, id asc").
		Limit(limit).
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repo) ListStuckPending(ctx context.Context, db *gorm.DB, cutoff time.Time, limit int) ([]*domain.Payment, error) {
	var payments []*domain.Payment
	err := db.WithContext(ctx).
		Model(&domain.Payment{}).
		Where("status = ?", domain.StatusPending).
		Where("created_at <= ?", cutoff).
		Order("created_at asc, id asc").
		Limit(limit).
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}
