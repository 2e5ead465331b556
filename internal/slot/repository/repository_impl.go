package repository

import (
	"context"
	"strings"

	"github.com/slotworks/bookpay/internal/slot/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id string) (*domain.Slot, error) {
	var slot domain.Slot
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, open_time, close_time, is_active, created_at
		 FROM slots WHERE id = ?`,
		strings.TrimSpace(id),
	).Scan(&slot).Error
	if err != nil {
		return nil, err
	}
	if slot.ID == "" {
		return nil, nil
	}
	return &slot, nil
}

func (r *repo) ListActive(ctx context.Context, db *gorm.DB) ([]domain.Slot, error) {
	var slots []domain.Slot
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, open_time, close_time, is_active, created_at
		 FROM slots WHERE is_active ORDER BY id`,
	).Scan(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}
