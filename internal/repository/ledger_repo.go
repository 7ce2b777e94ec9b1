package repository

import (
	"context"

	"accessportal/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LedgerRepository appends and reads the action ledger. Entries are
// immutable; there is deliberately no update or delete.
type LedgerRepository interface {
	Append(ctx context.Context, entry *model.ActionLog) error
	ListFor(ctx context.Context, applicationID uuid.UUID, page, limit int) ([]model.ActionLog, int64, error)
}

type ledgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) Append(ctx context.Context, entry *model.ActionLog) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *ledgerRepository) ListFor(ctx context.Context, applicationID uuid.UUID, page, limit int) ([]model.ActionLog, int64, error) {
	query := GetDB(ctx, r.db).Model(&model.ActionLog{}).Where("application_id = ?", applicationID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	var entries []model.ActionLog
	err := query.
		Preload("Actor").
		Order("created_at ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
