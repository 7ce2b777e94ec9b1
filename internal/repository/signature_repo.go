package repository

import (
	"context"

	"accessportal/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SignatureRepository stores per-role signatures. Saving twice for the same
// (application, role) replaces the image and timestamp.
type SignatureRepository interface {
	Upsert(ctx context.Context, sig *model.Signature) error
	For(ctx context.Context, applicationID uuid.UUID) ([]model.Signature, error)
}

type signatureRepository struct {
	db *gorm.DB
}

func NewSignatureRepository(db *gorm.DB) SignatureRepository {
	return &signatureRepository{db: db}
}

func (r *signatureRepository) Upsert(ctx context.Context, sig *model.Signature) error {
	return GetDB(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "application_id"}, {Name: "role"}},
			DoUpdates: clause.AssignmentColumns([]string{"image_data", "signed_at"}),
		}).
		Create(sig).Error
}

func (r *signatureRepository) For(ctx context.Context, applicationID uuid.UUID) ([]model.Signature, error) {
	var sigs []model.Signature
	err := GetDB(ctx, r.db).
		Where("application_id = ?", applicationID).
		Order("role ASC").
		Find(&sigs).Error
	if err != nil {
		return nil, err
	}
	return sigs, nil
}
