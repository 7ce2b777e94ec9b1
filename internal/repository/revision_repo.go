package repository

import (
	"context"

	"accessportal/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RevisionRepository defines data access for revision cycles and their
// per-section flags.
type RevisionRepository interface {
	Create(ctx context.Context, rev *model.RevisionRequest) error
	// Active returns the unresolved cycle for the application, or
	// gorm.ErrRecordNotFound when none is open.
	Active(ctx context.Context, applicationID uuid.UUID) (*model.RevisionRequest, error)
	// Latest returns the most recent cycle regardless of resolution, for
	// read-only display outside revision states.
	Latest(ctx context.Context, applicationID uuid.UUID) (*model.RevisionRequest, error)
	ListFor(ctx context.Context, applicationID uuid.UUID) ([]model.RevisionRequest, error)
	// UpsertSection writes one section's flag/notes, idempotently.
	UpsertSection(ctx context.Context, section *model.RevisionSection) error
	Resolve(ctx context.Context, revisionID uuid.UUID) error
}

type revisionRepository struct {
	db *gorm.DB
}

func NewRevisionRepository(db *gorm.DB) RevisionRepository {
	return &revisionRepository{db: db}
}

func (r *revisionRepository) Create(ctx context.Context, rev *model.RevisionRequest) error {
	return GetDB(ctx, r.db).Create(rev).Error
}

func (r *revisionRepository) Active(ctx context.Context, applicationID uuid.UUID) (*model.RevisionRequest, error) {
	var rev model.RevisionRequest
	err := GetDB(ctx, r.db).
		Preload("Sections").
		Where("application_id = ? AND resolved = false", applicationID).
		Order("created_at DESC").
		First(&rev).Error
	if err != nil {
		return nil, err
	}
	return &rev, nil
}

func (r *revisionRepository) Latest(ctx context.Context, applicationID uuid.UUID) (*model.RevisionRequest, error) {
	var rev model.RevisionRequest
	err := GetDB(ctx, r.db).
		Preload("Sections").
		Where("application_id = ?", applicationID).
		Order("created_at DESC").
		First(&rev).Error
	if err != nil {
		return nil, err
	}
	return &rev, nil
}

func (r *revisionRepository) ListFor(ctx context.Context, applicationID uuid.UUID) ([]model.RevisionRequest, error) {
	var revs []model.RevisionRequest
	err := GetDB(ctx, r.db).
		Preload("Sections").
		Where("application_id = ?", applicationID).
		Order("created_at DESC").
		Find(&revs).Error
	if err != nil {
		return nil, err
	}
	return revs, nil
}

func (r *revisionRepository) UpsertSection(ctx context.Context, section *model.RevisionSection) error {
	return GetDB(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "revision_request_id"}, {Name: "section"}},
			DoUpdates: clause.AssignmentColumns([]string{"approved", "notes", "updated_at"}),
		}).
		Create(section).Error
}

func (r *revisionRepository) Resolve(ctx context.Context, revisionID uuid.UUID) error {
	return GetDB(ctx, r.db).
		Model(&model.RevisionRequest{}).
		Where("id = ?", revisionID).
		Update("resolved", true).Error
}
