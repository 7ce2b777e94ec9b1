package repository

import (
	"context"

	"accessportal/internal/model"
	"accessportal/internal/workflow"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ApplicationFilter narrows application listings.
type ApplicationFilter struct {
	State  workflow.State // empty for all
	UserID *uuid.UUID     // restrict to one applicant
	DACID  string         // empty for all
	Page   int
	Limit  int
}

// ApplicationRepository defines data access for applications. All methods
// participate in an ambient transaction when called inside
// TransactionManager.RunInTx.
type ApplicationRepository interface {
	Create(ctx context.Context, app *model.Application) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Application, error)
	// GetForUpdate locks the application row until the surrounding
	// transaction commits, serializing concurrent transition attempts.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Application, error)
	Save(ctx context.Context, app *model.Application) error
	List(ctx context.Context, filter ApplicationFilter) ([]model.Application, int64, error)
}

type applicationRepository struct {
	db *gorm.DB
}

func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

func (r *applicationRepository) Create(ctx context.Context, app *model.Application) error {
	return GetDB(ctx, r.db).Create(app).Error
}

func (r *applicationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Application, error) {
	var app model.Application
	if err := GetDB(ctx, r.db).Preload("User").First(&app, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *applicationRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Application, error) {
	var app model.Application
	err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&app, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *applicationRepository) Save(ctx context.Context, app *model.Application) error {
	return GetDB(ctx, r.db).Save(app).Error
}

func (r *applicationRepository) List(ctx context.Context, filter ApplicationFilter) ([]model.Application, int64, error) {
	query := GetDB(ctx, r.db).Model(&model.Application{})
	if filter.State != "" {
		query = query.Where("state = ?", filter.State)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.DACID != "" {
		query = query.Where("dac_id = ?", filter.DACID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	var apps []model.Application
	err := query.
		Preload("User").
		Order("updated_at DESC").
		Offset((filter.Page - 1) * filter.Limit).
		Limit(filter.Limit).
		Find(&apps).Error
	if err != nil {
		return nil, 0, err
	}

	return apps, total, nil
}
