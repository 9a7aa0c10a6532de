package repository

import (
	"context"

	"carservice/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CatalogRepository persists the service catalog
type CatalogRepository interface {
	Create(ctx context.Context, svc *model.Service) error
	Update(ctx context.Context, svc *model.Service) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Service, error)
	ExistsByName(ctx context.Context, name string, excludeID uuid.UUID) (bool, error)
	List(ctx context.Context) ([]model.Service, error)
	Count(ctx context.Context) (int64, error)
	IsReferenced(ctx context.Context, id uuid.UUID) (bool, error)
}

type catalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) Create(ctx context.Context, svc *model.Service) error {
	return GetDB(ctx, r.db).Create(svc).Error
}

func (r *catalogRepository) Update(ctx context.Context, svc *model.Service) error {
	return GetDB(ctx, r.db).Save(svc).Error
}

func (r *catalogRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Service{}).Error
}

func (r *catalogRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Service, error) {
	var svc model.Service
	if err := GetDB(ctx, r.db).First(&svc, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &svc, nil
}

func (r *catalogRepository) ExistsByName(ctx context.Context, name string, excludeID uuid.UUID) (bool, error) {
	var count int64
	db := GetDB(ctx, r.db).Model(&model.Service{}).Where("LOWER(name) = LOWER(?)", name)
	if excludeID != uuid.Nil {
		db = db.Where("id <> ?", excludeID)
	}
	if err := db.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *catalogRepository) List(ctx context.Context) ([]model.Service, error) {
	var services []model.Service
	if err := GetDB(ctx, r.db).Order("name").Find(&services).Error; err != nil {
		return nil, err
	}
	return services, nil
}

func (r *catalogRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := GetDB(ctx, r.db).Model(&model.Service{}).Count(&total).Error
	return total, err
}

func (r *catalogRepository) IsReferenced(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.Booking{}).Where("service_id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
