package repository

import (
	"context"

	"carservice/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VehicleRepository interface {
	Create(ctx context.Context, vehicle *model.Vehicle) error
	Update(ctx context.Context, vehicle *model.Vehicle) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Vehicle, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Vehicle, error)
	// ExistsByVIN and ExistsByLicensePlate ignore the vehicle with excludeID (uuid.Nil for none)
	ExistsByVIN(ctx context.Context, vin string, excludeID uuid.UUID) (bool, error)
	ExistsByLicensePlate(ctx context.Context, plate string, excludeID uuid.UUID) (bool, error)
	Count(ctx context.Context) (int64, error)
	CountByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error)
}

type vehicleRepository struct {
	db *gorm.DB
}

func NewVehicleRepository(db *gorm.DB) VehicleRepository {
	return &vehicleRepository{db: db}
}

func (r *vehicleRepository) Create(ctx context.Context, vehicle *model.Vehicle) error {
	return GetDB(ctx, r.db).Create(vehicle).Error
}

func (r *vehicleRepository) Update(ctx context.Context, vehicle *model.Vehicle) error {
	return GetDB(ctx, r.db).Save(vehicle).Error
}

func (r *vehicleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Vehicle, error) {
	var vehicle model.Vehicle
	if err := GetDB(ctx, r.db).First(&vehicle, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &vehicle, nil
}

func (r *vehicleRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Vehicle, error) {
	var vehicles []model.Vehicle
	if err := GetDB(ctx, r.db).Where("owner_id = ?", ownerID).Order("created_at DESC").Find(&vehicles).Error; err != nil {
		return nil, err
	}
	return vehicles, nil
}

func (r *vehicleRepository) ExistsByVIN(ctx context.Context, vin string, excludeID uuid.UUID) (bool, error) {
	return r.exists(ctx, "vin = ?", vin, excludeID)
}

func (r *vehicleRepository) ExistsByLicensePlate(ctx context.Context, plate string, excludeID uuid.UUID) (bool, error) {
	return r.exists(ctx, "license_plate = ?", plate, excludeID)
}

func (r *vehicleRepository) exists(ctx context.Context, cond string, value string, excludeID uuid.UUID) (bool, error) {
	var count int64
	db := GetDB(ctx, r.db).Model(&model.Vehicle{}).Where(cond, value)
	if excludeID != uuid.Nil {
		db = db.Where("id <> ?", excludeID)
	}
	if err := db.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *vehicleRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := GetDB(ctx, r.db).Model(&model.Vehicle{}).Count(&total).Error
	return total, err
}

func (r *vehicleRepository) CountByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	var total int64
	err := GetDB(ctx, r.db).Model(&model.Vehicle{}).Where("owner_id = ?", ownerID).Count(&total).Error
	return total, err
}
