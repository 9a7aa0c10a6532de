package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"carservice/internal/model"
	"carservice/internal/repository"
	"carservice/pkg/apperror"

	"github.com/google/uuid"
)

// FirstModelYear is the earliest accepted vehicle year
const FirstModelYear = 1886

// vinPattern matches an upper-cased VIN: exactly 17 ASCII letters or digits
var vinPattern = regexp.MustCompile(fmt.Sprintf(`^[A-Z0-9]{%d}$`, model.VINLength))

type VehicleRequest struct {
	Make         string `json:"make" binding:"required"`
	Model        string `json:"model" binding:"required"`
	Year         int    `json:"year" binding:"required"`
	LicensePlate string `json:"license_plate" binding:"required"`
	VIN          string `json:"vin" binding:"required"`
}

type VehicleService interface {
	CreateVehicle(ctx context.Context, principal Principal, req VehicleRequest) (*model.Vehicle, error)
	UpdateVehicle(ctx context.Context, principal Principal, id uuid.UUID, req VehicleRequest) (*model.Vehicle, error)
	ListVehicles(ctx context.Context, principal Principal) ([]model.Vehicle, error)
}

type vehicleService struct {
	repo repository.VehicleRepository
	now  func() time.Time
}

func NewVehicleService(repo repository.VehicleRepository) VehicleService {
	return &vehicleService{repo: repo, now: time.Now}
}

func (s *vehicleService) CreateVehicle(ctx context.Context, principal Principal, req VehicleRequest) (*model.Vehicle, error) {
	if err := Authorize(principal, model.RoleCustomer); err != nil {
		return nil, err
	}

	vehicle := &model.Vehicle{OwnerID: principal.ID}
	if err := s.apply(ctx, vehicle, req); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, vehicle); err != nil {
		if isDuplicate(err) {
			return nil, apperror.Validation("a vehicle with this VIN or license plate already exists")
		}
		return nil, fmt.Errorf("failed to create vehicle: %w", err)
	}
	return vehicle, nil
}

// UpdateVehicle edits a vehicle owned by the principal. Vehicles of other owners are reported as missing.
func (s *vehicleService) UpdateVehicle(ctx context.Context, principal Principal, id uuid.UUID, req VehicleRequest) (*model.Vehicle, error) {
	if err := Authorize(principal, model.RoleCustomer); err != nil {
		return nil, err
	}

	vehicle, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, apperror.NotFound("vehicle not found")
		}
		return nil, fmt.Errorf("failed to load vehicle: %w", err)
	}
	if vehicle.OwnerID != principal.ID {
		return nil, apperror.NotFound("vehicle not found")
	}

	if err := s.apply(ctx, vehicle, req); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, vehicle); err != nil {
		if isDuplicate(err) {
			return nil, apperror.Validation("a vehicle with this VIN or license plate already exists")
		}
		return nil, fmt.Errorf("failed to update vehicle: %w", err)
	}
	return vehicle, nil
}

func (s *vehicleService) ListVehicles(ctx context.Context, principal Principal) ([]model.Vehicle, error) {
	if err := Authorize(principal, model.RoleCustomer); err != nil {
		return nil, err
	}
	vehicles, err := s.repo.ListByOwner(ctx, principal.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}
	return vehicles, nil
}

// apply validates req and copies it onto vehicle. Nothing is written.
func (s *vehicleService) apply(ctx context.Context, vehicle *model.Vehicle, req VehicleRequest) error {
	vin := strings.ToUpper(strings.TrimSpace(req.VIN))
	if !vinPattern.MatchString(vin) {
		return apperror.Validationf("VIN must be exactly %d letters or digits", model.VINLength)
	}
	plate := strings.ToUpper(strings.TrimSpace(req.LicensePlate))
	if plate == "" || len(plate) > 20 {
		return apperror.Validation("license plate must be 1 to 20 characters")
	}
	if maxYear := s.now().Year() + 1; req.Year < FirstModelYear || req.Year > maxYear {
		return apperror.Validationf("year must be between %d and %d", FirstModelYear, maxYear)
	}

	taken, err := s.repo.ExistsByVIN(ctx, vin, vehicle.ID)
	if err != nil {
		return fmt.Errorf("failed to check VIN: %w", err)
	}
	if taken {
		return apperror.Validation("a vehicle with this VIN already exists")
	}
	taken, err = s.repo.ExistsByLicensePlate(ctx, plate, vehicle.ID)
	if err != nil {
		return fmt.Errorf("failed to check license plate: %w", err)
	}
	if taken {
		return apperror.Validation("a vehicle with this license plate already exists")
	}

	vehicle.Make = strings.TrimSpace(req.Make)
	vehicle.Model = strings.TrimSpace(req.Model)
	vehicle.Year = req.Year
	vehicle.LicensePlate = plate
	vehicle.VIN = vin
	return nil
}
