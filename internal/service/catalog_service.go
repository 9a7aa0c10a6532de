package service

import (
	"context"
	"fmt"
	"strings"

	"carservice/internal/model"
	"carservice/internal/repository"
	"carservice/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ServiceRequest struct {
	Name            string `json:"name" binding:"required"`
	Description     string `json:"description"`
	Price           string `json:"price" binding:"required"` // Decimal string, e.g. "49.99"
	DurationMinutes int    `json:"duration_minutes" binding:"required"`
}

type ServiceResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	Price           string `json:"price"`
	DurationMinutes int    `json:"duration_minutes"`
}

type CatalogService interface {
	ListServices(ctx context.Context, principal Principal) ([]ServiceResponse, error)
	GetService(ctx context.Context, principal Principal, id uuid.UUID) (*ServiceResponse, error)
	CreateService(ctx context.Context, principal Principal, req ServiceRequest) (*ServiceResponse, error)
	UpdateService(ctx context.Context, principal Principal, id uuid.UUID, req ServiceRequest) (*ServiceResponse, error)
	DeleteService(ctx context.Context, principal Principal, id uuid.UUID) error
}

type catalogService struct {
	repo      repository.CatalogRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
}

func NewCatalogService(repo repository.CatalogRepository, auditRepo repository.AuditRepository, txManager repository.TransactionManager) CatalogService {
	return &catalogService{repo: repo, auditRepo: auditRepo, txManager: txManager}
}

func toServiceResponse(svc *model.Service) ServiceResponse {
	return ServiceResponse{
		ID:              svc.ID.String(),
		Name:            svc.Name,
		Description:     svc.Description,
		Price:           svc.Price.StringFixed(2),
		DurationMinutes: svc.DurationMinutes,
	}
}

var allRoles = []model.Role{model.RoleAdmin, model.RoleStaff, model.RoleCustomer}

func (s *catalogService) ListServices(ctx context.Context, principal Principal) ([]ServiceResponse, error) {
	if err := Authorize(principal, allRoles...); err != nil {
		return nil, err
	}
	services, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	res := make([]ServiceResponse, 0, len(services))
	for i := range services {
		res = append(res, toServiceResponse(&services[i]))
	}
	return res, nil
}

func (s *catalogService) GetService(ctx context.Context, principal Principal, id uuid.UUID) (*ServiceResponse, error) {
	if err := Authorize(principal, allRoles...); err != nil {
		return nil, err
	}
	svc, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	res := toServiceResponse(svc)
	return &res, nil
}

func (s *catalogService) CreateService(ctx context.Context, principal Principal, req ServiceRequest) (*ServiceResponse, error) {
	if err := Authorize(principal, model.RoleAdmin); err != nil {
		return nil, err
	}

	svc := &model.Service{}
	if err := s.apply(ctx, svc, req); err != nil {
		return nil, err
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, svc); err != nil {
			if isDuplicate(err) {
				return apperror.Validation("a service with this name already exists")
			}
			return fmt.Errorf("failed to create service: %w", err)
		}
		return writeAuditLog(txCtx, s.auditRepo, principal.ID, model.ActionCreateService, svc.ID.String(), svc.Name, req)
	})
	if err != nil {
		return nil, err
	}

	res := toServiceResponse(svc)
	return &res, nil
}

func (s *catalogService) UpdateService(ctx context.Context, principal Principal, id uuid.UUID, req ServiceRequest) (*ServiceResponse, error) {
	if err := Authorize(principal, model.RoleAdmin); err != nil {
		return nil, err
	}

	svc, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, svc, req); err != nil {
		return nil, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Update(txCtx, svc); err != nil {
			if isDuplicate(err) {
				return apperror.Validation("a service with this name already exists")
			}
			return fmt.Errorf("failed to update service: %w", err)
		}
		return writeAuditLog(txCtx, s.auditRepo, principal.ID, model.ActionUpdateService, svc.ID.String(), svc.Name, req)
	})
	if err != nil {
		return nil, err
	}

	res := toServiceResponse(svc)
	return &res, nil
}

// DeleteService refuses to remove a service that any booking still references
func (s *catalogService) DeleteService(ctx context.Context, principal Principal, id uuid.UUID) error {
	if err := Authorize(principal, model.RoleAdmin); err != nil {
		return err
	}

	svc, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		referenced, err := s.repo.IsReferenced(txCtx, id)
		if err != nil {
			return fmt.Errorf("failed to check bookings: %w", err)
		}
		if referenced {
			return apperror.Conflict("service is referenced by existing bookings")
		}
		if err := s.repo.Delete(txCtx, id); err != nil {
			return fmt.Errorf("failed to delete service: %w", err)
		}
		return writeAuditLog(txCtx, s.auditRepo, principal.ID, model.ActionDeleteService, svc.ID.String(), svc.Name,
			map[string]string{"deleted_id": id.String()})
	})
}

func (s *catalogService) find(ctx context.Context, id uuid.UUID) (*model.Service, error) {
	svc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, apperror.NotFound("service not found")
		}
		return nil, fmt.Errorf("failed to load service: %w", err)
	}
	return svc, nil
}

func (s *catalogService) apply(ctx context.Context, svc *model.Service, req ServiceRequest) error {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return apperror.Validation("service name is required")
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		return apperror.Validationf("invalid price %q", req.Price)
	}
	if price.IsNegative() {
		return apperror.Validation("price must not be negative")
	}
	if req.DurationMinutes <= 0 {
		return apperror.Validation("duration must be a positive number of minutes")
	}

	taken, err := s.repo.ExistsByName(ctx, name, svc.ID)
	if err != nil {
		return fmt.Errorf("failed to check service name: %w", err)
	}
	if taken {
		return apperror.Validation("a service with this name already exists")
	}

	svc.Name = name
	svc.Description = req.Description
	svc.Price = price.Round(2)
	svc.DurationMinutes = req.DurationMinutes
	return nil
}
