package service

import (
	"carservice/internal/model"
	"carservice/pkg/apperror"

	"github.com/google/uuid"
)

// Principal is the authenticated actor behind a service call
type Principal struct {
	ID   uuid.UUID
	Role model.Role
}

var landingPaths = map[model.Role]string{
	model.RoleAdmin:    "/api/admin/dashboard",
	model.RoleStaff:    "/api/staff/dashboard",
	model.RoleCustomer: "/api/customer/dashboard",
}

// LandingPath is the home page of a role. Unknown roles land on the login endpoint.
func LandingPath(role model.Role) string {
	if path, ok := landingPaths[role]; ok {
		return path
	}
	return "/api/auth/login"
}

// Authorize returns an authorization error unless p holds one of roles
func Authorize(p Principal, roles ...model.Role) error {
	if p.ID == uuid.Nil {
		return apperror.Forbidden("authentication required", LandingPath(""))
	}
	for _, role := range roles {
		if p.Role == role {
			return nil
		}
	}
	return apperror.Forbidden("access denied for role "+string(p.Role), LandingPath(p.Role))
}
