package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"carservice/internal/model"
	"carservice/internal/repository"
	"carservice/pkg/apperror"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DTOs for Request validation
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

type CreateUserRequest struct {
	Email          string     `json:"email" binding:"required,email"`
	Password       string     `json:"password" binding:"required,min=8"`
	FirstName      string     `json:"first_name" binding:"required"`
	LastName       string     `json:"last_name" binding:"required"`
	Phone          string     `json:"phone"`
	Specialization string     `json:"specialization"`
	Role           model.Role `json:"role" binding:"required,oneof=ADMIN STAFF CUSTOMER"`
}

type UpdateProfileRequest struct {
	Email          string  `json:"email" binding:"omitempty,email"`
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	Phone          string  `json:"phone"`
	Address        string  `json:"address"`
	Specialization *string `json:"specialization"`
}

type LoginUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type TokenResponse struct {
	Token        string     `json:"token"`
	RefreshToken string     `json:"refresh_token"`
	Role         model.Role `json:"role"`
	Redirect     string     `json:"redirect"`
}

// DTO for returning User without exposing sensitive data (e.g. password)
type UserResponse struct {
	ID             uuid.UUID  `json:"id"`
	Email          string     `json:"email"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	FullName       string     `json:"full_name"`
	Phone          string     `json:"phone"`
	Address        string     `json:"address"`
	Specialization string     `json:"specialization,omitempty"`
	Role           model.Role `json:"role"`
	CreatedAt      string     `json:"created_at"`
}

// TokenConfig controls JWT signing and token lifetimes
type TokenConfig struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// UserService defines the interface for business logic related to User
type UserService interface {
	Register(ctx context.Context, req RegisterRequest) (*UserResponse, error)
	CreateUser(ctx context.Context, principal Principal, req CreateUserRequest) (*UserResponse, error)
	Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error)
	RefreshToken(ctx context.Context, req RefreshTokenRequest) (*TokenResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	GetProfile(ctx context.Context, principal Principal) (*UserResponse, error)
	UpdateProfile(ctx context.Context, principal Principal, req UpdateProfileRequest) (*UserResponse, error)
	ListUsersByRole(ctx context.Context, principal Principal, role model.Role, page, limit int) ([]UserResponse, int64, error)
}

type userService struct {
	repo        repository.UserRepository
	refreshRepo repository.RefreshTokenRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	tokens      TokenConfig
	now         func() time.Time
}

// NewUserService returns a new instance of UserService
func NewUserService(
	repo repository.UserRepository,
	refreshRepo repository.RefreshTokenRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	tokens TokenConfig,
) UserService {
	return &userService{
		repo:        repo,
		refreshRepo: refreshRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		tokens:      tokens,
		now:         time.Now,
	}
}

// Helper: parse model to standard json API response
func mapToUserResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:             user.ID,
		Email:          user.Email,
		FirstName:      user.FirstName,
		LastName:       user.LastName,
		FullName:       user.FullName(),
		Phone:          user.Phone,
		Address:        user.Address,
		Specialization: user.Specialization,
		Role:           user.Role,
		CreatedAt:      user.CreatedAt.Format(time.RFC3339),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *userService) Register(ctx context.Context, req RegisterRequest) (*UserResponse, error) {
	user := &model.User{
		Email:     normalizeEmail(req.Email),
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Phone:     req.Phone,
		Address:   req.Address,
		Role:      model.RoleCustomer,
	}
	if err := s.createAccount(ctx, user, req.Password); err != nil {
		return nil, err
	}
	return mapToUserResponse(user), nil
}

func (s *userService) CreateUser(ctx context.Context, principal Principal, req CreateUserRequest) (*UserResponse, error) {
	if err := Authorize(principal, model.RoleAdmin); err != nil {
		return nil, err
	}
	if !req.Role.Valid() {
		return nil, apperror.Validationf("invalid role %q", req.Role)
	}

	user := &model.User{
		Email:     normalizeEmail(req.Email),
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Phone:     req.Phone,
		Role:      req.Role,
	}
	if req.Role != model.RoleCustomer {
		user.Specialization = req.Specialization
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.createAccount(txCtx, user, req.Password); err != nil {
			return err
		}
		return writeAuditLog(txCtx, s.auditRepo, principal.ID, model.ActionCreateUserAccount,
			user.ID.String(), user.Email, map[string]interface{}{"role": user.Role})
	})
	if err != nil {
		return nil, err
	}
	return mapToUserResponse(user), nil
}

func (s *userService) createAccount(ctx context.Context, user *model.User, password string) error {
	if _, err := s.repo.GetByEmail(ctx, user.Email); err == nil {
		return apperror.Validation("email already registered")
	} else if !isNotFound(err) {
		return fmt.Errorf("failed to check email: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = string(hashedPassword)

	if err := s.repo.Create(ctx, user); err != nil {
		if isDuplicate(err) {
			return apperror.Validation("email already registered")
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *userService) Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error) {
	user, err := s.repo.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if isNotFound(err) {
			return nil, apperror.Validation("invalid email or password")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, apperror.Validation("invalid email or password")
	}

	return s.issueTokens(ctx, user)
}

// RefreshToken rotates a stored refresh token: the old one is deleted, a new pair is issued
func (s *userService) RefreshToken(ctx context.Context, req RefreshTokenRequest) (*TokenResponse, error) {
	var res *TokenResponse
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		stored, err := s.refreshRepo.GetValid(txCtx, req.RefreshToken, s.now())
		if err != nil {
			if isNotFound(err) {
				return apperror.Validation("invalid or expired refresh token")
			}
			return fmt.Errorf("failed to load refresh token: %w", err)
		}
		if err := s.refreshRepo.Delete(txCtx, stored.Token); err != nil {
			return fmt.Errorf("failed to revoke refresh token: %w", err)
		}
		res, err = s.issueTokens(txCtx, &stored.User)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *userService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.refreshRepo.Delete(ctx, refreshToken); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

func (s *userService) issueTokens(ctx context.Context, user *model.User) (*TokenResponse, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  user.ID.String(),
		"role": string(user.Role),
		"iat":  now.Unix(),
		"exp":  now.Add(s.tokens.AccessTTL).Unix(),
	})
	tokenString, err := token.SignedString(s.tokens.Secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	refresh := &model.RefreshToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: now.Add(s.tokens.RefreshTTL),
	}
	if err := s.refreshRepo.Create(ctx, refresh); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &TokenResponse{
		Token:        tokenString,
		RefreshToken: refresh.Token,
		Role:         user.Role,
		Redirect:     LandingPath(user.Role),
	}, nil
}

func (s *userService) GetProfile(ctx context.Context, principal Principal) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, principal.ID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperror.NotFound("user not found")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return mapToUserResponse(user), nil
}

// UpdateProfile edits contact details. The role is never changed here.
func (s *userService) UpdateProfile(ctx context.Context, principal Principal, req UpdateProfileRequest) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, principal.ID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperror.NotFound("user not found")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if email := normalizeEmail(req.Email); email != "" && email != user.Email {
		existing, err := s.repo.GetByEmail(ctx, email)
		if err == nil && existing.ID != user.ID {
			return nil, apperror.Validation("email already registered")
		}
		if err != nil && !isNotFound(err) {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
		user.Email = email
	}
	if req.FirstName != "" {
		user.FirstName = strings.TrimSpace(req.FirstName)
	}
	if req.LastName != "" {
		user.LastName = strings.TrimSpace(req.LastName)
	}
	if req.Phone != "" {
		user.Phone = req.Phone
	}
	if req.Address != "" {
		user.Address = req.Address
	}
	if req.Specialization != nil {
		if user.Role == model.RoleCustomer {
			return nil, apperror.Validation("specialization applies to staff accounts only")
		}
		user.Specialization = *req.Specialization
	}

	if err := s.repo.Update(ctx, user); err != nil {
		if isDuplicate(err) {
			return nil, apperror.Validation("email already registered")
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return mapToUserResponse(user), nil
}

func (s *userService) ListUsersByRole(ctx context.Context, principal Principal, role model.Role, page, limit int) ([]UserResponse, int64, error) {
	if err := Authorize(principal, model.RoleAdmin); err != nil {
		return nil, 0, err
	}
	if !role.Valid() {
		return nil, 0, apperror.Validationf("invalid role %q", role)
	}
	page, limit = normalizePage(page, limit)

	users, total, err := s.repo.ListByRole(ctx, role, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	res := make([]UserResponse, 0, len(users))
	for i := range users {
		res = append(res, *mapToUserResponse(&users[i]))
	}
	return res, total, nil
}
