package service

import (
	"context"
	"testing"

	"carservice/internal/model"
	"carservice/pkg/apperror"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func register(t *testing.T, h *harness, email string) *UserResponse {
	t.Helper()
	res, err := h.users.Register(context.Background(), RegisterRequest{
		Email: email, Password: "s3cret-pass", FirstName: "Jane", LastName: "Doe",
	})
	require.NoError(t, err)
	return res
}

func TestRegister(t *testing.T) {
	h := newHarness(t)

	res := register(t, h, "  Jane@Example.com ")
	assert.Equal(t, "jane@example.com", res.Email)
	assert.Equal(t, model.RoleCustomer, res.Role)
	assert.Equal(t, "Jane Doe", res.FullName)

	stored, err := fakeUserRepo{h.store}.GetByID(context.Background(), res.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", stored.Password)

	_, err = h.users.Register(context.Background(), RegisterRequest{Email: "JANE@example.com", Password: "another-pass"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestLogin(t *testing.T) {
	h := newHarness(t)
	user := register(t, h, "jane@example.com")

	res, err := h.users.Login(context.Background(), LoginUserRequest{Email: "Jane@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleCustomer, res.Role)
	assert.Equal(t, LandingPath(model.RoleCustomer), res.Redirect)
	assert.NotEmpty(t, res.RefreshToken)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(res.Token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims["sub"])
	assert.Equal(t, "CUSTOMER", claims["role"])

	for _, req := range []LoginUserRequest{
		{Email: "jane@example.com", Password: "wrong"},
		{Email: "nobody@example.com", Password: "s3cret-pass"},
	} {
		_, err := h.users.Login(context.Background(), req)
		assert.True(t, apperror.Is(err, apperror.KindValidation))
	}
}

func TestRefreshTokenRotates(t *testing.T) {
	h := newHarness(t)
	register(t, h, "jane@example.com")
	ctx := context.Background()

	first, err := h.users.Login(ctx, LoginUserRequest{Email: "jane@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)

	second, err := h.users.RefreshToken(ctx, RefreshTokenRequest{RefreshToken: first.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = h.users.RefreshToken(ctx, RefreshTokenRequest{RefreshToken: first.RefreshToken})
	assert.True(t, apperror.Is(err, apperror.KindValidation), "old token is single use")

	require.NoError(t, h.users.Logout(ctx, second.RefreshToken))
	_, err = h.users.RefreshToken(ctx, RefreshTokenRequest{RefreshToken: second.RefreshToken})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestCreateUser(t *testing.T) {
	h := newHarness(t)
	admin := h.store.addUser(model.RoleAdmin, "boss@icars.com", "Ada", "Admin")
	ctx := context.Background()

	staff, err := h.users.CreateUser(ctx, principalOf(admin), CreateUserRequest{
		Email: "mech@icars.com", Password: "s3cret-pass", FirstName: "Max", LastName: "Mech",
		Role: model.RoleStaff, Specialization: "Engine Repair",
	})
	require.NoError(t, err)
	assert.Equal(t, model.RoleStaff, staff.Role)
	assert.Equal(t, "Engine Repair", staff.Specialization)

	customer, err := h.users.CreateUser(ctx, principalOf(admin), CreateUserRequest{
		Email: "cust@example.com", Password: "s3cret-pass", Role: model.RoleCustomer, Specialization: "ignored",
	})
	require.NoError(t, err)
	assert.Empty(t, customer.Specialization)

	assert.Equal(t, []string{model.ActionCreateUserAccount, model.ActionCreateUserAccount}, h.store.auditActions())

	_, err = h.users.CreateUser(ctx, principalOf(admin), CreateUserRequest{Email: "x@example.com", Password: "s3cret-pass", Role: "ROOT"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestCreateUser_RejectsNonAdmin(t *testing.T) {
	h := newHarness(t)
	staff := h.store.addUser(model.RoleStaff, "alice@icars.com", "Alice", "Anders")

	_, err := h.users.CreateUser(context.Background(), principalOf(staff), CreateUserRequest{
		Email: "x@example.com", Password: "s3cret-pass", Role: model.RoleAdmin,
	})
	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.KindAuthorization, appErr.Kind)
	assert.Equal(t, LandingPath(model.RoleStaff), appErr.Redirect)
	assert.Empty(t, h.store.auditActions())
}

func TestUpdateProfile(t *testing.T) {
	h := newHarness(t)
	customer := h.store.addUser(model.RoleCustomer, "jane@example.com", "Jane", "Doe")
	staff := h.store.addUser(model.RoleStaff, "alice@icars.com", "Alice", "Anders")
	ctx := context.Background()

	res, err := h.users.UpdateProfile(ctx, principalOf(customer), UpdateProfileRequest{Phone: "555-0100", Address: "1 Main St"})
	require.NoError(t, err)
	assert.Equal(t, "555-0100", res.Phone)
	assert.Equal(t, model.RoleCustomer, res.Role)

	_, err = h.users.UpdateProfile(ctx, principalOf(customer), UpdateProfileRequest{Email: "alice@icars.com"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	specialty := "Brakes"
	_, err = h.users.UpdateProfile(ctx, principalOf(customer), UpdateProfileRequest{Specialization: &specialty})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	res, err = h.users.UpdateProfile(ctx, principalOf(staff), UpdateProfileRequest{Specialization: &specialty})
	require.NoError(t, err)
	assert.Equal(t, "Brakes", res.Specialization)
}

func TestListUsersByRole(t *testing.T) {
	h := newHarness(t)
	admin := h.store.addUser(model.RoleAdmin, "boss@icars.com", "Ada", "Admin")
	h.store.addUser(model.RoleStaff, "alice@icars.com", "Alice", "Anders")
	h.store.addUser(model.RoleStaff, "bob@icars.com", "Bob", "Brown")
	h.store.addUser(model.RoleCustomer, "jane@example.com", "Jane", "Doe")
	ctx := context.Background()

	users, total, err := h.users.ListUsersByRole(ctx, principalOf(admin), model.RoleStaff, 1, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, users, 1)
	assert.Equal(t, "alice@icars.com", users[0].Email)

	_, _, err = h.users.ListUsersByRole(ctx, principalOf(admin), "ROOT", 1, 10)
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, _, err = h.users.ListUsersByRole(ctx, Principal{ID: admin.ID, Role: model.RoleCustomer}, model.RoleStaff, 1, 10)
	assert.True(t, apperror.Is(err, apperror.KindAuthorization))
}
