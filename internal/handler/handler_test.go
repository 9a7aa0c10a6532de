package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"carservice/internal/middleware"
	"carservice/internal/model"
	"carservice/internal/service"
	"carservice/pkg/apperror"
	"carservice/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var secret = []byte("handler-secret")

func init() {
	gin.SetMode(gin.TestMode)
	zap.ReplaceGlobals(zap.NewNop())
	middleware.InitAuth(middleware.AuthConfig{Secret: secret, AccessTTL: time.Hour, RefreshTTL: 24 * time.Hour})
}

func bearer(t *testing.T, p service.Principal) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  p.ID.String(),
		"role": string(p.Role),
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString(secret)
	require.NoError(t, err)
	return "Bearer " + s
}

func do(t *testing.T, r *gin.Engine, method, path, auth string, body interface{}) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var res response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res), w.Body.String())
	return w, res
}

// --- mocks ---

type mockUserService struct{ mock.Mock }

func (m *mockUserService) Register(ctx context.Context, req service.RegisterRequest) (*service.UserResponse, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*service.UserResponse)
	return res, args.Error(1)
}

func (m *mockUserService) CreateUser(ctx context.Context, p service.Principal, req service.CreateUserRequest) (*service.UserResponse, error) {
	args := m.Called(ctx, p, req)
	res, _ := args.Get(0).(*service.UserResponse)
	return res, args.Error(1)
}

func (m *mockUserService) Login(ctx context.Context, req service.LoginUserRequest) (*service.TokenResponse, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*service.TokenResponse)
	return res, args.Error(1)
}

func (m *mockUserService) RefreshToken(ctx context.Context, req service.RefreshTokenRequest) (*service.TokenResponse, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*service.TokenResponse)
	return res, args.Error(1)
}

func (m *mockUserService) Logout(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *mockUserService) GetProfile(ctx context.Context, p service.Principal) (*service.UserResponse, error) {
	args := m.Called(ctx, p)
	res, _ := args.Get(0).(*service.UserResponse)
	return res, args.Error(1)
}

func (m *mockUserService) UpdateProfile(ctx context.Context, p service.Principal, req service.UpdateProfileRequest) (*service.UserResponse, error) {
	args := m.Called(ctx, p, req)
	res, _ := args.Get(0).(*service.UserResponse)
	return res, args.Error(1)
}

func (m *mockUserService) ListUsersByRole(ctx context.Context, p service.Principal, role model.Role, page, limit int) ([]service.UserResponse, int64, error) {
	args := m.Called(ctx, p, role, page, limit)
	res, _ := args.Get(0).([]service.UserResponse)
	return res, args.Get(1).(int64), args.Error(2)
}

type mockBookingService struct{ mock.Mock }

func (m *mockBookingService) booking(args mock.Arguments) (*model.Booking, error) {
	b, _ := args.Get(0).(*model.Booking)
	return b, args.Error(1)
}

func (m *mockBookingService) list(args mock.Arguments) ([]model.Booking, int64, error) {
	b, _ := args.Get(0).([]model.Booking)
	return b, args.Get(1).(int64), args.Error(2)
}

func (m *mockBookingService) CreateBooking(ctx context.Context, p service.Principal, req service.BookingRequest) (*model.Booking, error) {
	return m.booking(m.Called(ctx, p, req))
}

func (m *mockBookingService) UpdateBooking(ctx context.Context, p service.Principal, id uuid.UUID, req service.BookingRequest) (*model.Booking, error) {
	return m.booking(m.Called(ctx, p, id, req))
}

func (m *mockBookingService) GetBooking(ctx context.Context, p service.Principal, id uuid.UUID) (*model.Booking, error) {
	return m.booking(m.Called(ctx, p, id))
}

func (m *mockBookingService) ListBookings(ctx context.Context, p service.Principal, f service.BookingListFilter) ([]model.Booking, int64, error) {
	return m.list(m.Called(ctx, p, f))
}

func (m *mockBookingService) ListAllBookings(ctx context.Context, p service.Principal, f service.BookingListFilter) ([]model.Booking, int64, error) {
	return m.list(m.Called(ctx, p, f))
}

func (m *mockBookingService) ListStaffBookings(ctx context.Context, p service.Principal, f service.BookingListFilter) ([]model.Booking, int64, error) {
	return m.list(m.Called(ctx, p, f))
}

func (m *mockBookingService) UpdateBookingStatus(ctx context.Context, p service.Principal, id uuid.UUID, req service.UpdateStatusRequest) (*model.Booking, error) {
	return m.booking(m.Called(ctx, p, id, req))
}

func (m *mockBookingService) AssignStaff(ctx context.Context, p service.Principal, id uuid.UUID, req service.AssignStaffRequest) (*model.Booking, error) {
	return m.booking(m.Called(ctx, p, id, req))
}

type mockFeedbackService struct{ mock.Mock }

func (m *mockFeedbackService) SubmitFeedback(ctx context.Context, p service.Principal, id uuid.UUID, req service.FeedbackRequest) (*model.Feedback, error) {
	args := m.Called(ctx, p, id, req)
	f, _ := args.Get(0).(*model.Feedback)
	return f, args.Error(1)
}

type mockAnalyticsService struct{ mock.Mock }

func (m *mockAnalyticsService) GenerateMonthlyReport(ctx context.Context, p service.Principal, month time.Time) (*service.MonthlyReport, error) {
	args := m.Called(ctx, p, month)
	r, _ := args.Get(0).(*service.MonthlyReport)
	return r, args.Error(1)
}

func (m *mockAnalyticsService) GetAnalyticsDashboard(ctx context.Context, p service.Principal) (*model.AnalyticsDashboard, error) {
	args := m.Called(ctx, p)
	d, _ := args.Get(0).(*model.AnalyticsDashboard)
	return d, args.Error(1)
}

// --- tests ---

func TestRespondError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		message  string
		redirect string
	}{
		{"validation", apperror.Validation("bad vin"), http.StatusBadRequest, "bad vin", ""},
		{"forbidden", apperror.Forbidden("access denied", "/api/staff/dashboard"), http.StatusForbidden, "access denied", "/api/staff/dashboard"},
		{"not found", apperror.NotFound("booking not found"), http.StatusNotFound, "booking not found", ""},
		{"conflict", apperror.Conflict("already rated"), http.StatusConflict, "already rated", ""},
		{"wrapped", errors.Join(errors.New("ctx"), apperror.Conflict("already rated")), http.StatusConflict, "already rated", ""},
		{"internal", errors.New("pq: connection refused"), http.StatusInternalServerError, "Internal server error", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/", func(c *gin.Context) { respondError(c, tt.err) })
			w, res := do(t, r, http.MethodGet, "/", "", nil)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.message, res.Error)
			assert.Equal(t, tt.redirect, res.Redirect)
		})
	}
}

func userRouter(svc service.UserService) *gin.Engine {
	r := gin.New()
	NewUserHandler(svc, nil).RegisterRoutes(r.Group("/api"))
	return r
}

func TestLogin(t *testing.T) {
	svc := &mockUserService{}
	good := service.LoginUserRequest{Email: "jane@example.com", Password: "s3cret-pass"}
	bad := service.LoginUserRequest{Email: "jane@example.com", Password: "nope"}
	svc.On("Login", mock.Anything, good).Return(&service.TokenResponse{
		Token: "access", RefreshToken: "refresh", Role: model.RoleCustomer, Redirect: "/api/customer/dashboard",
	}, nil)
	svc.On("Login", mock.Anything, bad).Return(nil, apperror.Validation("invalid email or password"))
	r := userRouter(svc)

	w, res := do(t, r, http.MethodPost, "/api/auth/login", "", good)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/api/customer/dashboard", res.Data.(map[string]interface{})["redirect"])
	names := map[string]string{}
	for _, ck := range w.Result().Cookies() {
		names[ck.Name] = ck.Value
	}
	assert.Equal(t, "access", names["access_token"])
	assert.Equal(t, "refresh", names["refresh_token"])

	w, res = do(t, r, http.MethodPost, "/api/auth/login", "", bad)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid email or password", res.Error)

	w, _ = do(t, r, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHome(t *testing.T) {
	r := userRouter(&mockUserService{})
	staff := service.Principal{ID: uuid.New(), Role: model.RoleStaff}

	w, res := do(t, r, http.MethodGet, "/api/home", bearer(t, staff), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/api/staff/dashboard", res.Data.(map[string]interface{})["redirect"])

	w, _ = do(t, r, http.MethodGet, "/api/home", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminRoutesRedirectOtherRoles(t *testing.T) {
	r := userRouter(&mockUserService{})
	customer := service.Principal{ID: uuid.New(), Role: model.RoleCustomer}

	w, res := do(t, r, http.MethodGet, "/api/admin/staff", bearer(t, customer), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "/api/customer/dashboard", res.Redirect)
}

func TestListStaff(t *testing.T) {
	svc := &mockUserService{}
	admin := service.Principal{ID: uuid.New(), Role: model.RoleAdmin}
	svc.On("ListUsersByRole", mock.Anything, admin, model.RoleStaff, 2, 5).
		Return([]service.UserResponse{{Email: "alice@icars.com"}}, int64(6), nil)
	r := userRouter(svc)

	w, res := do(t, r, http.MethodGet, "/api/admin/staff?page=2&limit=5", bearer(t, admin), nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := res.Data.(map[string]interface{})
	assert.EqualValues(t, 6, data["total"])
	assert.Len(t, data["staff"], 1)
	assert.EqualValues(t, 2, data["page"])
	assert.EqualValues(t, 2, data["total_pages"])
	svc.AssertExpectations(t)
}

func bookingRouter(b service.BookingService, f service.FeedbackService) *gin.Engine {
	r := gin.New()
	NewBookingHandler(b, f).RegisterRoutes(r.Group("/api"))
	return r
}

func TestCreateBooking(t *testing.T) {
	svc := &mockBookingService{}
	customer := service.Principal{ID: uuid.New(), Role: model.RoleCustomer}
	req := service.BookingRequest{
		VehicleID:     uuid.New(),
		ServiceID:     uuid.New(),
		ScheduledDate: time.Date(2030, 5, 1, 9, 0, 0, 0, time.UTC),
		Notes:         "rattle",
	}
	created := &model.Booking{ID: uuid.New(), CustomerID: customer.ID, Status: model.BookingStatusPending}
	svc.On("CreateBooking", mock.Anything, customer, req).Return(created, nil)
	r := bookingRouter(svc, &mockFeedbackService{})

	w, res := do(t, r, http.MethodPost, "/api/bookings", bearer(t, customer), req)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, created.ID.String(), res.Data.(map[string]interface{})["id"])

	w, _ = do(t, r, http.MethodPost, "/api/bookings", bearer(t, customer), map[string]string{"notes": "missing ids"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	staff := service.Principal{ID: uuid.New(), Role: model.RoleStaff}
	w, res = do(t, r, http.MethodPost, "/api/bookings", bearer(t, staff), req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "/api/staff/dashboard", res.Redirect)

	svc.AssertNumberOfCalls(t, "CreateBooking", 1)
}

func TestUpdateStatus(t *testing.T) {
	svc := &mockBookingService{}
	staff := service.Principal{ID: uuid.New(), Role: model.RoleStaff}
	id := uuid.New()
	svc.On("UpdateBookingStatus", mock.Anything, staff, id, service.UpdateStatusRequest{Status: model.BookingStatusCompleted}).
		Return(nil, apperror.Conflict("cannot move booking from PENDING to COMPLETED"))
	r := bookingRouter(svc, &mockFeedbackService{})

	w, res := do(t, r, http.MethodPatch, "/api/staff/bookings/"+id.String()+"/status", bearer(t, staff), map[string]string{"status": "COMPLETED"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, res.Error, "PENDING")

	w, _ = do(t, r, http.MethodPatch, "/api/staff/bookings/not-a-uuid/status", bearer(t, staff), map[string]string{"status": "COMPLETED"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListMyBookings_PassesFilter(t *testing.T) {
	svc := &mockBookingService{}
	customer := service.Principal{ID: uuid.New(), Role: model.RoleCustomer}
	svc.On("ListBookings", mock.Anything, customer, service.BookingListFilter{Status: model.BookingStatusCompleted, Page: 1, Limit: 20}).
		Return([]model.Booking{}, int64(0), nil)
	r := bookingRouter(svc, &mockFeedbackService{})

	w, res := do(t, r, http.MethodGet, "/api/bookings?status=completed", bearer(t, customer), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 20, res.Data.(map[string]interface{})["limit"])
	svc.AssertExpectations(t)
}

func TestSubmitFeedback(t *testing.T) {
	fb := &mockFeedbackService{}
	customer := service.Principal{ID: uuid.New(), Role: model.RoleCustomer}
	id := uuid.New()
	fb.On("SubmitFeedback", mock.Anything, customer, id, service.FeedbackRequest{Rating: 5, Comments: "great"}).
		Return(&model.Feedback{ID: uuid.New(), BookingID: id, Rating: 5}, nil).Once()
	fb.On("SubmitFeedback", mock.Anything, customer, id, service.FeedbackRequest{Rating: 5, Comments: "great"}).
		Return(nil, apperror.Conflict("feedback already submitted"))
	r := bookingRouter(&mockBookingService{}, fb)
	path := "/api/bookings/" + id.String() + "/feedback"
	body := service.FeedbackRequest{Rating: 5, Comments: "great"}

	w, _ := do(t, r, http.MethodPost, path, bearer(t, customer), body)
	assert.Equal(t, http.StatusCreated, w.Code)

	w, res := do(t, r, http.MethodPost, path, bearer(t, customer), body)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "feedback already submitted", res.Error)
}

func TestGenerateReport(t *testing.T) {
	svc := &mockAnalyticsService{}
	admin := service.Principal{ID: uuid.New(), Role: model.RoleAdmin}
	march := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	svc.On("GenerateMonthlyReport", mock.Anything, admin, march).
		Return(&service.MonthlyReport{Report: model.RevenueReport{Month: march, TotalBookings: 2}}, nil)

	h := NewAnalyticsHandler(svc)
	h.now = func() time.Time { return time.Date(2024, time.March, 17, 12, 0, 0, 0, time.UTC) }
	r := gin.New()
	h.RegisterRoutes(r.Group("/api"))

	w, _ := do(t, r, http.MethodPost, "/api/admin/analytics/generate", bearer(t, admin), GenerateReportRequest{Month: "2024-03"})
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, r, http.MethodPost, "/api/admin/analytics/generate", bearer(t, admin), nil)
	assert.Equal(t, http.StatusOK, w.Code, "defaults to the current month")

	w, _ = do(t, r, http.MethodPost, "/api/admin/analytics/generate", bearer(t, admin), GenerateReportRequest{Month: "March"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.AssertNumberOfCalls(t, "GenerateMonthlyReport", 2)
}
