package service

import (
	"testing"
	"time"

	"carservice/internal/model"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type harness struct {
	store  *store
	tx     *serialTx
	sender *mockSender
	events *recordingPublisher
	cache  *memoryCache

	users         UserService
	vehicles      VehicleService
	catalog       CatalogService
	bookings      BookingService
	feedback      FeedbackService
	notifications NotificationService
	analytics     AnalyticsService
	dashboards    DashboardService
	audit         AuditService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithConcurrency(t, 1)
}

func newHarnessWithConcurrency(t *testing.T, concurrency int) *harness {
	t.Helper()
	h := &harness{
		store:  newStore(),
		tx:     &serialTx{},
		sender: &mockSender{},
		events: &recordingPublisher{},
		cache:  newMemoryCache(),
	}
	log := zap.NewNop()
	s := h.store

	h.users = NewUserService(fakeUserRepo{s}, fakeRefreshRepo{s}, fakeAuditRepo{s}, h.tx, TokenConfig{
		Secret:     []byte("test-secret"),
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
	})
	h.vehicles = NewVehicleService(fakeVehicleRepo{s})
	h.catalog = NewCatalogService(fakeCatalogRepo{s}, fakeAuditRepo{s}, h.tx)
	h.notifications = NewNotificationService(fakeTemplateRepo{s}, fakeCommLogRepo{s}, fakeUserRepo{s}, fakeAuditRepo{s}, h.sender, log, concurrency)
	h.bookings = NewBookingService(fakeBookingRepo{s}, fakeVehicleRepo{s}, fakeCatalogRepo{s}, fakeUserRepo{s}, fakeAuditRepo{s}, h.tx, h.notifications, h.events, log)
	h.feedback = NewFeedbackService(fakeBookingRepo{s}, h.tx)
	h.analytics = NewAnalyticsService(fakeAnalyticsRepo{s}, fakeBookingRepo{s}, fakeUserRepo{s}, fakeAuditRepo{s}, h.tx)
	h.dashboards = NewDashboardService(fakeUserRepo{s}, fakeVehicleRepo{s}, fakeCatalogRepo{s}, fakeBookingRepo{s}, h.cache, time.Minute, log)
	h.audit = NewAuditService(fakeAuditRepo{s})
	return h
}

// deliverAll makes every send succeed
func (h *harness) deliverAll() {
	h.sender.On("Send", mock.Anything, mock.Anything).Return(nil)
}

func principalOf(u model.User) Principal {
	return Principal{ID: u.ID, Role: u.Role}
}
