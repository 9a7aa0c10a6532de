package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"carservice/internal/cache"
	"carservice/internal/mailer"
	"carservice/internal/model"
	"carservice/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

// store is an in-memory stand-in for the database shared by all fake repositories
type store struct {
	mu        sync.Mutex
	users     map[uuid.UUID]model.User
	refresh   map[string]model.RefreshToken
	vehicles  map[uuid.UUID]model.Vehicle
	services  map[uuid.UUID]model.Service
	bookings  map[uuid.UUID]model.Booking
	feedback  map[uuid.UUID]model.Feedback // keyed by booking
	templates map[uuid.UUID]model.NotificationTemplate
	logs      []model.CommunicationLog
	reports   map[string]model.RevenueReport
	perfs     map[string]model.StaffPerformance
	audits    []model.AuditLog

	writes       int
	logErr       error
	upsertErr    error
	clock        time.Time
	tickInterval time.Duration
}

func newStore() *store {
	return &store{
		users:        map[uuid.UUID]model.User{},
		refresh:      map[string]model.RefreshToken{},
		vehicles:     map[uuid.UUID]model.Vehicle{},
		services:     map[uuid.UUID]model.Service{},
		bookings:     map[uuid.UUID]model.Booking{},
		feedback:     map[uuid.UUID]model.Feedback{},
		templates:    map[uuid.UUID]model.NotificationTemplate{},
		reports:      map[string]model.RevenueReport{},
		perfs:        map[string]model.StaffPerformance{},
		clock:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		tickInterval: time.Second,
	}
}

// tick returns a strictly increasing timestamp; callers hold mu
func (s *store) tick() time.Time {
	s.clock = s.clock.Add(s.tickInterval)
	return s.clock
}

// --- seeding helpers ---

func (s *store) addUser(role model.Role, email, first, last string) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := model.User{ID: uuid.New(), Email: email, FirstName: first, LastName: last, Role: role, CreatedAt: s.tick()}
	s.users[u.ID] = u
	return u
}

func (s *store) addVehicle(owner uuid.UUID, vin, plate string) model.Vehicle {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := model.Vehicle{ID: uuid.New(), OwnerID: owner, Make: "Toyota", Model: "Corolla", Year: 2020, VIN: vin, LicensePlate: plate}
	s.vehicles[v.ID] = v
	return v
}

func (s *store) addService(name, price string) model.Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	svc := model.Service{ID: uuid.New(), Name: name, Price: decimal.RequireFromString(price), DurationMinutes: 60}
	s.services[svc.ID] = svc
	return svc
}

func (s *store) addBooking(b model.Booking) model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.Status == "" {
		b.Status = model.BookingStatusPending
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = s.tick()
	}
	s.bookings[b.ID] = b
	return b
}

func (s *store) addFeedback(bookingID uuid.UUID, rating int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedback[bookingID] = model.Feedback{ID: uuid.New(), BookingID: bookingID, Rating: rating}
	b := s.bookings[bookingID]
	b.FeedbackSubmitted = true
	s.bookings[bookingID] = b
}

func (s *store) booking(id uuid.UUID) model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookings[id]
}

func (s *store) commLogs() []model.CommunicationLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.CommunicationLog(nil), s.logs...)
}

func (s *store) auditActions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	actions := make([]string, 0, len(s.audits))
	for _, a := range s.audits {
		actions = append(actions, a.Action)
	}
	return actions
}

func (s *store) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func paginate[T any](items []T, page, limit int) []T {
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// --- transactions ---

// serialTx runs transactions one at a time, standing in for row locks
type serialTx struct {
	mu sync.Mutex
}

func (t *serialTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(ctx)
}

// --- users ---

type fakeUserRepo struct{ s *store }

func (r fakeUserRepo) Create(_ context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = r.s.tick()
	r.s.users[user.ID] = *user
	r.s.writes++
	return nil
}

func (r fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r fakeUserRepo) ListByRole(ctx context.Context, role model.Role, page, limit int) ([]model.User, int64, error) {
	all, _ := r.AllByRole(ctx, role)
	return paginate(all, page, limit), int64(len(all)), nil
}

func (r fakeUserRepo) AllByRole(_ context.Context, role model.Role) ([]model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.User
	for _, u := range r.s.users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r fakeUserRepo) CountByRole(ctx context.Context, role model.Role) (int64, error) {
	all, _ := r.AllByRole(ctx, role)
	return int64(len(all)), nil
}

func (r fakeUserRepo) Update(_ context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == user.Email && u.ID != user.ID {
			return gorm.ErrDuplicatedKey
		}
	}
	r.s.users[user.ID] = *user
	r.s.writes++
	return nil
}

type fakeRefreshRepo struct{ s *store }

func (r fakeRefreshRepo) Create(_ context.Context, token *model.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	token.ID = uuid.New()
	r.s.refresh[token.Token] = *token
	return nil
}

func (r fakeRefreshRepo) GetValid(_ context.Context, token string, now time.Time) (*model.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rt, ok := r.s.refresh[token]
	if !ok || !rt.ExpiresAt.After(now) {
		return nil, gorm.ErrRecordNotFound
	}
	rt.User = r.s.users[rt.UserID]
	return &rt, nil
}

func (r fakeRefreshRepo) Delete(_ context.Context, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.refresh, token)
	return nil
}

// --- vehicles ---

type fakeVehicleRepo struct{ s *store }

func (r fakeVehicleRepo) save(vehicle *model.Vehicle) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, v := range r.s.vehicles {
		if v.ID != vehicle.ID && (v.VIN == vehicle.VIN || v.LicensePlate == vehicle.LicensePlate) {
			return gorm.ErrDuplicatedKey
		}
	}
	if vehicle.ID == uuid.Nil {
		vehicle.ID = uuid.New()
	}
	r.s.vehicles[vehicle.ID] = *vehicle
	r.s.writes++
	return nil
}

func (r fakeVehicleRepo) Create(_ context.Context, vehicle *model.Vehicle) error {
	return r.save(vehicle)
}

func (r fakeVehicleRepo) Update(_ context.Context, vehicle *model.Vehicle) error {
	return r.save(vehicle)
}

func (r fakeVehicleRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Vehicle, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.vehicles[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &v, nil
}

func (r fakeVehicleRepo) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]model.Vehicle, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Vehicle
	for _, v := range r.s.vehicles {
		if v.OwnerID == ownerID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r fakeVehicleRepo) ExistsByVIN(_ context.Context, vin string, excludeID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, v := range r.s.vehicles {
		if v.VIN == vin && v.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r fakeVehicleRepo) ExistsByLicensePlate(_ context.Context, plate string, excludeID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, v := range r.s.vehicles {
		if v.LicensePlate == plate && v.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r fakeVehicleRepo) Count(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.vehicles)), nil
}

func (r fakeVehicleRepo) CountByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	vs, _ := r.ListByOwner(ctx, ownerID)
	return int64(len(vs)), nil
}

// --- catalog ---

type fakeCatalogRepo struct{ s *store }

func (r fakeCatalogRepo) Create(_ context.Context, svc *model.Service) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	svc.ID = uuid.New()
	r.s.services[svc.ID] = *svc
	r.s.writes++
	return nil
}

func (r fakeCatalogRepo) Update(_ context.Context, svc *model.Service) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.services[svc.ID] = *svc
	r.s.writes++
	return nil
}

func (r fakeCatalogRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.services, id)
	r.s.writes++
	return nil
}

func (r fakeCatalogRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Service, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	svc, ok := r.s.services[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &svc, nil
}

func (r fakeCatalogRepo) ExistsByName(_ context.Context, name string, excludeID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, svc := range r.s.services {
		if strings.EqualFold(svc.Name, name) && svc.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r fakeCatalogRepo) List(_ context.Context) ([]model.Service, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.Service, 0, len(r.s.services))
	for _, svc := range r.s.services {
		out = append(out, svc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r fakeCatalogRepo) Count(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.services)), nil
}

func (r fakeCatalogRepo) IsReferenced(_ context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range r.s.bookings {
		if b.ServiceID == id {
			return true, nil
		}
	}
	return false, nil
}

// --- bookings ---

type fakeBookingRepo struct{ s *store }

func stripBooking(b model.Booking) model.Booking {
	b.Customer, b.Vehicle, b.Service, b.AssignedStaff, b.Feedback = nil, nil, nil, nil, nil
	return b
}

// detailed attaches relations; callers hold mu
func (r fakeBookingRepo) detailed(b model.Booking) model.Booking {
	if u, ok := r.s.users[b.CustomerID]; ok {
		b.Customer = &u
	}
	if v, ok := r.s.vehicles[b.VehicleID]; ok {
		b.Vehicle = &v
	}
	if svc, ok := r.s.services[b.ServiceID]; ok {
		b.Service = &svc
	}
	if b.AssignedStaffID != nil {
		if u, ok := r.s.users[*b.AssignedStaffID]; ok {
			b.AssignedStaff = &u
		}
	}
	if f, ok := r.s.feedback[b.ID]; ok {
		b.Feedback = &f
	}
	return b
}

func (r fakeBookingRepo) Create(_ context.Context, booking *model.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	booking.ID = uuid.New()
	booking.CreatedAt = r.s.tick()
	r.s.bookings[booking.ID] = stripBooking(*booking)
	r.s.writes++
	return nil
}

func (r fakeBookingRepo) Update(_ context.Context, booking *model.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.bookings[booking.ID] = stripBooking(*booking)
	r.s.writes++
	return nil
}

func (r fakeBookingRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	b = r.detailed(b)
	return &b, nil
}

func (r fakeBookingRepo) FindByIDForUpdate(_ context.Context, id uuid.UUID) (*model.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &b, nil
}

func (r fakeBookingRepo) filtered(filter repository.BookingFilter) []model.Booking {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Booking
	for _, b := range r.s.bookings {
		if filter.CustomerID != uuid.Nil && b.CustomerID != filter.CustomerID {
			continue
		}
		if filter.AssignedStaffID != uuid.Nil && (b.AssignedStaffID == nil || *b.AssignedStaffID != filter.AssignedStaffID) {
			continue
		}
		if len(filter.Statuses) > 0 {
			match := false
			for _, st := range filter.Statuses {
				if b.Status == st {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, r.detailed(b))
	}
	return out
}

func (r fakeBookingRepo) List(_ context.Context, filter repository.BookingFilter, page, limit int) ([]model.Booking, int64, error) {
	all := r.filtered(filter)
	sort.Slice(all, func(i, j int) bool { return all[i].ScheduledDate.After(all[j].ScheduledDate) })
	return paginate(all, page, limit), int64(len(all)), nil
}

func (r fakeBookingRepo) Upcoming(_ context.Context, filter repository.BookingFilter, limit int) ([]model.Booking, error) {
	all := r.filtered(filter)
	sort.Slice(all, func(i, j int) bool { return all[i].ScheduledDate.Before(all[j].ScheduledDate) })
	return paginate(all, 1, limit), nil
}

func (r fakeBookingRepo) Recent(_ context.Context, filter repository.BookingFilter, limit int) ([]model.Booking, error) {
	all := r.filtered(filter)
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return paginate(all, 1, limit), nil
}

func (r fakeBookingRepo) Count(_ context.Context, filter repository.BookingFilter) (int64, error) {
	return int64(len(r.filtered(filter))), nil
}

func (r fakeBookingRepo) CompletedCreatedBetween(_ context.Context, start, end time.Time) ([]model.Booking, error) {
	all := r.filtered(repository.BookingFilter{Statuses: []model.BookingStatus{model.BookingStatusCompleted}})
	var out []model.Booking
	for _, b := range all {
		if !b.CreatedAt.Before(start) && b.CreatedAt.Before(end) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r fakeBookingRepo) CreateFeedback(_ context.Context, feedback *model.Feedback) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.feedback[feedback.BookingID]; exists {
		return gorm.ErrDuplicatedKey
	}
	feedback.ID = uuid.New()
	r.s.feedback[feedback.BookingID] = *feedback
	r.s.writes++
	return nil
}

func (r fakeBookingRepo) CountFeedbackByCustomer(_ context.Context, customerID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for bookingID := range r.s.feedback {
		if r.s.bookings[bookingID].CustomerID == customerID {
			n++
		}
	}
	return n, nil
}

// --- communication ---

type fakeTemplateRepo struct{ s *store }

func (r fakeTemplateRepo) Create(_ context.Context, tmpl *model.NotificationTemplate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.templates {
		if t.Name == tmpl.Name {
			return gorm.ErrDuplicatedKey
		}
	}
	tmpl.ID = uuid.New()
	r.s.templates[tmpl.ID] = *tmpl
	return nil
}

func (r fakeTemplateRepo) Update(_ context.Context, tmpl *model.NotificationTemplate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.templates {
		if t.Name == tmpl.Name && t.ID != tmpl.ID {
			return gorm.ErrDuplicatedKey
		}
	}
	r.s.templates[tmpl.ID] = *tmpl
	return nil
}

func (r fakeTemplateRepo) FindByID(_ context.Context, id uuid.UUID) (*model.NotificationTemplate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.templates[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &t, nil
}

func (r fakeTemplateRepo) FindByName(_ context.Context, name string) (*model.NotificationTemplate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.templates {
		if t.Name == name {
			return &t, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r fakeTemplateRepo) List(_ context.Context) ([]model.NotificationTemplate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.NotificationTemplate, 0, len(r.s.templates))
	for _, t := range r.s.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type fakeCommLogRepo struct{ s *store }

func (r fakeCommLogRepo) Create(_ context.Context, entry *model.CommunicationLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.logErr != nil {
		return r.s.logErr
	}
	entry.ID = uuid.New()
	r.s.logs = append(r.s.logs, *entry)
	return nil
}

func (r fakeCommLogRepo) List(_ context.Context, page, limit int) ([]model.CommunicationLog, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.CommunicationLog, len(r.s.logs))
	for i, l := range r.s.logs {
		out[len(out)-1-i] = l
	}
	return paginate(out, page, limit), int64(len(out)), nil
}

// --- analytics ---

type fakeAnalyticsRepo struct{ s *store }

func monthKey(t time.Time) string { return t.Format("2006-01-02") }

func (r fakeAnalyticsRepo) UpsertRevenueReport(_ context.Context, report *model.RevenueReport) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.upsertErr != nil {
		return r.s.upsertErr
	}
	key := monthKey(report.Month)
	existing, ok := r.s.reports[key]
	switch {
	case !ok:
		report.ID = uuid.New()
		report.CreatedAt = r.s.tick()
		report.UpdatedAt = report.CreatedAt
	case existing.TotalRevenue.Equal(report.TotalRevenue) && existing.TotalBookings == report.TotalBookings &&
		existing.AverageRating == report.AverageRating:
		*report = existing
		return nil
	default:
		report.ID = existing.ID
		report.CreatedAt = existing.CreatedAt
		report.UpdatedAt = r.s.tick()
	}
	r.s.reports[key] = *report
	return nil
}

func (r fakeAnalyticsRepo) UpsertStaffPerformance(_ context.Context, perf *model.StaffPerformance) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.upsertErr != nil {
		return r.s.upsertErr
	}
	key := perf.StaffID.String() + "/" + monthKey(perf.Month)
	existing, ok := r.s.perfs[key]
	switch {
	case !ok:
		perf.ID = uuid.New()
		perf.CreatedAt = r.s.tick()
		perf.UpdatedAt = perf.CreatedAt
	case existing.TotalRevenue.Equal(perf.TotalRevenue) && existing.CompletedBookings == perf.CompletedBookings &&
		existing.AverageRating == perf.AverageRating:
		*perf = existing
		return nil
	default:
		perf.ID = existing.ID
		perf.CreatedAt = existing.CreatedAt
		perf.UpdatedAt = r.s.tick()
	}
	r.s.perfs[key] = *perf
	return nil
}

func (r fakeAnalyticsRepo) LatestRevenueReports(_ context.Context, limit int) ([]model.RevenueReport, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.RevenueReport, 0, len(r.s.reports))
	for _, rep := range r.s.reports {
		out = append(out, rep)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.After(out[j].Month) })
	return paginate(out, 1, limit), nil
}

func (r fakeAnalyticsRepo) LatestStaffPerformances(_ context.Context, limit int) ([]model.StaffPerformance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.StaffPerformance, 0, len(r.s.perfs))
	for _, p := range r.s.perfs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.After(out[j].Month) })
	return paginate(out, 1, limit), nil
}

// --- audit ---

type fakeAuditRepo struct{ s *store }

func (r fakeAuditRepo) Log(_ context.Context, entry *model.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	entry.ID = uuid.New()
	entry.CreatedAt = r.s.tick()
	r.s.audits = append(r.s.audits, *entry)
	return nil
}

func (r fakeAuditRepo) List(_ context.Context, page, limit int) ([]model.AuditLog, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := append([]model.AuditLog(nil), r.s.audits...)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, page, limit), int64(len(out)), nil
}

// --- collaborators ---

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, msg mailer.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

var errDeliveryFailed = errors.New("smtp: connection refused")

type recordedEvent struct {
	Name string
	Data interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) Publish(event string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Name: event, Data: data})
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Name)
	}
	return out
}

// memoryCache is a cache.Cache backed by a map of JSON blobs
type memoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
	sets  int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string][]byte{}}
}

func (c *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.items[key]
	if !ok {
		return cache.ErrMiss
	}
	return json.Unmarshal(data, dest)
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.items[key] = data
	c.sets++
	return nil
}
