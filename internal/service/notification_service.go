package service

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"carservice/internal/mailer"
	"carservice/internal/model"
	"carservice/internal/repository"
	"carservice/pkg/apperror"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Built-in template names
const (
	TemplateBookingConfirmation = "Booking Confirmation"
	TemplateBroadcastMessage    = "Broadcast Message"
)

// DefaultTemplatesVersion changes whenever the built-in template texts change
const DefaultTemplatesVersion = 1

var defaultTemplates = map[string]model.NotificationTemplate{
	TemplateBookingConfirmation: {
		Name:     TemplateBookingConfirmation,
		Subject:  "Your iCars Booking Confirmation",
		Message:  "Dear {customer}, your booking for {service} on {date} has been confirmed.",
		IsActive: true,
	},
	TemplateBroadcastMessage: {
		Name:     TemplateBroadcastMessage,
		Subject:  "Important Update from iCars",
		Message:  "Dear {customer}, we have an important update: {message}",
		IsActive: true,
	},
}

// DateLayout formats {date} in rendered notifications
const DateLayout = "2006-01-02 15:04"

// DispatchRequest describes one templated message to one recipient
type DispatchRequest struct {
	TemplateName string
	Recipient    *model.User
	Vars         map[string]string
	BookingID    *uuid.UUID
}

type BroadcastRequest struct {
	Message string `json:"message" binding:"required"`
}

type BroadcastResult struct {
	Recipients int `json:"recipients"`
	Sent       int `json:"sent"`
	Failed     int `json:"failed"`
}

type TemplateRequest struct {
	Name     string `json:"name" binding:"required"`
	Subject  string `json:"subject" binding:"required"`
	Message  string `json:"message" binding:"required"`
	IsActive *bool  `json:"is_active"`
}

type CommunicationDashboard struct {
	Templates  []model.NotificationTemplate `json:"templates"`
	RecentLogs []model.CommunicationLog     `json:"recent_logs"`
}

type NotificationService interface {
	// Dispatch renders and delivers one message and records the attempt. It never fails:
	// the returned log says whether delivery succeeded.
	Dispatch(ctx context.Context, req DispatchRequest) *model.CommunicationLog
	GetOrSeedTemplate(ctx context.Context, name string) (*model.NotificationTemplate, error)
	SendBroadcast(ctx context.Context, principal Principal, req BroadcastRequest) (*BroadcastResult, error)
	GetCommunicationDashboard(ctx context.Context, principal Principal) (*CommunicationDashboard, error)
	ListLogs(ctx context.Context, principal Principal, page, limit int) ([]model.CommunicationLog, int64, error)
	CreateTemplate(ctx context.Context, principal Principal, req TemplateRequest) (*model.NotificationTemplate, error)
	UpdateTemplate(ctx context.Context, principal Principal, id uuid.UUID, req TemplateRequest) (*model.NotificationTemplate, error)
}

type notificationService struct {
	templateRepo repository.TemplateRepository
	logRepo      repository.CommunicationLogRepository
	userRepo     repository.UserRepository
	auditRepo    repository.AuditRepository
	sender       mailer.Sender
	log          *zap.Logger
	concurrency  int
	now          func() time.Time
}

// NewNotificationService builds the dispatcher. concurrency bounds parallel broadcast sends; 1 sends sequentially.
func NewNotificationService(
	templateRepo repository.TemplateRepository,
	logRepo repository.CommunicationLogRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditRepository,
	sender mailer.Sender,
	log *zap.Logger,
	concurrency int,
) NotificationService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &notificationService{
		templateRepo: templateRepo,
		logRepo:      logRepo,
		userRepo:     userRepo,
		auditRepo:    auditRepo,
		sender:       sender,
		log:          log,
		concurrency:  concurrency,
		now:          time.Now,
	}
}

// GetOrSeedTemplate returns the stored template called name, creating it from the
// built-in default on first use. Names without a built-in default must already exist.
func (s *notificationService) GetOrSeedTemplate(ctx context.Context, name string) (*model.NotificationTemplate, error) {
	tmpl, err := s.templateRepo.FindByName(ctx, name)
	if err == nil {
		return tmpl, nil
	}
	if !isNotFound(err) {
		return nil, fmt.Errorf("failed to load template %q: %w", name, err)
	}

	def, ok := defaultTemplates[name]
	if !ok {
		return nil, apperror.NotFound(fmt.Sprintf("template %q not found", name))
	}
	seeded := def
	if err := s.templateRepo.Create(ctx, &seeded); err != nil {
		if isDuplicate(err) {
			// Seeded concurrently
			return s.templateRepo.FindByName(ctx, name)
		}
		return nil, fmt.Errorf("failed to seed template %q: %w", name, err)
	}
	return &seeded, nil
}

// resolveTemplate picks the template to render. An inactive stored template, or a
// lookup failure, falls back to the built-in default without touching storage.
func (s *notificationService) resolveTemplate(ctx context.Context, name string) *model.NotificationTemplate {
	tmpl, err := s.GetOrSeedTemplate(ctx, name)
	if err == nil && tmpl.IsActive {
		return tmpl
	}
	if err != nil {
		s.log.Warn("template lookup failed, using built-in default", zap.String("template", name), zap.Error(err))
	}
	if def, ok := defaultTemplates[name]; ok {
		return &def
	}
	return nil
}

func (s *notificationService) Dispatch(ctx context.Context, req DispatchRequest) *model.CommunicationLog {
	return s.deliver(ctx, s.resolveTemplate(ctx, req.TemplateName), req)
}

func (s *notificationService) deliver(ctx context.Context, tmpl *model.NotificationTemplate, req DispatchRequest) *model.CommunicationLog {
	entry := &model.CommunicationLog{
		RecipientID: req.Recipient.ID,
		BookingID:   req.BookingID,
		MessageType: model.MessageTypeEmail,
	}

	var sendErr error
	if tmpl == nil {
		entry.Message = fmt.Sprintf("template %q unavailable", req.TemplateName)
		sendErr = fmt.Errorf("no template named %q", req.TemplateName)
	} else {
		if tmpl.ID != uuid.Nil {
			id := tmpl.ID
			entry.TemplateID = &id
		}
		entry.Subject = Render(tmpl.Subject, req.Vars)
		entry.Message = Render(tmpl.Message, req.Vars)
		sendErr = s.sender.Send(ctx, mailer.Message{
			To:      req.Recipient.Email,
			Subject: entry.Subject,
			Body:    entry.Message,
		})
	}

	entry.Status = model.DeliveryStatusSent
	if sendErr != nil {
		entry.Status = model.DeliveryStatusFailed
		s.log.Warn("notification delivery failed",
			zap.String("template", req.TemplateName),
			zap.String("recipient_id", req.Recipient.ID.String()),
			zap.Error(sendErr),
		)
	}
	entry.SentAt = s.now()

	if err := s.logRepo.Create(ctx, entry); err != nil {
		s.log.Error("failed to record communication log",
			zap.String("recipient_id", req.Recipient.ID.String()),
			zap.String("status", entry.Status),
			zap.Error(err),
		)
	}
	return entry
}

// SendBroadcast sends message to every customer. Each recipient is delivered and
// logged independently, so one failure does not stop the others.
func (s *notificationService) SendBroadcast(ctx context.Context, principal Principal, req BroadcastRequest) (*BroadcastResult, error) {
	if err := Authorize(principal, model.RoleAdmin); err != nil {
		return nil, err
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, apperror.Validation("broadcast message must not be empty")
	}

	customers, err := s.userRepo.AllByRole(ctx, model.RoleCustomer)
	if err != nil {
		return nil, fmt.Errorf("failed to load customers: %w", err)
	}

	tmpl := s.resolveTemplate(ctx, TemplateBroadcastMessage)

	var sent, failed int64
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i := range customers {
		customer := &customers[i]
		g.Go(func() error {
			entry := s.deliver(ctx, tmpl, DispatchRequest{
				TemplateName: TemplateBroadcastMessage,
				Recipient:    customer,
				Vars: map[string]string{
					PlaceholderCustomer: customer.FullName(),
					PlaceholderMessage:  message,
				},
			})
			if entry.Status == model.DeliveryStatusSent {
				atomic.AddInt64(&sent, 1)
			} else {
				atomic.AddInt64(&failed, 1)
			}
			return nil
		})
	}
	_ = g.Wait()

	result := &BroadcastResult{
		Recipients: len(customers),
		Sent:       int(sent),
		Failed:     int(failed),
	}

	if err := writeAuditLog(ctx, s.auditRepo, principal.ID, model.ActionSendBroadcast, "", TemplateBroadcastMessage,
		map[string]interface{}{"message": message, "result": result}); err != nil {
		s.log.Error("failed to audit broadcast", zap.Error(err))
	}
	return result, nil
}

func (s *notificationService) GetCommunicationDashboard(ctx context.Context, principal Principal) (*CommunicationDashboard, error) {
	if err := Authorize(principal, model.RoleAdmin); err != nil {
		return nil, err
	}
	templates, err := s.templateRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	logs, _, err := s.logRepo.List(ctx, 1, 10)
	if err != nil {
		return nil, fmt.Errorf("failed to list communication logs: %w", err)
	}
	return &CommunicationDashboard{Templates: templates, RecentLogs: logs}, nil
}

func (s *notificationService) ListLogs(ctx context.Context, principal Principal, page, limit int) ([]model.CommunicationLog, int64, error) {
	if err := Authorize(principal, model.RoleAdmin); err != nil {
		return nil, 0, err
	}
	page, limit = normalizePage(page, limit)
	logs, total, err := s.logRepo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list communication logs: %w", err)
	}
	return logs, total, nil
}

func (s *notificationService) CreateTemplate(ctx context.Context, principal Principal, req TemplateRequest) (*model.NotificationTemplate, error) {
	if err := Authorize(principal, model.RoleAdmin); err != nil {
		return nil, err
	}
	tmpl := &model.NotificationTemplate{IsActive: true}
	if err := applyTemplate(tmpl, req); err != nil {
		return nil, err
	}
	if err := s.templateRepo.Create(ctx, tmpl); err != nil {
		if isDuplicate(err) {
			return nil, apperror.Validation("a template with this name already exists")
		}
		return nil, fmt.Errorf("failed to create template: %w", err)
	}
	if err := writeAuditLog(ctx, s.auditRepo, principal.ID, model.ActionCreateTemplate, tmpl.ID.String(), tmpl.Name, req); err != nil {
		s.log.Error("failed to audit template creation", zap.Error(err))
	}
	return tmpl, nil
}

func (s *notificationService) UpdateTemplate(ctx context.Context, principal Principal, id uuid.UUID, req TemplateRequest) (*model.NotificationTemplate, error) {
	if err := Authorize(principal, model.RoleAdmin); err != nil {
		return nil, err
	}
	tmpl, err := s.templateRepo.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, apperror.NotFound("template not found")
		}
		return nil, fmt.Errorf("failed to load template: %w", err)
	}
	if err := applyTemplate(tmpl, req); err != nil {
		return nil, err
	}
	if err := s.templateRepo.Update(ctx, tmpl); err != nil {
		if isDuplicate(err) {
			return nil, apperror.Validation("a template with this name already exists")
		}
		return nil, fmt.Errorf("failed to update template: %w", err)
	}
	if err := writeAuditLog(ctx, s.auditRepo, principal.ID, model.ActionUpdateTemplate, tmpl.ID.String(), tmpl.Name, req); err != nil {
		s.log.Error("failed to audit template update", zap.Error(err))
	}
	return tmpl, nil
}

func applyTemplate(tmpl *model.NotificationTemplate, req TemplateRequest) error {
	name := strings.TrimSpace(req.Name)
	if name == "" || len(name) > 100 {
		return apperror.Validation("template name must be 1 to 100 characters")
	}
	if strings.TrimSpace(req.Subject) == "" || len(req.Subject) > 200 {
		return apperror.Validation("template subject must be 1 to 200 characters")
	}
	if strings.TrimSpace(req.Message) == "" {
		return apperror.Validation("template message must not be empty")
	}
	tmpl.Name = name
	tmpl.Subject = req.Subject
	tmpl.Message = req.Message
	if req.IsActive != nil {
		tmpl.IsActive = *req.IsActive
	}
	return nil
}
