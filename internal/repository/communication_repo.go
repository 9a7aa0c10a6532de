package repository

import (
	"context"

	"carservice/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TemplateRepository interface {
	Create(ctx context.Context, tmpl *model.NotificationTemplate) error
	Update(ctx context.Context, tmpl *model.NotificationTemplate) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.NotificationTemplate, error)
	FindByName(ctx context.Context, name string) (*model.NotificationTemplate, error)
	List(ctx context.Context) ([]model.NotificationTemplate, error)
}

type templateRepository struct {
	db *gorm.DB
}

func NewTemplateRepository(db *gorm.DB) TemplateRepository {
	return &templateRepository{db: db}
}

func (r *templateRepository) Create(ctx context.Context, tmpl *model.NotificationTemplate) error {
	return GetDB(ctx, r.db).Create(tmpl).Error
}

func (r *templateRepository) Update(ctx context.Context, tmpl *model.NotificationTemplate) error {
	return GetDB(ctx, r.db).Save(tmpl).Error
}

func (r *templateRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.NotificationTemplate, error) {
	var tmpl model.NotificationTemplate
	if err := GetDB(ctx, r.db).First(&tmpl, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &tmpl, nil
}

func (r *templateRepository) FindByName(ctx context.Context, name string) (*model.NotificationTemplate, error) {
	var tmpl model.NotificationTemplate
	if err := GetDB(ctx, r.db).First(&tmpl, "name = ?", name).Error; err != nil {
		return nil, err
	}
	return &tmpl, nil
}

func (r *templateRepository) List(ctx context.Context) ([]model.NotificationTemplate, error) {
	var templates []model.NotificationTemplate
	if err := GetDB(ctx, r.db).Order("name").Find(&templates).Error; err != nil {
		return nil, err
	}
	return templates, nil
}

// CommunicationLogRepository is append-only
type CommunicationLogRepository interface {
	Create(ctx context.Context, entry *model.CommunicationLog) error
	List(ctx context.Context, page, limit int) ([]model.CommunicationLog, int64, error)
}

type communicationLogRepository struct {
	db *gorm.DB
}

func NewCommunicationLogRepository(db *gorm.DB) CommunicationLogRepository {
	return &communicationLogRepository{db: db}
}

func (r *communicationLogRepository) Create(ctx context.Context, entry *model.CommunicationLog) error {
	return GetDB(ctx, r.db).Omit("Recipient", "Booking", "Template").Create(entry).Error
}

func (r *communicationLogRepository) List(ctx context.Context, page, limit int) ([]model.CommunicationLog, int64, error) {
	var logs []model.CommunicationLog
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.CommunicationLog{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Recipient").Order("sent_at DESC").Offset(offset).Limit(limit).Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
