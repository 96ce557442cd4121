package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/artlinkhq/artlink_backend/internal/model"
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type CreateRequest struct {
	UserID uuid.UUID
	Type   string
	Title  string
	Body   *string
	Data   map[string]any
}

// ---------------------------------------------------------------------------
// Interface
// ---------------------------------------------------------------------------

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*model.Notification, error)
	List(ctx context.Context, userID uuid.UUID, unreadOnly bool, page, perPage int) ([]*model.Notification, error)
	MarkRead(ctx context.Context, notifID, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type notificationService struct {
	db *gorm.DB
}

func New(db *gorm.DB) Service {
	return &notificationService{db: db}
}

func (s *notificationService) Create(ctx context.Context, req CreateRequest) (*model.Notification, error) {
	n := &model.Notification{
		UserID: req.UserID,
		Type:   req.Type,
		Title:  req.Title,
		Body:   req.Body,
		Data:   req.Data,
	}
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	return n, nil
}

func (s *notificationService) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, page, perPage int) ([]*model.Notification, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	offset := (page - 1) * perPage

	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}

	var notifs []*model.Notification
	if err := q.Order("created_at DESC").Offset(offset).Limit(perPage).
		Find(&notifs).Error; err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifs, nil
}

func (s *notificationService) MarkRead(ctx context.Context, notifID, userID uuid.UUID) error {
	var n model.Notification
	err := s.db.WithContext(ctx).
		First(&n, "id = ? AND user_id = ?", notifID, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("get notification: %w", err)
	}

	return s.db.WithContext(ctx).Model(&n).Update("is_read", true).Error
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return s.db.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error
}
