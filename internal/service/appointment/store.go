package appointment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/artlinkhq/artlink_backend/internal/model"
)

// Store is the persistence slice the appointment service needs. Production
// uses the gorm implementation; tests substitute an in-memory one.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	Create(ctx context.Context, appt *model.Appointment) error
	List(ctx context.Context, req ListRequest) ([]*model.Appointment, error)
	History(ctx context.Context, apptID uuid.UUID) ([]*model.AppointmentStatusHistory, error)

	// Transition applies updates to the appointment only while its status
	// still equals expected, and records hist in the same transaction. A
	// guard miss returns ErrConflict.
	Transition(ctx context.Context, apptID uuid.UUID, expected model.AppointmentStatus, updates map[string]any, hist *model.AppointmentStatusHistory) error
}

type gormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	var appt model.Appointment
	if err := s.db.WithContext(ctx).First(&appt, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return &appt, nil
}

func (s *gormStore) Create(ctx context.Context, appt *model.Appointment) error {
	if err := s.db.WithContext(ctx).Create(appt).Error; err != nil {
		return fmt.Errorf("create appointment: %w", err)
	}
	return nil
}

func (s *gormStore) List(ctx context.Context, req ListRequest) ([]*model.Appointment, error) {
	offset := (req.Page - 1) * req.PerPage

	q := s.db.WithContext(ctx).Model(&model.Appointment{})
	if req.ProID != nil {
		q = q.Where("pro_id = ?", *req.ProID)
	}
	if req.ClientID != nil {
		q = q.Where("client_id = ?", *req.ClientID)
	}
	if req.Status != nil {
		q = q.Where("status = ?", *req.Status)
	}
	if req.From != nil {
		q = q.Where("start_date >= ?", *req.From)
	}
	if req.To != nil {
		q = q.Where("start_date < ?", *req.To)
	}

	var appts []*model.Appointment
	if err := q.Order("start_date DESC").Offset(offset).Limit(req.PerPage).Find(&appts).Error; err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appts, nil
}

func (s *gormStore) History(ctx context.Context, apptID uuid.UUID) ([]*model.AppointmentStatusHistory, error) {
	var rows []*model.AppointmentStatusHistory
	if err := s.db.WithContext(ctx).
		Where("appointment_id = ?", apptID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list status history: %w", err)
	}
	return rows, nil
}

func (s *gormStore) Transition(ctx context.Context, apptID uuid.UUID, expected model.AppointmentStatus, updates map[string]any, hist *model.AppointmentStatusHistory) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Appointment{}).
			Where("id = ? AND status = ?", apptID, expected).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("update appointment status: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}

		if err := tx.Create(hist).Error; err != nil {
			return fmt.Errorf("create status history: %w", err)
		}
		return nil
	})
}
