package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/artlinkhq/artlink_backend/internal/model"
)

// Store is the persistence slice the payment service needs. Production uses
// the gorm implementation; tests substitute an in-memory one. The guarded
// mutations report whether the guard hit so callers can tell a settled race
// from a write.
type Store interface {
	GetAppointment(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	GetPayment(ctx context.Context, id uuid.UUID) (*model.Payment, error)
	CreatePayment(ctx context.Context, pmt *model.Payment) error
	ListPayments(ctx context.Context, appointmentID uuid.UUID) ([]*model.Payment, error)
	// ListCompletedCharges returns settled positive rows in creation order.
	ListCompletedCharges(ctx context.Context, appointmentID uuid.UUID) ([]*model.Payment, error)
	// CompletedTotal sums settled charge money on an appointment. Refund rows
	// are negative and excluded; the result is gross money taken, not net.
	CompletedTotal(ctx context.Context, appointmentID uuid.UUID) (int64, error)

	// MarkPaymentFailed flips a payment PENDING -> FAILED.
	MarkPaymentFailed(ctx context.Context, paymentID uuid.UUID) error
	// CompletePayment flips a payment PENDING -> COMPLETED; false when the
	// row was no longer pending.
	CompletePayment(ctx context.Context, paymentID uuid.UUID) (bool, error)
	UpdateAppointment(ctx context.Context, appointmentID uuid.UUID, updates map[string]any) error
	// AdvanceAwaitingDeposit flips an appointment AWAITING_DEPOSIT ->
	// ACCEPTED; false when another confirmation got there first.
	AdvanceAwaitingDeposit(ctx context.Context, appointmentID uuid.UUID) (bool, error)
	CreateHistory(ctx context.Context, hist *model.AppointmentStatusHistory) error
	// MarkChargeRefunded records how much of a charge has gone back.
	MarkChargeRefunded(ctx context.Context, chargeID uuid.UUID, refundedAmount int64, refundedAt *time.Time) error

	// InTx runs fn against a transactional view of the store; an error rolls
	// every write inside fn back.
	InTx(ctx context.Context, fn func(tx Store) error) error
}

type gormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) GetAppointment(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	var appt model.Appointment
	if err := s.db.WithContext(ctx).First(&appt, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	return &appt, nil
}

func (s *gormStore) GetPayment(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	var pmt model.Payment
	if err := s.db.WithContext(ctx).First(&pmt, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("load payment: %w", err)
	}
	return &pmt, nil
}

func (s *gormStore) CreatePayment(ctx context.Context, pmt *model.Payment) error {
	if err := s.db.WithContext(ctx).Create(pmt).Error; err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

func (s *gormStore) ListPayments(ctx context.Context, appointmentID uuid.UUID) ([]*model.Payment, error) {
	var payments []*model.Payment
	if err := s.db.WithContext(ctx).
		Where("appointment_id = ?", appointmentID).
		Order("created_at ASC").
		Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

func (s *gormStore) ListCompletedCharges(ctx context.Context, appointmentID uuid.UUID) ([]*model.Payment, error) {
	var charges []*model.Payment
	if err := s.db.WithContext(ctx).
		Where("appointment_id = ? AND status = ? AND amount > 0", appointmentID, model.PaymentCompleted).
		Order("created_at ASC").
		Find(&charges).Error; err != nil {
		return nil, fmt.Errorf("list charges: %w", err)
	}
	return charges, nil
}

func (s *gormStore) CompletedTotal(ctx context.Context, appointmentID uuid.UUID) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&model.Payment{}).
		Where("appointment_id = ? AND status = ? AND amount > 0", appointmentID, model.PaymentCompleted).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("sum payments: %w", err)
	}
	return total, nil
}

func (s *gormStore) MarkPaymentFailed(ctx context.Context, paymentID uuid.UUID) error {
	err := s.db.WithContext(ctx).Model(&model.Payment{}).
		Where("id = ? AND status = ?", paymentID, model.PaymentPending).
		Update("status", model.PaymentFailed).Error
	if err != nil {
		return fmt.Errorf("mark payment failed: %w", err)
	}
	return nil
}

func (s *gormStore) CompletePayment(ctx context.Context, paymentID uuid.UUID) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.Payment{}).
		Where("id = ? AND status = ?", paymentID, model.PaymentPending).
		Update("status", model.PaymentCompleted)
	if res.Error != nil {
		return false, fmt.Errorf("complete payment: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *gormStore) UpdateAppointment(ctx context.Context, appointmentID uuid.UUID, updates map[string]any) error {
	err := s.db.WithContext(ctx).Model(&model.Appointment{}).
		Where("id = ?", appointmentID).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("update appointment settlement: %w", err)
	}
	return nil
}

func (s *gormStore) AdvanceAwaitingDeposit(ctx context.Context, appointmentID uuid.UUID) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.Appointment{}).
		Where("id = ? AND status = ?", appointmentID, model.StatusAwaitingDeposit).
		Update("status", model.StatusAccepted)
	if res.Error != nil {
		return false, fmt.Errorf("advance appointment: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *gormStore) CreateHistory(ctx context.Context, hist *model.AppointmentStatusHistory) error {
	if err := s.db.WithContext(ctx).Create(hist).Error; err != nil {
		return fmt.Errorf("record status history: %w", err)
	}
	return nil
}

func (s *gormStore) MarkChargeRefunded(ctx context.Context, chargeID uuid.UUID, refundedAmount int64, refundedAt *time.Time) error {
	err := s.db.WithContext(ctx).Model(&model.Payment{}).
		Where("id = ?", chargeID).
		Updates(map[string]any{
			"refunded_amount": refundedAmount,
			"refunded_at":     refundedAt,
		}).Error
	if err != nil {
		return fmt.Errorf("mark charge refunded: %w", err)
	}
	return nil
}

func (s *gormStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}
