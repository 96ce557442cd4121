// Package payment owns the money ledger of an appointment: charges taken
// through Stripe, the settlement timestamps they unlock, and the refunds owed
// back when an appointment is cancelled.
package payment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/artlinkhq/artlink_backend/internal/model"
	"github.com/artlinkhq/artlink_backend/internal/service/appointment"
	"github.com/artlinkhq/artlink_backend/pkg/stripe"
)

type Service interface {
	// InitiatePayment opens a pending charge at the gateway for the deposit
	// or the remaining balance of an appointment.
	InitiatePayment(ctx context.Context, req InitiateRequest) (*InitiateResult, error)
	// ConfirmPayment settles a pending charge against the gateway and, when a
	// deposit clears, moves the appointment out of AWAITING_DEPOSIT.
	ConfirmPayment(ctx context.Context, paymentID, actorID uuid.UUID) (*model.Payment, error)
	ListForAppointment(ctx context.Context, appointmentID, actorID uuid.UUID, role model.Role) ([]*model.Payment, error)

	appointment.Refunder
}

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type InitiateRequest struct {
	AppointmentID uuid.UUID
	PayerID       uuid.UUID
	Kind          model.PaymentKind
}

type InitiateResult struct {
	Payment *model.Payment `json:"payment"`
	// ClientSecret lets the frontend finish the payment with Stripe.js.
	ClientSecret string `json:"client_secret"`
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type paymentService struct {
	store   Store
	gateway *stripe.Client
}

func New(db *gorm.DB, gateway *stripe.Client) Service {
	return &paymentService{store: NewStore(db), gateway: gateway}
}

func (s *paymentService) InitiatePayment(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	if req.Kind != model.PaymentKindDeposit && req.Kind != model.PaymentKindBalance {
		return nil, fmt.Errorf("%w: kind %q", ErrPaymentNotPayable, req.Kind)
	}
	if !s.gateway.Configured() {
		return nil, ErrGatewayNotConfigured
	}

	appt, err := s.store.GetAppointment(ctx, req.AppointmentID)
	if err != nil {
		return nil, err
	}
	if req.PayerID != appt.ClientID {
		return nil, ErrForbidden
	}

	paid, err := s.store.CompletedTotal(ctx, appt.ID)
	if err != nil {
		return nil, err
	}

	var amount int64
	switch req.Kind {
	case model.PaymentKindDeposit:
		if appt.Status != model.StatusAwaitingDeposit {
			return nil, ErrPaymentNotPayable
		}
		if appt.DepositPaidAt != nil {
			return nil, ErrDepositAlreadyPaid
		}
		amount = appt.DepositAmount
	case model.PaymentKindBalance:
		if appt.Status != model.StatusAccepted && appt.Status != model.StatusConfirmed {
			return nil, ErrPaymentNotPayable
		}
		amount = appt.PriceAmount - paid
	}
	if amount <= 0 {
		return nil, ErrNothingToPay
	}
	// Completed money on an appointment never exceeds its price.
	if paid+amount > appt.PriceAmount {
		return nil, ErrExceedsPrice
	}

	desc := fmt.Sprintf("%s for appointment %s", req.Kind, appt.ID)
	intent, err := s.gateway.CreatePaymentIntent(ctx, amount, appt.Currency, desc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayFailure, err)
	}

	pmt := &model.Payment{
		AppointmentID: appt.ID,
		Kind:          req.Kind,
		Amount:        amount,
		Currency:      appt.Currency,
		Status:        model.PaymentPending,
		SenderID:      appt.ClientID,
		ReceiverID:    appt.ProID,
		Description:   desc,
		ExternalRef:   &intent.ID,
	}
	if err := s.store.CreatePayment(ctx, pmt); err != nil {
		return nil, err
	}
	return &InitiateResult{Payment: pmt, ClientSecret: intent.ClientSecret}, nil
}

func (s *paymentService) ConfirmPayment(ctx context.Context, paymentID, actorID uuid.UUID) (*model.Payment, error) {
	pmt, err := s.store.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if pmt.SenderID != actorID {
		return nil, ErrForbidden
	}
	if pmt.Status != model.PaymentPending {
		return nil, ErrPaymentNotPending
	}
	if pmt.ExternalRef == nil {
		return nil, fmt.Errorf("%w: payment has no gateway reference", ErrGatewayFailure)
	}

	intent, err := s.gateway.GetPaymentIntent(ctx, *pmt.ExternalRef)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayFailure, err)
	}
	switch intent.Status {
	case "succeeded":
	case "canceled":
		if err := s.store.MarkPaymentFailed(ctx, pmt.ID); err != nil {
			return nil, err
		}
		return nil, ErrPaymentFailed
	default:
		return nil, ErrPaymentNotSettled
	}

	err = s.store.InTx(ctx, func(tx Store) error {
		done, err := tx.CompletePayment(ctx, pmt.ID)
		if err != nil {
			return err
		}
		if !done {
			return ErrPaymentNotPending
		}
		pmt.Status = model.PaymentCompleted

		appt, err := tx.GetAppointment(ctx, pmt.AppointmentID)
		if err != nil {
			return err
		}
		paid, err := tx.CompletedTotal(ctx, appt.ID)
		if err != nil {
			return err
		}
		// InitiatePayment checks this too, but only against money that had
		// settled by then; two charges pending at once can both clear at the
		// gateway and overshoot the price. Rolling back leaves the row
		// pending for the operator to refund at the gateway.
		if paid > appt.PriceAmount {
			return ErrExceedsPrice
		}

		now := time.Now()
		updates := map[string]any{}
		if appt.DepositRequired && appt.DepositPaidAt == nil && paid >= appt.DepositAmount {
			updates["deposit_paid_at"] = now
			appt.DepositPaidAt = &now
		}
		if appt.FullyPaidAt == nil && paid >= appt.PriceAmount {
			updates["fully_paid_at"] = now
			appt.FullyPaidAt = &now
		}
		if len(updates) > 0 {
			if err := tx.UpdateAppointment(ctx, appt.ID, updates); err != nil {
				return err
			}
		}

		// A cleared deposit releases the appointment to the pro. The guard on
		// the old status makes double confirmations a no-op instead of a
		// duplicate transition.
		if appt.Status == model.StatusAwaitingDeposit && appt.DepositPaid() {
			advanced, err := tx.AdvanceAwaitingDeposit(ctx, appt.ID)
			if err != nil {
				return err
			}
			if advanced {
				history := &model.AppointmentStatusHistory{
					AppointmentID: appt.ID,
					OldStatus:     model.StatusAwaitingDeposit,
					NewStatus:     model.StatusAccepted,
					ChangedBy:     actorID,
					Metadata: map[string]any{
						"payment_id": pmt.ID.String(),
						"automatic":  true,
					},
				}
				if err := tx.CreateHistory(ctx, history); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pmt, nil
}

func (s *paymentService) ListForAppointment(ctx context.Context, appointmentID, actorID uuid.UUID, role model.Role) ([]*model.Payment, error) {
	appt, err := s.store.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if _, ok := appt.RoleOf(actorID, role); !ok {
		return nil, ErrForbidden
	}
	return s.store.ListPayments(ctx, appointmentID)
}

// ---------------------------------------------------------------------------
// Refunder
// ---------------------------------------------------------------------------

func (s *paymentService) Configured() bool { return s.gateway.Configured() }

func (s *paymentService) PlanRefund(ctx context.Context, appt *model.Appointment, cancelledBy model.Role) (appointment.RefundPlan, error) {
	totalPaid, err := s.store.CompletedTotal(ctx, appt.ID)
	if err != nil {
		return appointment.RefundPlan{}, err
	}
	hours := time.Until(appt.StartDate).Hours()
	return appointment.RefundPlan{
		TotalPaid:        totalPaid,
		Amount:           ApplyPercent(totalPaid, RefundPercent(cancelledBy, hours)),
		HoursBeforeStart: hours,
	}, nil
}

func (s *paymentService) ExecuteRefund(ctx context.Context, appt *model.Appointment, plan appointment.RefundPlan) (int64, []*model.Payment, error) {
	if plan.Amount <= 0 {
		return 0, nil, nil
	}

	charges, err := s.store.ListCompletedCharges(ctx, appt.ID)
	if err != nil {
		return 0, nil, err
	}

	refunded, outcomes := reconcile(ctx, s.gateway, appt, charges, plan.Amount)
	if len(outcomes) == 0 {
		return 0, nil, nil
	}

	refunds := make([]*model.Payment, 0, len(outcomes))
	err = s.store.InTx(ctx, func(tx Store) error {
		for _, o := range outcomes {
			if err := tx.CreatePayment(ctx, o.refund); err != nil {
				return err
			}
			if err := tx.MarkChargeRefunded(ctx, o.charge.ID, o.charge.RefundedAmount, o.charge.RefundedAt); err != nil {
				return err
			}
			refunds = append(refunds, o.refund)
		}
		return nil
	})
	if err != nil {
		// The gateway already moved the money; the operator has to square the
		// ledger by hand from these IDs.
		slog.Error("refund ledger write failed after gateway refunds",
			"appointment_id", appt.ID, "refunded", refunded, "err", err)
		return refunded, nil, err
	}
	return refunded, refunds, nil
}

