package payment

import (
	"context"
	"log/slog"
	"time"

	"github.com/artlinkhq/artlink_backend/internal/model"
	"github.com/artlinkhq/artlink_backend/pkg/stripe"
)

// Cancellation windows, measured from cancellation time to appointment start.
const (
	fullRefundCutoffHours = 48
	noRefundCutoffHours   = 24
)

// refundGateway is the slice of the Stripe client the reconciler needs.
type refundGateway interface {
	RefundPayment(ctx context.Context, paymentRef string, amount int64) (*stripe.Refund, error)
}

// RefundPercent returns the share of total paid money owed back on
// cancellation. A pro cancelling always owes the client everything; a client
// cancelling earns 100% more than 48h out, 50% between 24h and 48h, and
// nothing inside 24h. Admins are treated like pros: their cancellations never
// penalise the client.
func RefundPercent(cancelledBy model.Role, hoursBeforeStart float64) int {
	if cancelledBy != model.RoleClient {
		return 100
	}
	switch {
	case hoursBeforeStart > fullRefundCutoffHours:
		return 100
	case hoursBeforeStart > noRefundCutoffHours:
		return 50
	default:
		return 0
	}
}

// ApplyPercent computes percent of amount in minor units, rounding half-up.
func ApplyPercent(amount int64, percent int) int64 {
	if amount <= 0 || percent <= 0 {
		return 0
	}
	if percent >= 100 {
		return amount
	}
	return (amount*int64(percent) + 50) / 100
}

// refundOutcome pairs a successfully refunded charge with the ledger row to
// record for it. The refund row mirrors the charge with the money direction
// reversed and a negative amount.
type refundOutcome struct {
	charge *model.Payment
	refund *model.Payment
}

// reconcile walks completed charges in creation order and refunds each until
// the budget runs out. Gateway failures on individual charges are logged and
// skipped so one dead charge cannot strand refundable money on later ones;
// the returned total is what the gateway actually gave back.
func reconcile(ctx context.Context, gw refundGateway, appt *model.Appointment, charges []*model.Payment, budget int64) (int64, []refundOutcome) {
	var (
		refunded int64
		outcomes []refundOutcome
	)
	now := time.Now()

	for _, charge := range charges {
		if budget <= 0 {
			break
		}
		refundable := charge.Amount - charge.RefundedAmount
		if refundable <= 0 {
			continue
		}
		amount := min(refundable, budget)
		if charge.ExternalRef == nil || *charge.ExternalRef == "" {
			slog.Warn("skipping refund for charge without gateway reference",
				"payment_id", charge.ID, "appointment_id", appt.ID)
			continue
		}

		ref, err := gw.RefundPayment(ctx, *charge.ExternalRef, amount)
		if err != nil {
			slog.Warn("gateway refund failed, skipping charge",
				"payment_id", charge.ID, "appointment_id", appt.ID,
				"amount", amount, "err", err)
			continue
		}

		externalRef := ref.ID
		outcomes = append(outcomes, refundOutcome{
			charge: charge,
			refund: &model.Payment{
				AppointmentID: appt.ID,
				Kind:          model.PaymentKindRefund,
				Amount:        -amount,
				Currency:      charge.Currency,
				Status:        model.PaymentCompleted,
				SenderID:      charge.ReceiverID,
				ReceiverID:    charge.SenderID,
				Description:   "refund for cancelled appointment",
				ExternalRef:   &externalRef,
			},
		})
		charge.RefundedAmount += amount
		charge.RefundedAt = &now
		refunded += amount
		budget -= amount
	}
	return refunded, outcomes
}
