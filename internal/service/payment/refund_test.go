package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/artlinkhq/artlink_backend/internal/model"
	"github.com/artlinkhq/artlink_backend/pkg/stripe"
)

func TestRefundPercent(t *testing.T) {
	tests := []struct {
		name        string
		cancelledBy model.Role
		hours       float64
		want        int
	}{
		{"pro always refunds everything", model.RolePro, 1, 100},
		{"admin counts as pro", model.RoleAdmin, 0.5, 100},
		{"client well in advance", model.RoleClient, 72, 100},
		{"client just over the full-refund line", model.RoleClient, 48.01, 100},
		{"client exactly at 48h gets half", model.RoleClient, 48, 50},
		{"client in the half-refund window", model.RoleClient, 36, 50},
		{"client just over the no-refund line", model.RoleClient, 24.01, 50},
		{"client exactly at 24h gets nothing", model.RoleClient, 24, 0},
		{"client last minute", model.RoleClient, 2, 0},
		{"client after start", model.RoleClient, -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RefundPercent(tt.cancelledBy, tt.hours); got != tt.want {
				t.Errorf("RefundPercent(%s, %v) = %d, want %d", tt.cancelledBy, tt.hours, got, tt.want)
			}
		})
	}
}

func TestApplyPercent(t *testing.T) {
	tests := []struct {
		name    string
		amount  int64
		percent int
		want    int64
	}{
		{"full refund", 10000, 100, 10000},
		{"half of even amount", 10000, 50, 5000},
		{"half rounds up on odd minor units", 10001, 50, 5001},
		{"half rounds down below midpoint", 333, 50, 167},
		{"zero percent", 10000, 0, 0},
		{"zero amount", 0, 50, 0},
		{"negative amount", -500, 50, 0},
		{"over 100 is clamped", 10000, 150, 10000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ApplyPercent(tt.amount, tt.percent); got != tt.want {
				t.Errorf("ApplyPercent(%d, %d) = %d, want %d", tt.amount, tt.percent, got, tt.want)
			}
		})
	}
}

// fakeGateway refunds everything except refs listed in fail.
type fakeGateway struct {
	fail  map[string]error
	calls []fakeRefundCall
}

type fakeRefundCall struct {
	ref    string
	amount int64
}

func (g *fakeGateway) RefundPayment(ctx context.Context, paymentRef string, amount int64) (*stripe.Refund, error) {
	g.calls = append(g.calls, fakeRefundCall{ref: paymentRef, amount: amount})
	if err, ok := g.fail[paymentRef]; ok {
		return nil, err
	}
	return &stripe.Refund{
		ID:     "re_" + paymentRef,
		Status: "succeeded",
		Amount: amount,
	}, nil
}

func charge(ref string, amount int64, sender, receiver uuid.UUID) *model.Payment {
	r := ref
	return &model.Payment{
		ID:          uuid.New(),
		Kind:        model.PaymentKindDeposit,
		Amount:      amount,
		Currency:    "USD",
		Status:      model.PaymentCompleted,
		SenderID:    sender,
		ReceiverID:  receiver,
		ExternalRef: &r,
	}
}

func TestReconcile_BudgetSpansCharges(t *testing.T) {
	client := uuid.New()
	pro := uuid.New()
	appt := &model.Appointment{ID: uuid.New()}
	charges := []*model.Payment{
		charge("pi_dep", 2000, client, pro),
		charge("pi_bal", 8000, client, pro),
	}
	gw := &fakeGateway{}

	refunded, outcomes := reconcile(context.Background(), gw, appt, charges, 5000)

	if refunded != 5000 {
		t.Fatalf("refunded = %d, want 5000", refunded)
	}
	if len(outcomes) != 2 {
		t.Fatalf("got %d outcomes, want 2", len(outcomes))
	}

	// Oldest charge refunded in full, remainder from the second.
	if outcomes[0].refund.Amount != -2000 {
		t.Errorf("first refund amount = %d, want -2000", outcomes[0].refund.Amount)
	}
	if outcomes[1].refund.Amount != -3000 {
		t.Errorf("second refund amount = %d, want -3000", outcomes[1].refund.Amount)
	}

	// Money direction is reversed on the refund rows.
	for i, o := range outcomes {
		if o.refund.SenderID != pro || o.refund.ReceiverID != client {
			t.Errorf("outcome %d: refund direction not reversed", i)
		}
		if o.refund.Kind != model.PaymentKindRefund {
			t.Errorf("outcome %d: kind = %s, want refund", i, o.refund.Kind)
		}
		if o.refund.Status != model.PaymentCompleted {
			t.Errorf("outcome %d: status = %s, want COMPLETED", i, o.refund.Status)
		}
	}

	// Charges are marked with what came back.
	if charges[0].RefundedAmount != 2000 || charges[0].RefundedAt == nil {
		t.Error("first charge not marked refunded")
	}
	if charges[1].RefundedAmount != 3000 {
		t.Errorf("second charge refunded_amount = %d, want 3000", charges[1].RefundedAmount)
	}
}

func TestReconcile_SkipsFailedCharge(t *testing.T) {
	client := uuid.New()
	pro := uuid.New()
	appt := &model.Appointment{ID: uuid.New()}
	charges := []*model.Payment{
		charge("pi_dead", 2000, client, pro),
		charge("pi_ok", 8000, client, pro),
	}
	gw := &fakeGateway{fail: map[string]error{"pi_dead": stripe.ErrChargeNotFound}}

	refunded, outcomes := reconcile(context.Background(), gw, appt, charges, 5000)

	// A dead first charge must not strand budget meant for later ones.
	if refunded != 5000 {
		t.Fatalf("refunded = %d, want 5000", refunded)
	}
	if len(outcomes) != 1 {
		t.Fatalf("got %d outcomes, want 1", len(outcomes))
	}
	if got := *outcomes[0].refund.ExternalRef; got != "re_pi_ok" {
		t.Errorf("refund external ref = %q, want re_pi_ok", got)
	}
	if charges[0].RefundedAmount != 0 || charges[0].RefundedAt != nil {
		t.Error("failed charge must stay unmarked")
	}
}

func TestReconcile_SkipsChargeWithoutGatewayRef(t *testing.T) {
	client := uuid.New()
	pro := uuid.New()
	appt := &model.Appointment{ID: uuid.New()}
	noRef := charge("", 2000, client, pro)
	noRef.ExternalRef = nil
	charges := []*model.Payment{noRef, charge("pi_ok", 3000, client, pro)}
	gw := &fakeGateway{}

	refunded, outcomes := reconcile(context.Background(), gw, appt, charges, 4000)

	if refunded != 3000 {
		t.Fatalf("refunded = %d, want 3000", refunded)
	}
	if len(outcomes) != 1 {
		t.Fatalf("got %d outcomes, want 1", len(outcomes))
	}
	if len(gw.calls) != 1 {
		t.Fatalf("gateway called %d times, want 1", len(gw.calls))
	}
}

func TestReconcile_AlreadyRefundedChargeIsSkipped(t *testing.T) {
	client := uuid.New()
	pro := uuid.New()
	appt := &model.Appointment{ID: uuid.New()}
	done := charge("pi_done", 2000, client, pro)
	done.RefundedAmount = 2000
	charges := []*model.Payment{done, charge("pi_ok", 3000, client, pro)}
	gw := &fakeGateway{}

	refunded, outcomes := reconcile(context.Background(), gw, appt, charges, 5000)

	if refunded != 3000 {
		t.Fatalf("refunded = %d, want 3000", refunded)
	}
	if len(outcomes) != 1 {
		t.Fatalf("got %d outcomes, want 1", len(outcomes))
	}
	if len(gw.calls) != 1 || gw.calls[0].ref != "pi_ok" {
		t.Errorf("gateway calls = %+v, want single call for pi_ok", gw.calls)
	}
}

func TestReconcile_ZeroBudget(t *testing.T) {
	appt := &model.Appointment{ID: uuid.New()}
	charges := []*model.Payment{charge("pi_ok", 3000, uuid.New(), uuid.New())}
	gw := &fakeGateway{}

	refunded, outcomes := reconcile(context.Background(), gw, appt, charges, 0)

	if refunded != 0 || len(outcomes) != 0 || len(gw.calls) != 0 {
		t.Errorf("zero budget should do nothing: refunded=%d outcomes=%d calls=%d",
			refunded, len(outcomes), len(gw.calls))
	}
}

func TestReconcile_AllGatewayCallsFail(t *testing.T) {
	appt := &model.Appointment{ID: uuid.New()}
	charges := []*model.Payment{charge("pi_a", 3000, uuid.New(), uuid.New())}
	gw := &fakeGateway{fail: map[string]error{"pi_a": errors.New("gateway down")}}

	refunded, outcomes := reconcile(context.Background(), gw, appt, charges, 3000)

	if refunded != 0 {
		t.Errorf("refunded = %d, want 0", refunded)
	}
	if len(outcomes) != 0 {
		t.Errorf("got %d outcomes, want 0", len(outcomes))
	}
}
