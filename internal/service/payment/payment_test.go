package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/artlinkhq/artlink_backend/config"
	"github.com/artlinkhq/artlink_backend/internal/model"
	"github.com/artlinkhq/artlink_backend/pkg/stripe"
)

// memLedger is an in-memory Store. InTx runs the callback against a deep
// copy and only swaps it in when the callback succeeds, mirroring rollback.
type memLedger struct {
	appts    map[uuid.UUID]*model.Appointment
	payments map[uuid.UUID]*model.Payment
	order    []uuid.UUID
	history  []*model.AppointmentStatusHistory
}

func newMemLedger() *memLedger {
	return &memLedger{
		appts:    map[uuid.UUID]*model.Appointment{},
		payments: map[uuid.UUID]*model.Payment{},
	}
}

func (m *memLedger) clone() *memLedger {
	cp := newMemLedger()
	for id, a := range m.appts {
		v := *a
		cp.appts[id] = &v
	}
	for id, p := range m.payments {
		v := *p
		cp.payments[id] = &v
	}
	cp.order = append(cp.order, m.order...)
	cp.history = append(cp.history, m.history...)
	return cp
}

func (m *memLedger) GetAppointment(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	row, ok := m.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *row
	return &cp, nil
}

func (m *memLedger) GetPayment(_ context.Context, id uuid.UUID) (*model.Payment, error) {
	row, ok := m.payments[id]
	if !ok {
		return nil, ErrPaymentNotFound
	}
	cp := *row
	return &cp, nil
}

func (m *memLedger) CreatePayment(_ context.Context, pmt *model.Payment) error {
	if pmt.ID == uuid.Nil {
		pmt.ID = uuid.New()
	}
	cp := *pmt
	m.payments[pmt.ID] = &cp
	m.order = append(m.order, pmt.ID)
	return nil
}

func (m *memLedger) ListPayments(_ context.Context, appointmentID uuid.UUID) ([]*model.Payment, error) {
	var out []*model.Payment
	for _, id := range m.order {
		if p := m.payments[id]; p.AppointmentID == appointmentID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memLedger) ListCompletedCharges(_ context.Context, appointmentID uuid.UUID) ([]*model.Payment, error) {
	var out []*model.Payment
	for _, id := range m.order {
		p := m.payments[id]
		if p.AppointmentID == appointmentID && p.Status == model.PaymentCompleted && p.Amount > 0 {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memLedger) CompletedTotal(_ context.Context, appointmentID uuid.UUID) (int64, error) {
	var total int64
	for _, p := range m.payments {
		if p.AppointmentID == appointmentID && p.Status == model.PaymentCompleted && p.Amount > 0 {
			total += p.Amount
		}
	}
	return total, nil
}

func (m *memLedger) MarkPaymentFailed(_ context.Context, paymentID uuid.UUID) error {
	if p, ok := m.payments[paymentID]; ok && p.Status == model.PaymentPending {
		p.Status = model.PaymentFailed
	}
	return nil
}

func (m *memLedger) CompletePayment(_ context.Context, paymentID uuid.UUID) (bool, error) {
	p, ok := m.payments[paymentID]
	if !ok || p.Status != model.PaymentPending {
		return false, nil
	}
	p.Status = model.PaymentCompleted
	return true, nil
}

func (m *memLedger) UpdateAppointment(_ context.Context, appointmentID uuid.UUID, updates map[string]any) error {
	row, ok := m.appts[appointmentID]
	if !ok {
		return ErrAppointmentNotFound
	}
	if v, ok := updates["deposit_paid_at"].(time.Time); ok {
		row.DepositPaidAt = &v
	}
	if v, ok := updates["fully_paid_at"].(time.Time); ok {
		row.FullyPaidAt = &v
	}
	return nil
}

func (m *memLedger) AdvanceAwaitingDeposit(_ context.Context, appointmentID uuid.UUID) (bool, error) {
	row, ok := m.appts[appointmentID]
	if !ok || row.Status != model.StatusAwaitingDeposit {
		return false, nil
	}
	row.Status = model.StatusAccepted
	return true, nil
}

func (m *memLedger) CreateHistory(_ context.Context, hist *model.AppointmentStatusHistory) error {
	m.history = append(m.history, hist)
	return nil
}

func (m *memLedger) MarkChargeRefunded(_ context.Context, chargeID uuid.UUID, refundedAmount int64, refundedAt *time.Time) error {
	if p, ok := m.payments[chargeID]; ok {
		p.RefundedAmount = refundedAmount
		p.RefundedAt = refundedAt
	}
	return nil
}

func (m *memLedger) InTx(ctx context.Context, fn func(tx Store) error) error {
	cp := m.clone()
	if err := fn(cp); err != nil {
		return err
	}
	*m = *cp
	return nil
}

// intentGateway serves payment-intent lookups with a per-intent status,
// defaulting to succeeded.
func intentGateway(t *testing.T, statuses map[string]string) *stripe.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		status, ok := statuses[id]
		if !ok {
			status = "succeeded"
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     id,
			"status": status,
		})
	}))
	t.Cleanup(srv.Close)
	return stripe.New(config.StripeConfig{SecretKey: "sk_test_123", BaseURL: srv.URL})
}

func seedLedgerAppointment(t *testing.T, ml *memLedger, status model.AppointmentStatus) *model.Appointment {
	t.Helper()
	appt := &model.Appointment{
		ID:          uuid.New(),
		Status:      status,
		Title:       "portrait session",
		StartDate:   time.Now().Add(72 * time.Hour),
		EndDate:     time.Now().Add(74 * time.Hour),
		PriceAmount: 10000,
		Currency:    "USD",
		ClientID:    uuid.New(),
		ProID:       uuid.New(),
	}
	cp := *appt
	ml.appts[appt.ID] = &cp
	return appt
}

func seedPendingPayment(t *testing.T, ml *memLedger, appt *model.Appointment, kind model.PaymentKind, amount int64, ref string) *model.Payment {
	t.Helper()
	pmt := &model.Payment{
		ID:            uuid.New(),
		AppointmentID: appt.ID,
		Kind:          kind,
		Amount:        amount,
		Currency:      appt.Currency,
		Status:        model.PaymentPending,
		SenderID:      appt.ClientID,
		ReceiverID:    appt.ProID,
		ExternalRef:   &ref,
	}
	cp := *pmt
	ml.payments[pmt.ID] = &cp
	ml.order = append(ml.order, pmt.ID)
	return pmt
}

func TestConfirmPayment_ConcurrentChargesCannotOvershoot(t *testing.T) {
	ml := newMemLedger()
	svc := &paymentService{store: ml, gateway: intentGateway(t, nil)}
	ctx := context.Background()

	appt := seedLedgerAppointment(t, ml, model.StatusAccepted)
	// Both initiated while nothing had settled, so each is for the full
	// balance.
	first := seedPendingPayment(t, ml, appt, model.PaymentKindBalance, 10000, "pi_first")
	second := seedPendingPayment(t, ml, appt, model.PaymentKindBalance, 10000, "pi_second")

	got, err := svc.ConfirmPayment(ctx, first.ID, appt.ClientID)
	if err != nil {
		t.Fatalf("first confirm: unexpected error %v", err)
	}
	if got.Status != model.PaymentCompleted {
		t.Fatalf("first confirm: status = %s, want %s", got.Status, model.PaymentCompleted)
	}
	if ml.appts[appt.ID].FullyPaidAt == nil {
		t.Error("first confirm should settle the full price")
	}

	_, err = svc.ConfirmPayment(ctx, second.ID, appt.ClientID)
	if !errors.Is(err, ErrExceedsPrice) {
		t.Fatalf("second confirm: error = %v, want ErrExceedsPrice", err)
	}
	if st := ml.payments[second.ID].Status; st != model.PaymentPending {
		t.Errorf("second payment status = %s, want it rolled back to %s", st, model.PaymentPending)
	}
	total, err := ml.CompletedTotal(ctx, appt.ID)
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if total != appt.PriceAmount {
		t.Errorf("completed total = %d, want %d", total, appt.PriceAmount)
	}
}

func TestConfirmPayment_DepositClearsAndReleasesAppointment(t *testing.T) {
	ml := newMemLedger()
	svc := &paymentService{store: ml, gateway: intentGateway(t, nil)}

	appt := seedLedgerAppointment(t, ml, model.StatusAwaitingDeposit)
	ml.appts[appt.ID].DepositRequired = true
	ml.appts[appt.ID].DepositAmount = 2500
	pmt := seedPendingPayment(t, ml, appt, model.PaymentKindDeposit, 2500, "pi_dep")

	got, err := svc.ConfirmPayment(context.Background(), pmt.ID, appt.ClientID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != model.PaymentCompleted {
		t.Errorf("payment status = %s, want %s", got.Status, model.PaymentCompleted)
	}

	row := ml.appts[appt.ID]
	if row.Status != model.StatusAccepted {
		t.Errorf("appointment status = %s, want %s", row.Status, model.StatusAccepted)
	}
	if row.DepositPaidAt == nil {
		t.Error("deposit_paid_at not set")
	}
	if len(ml.history) != 1 {
		t.Fatalf("history rows = %d, want 1", len(ml.history))
	}
	hist := ml.history[0]
	if hist.OldStatus != model.StatusAwaitingDeposit || hist.NewStatus != model.StatusAccepted {
		t.Errorf("history transition = %s -> %s", hist.OldStatus, hist.NewStatus)
	}
	if hist.Metadata["automatic"] != true {
		t.Errorf("history metadata = %v, want automatic=true", hist.Metadata)
	}
}

func TestConfirmPayment_CanceledIntentFailsPayment(t *testing.T) {
	ml := newMemLedger()
	svc := &paymentService{store: ml, gateway: intentGateway(t, map[string]string{"pi_dead": "canceled"})}

	appt := seedLedgerAppointment(t, ml, model.StatusAccepted)
	pmt := seedPendingPayment(t, ml, appt, model.PaymentKindBalance, 10000, "pi_dead")

	_, err := svc.ConfirmPayment(context.Background(), pmt.ID, appt.ClientID)
	if !errors.Is(err, ErrPaymentFailed) {
		t.Fatalf("error = %v, want ErrPaymentFailed", err)
	}
	if st := ml.payments[pmt.ID].Status; st != model.PaymentFailed {
		t.Errorf("payment status = %s, want %s", st, model.PaymentFailed)
	}
}

func TestConfirmPayment_OnlyPayerMayConfirm(t *testing.T) {
	ml := newMemLedger()
	svc := &paymentService{store: ml, gateway: intentGateway(t, nil)}

	appt := seedLedgerAppointment(t, ml, model.StatusAccepted)
	pmt := seedPendingPayment(t, ml, appt, model.PaymentKindBalance, 10000, "pi_x")

	_, err := svc.ConfirmPayment(context.Background(), pmt.ID, appt.ProID)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("error = %v, want ErrForbidden", err)
	}
	if st := ml.payments[pmt.ID].Status; st != model.PaymentPending {
		t.Errorf("payment status = %s, want untouched %s", st, model.PaymentPending)
	}
}

func TestInitiatePayment_NothingLeftToPay(t *testing.T) {
	ml := newMemLedger()
	svc := &paymentService{store: ml, gateway: intentGateway(t, nil)}

	appt := seedLedgerAppointment(t, ml, model.StatusAccepted)
	settled := seedPendingPayment(t, ml, appt, model.PaymentKindBalance, 10000, "pi_done")
	ml.payments[settled.ID].Status = model.PaymentCompleted

	_, err := svc.InitiatePayment(context.Background(), InitiateRequest{
		AppointmentID: appt.ID,
		PayerID:       appt.ClientID,
		Kind:          model.PaymentKindBalance,
	})
	if !errors.Is(err, ErrNothingToPay) {
		t.Fatalf("error = %v, want ErrNothingToPay", err)
	}
}
