package appointment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"gorm.io/gorm"

	"github.com/artlinkhq/artlink_backend/internal/model"
	"github.com/artlinkhq/artlink_backend/internal/service/conversation"
	"github.com/artlinkhq/artlink_backend/internal/service/notification"
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type ListRequest struct {
	ProID    *uuid.UUID
	ClientID *uuid.UUID
	Status   *model.AppointmentStatus
	From     *time.Time
	To       *time.Time
	Page     int
	PerPage  int
}

type ProposeRequest struct {
	ClientID        uuid.UUID
	Title           string
	StartDate       time.Time
	EndDate         time.Time
	DurationMinutes int
	PriceAmount     int64
	Currency        string
	DepositRequired bool
	DepositAmount   int64
	ProposedDates   []time.Time
	Notes           *string
}

type RespondAction string

const (
	ActionAccept RespondAction = "accept"
	ActionReject RespondAction = "reject"
)

type RespondRequest struct {
	Action            RespondAction
	SelectedDateIndex *int
}

// RefundPlan is what the reconciler intends to give back on cancellation.
type RefundPlan struct {
	TotalPaid        int64
	Amount           int64
	HoursBeforeStart float64
}

// Refunder executes the time-based refund policy against the payment ledger.
// Implemented by the payment service; declared here so the dependency points
// the right way.
type Refunder interface {
	Configured() bool
	PlanRefund(ctx context.Context, appt *model.Appointment, cancelledBy model.Role) (RefundPlan, error)
	ExecuteRefund(ctx context.Context, appt *model.Appointment, plan RefundPlan) (refunded int64, refunds []*model.Payment, err error)
}

// CancelResult reports the settlement truth of a cancellation. RefundAmount is
// what actually came back from the gateway, which can be less than the policy
// amount when individual refund calls fail.
type CancelResult struct {
	Appointment  *model.Appointment `json:"appointment"`
	RefundAmount int64              `json:"refund_amount"`
	Refunds      []*model.Payment   `json:"refunds"`
}

// ---------------------------------------------------------------------------
// Interface
// ---------------------------------------------------------------------------

type Service interface {
	List(ctx context.Context, req ListRequest) ([]*model.Appointment, error)
	GetByID(ctx context.Context, apptID uuid.UUID) (*model.Appointment, error)
	History(ctx context.Context, apptID uuid.UUID) ([]*model.AppointmentStatusHistory, error)

	Propose(ctx context.Context, proID uuid.UUID, req ProposeRequest) (*model.Appointment, error)
	RespondToProposal(ctx context.Context, apptID, actorID uuid.UUID, req RespondRequest) (*model.Appointment, error)
	Cancel(ctx context.Context, apptID, actorID uuid.UUID, globalRole model.Role, reason *string) (*CancelResult, error)
	Confirm(ctx context.Context, apptID, actorID uuid.UUID, globalRole model.Role) (*model.Appointment, error)
	Complete(ctx context.Context, apptID, actorID uuid.UUID, globalRole model.Role) (*model.Appointment, error)
	Reschedule(ctx context.Context, apptID, actorID uuid.UUID, globalRole model.Role) (*model.Appointment, error)
	Reopen(ctx context.Context, apptID, actorID uuid.UUID, globalRole model.Role, dates []time.Time) (*model.Appointment, error)
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type appointmentService struct {
	store    Store
	refunder Refunder
	notifSvc notification.Service
	convSvc  conversation.Service
	nc       *nats.Conn
}

func New(db *gorm.DB, refunder Refunder, notifSvc notification.Service, convSvc conversation.Service, nc *nats.Conn) Service {
	return &appointmentService{store: NewStore(db), refunder: refunder, notifSvc: notifSvc, convSvc: convSvc, nc: nc}
}

func (s *appointmentService) List(ctx context.Context, req ListRequest) ([]*model.Appointment, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PerPage < 1 || req.PerPage > 100 {
		req.PerPage = 20
	}
	return s.store.List(ctx, req)
}

func (s *appointmentService) GetByID(ctx context.Context, apptID uuid.UUID) (*model.Appointment, error) {
	return s.store.Get(ctx, apptID)
}

func (s *appointmentService) History(ctx context.Context, apptID uuid.UUID) ([]*model.AppointmentStatusHistory, error) {
	if _, err := s.store.Get(ctx, apptID); err != nil {
		return nil, err
	}
	return s.store.History(ctx, apptID)
}

func (s *appointmentService) Propose(ctx context.Context, proID uuid.UUID, req ProposeRequest) (*model.Appointment, error) {
	if !req.StartDate.Before(req.EndDate) {
		return nil, ErrInvalidSchedule
	}
	if req.DepositRequired && req.DepositAmount <= 0 {
		return nil, ErrInvalidDeposit
	}

	conv, err := s.convSvc.GetOrCreate(ctx, req.ClientID, proID)
	if err != nil {
		return nil, fmt.Errorf("link conversation: %w", err)
	}

	appt := &model.Appointment{
		Status:          model.StatusProposed,
		Title:           req.Title,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		DurationMinutes: req.DurationMinutes,
		PriceAmount:     req.PriceAmount,
		Currency:        req.Currency,
		DepositRequired: req.DepositRequired,
		DepositAmount:   req.DepositAmount,
		ClientID:        req.ClientID,
		ProID:           proID,
		ConversationID:  &conv.ID,
		ProposedDates:   req.ProposedDates,
		Notes:           req.Notes,
	}
	if appt.Currency == "" {
		appt.Currency = "USD"
	}

	if err := s.store.Create(ctx, appt); err != nil {
		return nil, err
	}

	s.sideEffects(ctx, appt, req.ClientID,
		fmt.Sprintf("New appointment proposed: %q", appt.Title),
		"appointment_proposed")

	return appt, nil
}

func (s *appointmentService) RespondToProposal(ctx context.Context, apptID, actorID uuid.UUID, req RespondRequest) (*model.Appointment, error) {
	if req.Action != ActionAccept && req.Action != ActionReject {
		return nil, ErrInvalidAction
	}

	appt, err := s.GetByID(ctx, apptID)
	if err != nil {
		return nil, err
	}
	if actorID != appt.ClientID {
		return nil, ErrForbidden
	}
	if appt.Status != model.StatusProposed {
		return nil, ErrInvalidTransition
	}

	target := model.StatusCancelled
	updates := map[string]any{}
	if req.Action == ActionAccept {
		if req.SelectedDateIndex != nil {
			idx := *req.SelectedDateIndex
			if idx < 0 || idx >= len(appt.ProposedDates) {
				return nil, ErrBadProposedDate
			}
			start := appt.ProposedDates[idx]
			updates["start_date"] = start
			updates["end_date"] = start.Add(time.Duration(appt.DurationMinutes) * time.Minute)
		}
		target = model.StatusAccepted
		if appt.DepositRequired {
			target = model.StatusAwaitingDeposit
		}
	} else {
		now := time.Now()
		updates["cancelled_at"] = now
	}

	if _, check := FindTransition(appt.Status, target, model.RoleClient); check != CheckOK {
		return nil, ErrInvalidTransition
	}

	if err := s.transition(ctx, appt, target, actorID, updates, nil, nil); err != nil {
		return nil, err
	}

	outcome := "accepted"
	notifType := "appointment_accepted"
	if req.Action == ActionReject {
		outcome = "rejected"
		notifType = "appointment_rejected"
	}
	s.sideEffects(ctx, appt, appt.ProID,
		fmt.Sprintf("The proposal %q was %s by the client.", appt.Title, outcome),
		notifType)

	return appt, nil
}

func (s *appointmentService) Cancel(ctx context.Context, apptID, actorID uuid.UUID, globalRole model.Role, reason *string) (*CancelResult, error) {
	appt, err := s.GetByID(ctx, apptID)
	if err != nil {
		return nil, err
	}

	role, party := appt.RoleOf(actorID, globalRole)
	if !party {
		return nil, ErrForbidden
	}

	if _, check := FindTransition(appt.Status, model.StatusCancelled, role); check != CheckOK {
		switch check {
		case CheckRoleDenied:
			return nil, ErrForbidden
		default:
			return nil, ErrInvalidTransition
		}
	}

	// Refunds require a configured gateway; fail before any mutation.
	if !s.refunder.Configured() {
		return nil, ErrGatewayNotConfigured
	}

	plan, err := s.refunder.PlanRefund(ctx, appt, role)
	if err != nil {
		return nil, fmt.Errorf("plan refund: %w", err)
	}

	now := time.Now()
	updates := map[string]any{"cancelled_at": now}
	if reason != nil {
		updates["cancellation_reason"] = *reason
	}
	meta := map[string]any{
		"cancelled_by":       string(role),
		"refund_amount":      plan.Amount,
		"total_paid":         plan.TotalPaid,
		"hours_before_start": plan.HoursBeforeStart,
	}

	// The status transition is committed first and is never rolled back by
	// refund outcomes: best-effort refunds, guaranteed transition.
	if err := s.transition(ctx, appt, model.StatusCancelled, actorID, updates, reason, meta); err != nil {
		return nil, err
	}

	refunded, refunds, err := s.refunder.ExecuteRefund(ctx, appt, plan)
	if err != nil {
		// Individual gateway failures are already logged and skipped inside
		// the reconciler; an error here means the ledger itself misbehaved.
		slog.Error("refund execution failed after cancellation",
			"appointment_id", appt.ID, "err", err)
	}
	if refunds == nil {
		refunds = []*model.Payment{}
	}

	counterparty := appt.ProID
	if role == model.RolePro {
		counterparty = appt.ClientID
	}
	s.sideEffects(ctx, appt, counterparty,
		fmt.Sprintf("The appointment %q was cancelled.", appt.Title),
		"appointment_cancelled")

	return &CancelResult{Appointment: appt, RefundAmount: refunded, Refunds: refunds}, nil
}

func (s *appointmentService) Confirm(ctx context.Context, apptID, actorID uuid.UUID, globalRole model.Role) (*model.Appointment, error) {
	appt, err := s.simpleTransition(ctx, apptID, actorID, globalRole, model.StatusConfirmed, nil)
	if err != nil {
		return nil, err
	}
	s.sideEffects(ctx, appt, appt.ClientID,
		fmt.Sprintf("The appointment %q is confirmed.", appt.Title),
		"appointment_confirmed")
	return appt, nil
}

func (s *appointmentService) Complete(ctx context.Context, apptID, actorID uuid.UUID, globalRole model.Role) (*model.Appointment, error) {
	now := time.Now()
	appt, err := s.simpleTransition(ctx, apptID, actorID, globalRole, model.StatusCompleted,
		map[string]any{"completed_at": now})
	if err != nil {
		return nil, err
	}
	s.sideEffects(ctx, appt, appt.ClientID,
		fmt.Sprintf("The appointment %q is complete.", appt.Title),
		"appointment_completed")
	return appt, nil
}

func (s *appointmentService) Reschedule(ctx context.Context, apptID, actorID uuid.UUID, globalRole model.Role) (*model.Appointment, error) {
	appt, err := s.simpleTransition(ctx, apptID, actorID, globalRole, model.StatusRescheduled, nil)
	if err != nil {
		return nil, err
	}
	counterparty := appt.ProID
	if actorID == appt.ProID {
		counterparty = appt.ClientID
	}
	s.sideEffects(ctx, appt, counterparty,
		fmt.Sprintf("A new date is being negotiated for %q.", appt.Title),
		"appointment_rescheduled")
	return appt, nil
}

func (s *appointmentService) Reopen(ctx context.Context, apptID, actorID uuid.UUID, globalRole model.Role, dates []time.Time) (*model.Appointment, error) {
	if len(dates) == 0 {
		return nil, ErrInvalidSchedule
	}
	encoded, err := json.Marshal(dates)
	if err != nil {
		return nil, fmt.Errorf("encode proposed dates: %w", err)
	}
	appt, err := s.simpleTransition(ctx, apptID, actorID, globalRole, model.StatusProposed,
		map[string]any{"proposed_dates": string(encoded)})
	if err != nil {
		return nil, err
	}
	appt.ProposedDates = dates
	s.sideEffects(ctx, appt, appt.ClientID,
		fmt.Sprintf("New dates proposed for %q.", appt.Title),
		"appointment_proposed")
	return appt, nil
}

// ---------------------------------------------------------------------------
// Internals
// ---------------------------------------------------------------------------

// simpleTransition runs a precondition-checked transition with no special
// request handling.
func (s *appointmentService) simpleTransition(ctx context.Context, apptID, actorID uuid.UUID, globalRole model.Role, target model.AppointmentStatus, updates map[string]any) (*model.Appointment, error) {
	appt, err := s.GetByID(ctx, apptID)
	if err != nil {
		return nil, err
	}

	role, party := appt.RoleOf(actorID, globalRole)
	if !party {
		return nil, ErrForbidden
	}

	t, check := FindTransition(appt.Status, target, role)
	switch check {
	case CheckOK:
	case CheckRoleDenied:
		return nil, ErrForbidden
	default:
		return nil, ErrInvalidTransition
	}

	if err := checkPrecondition(t.Precondition, appt); err != nil {
		return nil, err
	}

	if err := s.transition(ctx, appt, target, actorID, updates, nil, nil); err != nil {
		return nil, err
	}
	return appt, nil
}

// transition writes the status change and its history row in one transaction.
// The status column carries an optimistic guard: a concurrent transition that
// got there first leaves zero rows affected and surfaces ErrConflict. On
// success the written columns are copied back onto appt so callers return the
// row as persisted.
func (s *appointmentService) transition(ctx context.Context, appt *model.Appointment, target model.AppointmentStatus, actorID uuid.UUID, updates map[string]any, reason *string, meta map[string]any) error {
	expected := appt.Status
	if updates == nil {
		updates = map[string]any{}
	}
	updates["status"] = target

	hist := &model.AppointmentStatusHistory{
		AppointmentID: appt.ID,
		OldStatus:     expected,
		NewStatus:     target,
		ChangedBy:     actorID,
		Reason:        reason,
		Metadata:      meta,
	}
	if err := s.store.Transition(ctx, appt.ID, expected, updates, hist); err != nil {
		return err
	}

	appt.Status = target
	if v, ok := updates["start_date"].(time.Time); ok {
		appt.StartDate = v
	}
	if v, ok := updates["end_date"].(time.Time); ok {
		appt.EndDate = v
	}
	if v, ok := updates["cancelled_at"].(time.Time); ok {
		appt.CancelledAt = &v
	}
	if v, ok := updates["completed_at"].(time.Time); ok {
		appt.CompletedAt = &v
	}
	if v, ok := updates["cancellation_reason"].(string); ok {
		appt.CancellationReason = &v
	}
	return nil
}

// sideEffects posts a system chat message into the linked conversation,
// notifies the counterparty and publishes the event. All best-effort; a
// failed side effect never fails the transition it describes.
func (s *appointmentService) sideEffects(ctx context.Context, appt *model.Appointment, notifyUser uuid.UUID, summary, event string) {
	if appt.ConversationID != nil {
		if _, err := s.convSvc.PostSystemMessage(ctx, *appt.ConversationID, summary); err != nil {
			slog.Warn("post system message failed", "appointment_id", appt.ID, "err", err)
		}
	}

	if _, err := s.notifSvc.Create(ctx, notification.CreateRequest{
		UserID: notifyUser,
		Type:   event,
		Title:  summary,
		Data: map[string]any{
			"appointment_id": appt.ID.String(),
			"status":         string(appt.Status),
		},
	}); err != nil {
		slog.Warn("create notification failed", "appointment_id", appt.ID, "err", err)
	}

	if s.nc != nil {
		subject := "artlink.appointment." + strings.TrimPrefix(event, "appointment_") + "." + appt.ID.String()
		if err := s.nc.Publish(subject, []byte(appt.ID.String())); err != nil {
			slog.Warn("publish appointment event failed", "subject", subject, "err", err)
		}
	}
}
