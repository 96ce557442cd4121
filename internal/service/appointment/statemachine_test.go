package appointment

import (
	"errors"
	"testing"
	"time"

	"github.com/artlinkhq/artlink_backend/internal/model"
)

func TestFindTransition(t *testing.T) {
	tests := []struct {
		name string
		from model.AppointmentStatus
		to   model.AppointmentStatus
		role model.Role
		want TransitionCheck
	}{
		{
			name: "client accepts proposal",
			from: model.StatusProposed,
			to:   model.StatusAccepted,
			role: model.RoleClient,
			want: CheckOK,
		},
		{
			name: "client moves proposal to awaiting deposit",
			from: model.StatusProposed,
			to:   model.StatusAwaitingDeposit,
			role: model.RoleClient,
			want: CheckOK,
		},
		{
			name: "pro cannot accept on client's behalf",
			from: model.StatusProposed,
			to:   model.StatusAccepted,
			role: model.RolePro,
			want: CheckRoleDenied,
		},
		{
			name: "pro confirms accepted appointment",
			from: model.StatusAccepted,
			to:   model.StatusConfirmed,
			role: model.RolePro,
			want: CheckOK,
		},
		{
			name: "client cannot confirm",
			from: model.StatusAccepted,
			to:   model.StatusConfirmed,
			role: model.RoleClient,
			want: CheckRoleDenied,
		},
		{
			name: "either party cancels a confirmed appointment",
			from: model.StatusConfirmed,
			to:   model.StatusCancelled,
			role: model.RoleClient,
			want: CheckOK,
		},
		{
			name: "pro completes confirmed appointment",
			from: model.StatusConfirmed,
			to:   model.StatusCompleted,
			role: model.RolePro,
			want: CheckOK,
		},
		{
			name: "only admin reverses a completed appointment",
			from: model.StatusCompleted,
			to:   model.StatusCancelled,
			role: model.RolePro,
			want: CheckRoleDenied,
		},
		{
			name: "admin reverses a completed appointment",
			from: model.StatusCompleted,
			to:   model.StatusCancelled,
			role: model.RoleAdmin,
			want: CheckOK,
		},
		{
			name: "admin is allowed on any defined edge",
			from: model.StatusProposed,
			to:   model.StatusAccepted,
			role: model.RoleAdmin,
			want: CheckOK,
		},
		{
			name: "no edge out of cancelled",
			from: model.StatusCancelled,
			to:   model.StatusProposed,
			role: model.RoleAdmin,
			want: CheckNoEdge,
		},
		{
			name: "no skipping straight to completed",
			from: model.StatusProposed,
			to:   model.StatusCompleted,
			role: model.RoleAdmin,
			want: CheckNoEdge,
		},
		{
			name: "rescheduled goes back to proposed by the pro",
			from: model.StatusRescheduled,
			to:   model.StatusProposed,
			role: model.RolePro,
			want: CheckOK,
		},
		{
			name: "unknown source state",
			from: model.AppointmentStatus("DRAFT"),
			to:   model.StatusProposed,
			role: model.RoleAdmin,
			want: CheckUnknownState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, check := FindTransition(tt.from, tt.to, tt.role)
			if check != tt.want {
				t.Fatalf("FindTransition(%s, %s, %s) check = %v, want %v",
					tt.from, tt.to, tt.role, check, tt.want)
			}
			if check == CheckOK && tr.To != tt.to {
				t.Errorf("FindTransition returned edge to %s, want %s", tr.To, tt.to)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	info, ok := Describe(model.StatusCancelled)
	if !ok {
		t.Fatal("Describe(CANCELLED) not found")
	}
	if !info.Terminal {
		t.Error("CANCELLED should be terminal")
	}
	if len(info.Transitions) != 0 {
		t.Errorf("CANCELLED should have no outbound transitions, got %d", len(info.Transitions))
	}

	if _, ok := Describe(model.AppointmentStatus("DRAFT")); ok {
		t.Error("Describe should not find unknown states")
	}
}

func TestStates_FullTableOnUnknownStatus(t *testing.T) {
	states := States(model.AppointmentStatus(""), model.Role(""))
	if len(states) != 7 {
		t.Fatalf("expected all 7 states, got %d", len(states))
	}
}

func TestStates_SingleStatus(t *testing.T) {
	states := States(model.StatusConfirmed, model.Role(""))
	if len(states) != 1 {
		t.Fatalf("expected 1 state, got %d", len(states))
	}
	if states[0].Status != model.StatusConfirmed {
		t.Errorf("got status %s, want CONFIRMED", states[0].Status)
	}
	if len(states[0].Transitions) != 3 {
		t.Errorf("CONFIRMED should have 3 unfiltered transitions, got %d", len(states[0].Transitions))
	}
}

func TestStates_RoleFilter(t *testing.T) {
	// A client looking at COMPLETED has no actions; the reversal edge is
	// admin-only.
	states := States(model.StatusCompleted, model.RoleClient)
	if len(states) != 1 {
		t.Fatalf("expected 1 state, got %d", len(states))
	}
	if len(states[0].Transitions) != 0 {
		t.Errorf("client should see no transitions out of COMPLETED, got %d", len(states[0].Transitions))
	}

	states = States(model.StatusCompleted, model.RoleAdmin)
	if len(states[0].Transitions) != 1 {
		t.Errorf("admin should see the reversal edge, got %d transitions", len(states[0].Transitions))
	}

	// Out of PROPOSED the pro can only cancel.
	states = States(model.StatusProposed, model.RolePro)
	if got := len(states[0].Transitions); got != 1 {
		t.Fatalf("pro should see 1 transition out of PROPOSED, got %d", got)
	}
	if states[0].Transitions[0].To != model.StatusCancelled {
		t.Errorf("pro's only edge should be CANCELLED, got %s", states[0].Transitions[0].To)
	}
}

func TestCheckPrecondition(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		precond Precondition
		appt    model.Appointment
		wantErr error
	}{
		{
			name:    "deposit paid",
			precond: PrecondDepositPaid,
			appt:    model.Appointment{DepositPaidAt: &now},
			wantErr: nil,
		},
		{
			name:    "deposit unpaid",
			precond: PrecondDepositPaid,
			appt:    model.Appointment{},
			wantErr: ErrDepositUnpaid,
		},
		{
			name:    "deposit not required",
			precond: PrecondDepositPaidIfRequired,
			appt:    model.Appointment{DepositRequired: false},
			wantErr: nil,
		},
		{
			name:    "deposit required and unpaid",
			precond: PrecondDepositPaidIfRequired,
			appt:    model.Appointment{DepositRequired: true},
			wantErr: ErrDepositUnpaid,
		},
		{
			name:    "deposit required and paid",
			precond: PrecondDepositPaidIfRequired,
			appt:    model.Appointment{DepositRequired: true, DepositPaidAt: &now},
			wantErr: nil,
		},
		{
			name:    "fully paid",
			precond: PrecondFullPaymentReceived,
			appt:    model.Appointment{FullyPaidAt: &now},
			wantErr: nil,
		},
		{
			name:    "balance outstanding",
			precond: PrecondFullPaymentReceived,
			appt:    model.Appointment{},
			wantErr: ErrBalanceUnpaid,
		},
		{
			name:    "no precondition",
			precond: "",
			appt:    model.Appointment{},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkPrecondition(tt.precond, &tt.appt)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("checkPrecondition(%s) = %v, want %v", tt.precond, err, tt.wantErr)
			}
		})
	}
}
