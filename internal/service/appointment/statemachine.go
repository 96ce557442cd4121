package appointment

import (
	"github.com/artlinkhq/artlink_backend/internal/model"
)

// Precondition is a business gate that must hold before a transition fires,
// drawn from a fixed vocabulary.
type Precondition string

const (
	// PrecondDepositPaid requires the deposit to have cleared.
	PrecondDepositPaid Precondition = "deposit_paid"
	// PrecondDepositPaidIfRequired requires the deposit to have cleared,
	// but only on appointments that ask for one.
	PrecondDepositPaidIfRequired Precondition = "deposit_paid_if_required"
	// PrecondFullPaymentReceived requires the full price to be settled.
	PrecondFullPaymentReceived Precondition = "full_payment_received"
)

// Transition is one edge of the appointment state machine: a target state,
// the roles allowed to trigger it, an optional precondition, and display
// hints for clients rendering the action.
type Transition struct {
	To           model.AppointmentStatus `json:"to"`
	Roles        []model.Role            `json:"roles"`
	Precondition Precondition            `json:"precondition,omitempty"`
	Color        string                  `json:"color"`
	Icon         string                  `json:"icon"`
}

// StateInfo describes a single state and its outbound transitions.
type StateInfo struct {
	Label       string                  `json:"label"`
	Description string                  `json:"description"`
	Transitions []Transition            `json:"transitions"`
	Terminal    bool                    `json:"terminal"`
	Status      model.AppointmentStatus `json:"status"`
}

// transitionTable is the static definition of the whole machine. CANCELLED is
// terminal; COMPLETED has a single admin-only escape back to CANCELLED.
var transitionTable = map[model.AppointmentStatus]StateInfo{
	model.StatusProposed: {
		Status:      model.StatusProposed,
		Label:       "Proposed",
		Description: "Waiting for the client to accept or reject the proposal.",
		Transitions: []Transition{
			{To: model.StatusAccepted, Roles: []model.Role{model.RoleClient}, Color: "green", Icon: "check"},
			{To: model.StatusAwaitingDeposit, Roles: []model.Role{model.RoleClient}, Color: "amber", Icon: "wallet"},
			{To: model.StatusCancelled, Roles: []model.Role{model.RoleClient, model.RolePro}, Color: "red", Icon: "x"},
		},
	},
	model.StatusAwaitingDeposit: {
		Status:      model.StatusAwaitingDeposit,
		Label:       "Awaiting deposit",
		Description: "Accepted by the client; waiting for the deposit to clear.",
		Transitions: []Transition{
			{To: model.StatusAccepted, Roles: []model.Role{model.RoleClient}, Precondition: PrecondDepositPaid, Color: "green", Icon: "check"},
			{To: model.StatusCancelled, Roles: []model.Role{model.RoleClient, model.RolePro}, Color: "red", Icon: "x"},
		},
	},
	model.StatusAccepted: {
		Status:      model.StatusAccepted,
		Label:       "Accepted",
		Description: "Accepted by the client; waiting for the pro to confirm.",
		Transitions: []Transition{
			{To: model.StatusConfirmed, Roles: []model.Role{model.RolePro}, Precondition: PrecondDepositPaidIfRequired, Color: "green", Icon: "calendar-check"},
			{To: model.StatusCancelled, Roles: []model.Role{model.RoleClient, model.RolePro}, Color: "red", Icon: "x"},
		},
	},
	model.StatusConfirmed: {
		Status:      model.StatusConfirmed,
		Label:       "Confirmed",
		Description: "Locked in by both sides.",
		Transitions: []Transition{
			{To: model.StatusCompleted, Roles: []model.Role{model.RolePro}, Precondition: PrecondFullPaymentReceived, Color: "green", Icon: "flag"},
			{To: model.StatusCancelled, Roles: []model.Role{model.RoleClient, model.RolePro}, Color: "red", Icon: "x"},
			{To: model.StatusRescheduled, Roles: []model.Role{model.RoleClient, model.RolePro}, Color: "amber", Icon: "calendar"},
		},
	},
	model.StatusCompleted: {
		Status:      model.StatusCompleted,
		Label:       "Completed",
		Description: "The engagement took place and was settled.",
		Transitions: []Transition{
			{To: model.StatusCancelled, Roles: []model.Role{model.RoleAdmin}, Color: "red", Icon: "undo"},
		},
	},
	model.StatusRescheduled: {
		Status:      model.StatusRescheduled,
		Label:       "Rescheduled",
		Description: "A new date is being negotiated.",
		Transitions: []Transition{
			{To: model.StatusProposed, Roles: []model.Role{model.RolePro}, Color: "blue", Icon: "refresh"},
			{To: model.StatusCancelled, Roles: []model.Role{model.RoleClient, model.RolePro}, Color: "red", Icon: "x"},
		},
	},
	model.StatusCancelled: {
		Status:      model.StatusCancelled,
		Label:       "Cancelled",
		Description: "Terminal; no outbound transitions.",
		Terminal:    true,
	},
}

// roleAllowed reports whether role may trigger t. Admin is always allowed on
// any defined transition.
func roleAllowed(t Transition, role model.Role) bool {
	if role == model.RoleAdmin {
		return true
	}
	for _, r := range t.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// FindTransition returns the edge from→to when it exists and role may take it.
// The second return distinguishes "no such edge" from "edge exists but role
// may not take it".
func FindTransition(from, to model.AppointmentStatus, role model.Role) (Transition, TransitionCheck) {
	info, ok := transitionTable[from]
	if !ok {
		return Transition{}, CheckUnknownState
	}
	for _, t := range info.Transitions {
		if t.To != to {
			continue
		}
		if !roleAllowed(t, role) {
			return Transition{}, CheckRoleDenied
		}
		return t, CheckOK
	}
	return Transition{}, CheckNoEdge
}

// TransitionCheck is the outcome of a transition lookup.
type TransitionCheck int

const (
	CheckOK TransitionCheck = iota
	CheckNoEdge
	CheckRoleDenied
	CheckUnknownState
)

// Describe returns the metadata for one state.
func Describe(status model.AppointmentStatus) (StateInfo, bool) {
	info, ok := transitionTable[status]
	return info, ok
}

// States returns the full transition table, optionally filtered to the
// transitions a given role may trigger. An unknown or empty status yields the
// whole map; an unknown or empty role applies no role filter.
func States(status model.AppointmentStatus, role model.Role) []StateInfo {
	var out []StateInfo
	for _, s := range []model.AppointmentStatus{
		model.StatusProposed,
		model.StatusAwaitingDeposit,
		model.StatusAccepted,
		model.StatusConfirmed,
		model.StatusCompleted,
		model.StatusRescheduled,
		model.StatusCancelled,
	} {
		info := transitionTable[s]
		if status.Valid() && s != status {
			continue
		}
		if role.Valid() {
			var filtered []Transition
			for _, t := range info.Transitions {
				if roleAllowed(t, role) {
					filtered = append(filtered, t)
				}
			}
			info.Transitions = filtered
		}
		out = append(out, info)
	}
	return out
}

// checkPrecondition evaluates a transition's precondition against the
// appointment's payment facts.
func checkPrecondition(p Precondition, appt *model.Appointment) error {
	switch p {
	case PrecondDepositPaid:
		if appt.DepositPaidAt == nil {
			return ErrDepositUnpaid
		}
	case PrecondDepositPaidIfRequired:
		if !appt.DepositPaid() {
			return ErrDepositUnpaid
		}
	case PrecondFullPaymentReceived:
		if !appt.FullyPaid() {
			return ErrBalanceUnpaid
		}
	}
	return nil
}
