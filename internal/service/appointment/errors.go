package appointment

import "errors"

var (
	ErrNotFound          = errors.New("appointment not found")
	ErrForbidden         = errors.New("actor is not a party to this appointment")
	ErrInvalidTransition = errors.New("transition not allowed from current status")
	ErrConflict          = errors.New("appointment was modified concurrently")
	ErrDepositUnpaid     = errors.New("deposit has not been paid")
	ErrBalanceUnpaid     = errors.New("full payment has not been received")
	ErrInvalidAction     = errors.New("action must be accept or reject")
	ErrBadProposedDate   = errors.New("selected proposed date index is out of range")
	ErrInvalidSchedule   = errors.New("start date must be before end date")
	ErrInvalidDeposit    = errors.New("deposit amount must be positive when a deposit is required")

	// ErrGatewayNotConfigured aborts a cancellation before any mutation when
	// refunds cannot possibly be issued.
	ErrGatewayNotConfigured = errors.New("payment gateway is not configured")
)
