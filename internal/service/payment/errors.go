package payment

import "errors"

var (
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrAppointmentNotFound  = errors.New("appointment not found")
	ErrForbidden            = errors.New("actor is not a party to this payment")
	ErrNothingToPay         = errors.New("nothing left to pay on this appointment")
	ErrExceedsPrice         = errors.New("completed payments may not exceed the appointment price")
	ErrPaymentNotPending    = errors.New("payment is not pending")
	ErrPaymentNotSettled    = errors.New("payment has not settled at the gateway yet")
	ErrDepositAlreadyPaid   = errors.New("deposit has already been paid")
	ErrPaymentNotPayable    = errors.New("appointment is not in a payable state")
	ErrPaymentFailed        = errors.New("payment failed or was cancelled at the gateway")
	ErrGatewayNotConfigured = errors.New("payment gateway is not configured")
	ErrGatewayFailure       = errors.New("payment gateway error")
)
