package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/artlinkhq/artlink_backend/internal/model"
	"github.com/artlinkhq/artlink_backend/internal/service/payment"
)

type PaymentHandler struct {
	svc payment.Service
}

func NewPaymentHandler(svc payment.Service) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

func mapPaymentError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, payment.ErrPaymentNotFound),
		errors.Is(err, payment.ErrAppointmentNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, payment.ErrForbidden):
		return forbidden(c)
	case errors.Is(err, payment.ErrNothingToPay),
		errors.Is(err, payment.ErrExceedsPrice),
		errors.Is(err, payment.ErrDepositAlreadyPaid),
		errors.Is(err, payment.ErrPaymentNotPayable):
		return badRequest(c, err.Error())
	case errors.Is(err, payment.ErrPaymentNotPending):
		return conflict(c, err.Error())
	case errors.Is(err, payment.ErrPaymentNotSettled),
		errors.Is(err, payment.ErrPaymentFailed):
		return unprocessable(c, err.Error())
	default:
		return internalError(c)
	}
}

// POST /payments/initiate
func (h *PaymentHandler) Initiate(c fiber.Ctx) error {
	actorID, _, okc := actorFromFiber(c)
	if !okc {
		return unauthorized(c)
	}

	var body struct {
		AppointmentID string `json:"appointment_id" validate:"required,uuid4"`
		Kind          string `json:"kind" validate:"required,oneof=deposit balance"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := validate.Struct(body); err != nil {
		return badRequest(c, err.Error())
	}

	apptID, err := uuid.Parse(body.AppointmentID)
	if err != nil {
		return badRequest(c, "invalid appointment_id")
	}

	res, err := h.svc.InitiatePayment(c.Context(), payment.InitiateRequest{
		AppointmentID: apptID,
		PayerID:       actorID,
		Kind:          model.PaymentKind(body.Kind),
	})
	if err != nil {
		return mapPaymentError(c, err)
	}
	return created(c, res)
}

// POST /payments/:id/confirm
func (h *PaymentHandler) Confirm(c fiber.Ctx) error {
	actorID, _, okc := actorFromFiber(c)
	if !okc {
		return unauthorized(c)
	}
	paymentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid payment id")
	}

	pmt, err := h.svc.ConfirmPayment(c.Context(), paymentID, actorID)
	if err != nil {
		return mapPaymentError(c, err)
	}
	return ok(c, pmt)
}

// GET /payments/appointment/:id
func (h *PaymentHandler) ListForAppointment(c fiber.Ctx) error {
	actorID, role, okc := actorFromFiber(c)
	if !okc {
		return unauthorized(c)
	}
	apptID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid appointment id")
	}

	payments, err := h.svc.ListForAppointment(c.Context(), apptID, actorID, role)
	if err != nil {
		return mapPaymentError(c, err)
	}
	return ok(c, payments)
}
