package handler

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/artlinkhq/artlink_backend/internal/model"
	"github.com/artlinkhq/artlink_backend/internal/service/appointment"
)

type AppointmentHandler struct {
	svc appointment.Service
}

func NewAppointmentHandler(svc appointment.Service) *AppointmentHandler {
	return &AppointmentHandler{svc: svc}
}

func mapAppointmentError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, appointment.ErrNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, appointment.ErrForbidden):
		return forbidden(c)
	case errors.Is(err, appointment.ErrConflict):
		return conflict(c, "appointment was modified concurrently, reload and retry")
	case errors.Is(err, appointment.ErrInvalidTransition):
		return badRequest(c, err.Error())
	case errors.Is(err, appointment.ErrDepositUnpaid),
		errors.Is(err, appointment.ErrBalanceUnpaid):
		return unprocessable(c, err.Error())
	case errors.Is(err, appointment.ErrInvalidAction),
		errors.Is(err, appointment.ErrBadProposedDate),
		errors.Is(err, appointment.ErrInvalidSchedule),
		errors.Is(err, appointment.ErrInvalidDeposit):
		return badRequest(c, err.Error())
	default:
		// ErrGatewayNotConfigured lands here on purpose: a misconfigured
		// gateway is an operator problem, not a client one.
		return internalError(c)
	}
}

// GET /appointments
func (h *AppointmentHandler) List(c fiber.Ctx) error {
	actorID, role, okc := actorFromFiber(c)
	if !okc {
		return unauthorized(c)
	}

	var q struct {
		ProID    string `query:"pro_id"`
		ClientID string `query:"client_id"`
		Status   string `query:"status"`
		From     string `query:"from"`
		To       string `query:"to"`
		Page     int    `query:"page"`
		PerPage  int    `query:"per_page"`
	}
	if err := c.Bind().Query(&q); err != nil {
		return badRequest(c, "invalid query parameters")
	}

	req := appointment.ListRequest{
		Page:    q.Page,
		PerPage: q.PerPage,
	}
	if q.ProID != "" {
		id, err := uuid.Parse(q.ProID)
		if err != nil {
			return badRequest(c, "invalid pro_id")
		}
		req.ProID = &id
	}
	if q.ClientID != "" {
		id, err := uuid.Parse(q.ClientID)
		if err != nil {
			return badRequest(c, "invalid client_id")
		}
		req.ClientID = &id
	}
	if q.Status != "" {
		st := model.AppointmentStatus(q.Status)
		if !st.Valid() {
			return badRequest(c, "invalid status")
		}
		req.Status = &st
	}
	if q.From != "" {
		if t, err := time.Parse(time.RFC3339, q.From); err == nil {
			req.From = &t
		}
	}
	if q.To != "" {
		if t, err := time.Parse(time.RFC3339, q.To); err == nil {
			req.To = &t
		}
	}

	// Non-admins only ever see their own appointments, whatever the filters
	// say.
	switch role {
	case model.RolePro:
		req.ProID = &actorID
		req.ClientID = nil
	case model.RoleClient:
		req.ClientID = &actorID
		req.ProID = nil
	}

	appts, err := h.svc.List(c.Context(), req)
	if err != nil {
		return mapAppointmentError(c, err)
	}
	return ok(c, appts)
}

// GET /appointments/:id
func (h *AppointmentHandler) GetByID(c fiber.Ctx) error {
	actorID, role, okc := actorFromFiber(c)
	if !okc {
		return unauthorized(c)
	}
	apptID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid appointment id")
	}

	appt, err := h.svc.GetByID(c.Context(), apptID)
	if err != nil {
		return mapAppointmentError(c, err)
	}
	if _, party := appt.RoleOf(actorID, role); !party {
		return forbidden(c)
	}
	return ok(c, appt)
}

// GET /appointments/:id/history
func (h *AppointmentHandler) History(c fiber.Ctx) error {
	actorID, role, okc := actorFromFiber(c)
	if !okc {
		return unauthorized(c)
	}
	apptID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid appointment id")
	}

	appt, err := h.svc.GetByID(c.Context(), apptID)
	if err != nil {
		return mapAppointmentError(c, err)
	}
	if _, party := appt.RoleOf(actorID, role); !party {
		return forbidden(c)
	}

	rows, err := h.svc.History(c.Context(), apptID)
	if err != nil {
		return mapAppointmentError(c, err)
	}
	return ok(c, rows)
}

// GET /appointments/:id/transitions
//
// Returns the state the appointment is in and the transitions available to
// the calling user from here.
func (h *AppointmentHandler) Transitions(c fiber.Ctx) error {
	actorID, role, okc := actorFromFiber(c)
	if !okc {
		return unauthorized(c)
	}
	apptID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid appointment id")
	}

	appt, err := h.svc.GetByID(c.Context(), apptID)
	if err != nil {
		return mapAppointmentError(c, err)
	}
	apptRole, party := appt.RoleOf(actorID, role)
	if !party {
		return forbidden(c)
	}

	return ok(c, appointment.States(appt.Status, apptRole))
}

// GET /appointments/transitions
//
// The whole transition table, optionally narrowed by status and role query
// params. An unknown status falls back to every state.
func (h *AppointmentHandler) TransitionTable(c fiber.Ctx) error {
	var q struct {
		Status string `query:"status"`
		Role   string `query:"role"`
	}
	if err := c.Bind().Query(&q); err != nil {
		return badRequest(c, "invalid query parameters")
	}

	return ok(c, appointment.States(model.AppointmentStatus(q.Status), model.Role(q.Role)))
}

// POST /appointments
func (h *AppointmentHandler) Propose(c fiber.Ctx) error {
	actorID, role, okc := actorFromFiber(c)
	if !okc {
		return unauthorized(c)
	}
	if role != model.RolePro && role != model.RoleAdmin {
		return forbidden(c)
	}

	var body struct {
		ClientID        string      `json:"client_id" validate:"required,uuid4"`
		Title           string      `json:"title" validate:"required,max=255"`
		StartDate       time.Time   `json:"start_date" validate:"required"`
		EndDate         time.Time   `json:"end_date" validate:"required"`
		DurationMinutes int         `json:"duration_minutes" validate:"required,gt=0"`
		PriceAmount     int64       `json:"price_amount" validate:"required,gt=0"`
		Currency        string      `json:"currency" validate:"omitempty,len=3"`
		DepositRequired bool        `json:"deposit_required"`
		DepositAmount   int64       `json:"deposit_amount" validate:"gte=0"`
		ProposedDates   []time.Time `json:"proposed_dates"`
		Notes           *string     `json:"notes"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := validate.Struct(body); err != nil {
		return badRequest(c, err.Error())
	}

	clientID, err := uuid.Parse(body.ClientID)
	if err != nil {
		return badRequest(c, "invalid client_id")
	}

	appt, err := h.svc.Propose(c.Context(), actorID, appointment.ProposeRequest{
		ClientID:        clientID,
		Title:           body.Title,
		StartDate:       body.StartDate,
		EndDate:         body.EndDate,
		DurationMinutes: body.DurationMinutes,
		PriceAmount:     body.PriceAmount,
		Currency:        body.Currency,
		DepositRequired: body.DepositRequired,
		DepositAmount:   body.DepositAmount,
		ProposedDates:   body.ProposedDates,
		Notes:           body.Notes,
	})
	if err != nil {
		return mapAppointmentError(c, err)
	}
	return created(c, appt)
}

// POST /appointments/:id/respond
func (h *AppointmentHandler) Respond(c fiber.Ctx) error {
	actorID, _, okc := actorFromFiber(c)
	if !okc {
		return unauthorized(c)
	}
	apptID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid appointment id")
	}

	var body struct {
		Action            string `json:"action" validate:"required,oneof=accept reject"`
		SelectedDateIndex *int   `json:"selected_date_index"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := validate.Struct(body); err != nil {
		return badRequest(c, err.Error())
	}

	appt, err := h.svc.RespondToProposal(c.Context(), apptID, actorID, appointment.RespondRequest{
		Action:            appointment.RespondAction(body.Action),
		SelectedDateIndex: body.SelectedDateIndex,
	})
	if err != nil {
		return mapAppointmentError(c, err)
	}

	msg := "proposal accepted"
	if body.Action == string(appointment.ActionReject) {
		msg = "proposal rejected"
	}
	return c.JSON(fiber.Map{
		"success":     true,
		"message":     msg,
		"appointment": appt,
	})
}

// PATCH /appointments/:id/cancel
func (h *AppointmentHandler) Cancel(c fiber.Ctx) error {
	actorID, role, okc := actorFromFiber(c)
	if !okc {
		return unauthorized(c)
	}
	apptID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid appointment id")
	}

	var body struct {
		Reason *string `json:"reason"`
	}
	// The body is optional but must parse when present.
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&body); err != nil {
			return badRequest(c, "invalid request body")
		}
	}

	res, err := h.svc.Cancel(c.Context(), apptID, actorID, role, body.Reason)
	if err != nil {
		return mapAppointmentError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":       true,
		"appointment":   res.Appointment,
		"refund_amount": res.RefundAmount,
		"refunds":       res.Refunds,
	})
}

// PATCH /appointments/:id/confirm
func (h *AppointmentHandler) Confirm(c fiber.Ctx) error {
	return h.patchTransition(c, h.svc.Confirm)
}

// PATCH /appointments/:id/complete
func (h *AppointmentHandler) Complete(c fiber.Ctx) error {
	return h.patchTransition(c, h.svc.Complete)
}

// PATCH /appointments/:id/reschedule
func (h *AppointmentHandler) Reschedule(c fiber.Ctx) error {
	return h.patchTransition(c, h.svc.Reschedule)
}

// PATCH /appointments/:id/reopen
func (h *AppointmentHandler) Reopen(c fiber.Ctx) error {
	actorID, role, okc := actorFromFiber(c)
	if !okc {
		return unauthorized(c)
	}
	apptID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid appointment id")
	}

	var body struct {
		ProposedDates []time.Time `json:"proposed_dates" validate:"required,min=1"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := validate.Struct(body); err != nil {
		return badRequest(c, err.Error())
	}

	appt, err := h.svc.Reopen(c.Context(), apptID, actorID, role, body.ProposedDates)
	if err != nil {
		return mapAppointmentError(c, err)
	}
	return ok(c, appt)
}

type transitionFunc func(ctx context.Context, apptID, actorID uuid.UUID, globalRole model.Role) (*model.Appointment, error)

func (h *AppointmentHandler) patchTransition(c fiber.Ctx, fn transitionFunc) error {
	actorID, role, okc := actorFromFiber(c)
	if !okc {
		return unauthorized(c)
	}
	apptID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid appointment id")
	}

	appt, err := fn(c.Context(), apptID, actorID, role)
	if err != nil {
		return mapAppointmentError(c, err)
	}
	return ok(c, appt)
}
