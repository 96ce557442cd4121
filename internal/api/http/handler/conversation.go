package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/artlinkhq/artlink_backend/internal/service/conversation"
)

type ConversationHandler struct {
	svc conversation.Service
}

func NewConversationHandler(svc conversation.Service) *ConversationHandler {
	return &ConversationHandler{svc: svc}
}

func mapConversationError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, conversation.ErrNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, conversation.ErrUnauthorized):
		return forbidden(c)
	case errors.Is(err, conversation.ErrEmptyMessage):
		return badRequest(c, err.Error())
	default:
		return internalError(c)
	}
}

// GET /conversations
func (h *ConversationHandler) List(c fiber.Ctx) error {
	actorID, _, okc := actorFromFiber(c)
	if !okc {
		return unauthorized(c)
	}

	var q struct {
		Page    int `query:"page"`
		PerPage int `query:"per_page"`
	}
	if err := c.Bind().Query(&q); err != nil {
		return badRequest(c, "invalid query parameters")
	}

	convs, err := h.svc.List(c.Context(), actorID, q.Page, q.PerPage)
	if err != nil {
		return mapConversationError(c, err)
	}
	return ok(c, convs)
}

// GET /conversations/:id
func (h *ConversationHandler) GetByID(c fiber.Ctx) error {
	actorID, _, okc := actorFromFiber(c)
	if !okc {
		return unauthorized(c)
	}
	convID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid conversation id")
	}

	conv, err := h.svc.GetByID(c.Context(), convID, actorID)
	if err != nil {
		return mapConversationError(c, err)
	}
	return ok(c, conv)
}

// GET /conversations/:id/messages
func (h *ConversationHandler) ListMessages(c fiber.Ctx) error {
	actorID, _, okc := actorFromFiber(c)
	if !okc {
		return unauthorized(c)
	}
	convID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid conversation id")
	}

	var q struct {
		Page    int `query:"page"`
		PerPage int `query:"per_page"`
	}
	if err := c.Bind().Query(&q); err != nil {
		return badRequest(c, "invalid query parameters")
	}

	msgs, err := h.svc.ListMessages(c.Context(), convID, actorID, conversation.ListMessagesRequest{
		Page:    q.Page,
		PerPage: q.PerPage,
	})
	if err != nil {
		return mapConversationError(c, err)
	}
	return ok(c, msgs)
}

// POST /conversations/:id/messages
func (h *ConversationHandler) SendMessage(c fiber.Ctx) error {
	actorID, _, okc := actorFromFiber(c)
	if !okc {
		return unauthorized(c)
	}
	convID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid conversation id")
	}

	var body struct {
		Content string `json:"content" validate:"required,max=4000"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := validate.Struct(body); err != nil {
		return badRequest(c, err.Error())
	}

	msg, err := h.svc.SendMessage(c.Context(), convID, conversation.SendMessageRequest{
		SenderID: actorID,
		Content:  body.Content,
	})
	if err != nil {
		return mapConversationError(c, err)
	}
	return created(c, msg)
}
