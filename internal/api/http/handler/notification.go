package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/artlinkhq/artlink_backend/internal/service/notification"
)

type NotificationHandler struct {
	svc notification.Service
}

func NewNotificationHandler(svc notification.Service) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

// GET /notifications
func (h *NotificationHandler) List(c fiber.Ctx) error {
	actorID, _, okc := actorFromFiber(c)
	if !okc {
		return unauthorized(c)
	}

	var q struct {
		UnreadOnly bool `query:"unread_only"`
		Page       int  `query:"page"`
		PerPage    int  `query:"per_page"`
	}
	if err := c.Bind().Query(&q); err != nil {
		return badRequest(c, "invalid query parameters")
	}

	notifs, err := h.svc.List(c.Context(), actorID, q.UnreadOnly, q.Page, q.PerPage)
	if err != nil {
		return internalError(c)
	}
	return ok(c, notifs)
}

// PATCH /notifications/:id/read
func (h *NotificationHandler) MarkRead(c fiber.Ctx) error {
	actorID, _, okc := actorFromFiber(c)
	if !okc {
		return unauthorized(c)
	}
	notifID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid notification id")
	}

	if err := h.svc.MarkRead(c.Context(), notifID, actorID); err != nil {
		if errors.Is(err, notification.ErrNotFound) {
			return notFound(c, err.Error())
		}
		return internalError(c)
	}
	return noContent(c)
}

// PATCH /notifications/read-all
func (h *NotificationHandler) MarkAllRead(c fiber.Ctx) error {
	actorID, _, okc := actorFromFiber(c)
	if !okc {
		return unauthorized(c)
	}

	if err := h.svc.MarkAllRead(c.Context(), actorID); err != nil {
		return internalError(c)
	}
	return noContent(c)
}
