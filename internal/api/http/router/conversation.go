package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/artlinkhq/artlink_backend/internal/api/http/handler"
)

func (r *Router) registerConversationRoutes(
	api fiber.Router,
	ch *handler.ConversationHandler,
	authRequired fiber.Handler,
) {
	convs := api.Group("/conversations", authRequired)

	convs.Get("/", ch.List)

	conv := convs.Group("/:id")
	conv.Get("/", ch.GetByID)
	conv.Get("/messages", ch.ListMessages)
	conv.Post("/messages", ch.SendMessage)
}
