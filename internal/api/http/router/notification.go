package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/artlinkhq/artlink_backend/internal/api/http/handler"
)

func (r *Router) registerNotificationRoutes(
	api fiber.Router,
	nh *handler.NotificationHandler,
	authRequired fiber.Handler,
) {
	notifs := api.Group("/notifications", authRequired)

	notifs.Get("/", nh.List)
	notifs.Patch("/read-all", nh.MarkAllRead)
	notifs.Patch("/:id/read", nh.MarkRead)
}
