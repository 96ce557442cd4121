package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/artlinkhq/artlink_backend/internal/api/http/handler"
)

func (r *Router) registerPaymentRoutes(
	api fiber.Router,
	ph *handler.PaymentHandler,
	authRequired fiber.Handler,
) {
	payments := api.Group("/payments", authRequired)

	payments.Post("/initiate", ph.Initiate)
	payments.Post("/:id/confirm", ph.Confirm)
	payments.Get("/appointment/:id", ph.ListForAppointment)
}
