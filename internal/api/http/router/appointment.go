package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/artlinkhq/artlink_backend/internal/api/http/handler"
)

func (r *Router) registerAppointmentRoutes(
	api fiber.Router,
	ah *handler.AppointmentHandler,
	authRequired fiber.Handler,
) {
	appts := api.Group("/appointments", authRequired)

	appts.Get("/", ah.List)
	appts.Post("/", ah.Propose)
	appts.Get("/transitions", ah.TransitionTable)

	a := appts.Group("/:id")
	a.Get("/", ah.GetByID)
	a.Get("/history", ah.History)
	a.Get("/transitions", ah.Transitions)
	a.Post("/respond", ah.Respond)
	a.Patch("/cancel", ah.Cancel)
	a.Patch("/confirm", ah.Confirm)
	a.Patch("/complete", ah.Complete)
	a.Patch("/reschedule", ah.Reschedule)
	a.Patch("/reopen", ah.Reopen)
}
