package router

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/artlinkhq/artlink_backend/config"
	"github.com/artlinkhq/artlink_backend/internal/api/http/handler"
	"github.com/artlinkhq/artlink_backend/internal/api/http/middleware"
	"github.com/artlinkhq/artlink_backend/internal/service/appointment"
	"github.com/artlinkhq/artlink_backend/internal/service/conversation"
	"github.com/artlinkhq/artlink_backend/internal/service/notification"
	"github.com/artlinkhq/artlink_backend/internal/service/payment"
	pasetotoken "github.com/artlinkhq/artlink_backend/pkg/paseto"
)

// Module provides the Router to the fx graph.
var Module = fx.Module("router", fx.Provide(NewRouter))

type Params struct {
	fx.In

	Cfg             *config.Config
	Redis           *redis.Client
	AppointmentSvc  appointment.Service
	PaymentSvc      payment.Service
	ConversationSvc conversation.Service
	NotificationSvc notification.Service
	PasetoMgr       *pasetotoken.Manager
}

type Router struct {
	p Params
}

func NewRouter(p Params) *Router {
	return &Router{p: p}
}

func (r *Router) Register(app *fiber.App) {
	r.registerSystemRoutes(app)

	authRequired := middleware.AuthRequired(r.p.PasetoMgr, r.p.Redis)

	appointmentH := handler.NewAppointmentHandler(r.p.AppointmentSvc)
	paymentH := handler.NewPaymentHandler(r.p.PaymentSvc)
	conversationH := handler.NewConversationHandler(r.p.ConversationSvc)
	notificationH := handler.NewNotificationHandler(r.p.NotificationSvc)

	api := app.Group("/api/v1")

	r.registerAppointmentRoutes(api, appointmentH, authRequired)
	r.registerPaymentRoutes(api, paymentH, authRequired)
	r.registerConversationRoutes(api, conversationH, authRequired)
	r.registerNotificationRoutes(api, notificationH, authRequired)
}

func (r *Router) registerSystemRoutes(app *fiber.App) {
	app.Get(healthcheck.LivenessEndpoint, healthcheck.New())
	app.Get(healthcheck.ReadinessEndpoint, healthcheck.New())
	app.Get(healthcheck.StartupEndpoint, healthcheck.New())

	if r.p.Cfg.Observability.Enabled && r.p.Cfg.Observability.Metrics.Enabled {
		path := r.p.Cfg.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		app.Get(path, adaptor.HTTPHandler(promhttp.Handler()))
	}
}
