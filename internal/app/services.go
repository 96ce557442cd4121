package app

import (
	"github.com/nats-io/nats.go"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/artlinkhq/artlink_backend/internal/service/appointment"
	"github.com/artlinkhq/artlink_backend/internal/service/conversation"
	"github.com/artlinkhq/artlink_backend/internal/service/notification"
	"github.com/artlinkhq/artlink_backend/internal/service/payment"
	pasetotoken "github.com/artlinkhq/artlink_backend/pkg/paseto"
	"github.com/artlinkhq/artlink_backend/pkg/stripe"
)

// ServiceModule provides all application services.
var ServiceModule = fx.Module("services",
	fx.Provide(ProvideNotificationService),
	fx.Provide(ProvideConversationService),
	fx.Provide(ProvidePaymentService),
	fx.Provide(ProvideAppointmentService),
	fx.Provide(pasetotoken.NewPasetoManager),
)

func ProvideNotificationService(db *gorm.DB) notification.Service {
	return notification.New(db)
}

func ProvideConversationService(db *gorm.DB, nc *nats.Conn) conversation.Service {
	return conversation.New(db, nc)
}

func ProvidePaymentService(db *gorm.DB, gateway *stripe.Client) payment.Service {
	return payment.New(db, gateway)
}

func ProvideAppointmentService(
	db *gorm.DB,
	paymentSvc payment.Service,
	notifSvc notification.Service,
	convSvc conversation.Service,
	nc *nats.Conn,
) appointment.Service {
	return appointment.New(db, paymentSvc, notifSvc, convSvc, nc)
}
