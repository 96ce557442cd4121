package app

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/artlinkhq/artlink_backend/config"
	"github.com/artlinkhq/artlink_backend/internal/model"
	"github.com/artlinkhq/artlink_backend/internal/service/notification"
	"github.com/artlinkhq/artlink_backend/pkg/email"
)

// WorkerModule registers all NATS event workers.
var WorkerModule = fx.Module("workers",
	fx.Invoke(RegisterWorkers),
)

type WorkerParams struct {
	fx.In

	Lc       fx.Lifecycle
	NC       *nats.Conn
	DB       *gorm.DB
	NotifSvc notification.Service
	Email    *email.Client
	Cfg      *config.Config
}

func RegisterWorkers(p WorkerParams) {
	p.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			startMessageWorker(p.NC, p.DB, p.NotifSvc)
			startEmailWorker(p.NC, p.DB, p.Email, p.Cfg)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			// Drain handled by ProvideNatsClient
			return nil
		},
	})
}

// ---------------------------------------------------------------------------
// message_worker
// ---------------------------------------------------------------------------

func startMessageWorker(nc *nats.Conn, db *gorm.DB, notifSvc notification.Service) {
	_, err := nc.Subscribe("artlink.message.new.*", func(msg *nats.Msg) {
		parts := strings.Split(msg.Subject, ".")
		if len(parts) < 4 {
			return
		}
		convID, err := uuid.Parse(parts[3])
		if err != nil {
			return
		}
		msgID, err := uuid.Parse(strings.TrimSpace(string(msg.Data)))
		if err != nil {
			return
		}

		ctx := context.Background()

		var conv model.Conversation
		if err := db.WithContext(ctx).First(&conv, "id = ?", convID).Error; err != nil {
			slog.Warn("message_worker: conversation not found", "id", convID, "err", err)
			return
		}

		var message model.Message
		if err := db.WithContext(ctx).First(&message, "id = ?", msgID).Error; err != nil {
			slog.Warn("message_worker: message not found", "id", msgID, "err", err)
			return
		}

		// System messages already produce an appointment notification; here we
		// only fan out user-sent chat messages to the other participant.
		if message.SenderID == nil {
			return
		}
		recipientID := conv.ParticipantA
		if conv.ParticipantA == *message.SenderID {
			recipientID = conv.ParticipantB
		}

		_, err = notifSvc.Create(ctx, notification.CreateRequest{
			UserID: recipientID,
			Type:   "message_new",
			Title:  "New message",
			Data:   map[string]any{"conversation_id": conv.ID.String()},
		})
		if err != nil {
			slog.Warn("message_worker: create notification failed", "err", err)
		}
	})
	if err != nil {
		slog.Error("message_worker: subscribe message.new failed", "err", err)
	}

	slog.Info("message_worker: started")
}

// ---------------------------------------------------------------------------
// email_worker
// ---------------------------------------------------------------------------

func startEmailWorker(nc *nats.Conn, db *gorm.DB, mail *email.Client, cfg *config.Config) {
	if !cfg.Email.Enabled {
		slog.Info("email_worker: email disabled, not subscribing")
		return
	}

	_, err := nc.Subscribe("artlink.appointment.cancelled.*", func(msg *nats.Msg) {
		apptID, err := uuid.Parse(strings.TrimSpace(string(msg.Data)))
		if err != nil {
			return
		}
		ctx := context.Background()

		appt, client, err := loadAppointmentClient(ctx, db, apptID)
		if err != nil {
			slog.Warn("email_worker: load appointment failed", "id", apptID, "err", err)
			return
		}

		data := email.AppointmentEmailData{
			RecipientName: client.DisplayName,
			Email:         client.Email,
			Title:         appt.Title,
			StartDate:     appt.StartDate,
			Currency:      appt.Currency,
		}
		if appt.CancellationReason != nil {
			data.Reason = *appt.CancellationReason
		}

		// The cancellation history row carries the refund figures computed at
		// transition time; re-deriving them here would race later payments.
		var hist model.AppointmentStatusHistory
		histErr := db.WithContext(ctx).
			Where("appointment_id = ? AND new_status = ?", apptID, model.StatusCancelled).
			Order("created_at DESC").
			First(&hist).Error
		if histErr == nil {
			if v, ok := hist.Metadata["refund_amount"].(float64); ok {
				data.RefundAmount = int64(v)
			}
			if v, ok := hist.Metadata["total_paid"].(float64); ok {
				data.TotalPaid = int64(v)
			}
			if v, ok := hist.Metadata["cancelled_by"].(string); ok {
				data.CancelledByPro = v == string(model.RolePro)
			}
		}

		if err := mail.Send(ctx, email.BuildCancellationEmail(data)); err != nil {
			slog.Warn("email_worker: send cancellation email failed", "appointment_id", apptID, "err", err)
		}
	})
	if err != nil {
		slog.Error("email_worker: subscribe appointment.cancelled failed", "err", err)
	}

	_, err = nc.Subscribe("artlink.appointment.proposed.*", func(msg *nats.Msg) {
		apptID, err := uuid.Parse(strings.TrimSpace(string(msg.Data)))
		if err != nil {
			return
		}
		ctx := context.Background()

		appt, client, err := loadAppointmentClient(ctx, db, apptID)
		if err != nil {
			slog.Warn("email_worker: load appointment failed", "id", apptID, "err", err)
			return
		}

		m := email.BuildProposalEmail(email.AppointmentEmailData{
			RecipientName: client.DisplayName,
			Email:         client.Email,
			Title:         appt.Title,
			StartDate:     appt.StartDate,
			Currency:      appt.Currency,
		})
		if err := mail.Send(ctx, m); err != nil {
			slog.Warn("email_worker: send proposal email failed", "appointment_id", apptID, "err", err)
		}
	})
	if err != nil {
		slog.Error("email_worker: subscribe appointment.proposed failed", "err", err)
	}

	_, err = nc.Subscribe("artlink.appointment.confirmed.*", func(msg *nats.Msg) {
		apptID, err := uuid.Parse(strings.TrimSpace(string(msg.Data)))
		if err != nil {
			return
		}
		ctx := context.Background()

		appt, client, err := loadAppointmentClient(ctx, db, apptID)
		if err != nil {
			slog.Warn("email_worker: load appointment failed", "id", apptID, "err", err)
			return
		}

		m := email.BuildConfirmationEmail(email.AppointmentEmailData{
			RecipientName: client.DisplayName,
			Email:         client.Email,
			Title:         appt.Title,
			StartDate:     appt.StartDate,
			Currency:      appt.Currency,
		})
		if err := mail.Send(ctx, m); err != nil {
			slog.Warn("email_worker: send confirmation email failed", "appointment_id", apptID, "err", err)
		}
	})
	if err != nil {
		slog.Error("email_worker: subscribe appointment.confirmed failed", "err", err)
	}

	slog.Info("email_worker: started")
}

func loadAppointmentClient(ctx context.Context, db *gorm.DB, apptID uuid.UUID) (*model.Appointment, *model.User, error) {
	var appt model.Appointment
	if err := db.WithContext(ctx).First(&appt, "id = ?", apptID).Error; err != nil {
		return nil, nil, err
	}
	var client model.User
	if err := db.WithContext(ctx).First(&client, "id = ?", appt.ClientID).Error; err != nil {
		return nil, nil, err
	}
	return &appt, &client, nil
}
