package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/artlinkhq/artlink_backend/internal/model"
	"github.com/artlinkhq/artlink_backend/internal/service/appointment"
	pasetotoken "github.com/artlinkhq/artlink_backend/pkg/paseto"
)

// fakeAppointments records the arguments Cancel was called with.
type fakeAppointments struct {
	cancelCalls  int
	cancelReason *string
}

func (f *fakeAppointments) List(_ context.Context, _ appointment.ListRequest) ([]*model.Appointment, error) {
	return []*model.Appointment{}, nil
}

func (f *fakeAppointments) GetByID(_ context.Context, _ uuid.UUID) (*model.Appointment, error) {
	return nil, appointment.ErrNotFound
}

func (f *fakeAppointments) History(_ context.Context, _ uuid.UUID) ([]*model.AppointmentStatusHistory, error) {
	return nil, nil
}

func (f *fakeAppointments) Propose(_ context.Context, _ uuid.UUID, _ appointment.ProposeRequest) (*model.Appointment, error) {
	return nil, nil
}

func (f *fakeAppointments) RespondToProposal(_ context.Context, _, _ uuid.UUID, _ appointment.RespondRequest) (*model.Appointment, error) {
	return nil, nil
}

func (f *fakeAppointments) Cancel(_ context.Context, _, _ uuid.UUID, _ model.Role, reason *string) (*appointment.CancelResult, error) {
	f.cancelCalls++
	f.cancelReason = reason
	return &appointment.CancelResult{
		Appointment: &model.Appointment{Status: model.StatusCancelled},
		Refunds:     []*model.Payment{},
	}, nil
}

func (f *fakeAppointments) Confirm(_ context.Context, _, _ uuid.UUID, _ model.Role) (*model.Appointment, error) {
	return nil, nil
}

func (f *fakeAppointments) Complete(_ context.Context, _, _ uuid.UUID, _ model.Role) (*model.Appointment, error) {
	return nil, nil
}

func (f *fakeAppointments) Reschedule(_ context.Context, _, _ uuid.UUID, _ model.Role) (*model.Appointment, error) {
	return nil, nil
}

func (f *fakeAppointments) Reopen(_ context.Context, _, _ uuid.UUID, _ model.Role, _ []time.Time) (*model.Appointment, error) {
	return nil, nil
}

func newAppointmentApp(t *testing.T, svc appointment.Service) *fiber.App {
	t.Helper()
	app := fiber.New()
	claims := &pasetotoken.Claims{UserID: uuid.New(), Role: string(model.RoleClient)}
	app.Use(func(c fiber.Ctx) error {
		c.Locals(pasetotoken.CtxKeyClaims, claims)
		return c.Next()
	})
	h := NewAppointmentHandler(svc)
	app.Get("/appointments", h.List)
	app.Patch("/appointments/:id/cancel", h.Cancel)
	return app
}

func TestCancelHandler_MalformedBodyRejected(t *testing.T) {
	svc := &fakeAppointments{}
	app := newAppointmentApp(t, svc)

	req := httptest.NewRequest(http.MethodPatch, "/appointments/"+uuid.NewString()+"/cancel",
		strings.NewReader(`{"reason":`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	if svc.cancelCalls != 0 {
		t.Errorf("service called %d times on malformed body, want 0", svc.cancelCalls)
	}
}

func TestCancelHandler_EmptyBodyAllowed(t *testing.T) {
	svc := &fakeAppointments{}
	app := newAppointmentApp(t, svc)

	req := httptest.NewRequest(http.MethodPatch, "/appointments/"+uuid.NewString()+"/cancel", nil)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if svc.cancelCalls != 1 {
		t.Fatalf("service called %d times, want 1", svc.cancelCalls)
	}
	if svc.cancelReason != nil {
		t.Errorf("reason = %v, want nil", svc.cancelReason)
	}
}

func TestCancelHandler_ReasonPassedThrough(t *testing.T) {
	svc := &fakeAppointments{}
	app := newAppointmentApp(t, svc)

	req := httptest.NewRequest(http.MethodPatch, "/appointments/"+uuid.NewString()+"/cancel",
		strings.NewReader(`{"reason":"venue flooded"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if svc.cancelReason == nil || *svc.cancelReason != "venue flooded" {
		t.Errorf("reason = %v, want %q", svc.cancelReason, "venue flooded")
	}
}

func TestListHandler_MalformedQueryRejected(t *testing.T) {
	svc := &fakeAppointments{}
	app := newAppointmentApp(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/appointments?page=abc", nil)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}
