package email

import (
	"strings"
	"testing"
	"time"
)

func TestFormatMoney(t *testing.T) {
	if got := formatMoney(12345, "USD"); got != "123.45 USD" {
		t.Errorf("formatMoney = %q", got)
	}
	if got := formatMoney(0, "EUR"); got != "0.00 EUR" {
		t.Errorf("formatMoney = %q", got)
	}
}

func TestBuildCancellationEmail(t *testing.T) {
	start := time.Date(2026, 10, 12, 15, 0, 0, 0, time.UTC)

	t.Run("with refund", func(t *testing.T) {
		m := BuildCancellationEmail(AppointmentEmailData{
			RecipientName: "Dana",
			Email:         "dana@example.com",
			Title:         "Portrait session",
			StartDate:     start,
			Currency:      "USD",
			TotalPaid:     10000,
			RefundAmount:  5000,
		})
		if len(m.To) != 1 || m.To[0] != "dana@example.com" {
			t.Errorf("To = %v", m.To)
		}
		if !strings.Contains(m.Subject, "Portrait session") {
			t.Errorf("subject missing title: %q", m.Subject)
		}
		if !strings.Contains(m.TextBody, "50.00 USD") {
			t.Errorf("text body missing refund amount:\n%s", m.TextBody)
		}
		if m.HTMLBody == "" {
			t.Error("expected an HTML body")
		}
	})

	t.Run("nothing paid", func(t *testing.T) {
		m := BuildCancellationEmail(AppointmentEmailData{
			Email:     "dana@example.com",
			Title:     "Portrait session",
			StartDate: start,
			Currency:  "USD",
		})
		if !strings.Contains(m.TextBody, "nothing to refund") {
			t.Errorf("text body should mention there is nothing to refund:\n%s", m.TextBody)
		}
	})
}

func TestBuildProposalEmail(t *testing.T) {
	m := BuildProposalEmail(AppointmentEmailData{
		RecipientName: "Dana",
		Email:         "dana@example.com",
		Title:         "Mural consult",
		StartDate:     time.Now(),
	})
	if !strings.Contains(m.Subject, "Mural consult") {
		t.Errorf("subject missing title: %q", m.Subject)
	}
	if !strings.Contains(m.TextBody, "Hi Dana") {
		t.Errorf("greeting missing:\n%s", m.TextBody)
	}
}
