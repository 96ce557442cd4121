package email

import (
	"fmt"
	"time"
)

// AppointmentEmailData carries everything the appointment lifecycle emails
// need. Amounts are in minor units and formatted with the currency code.
type AppointmentEmailData struct {
	RecipientName  string
	Email          string
	AppName        string
	Title          string
	StartDate      time.Time
	Currency       string
	RefundAmount   int64
	TotalPaid      int64
	CancelledByPro bool
	Reason         string
}

func formatMoney(minor int64, currency string) string {
	return fmt.Sprintf("%.2f %s", float64(minor)/100, currency)
}

// BuildCancellationEmail creates the email sent to the counterparty when an
// appointment is cancelled, including what part of the paid money comes back.
func BuildCancellationEmail(data AppointmentEmailData) Message {
	appName := data.AppName
	if appName == "" {
		appName = "Artlink"
	}
	name := data.RecipientName
	if name == "" {
		name = "there"
	}

	subject := fmt.Sprintf("Your appointment %q was cancelled", data.Title)

	refundLine := "No payments had been made, so there is nothing to refund."
	if data.TotalPaid > 0 {
		refundLine = fmt.Sprintf("Of the %s paid, %s is being refunded to the original payment method.",
			formatMoney(data.TotalPaid, data.Currency),
			formatMoney(data.RefundAmount, data.Currency))
	}

	reasonLine := ""
	if data.Reason != "" {
		reasonLine = fmt.Sprintf("\nReason given: %s\n", data.Reason)
	}

	textBody := fmt.Sprintf(`Hi %s,

The appointment %q scheduled for %s was cancelled.
%s
%s
Thanks,
The %s Team`,
		name, data.Title, data.StartDate.Format("Monday, 2 January 2006 at 15:04"),
		reasonLine, refundLine, appName)

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="color: #2563eb;">Hi %s,</h2>
    <p>The appointment <strong>%s</strong> scheduled for <strong>%s</strong> was cancelled.</p>
    <p>%s</p>
    <p style="color: #6b7280; font-size: 14px; margin-top: 30px;">Thanks,<br>The %s Team</p>
</body>
</html>`,
		name, data.Title, data.StartDate.Format("Monday, 2 January 2006 at 15:04"),
		refundLine, appName)

	return Message{
		To:       []string{data.Email},
		Subject:  subject,
		TextBody: textBody,
		HTMLBody: htmlBody,
	}
}

// BuildProposalEmail creates the email sent to a client when a pro proposes
// an appointment.
func BuildProposalEmail(data AppointmentEmailData) Message {
	appName := data.AppName
	if appName == "" {
		appName = "Artlink"
	}
	name := data.RecipientName
	if name == "" {
		name = "there"
	}

	subject := fmt.Sprintf("New appointment proposal: %s", data.Title)

	textBody := fmt.Sprintf(`Hi %s,

You have a new appointment proposal: %q, starting %s.

Open the app to accept or decline it.

Thanks,
The %s Team`,
		name, data.Title, data.StartDate.Format("Monday, 2 January 2006 at 15:04"), appName)

	return Message{
		To:       []string{data.Email},
		Subject:  subject,
		TextBody: textBody,
	}
}

// BuildConfirmationEmail creates the email sent when an appointment is
// confirmed after full payment.
func BuildConfirmationEmail(data AppointmentEmailData) Message {
	appName := data.AppName
	if appName == "" {
		appName = "Artlink"
	}
	name := data.RecipientName
	if name == "" {
		name = "there"
	}

	subject := fmt.Sprintf("Appointment confirmed: %s", data.Title)

	textBody := fmt.Sprintf(`Hi %s,

Your appointment %q on %s is confirmed.

Thanks,
The %s Team`,
		name, data.Title, data.StartDate.Format("Monday, 2 January 2006 at 15:04"), appName)

	return Message{
		To:       []string{data.Email},
		Subject:  subject,
		TextBody: textBody,
	}
}
