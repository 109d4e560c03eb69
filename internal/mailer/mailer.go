package mailer

import "embed"

const (
	FromName                 = "The Loft"
	maxRetries               = 3
	UserWelcomeTemplate      = "user_invitation.tmpl"
	ResetPasswordTemplate    = "reset_password.tmpl"
	BookingReceivedTemplate  = "booking_received.tmpl"
	BookingConfirmedTemplate = "booking_confirmed.tmpl"
	BookingDeclinedTemplate  = "booking_declined.tmpl"
)

//go:embed "templates"
var FS embed.FS

type Client interface {
	Send(templateFile, username, email string, data any) (int, error)
}
