package notifications

import (
	"context"
	"strings"

	"github.com/dadecresce/maestro-energy-management-sub000/domain"
)

// SMSSender sends text messages
type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

// EmailSender sends e-mails
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// Notifier implements domain.NotificationService over one SMS and one e-mail channel
type Notifier struct {
	sms   SMSSender
	email EmailSender
}

// NewNotifier combines the two delivery channels
func NewNotifier(sms SMSSender, email EmailSender) domain.NotificationService {
	return &Notifier{sms: sms, email: email}
}

// SendSMS implements domain.NotificationService
func (n *Notifier) SendSMS(ctx context.Context, to, message string) error {
	return n.sms.SendSMS(ctx, to, message)
}

// SendEmail implements domain.NotificationService
func (n *Notifier) SendEmail(ctx context.Context, to, subject, body string) error {
	return n.email.SendEmail(ctx, to, subject, body)
}

// maskRecipient keeps enough of an address or number to correlate log lines
func maskRecipient(to string) string {
	if at := strings.IndexByte(to, '@'); at > 0 {
		return to[:1] + "***" + to[at:]
	}
	if len(to) > 4 {
		return "***" + to[len(to)-4:]
	}
	return "***"
}
