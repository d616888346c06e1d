package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"
	"go.uber.org/zap"
)

var ErrFailedToSendEmail = errors.New("failed to send email")

// PostmarkSender delivers transactional e-mail through Postmark
type PostmarkSender struct {
	client *postmark.Client
	from   string
	logger *zap.Logger
}

// NewPostmarkSender creates a Postmark sender. Without a server token or
// sender address messages are logged instead of sent.
func NewPostmarkSender(serverToken, accountToken, from string, logger *zap.Logger) *PostmarkSender {
	var client *postmark.Client
	if serverToken != "" && from != "" {
		client = postmark.NewClient(serverToken, accountToken)
	}
	return &PostmarkSender{client: client, from: from, logger: logger}
}

// Enabled reports whether e-mails are actually delivered
func (p *PostmarkSender) Enabled() bool {
	return p.client != nil
}

// SendEmail sends a plain-text e-mail
func (p *PostmarkSender) SendEmail(ctx context.Context, to, subject, body string) error {
	if !p.Enabled() {
		p.logger.Info("email delivery disabled, message dropped",
			zap.String("to", maskRecipient(to)),
			zap.String("subject", subject),
		)
		return nil
	}

	resp, err := p.client.SendEmail(ctx, postmark.Email{
		From:     p.from,
		To:       to,
		Subject:  subject,
		TextBody: body,
		Tag:      "auth",
	})
	if err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(ErrFailedToSendEmail, fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message))
	}
	return nil
}
