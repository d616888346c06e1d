package notifications

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

// TwilioSender delivers SMS through Twilio
type TwilioSender struct {
	client     *twilio.RestClient
	fromNumber string
	logger     *zap.Logger
}

// NewTwilioSender creates a new Twilio SMS sender. Without a sender number
// messages are logged instead of sent.
func NewTwilioSender(accountSID, authToken, fromNumber string, logger *zap.Logger) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	return &TwilioSender{
		client:     client,
		fromNumber: fromNumber,
		logger:     logger,
	}
}

// Enabled reports whether SMS are actually delivered
func (t *TwilioSender) Enabled() bool {
	return t.fromNumber != ""
}

// SendSMS sends message to the E.164 number to
func (t *TwilioSender) SendSMS(ctx context.Context, to, message string) error {
	if !t.Enabled() {
		t.logger.Info("sms delivery disabled, message dropped", zap.String("to", maskRecipient(to)))
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.fromNumber)
	params.SetBody(message)

	if _, err := t.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}
	return nil
}
