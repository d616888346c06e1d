package audit

import (
	"context"

	"github.com/dadecresce/maestro-energy-management-sub000/domain"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapAuditLogger writes audit events as structured log entries under the "audit" logger name
type ZapAuditLogger struct {
	logger *zap.Logger
}

var _ domain.AuditLogger = (*ZapAuditLogger)(nil)

// NewZapAuditLogger creates an audit logger. A nil logger discards events.
func NewZapAuditLogger(logger *zap.Logger) *ZapAuditLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapAuditLogger{logger: logger.Named("audit")}
}

// LogEvent implements domain.AuditLogger. Failed events are logged at warn level.
func (l *ZapAuditLogger) LogEvent(_ context.Context, event *domain.AuditEvent) error {
	if event == nil {
		return nil
	}

	fields := []zap.Field{
		zap.String("event", string(event.EventType)),
		zap.Time("timestamp", event.Timestamp),
		zap.Bool("success", event.Success),
	}
	if event.UserID != "" {
		fields = append(fields, zap.String("user_id", event.UserID))
	}
	if event.Email != "" {
		fields = append(fields, zap.String("email", event.Email))
	}
	if event.Provider != "" {
		fields = append(fields, zap.String("provider", string(event.Provider)))
	}
	if event.SessionID != "" {
		fields = append(fields, zap.String("session_id", event.SessionID))
	}
	if event.IPAddress != "" {
		fields = append(fields, zap.String("ip_address", event.IPAddress))
	}
	if event.UserAgent != "" {
		fields = append(fields, zap.String("user_agent", event.UserAgent))
	}
	if event.ErrorMsg != "" {
		fields = append(fields, zap.String("error", event.ErrorMsg))
	}
	if len(event.Metadata) > 0 {
		fields = append(fields, zap.Object("metadata", metadata(event.Metadata)))
	}

	if event.Success {
		l.logger.Info("audit", fields...)
	} else {
		l.logger.Warn("audit", fields...)
	}
	return nil
}

type metadata map[string]interface{}

func (m metadata) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	for k, v := range m {
		if err := enc.AddReflected(k, v); err != nil {
			return err
		}
	}
	return nil
}
