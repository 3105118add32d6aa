package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/abduss/artifactdrive/internal/config"
	"github.com/abduss/artifactdrive/internal/ticket"
)

// LogDispatcher records notifications in the log instead of sending them.
// It is used when no SMTP server is configured.
type LogDispatcher struct {
	logger *zap.Logger
}

// NewLogDispatcher builds a log-only dispatcher.
func NewLogDispatcher(logger *zap.Logger) *LogDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogDispatcher{logger: logger.With(zap.String("component", "notify"))}
}

func (d *LogDispatcher) SendConfirmation(_ context.Context, t ticket.Ticket) error {
	msg, err := confirmationMessage(t)
	if err != nil {
		return err
	}
	d.logger.Info("confirmation email (not sent)", zap.Int64("ticket_id", t.ID), zap.String("subject", msg.Subject))
	return nil
}

func (d *LogDispatcher) SendInternalAlert(_ context.Context, t ticket.Ticket) error {
	d.logger.Info("support alert (not sent)",
		zap.Int64("ticket_id", t.ID),
		zap.String("category", t.Category),
		zap.Int("attachments", len(t.Attachments)),
	)
	return nil
}

// New picks the SMTP dispatcher when a host is configured and the log dispatcher otherwise.
func New(cfg config.NotifyConfig, logger *zap.Logger) ticket.Dispatcher {
	if cfg.SMTPHost == "" {
		return NewLogDispatcher(logger)
	}
	return NewSMTPDispatcher(cfg, logger)
}
