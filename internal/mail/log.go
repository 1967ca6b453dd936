package mail

import (
	"context"

	"go.uber.org/zap"
)

// LogMailer only logs the messages it is asked to send. It is used when no provider is
// configured.
type LogMailer struct {
	log *zap.SugaredLogger
}

func NewLogMailer(log *zap.SugaredLogger) *LogMailer {
	return &LogMailer{log: log}
}

// Send logs the recipient and subject. The body is not logged.
func (m *LogMailer) Send(_ context.Context, to, subject, _ string) error {
	m.log.Infow("mail not delivered, no provider configured", "to", to, "subject", subject)
	return nil
}
