package platform

import (
	"context"
	"log/slog"
)

// Mailer sends the handful of transactional mails the auth flows need.
type Mailer interface {
	SendVerificationCode(ctx context.Context, email, name, code string) error
}

// LogMailer writes mail to the log instead of sending it. Default in
// development; swap for a real provider in production.
type LogMailer struct {
	Logger *slog.Logger
}

func (m *LogMailer) SendVerificationCode(ctx context.Context, email, name, code string) error {
	m.Logger.Info("verification mail", "email", email, "name", name, "code", code)
	return nil
}
