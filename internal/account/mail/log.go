package mail

import (
	"context"

	"github.com/lumehq/accountd/pkg/slogx"
)

// LogSender writes the verification link to the log instead of sending mail.
// Used in dev environments with no SMTP relay configured.
type LogSender struct{}

func (LogSender) SendVerificationEmail(ctx context.Context, to, username, verifyURL string) error {
	slogx.FromContext(ctx).Info("verification email (dev sender)",
		"to", to,
		"username", username,
		"verify_url", verifyURL,
	)
	return nil
}
