package mail

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"
	"golang.org/x/time/rate"
)

// SMTPConfig holds the connection settings for the outbound relay.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string

	// SendsPerSecond caps outbound volume so a registration burst cannot get
	// the relay greylisted. Zero disables throttling.
	SendsPerSecond float64
}

// SMTPSender delivers mail through an SMTP relay.
type SMTPSender struct {
	client  *gomail.Client
	from    string
	limiter *rate.Limiter
}

func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(cfg.Username),
		gomail.WithPassword(cfg.Password),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.SendsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.SendsPerSecond), 1)
	}

	return &SMTPSender{
		client:  client,
		from:    cfg.From,
		limiter: limiter,
	}, nil
}

func (s *SMTPSender) SendVerificationEmail(ctx context.Context, to, username, verifyURL string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	msg := gomail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return fmt.Errorf("set from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set to: %w", err)
	}
	msg.Subject("Verify your account")
	msg.SetBodyString(gomail.TypeTextPlain, fmt.Sprintf(
		"Hi %s,\n\nConfirm your email address to activate your account:\n\n%s\n\nIf you did not sign up, you can ignore this message.\n",
		username, verifyURL,
	))

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}
	return nil
}
