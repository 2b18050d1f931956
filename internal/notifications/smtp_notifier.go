package notifications

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// SMTPNotifier sends real mail. Each send opens its own connection; volume
// here is a handful of mails per day, not a campaign.
type SMTPNotifier struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPNotifier(cfg SMTPConfig) *SMTPNotifier {
	return &SMTPNotifier{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass),
		from:   cfg.From,
	}
}

func (n *SMTPNotifier) send(ctx context.Context, to []string, subject, body string) error {
	if len(to) == 0 {
		return nil
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", n.from)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	// gomail has no context support; run the dial in a goroutine so a hung
	// SMTP server cannot outlive the caller's deadline.
	done := make(chan error, 1)

	go func() {
		done <- n.dialer.DialAndSend(msg)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *SMTPNotifier) SendWelcome(ctx context.Context, in WelcomeInput) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nWelcome to Saar Fitness! Your membership is now active.\n\nYou can log in to the member portal with this email address.\n",
		in.Name,
	)

	return n.send(ctx, []string{in.Email}, "Welcome to Saar Fitness", body)
}

func (n *SMTPNotifier) SendExpiryNotice(ctx context.Context, in ExpiryNoticeInput) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nYour gym membership expired on %s. Please visit the front desk or the member portal to renew.\n",
		in.Name, in.ExpiredOn.Format("2 Jan 2006"),
	)

	return n.send(ctx, []string{in.Email}, "Your membership has expired", body)
}

func (n *SMTPNotifier) SendExpiryDigest(ctx context.Context, in ExpiryDigestInput) error {
	if len(in.Members) == 0 {
		return nil
	}

	var b strings.Builder

	fmt.Fprintf(&b, "The following %d membership(s) expired:\n\n", len(in.Members))

	for _, m := range in.Members {
		fmt.Fprintf(&b, "- %s (%s), ended %s\n", m.Name, m.Email, m.EndDate.Format("2 Jan 2006"))
	}

	b.WriteString("\nPlease follow up with them about renewal.\n")

	subject := fmt.Sprintf("Membership expiry report: %d member(s)", len(in.Members))

	return n.send(ctx, in.Recipients, subject, b.String())
}
