package notifications

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

// LogNotifier is the dev/test stand-in: it logs instead of sending.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (n *LogNotifier) simulate(ctx context.Context) error {
	// Optional: simulate slow provider
	if msStr := os.Getenv("NOTIFIER_SLEEP_MS"); msStr != "" {
		ms, _ := strconv.Atoi(msStr)
		if ms > 0 {
			select {
			case <-time.After(time.Duration(ms) * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	// Optional: simulate provider outage
	if os.Getenv("NOTIFIER_FAIL") == "1" {
		return fmt.Errorf("provider down (simulated)")
	}

	return nil
}

func (n *LogNotifier) SendWelcome(ctx context.Context, in WelcomeInput) error {
	if err := n.simulate(ctx); err != nil {
		return err
	}

	log.Printf("notification.member_welcome email=%s name=%s member=%s",
		in.Email, in.Name, in.MemberID,
	)
	return nil
}

func (n *LogNotifier) SendExpiryNotice(ctx context.Context, in ExpiryNoticeInput) error {
	if err := n.simulate(ctx); err != nil {
		return err
	}

	log.Printf("notification.expiry_notice email=%s name=%s member=%s expired_on=%s",
		in.Email, in.Name, in.MemberID, in.ExpiredOn.Format("2006-01-02"),
	)
	return nil
}

func (n *LogNotifier) SendExpiryDigest(ctx context.Context, in ExpiryDigestInput) error {
	if err := n.simulate(ctx); err != nil {
		return err
	}

	log.Printf("notification.expiry_digest recipients=%d members=%d",
		len(in.Recipients), len(in.Members),
	)
	return nil
}
