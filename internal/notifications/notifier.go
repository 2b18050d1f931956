package notifications

import (
	"context"
	"time"
)

type WelcomeInput struct {
	Email    string
	Name     string
	MemberID string
}

type ExpiryNoticeInput struct {
	Email     string
	Name      string
	MemberID  string
	ExpiredOn time.Time
}

// ExpiredMember is one line of the staff digest.
type ExpiredMember struct {
	ID      string
	Name    string
	Email   string
	EndDate time.Time
}

type ExpiryDigestInput struct {
	Recipients []string // staff notifyEmail/email addresses
	Members    []ExpiredMember
}

type Notifier interface {
	SendWelcome(ctx context.Context, input WelcomeInput) error
	SendExpiryNotice(ctx context.Context, input ExpiryNoticeInput) error
	SendExpiryDigest(ctx context.Context, input ExpiryDigestInput) error
}
