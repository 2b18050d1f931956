package jobs

import "errors"

type Type string

const (
	// TypeWelcomeMail greets a member whose portal credentials were just
	// created.
	TypeWelcomeMail Type = "mail.member_welcome"
	// TypeExpiryNotice tells one member their subscription has lapsed. The
	// staff digest mail is sent synchronously by the expiry-check handler,
	// these per-member notices go through the queue.
	TypeExpiryNotice Type = "mail.expiry_notice"
)

func (t Type) IsValid() bool {
	switch t {
	case TypeWelcomeMail, TypeExpiryNotice:
		return true
	default:
		return false
	}
}

var (
	ErrInvalidJobType      = errors.New("invalid job type")
	ErrInvalidJobPayload   = errors.New("invalid job payload")
	ErrPayloadTypeMismatch = errors.New("payload type mismatch for job type")
)
