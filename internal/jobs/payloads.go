package jobs

import (
	"encoding/json"
	"time"
)

// Payloads stay minimal and ID-based; the worker reloads details it needs
// from the member partition at execution time.

type WelcomeMailPayload struct {
	MemberID    string    `json:"memberId"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	RequestedAt time.Time `json:"requestedAt"`
}

type ExpiryNoticePayload struct {
	MemberID  string    `json:"memberId"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	ExpiredOn time.Time `json:"expiredOn"`
}

func (p WelcomeMailPayload) JSON() (json.RawMessage, error) {
	b, err := json.Marshal(p)

	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}

func (p ExpiryNoticePayload) JSON() (json.RawMessage, error) {
	b, err := json.Marshal(p)

	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}
