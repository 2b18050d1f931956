package jobs

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/saarfitness/gymhub/internal/domain/job"
)

// DecodePayload unmarshals j.Payload into the typed payload for its job type
// and validates the fields the worker cannot proceed without.
func DecodePayload(j job.Job) (any, error) {
	t := Type(j.Type)

	if !t.IsValid() {
		return nil, ErrInvalidJobType
	}
	if len(j.Payload) == 0 {
		return nil, ErrInvalidJobPayload
	}

	switch t {
	case TypeWelcomeMail:
		var p WelcomeMailPayload
		if err := json.Unmarshal(j.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
		}
		if strings.TrimSpace(p.MemberID) == "" || strings.TrimSpace(p.Email) == "" {
			return nil, ErrInvalidJobPayload
		}
		return p, nil

	case TypeExpiryNotice:
		var p ExpiryNoticePayload
		if err := json.Unmarshal(j.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
		}
		if strings.TrimSpace(p.MemberID) == "" || strings.TrimSpace(p.Email) == "" {
			return nil, ErrInvalidJobPayload
		}
		return p, nil

	default:
		return nil, ErrInvalidJobType
	}
}
