package jobs_test

import (
	"errors"
	"testing"
	"time"

	"github.com/saarfitness/gymhub/internal/domain/job"
	"github.com/saarfitness/gymhub/internal/jobs"
)

func TestDecodePayload(t *testing.T) {
	welcome, err := jobs.WelcomeMailPayload{
		MemberID:    "m-1",
		Email:       "m@example.com",
		Name:        "Asha",
		RequestedAt: time.Now().UTC(),
	}.JSON()

	if err != nil {
		t.Fatalf("encode welcome: %v", err)
	}

	notice, err := jobs.ExpiryNoticePayload{
		MemberID:  "m-2",
		Email:     "n@example.com",
		ExpiredOn: time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
	}.JSON()

	if err != nil {
		t.Fatalf("encode notice: %v", err)
	}

	tests := []struct {
		name    string
		job     job.Job
		wantErr error
		check   func(t *testing.T, got any)
	}{
		{
			name: "welcome mail",
			job:  job.Job{Type: string(jobs.TypeWelcomeMail), Payload: welcome},
			check: func(t *testing.T, got any) {
				p, ok := got.(jobs.WelcomeMailPayload)
				if !ok || p.MemberID != "m-1" {
					t.Fatalf("decoded %#v", got)
				}
			},
		},
		{
			name: "expiry notice",
			job:  job.Job{Type: string(jobs.TypeExpiryNotice), Payload: notice},
			check: func(t *testing.T, got any) {
				p, ok := got.(jobs.ExpiryNoticePayload)
				if !ok || p.MemberID != "m-2" {
					t.Fatalf("decoded %#v", got)
				}
			},
		},
		{
			name:    "unknown type",
			job:     job.Job{Type: "mail.unknown", Payload: welcome},
			wantErr: jobs.ErrInvalidJobType,
		},
		{
			name:    "empty payload",
			job:     job.Job{Type: string(jobs.TypeWelcomeMail)},
			wantErr: jobs.ErrInvalidJobPayload,
		},
		{
			name:    "malformed json",
			job:     job.Job{Type: string(jobs.TypeWelcomeMail), Payload: []byte("{nope")},
			wantErr: jobs.ErrInvalidJobPayload,
		},
		{
			name:    "missing required fields",
			job:     job.Job{Type: string(jobs.TypeExpiryNotice), Payload: []byte(`{"memberId":"","email":""}`)},
			wantErr: jobs.ErrInvalidJobPayload,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := jobs.DecodePayload(tc.job)

			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("err = %v, want %v", err, tc.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}

			tc.check(t, got)
		})
	}
}
