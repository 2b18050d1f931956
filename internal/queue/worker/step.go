package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/saarfitness/gymhub/internal/domain/job"
	"github.com/saarfitness/gymhub/internal/jobs"
	"github.com/saarfitness/gymhub/internal/notifications"
)

// ProcessOne claims and settles a single job. It returns (false, nil) when
// the queue is empty.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	claimCtx, cancel := context.WithTimeout(ctx, 2*time.Second)

	j, err := w.repo.ClaimNext(claimCtx, w.cfg.WorkerID)
	cancel()

	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			return false, nil
		}

		return false, err
	}

	if w.prom != nil {
		w.prom.JobsInFlight.Inc()
		defer w.prom.JobsInFlight.Dec()
	}

	start := time.Now()

	err = w.execute(ctx, j)

	result := "done"

	if err != nil {
		result = w.handleFailure(ctx, j, err)
	} else if markErr := w.repo.MarkDone(ctx, j.ID); markErr != nil {
		_ = w.repo.MarkFailed(ctx, j.ID, "mark_done_failed: "+markErr.Error())
		result = "failed"
	}

	if w.prom != nil {
		w.prom.JobResults.WithLabelValues(j.Type, result).Inc()
		w.prom.JobDuration.WithLabelValues(j.Type, result).Observe(time.Since(start).Seconds())
	}

	w.log.Info("job settled", "job_id", j.ID, "type", j.Type, "result", result, "attempt", j.Attempts)

	return true, nil
}

func (w *Worker) execute(ctx context.Context, j job.Job) error {
	payload, err := jobs.DecodePayload(j)

	if err != nil {
		return err
	}

	switch p := payload.(type) {
	case jobs.WelcomeMailPayload:
		return w.notifier.SendWelcome(ctx, notifications.WelcomeInput{
			Email:    p.Email,
			Name:     p.Name,
			MemberID: p.MemberID,
		})

	case jobs.ExpiryNoticePayload:
		return w.notifier.SendExpiryNotice(ctx, notifications.ExpiryNoticeInput{
			Email:     p.Email,
			Name:      p.Name,
			MemberID:  p.MemberID,
			ExpiredOn: p.ExpiredOn,
		})

	default:
		return jobs.ErrInvalidJobType
	}
}

// handleFailure decides between retry-with-backoff and dead-lettering, and
// returns the result label for metrics.
func (w *Worker) handleFailure(ctx context.Context, j job.Job, execErr error) string {
	// malformed jobs never succeed; fail them immediately
	if errors.Is(execErr, jobs.ErrInvalidJobType) || errors.Is(execErr, jobs.ErrInvalidJobPayload) {
		_ = w.repo.MarkFailed(ctx, j.ID, execErr.Error())
		return "failed"
	}

	nextAttempt := j.Attempts + 1

	if nextAttempt >= j.MaxAttempts {
		_ = w.repo.MarkFailed(ctx, j.ID, fmt.Sprintf("max attempts reached: %v", execErr))
		return "failed"
	}

	runAt := time.Now().UTC().Add(ExponentialBackoff(j.Attempts))

	if err := w.repo.Reschedule(ctx, j.ID, runAt, execErr.Error()); err != nil {
		_ = w.repo.MarkFailed(ctx, j.ID, "reschedule_failed: "+err.Error())
		return "failed"
	}

	return "retry"
}
