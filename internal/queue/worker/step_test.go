package worker_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/saarfitness/gymhub/internal/domain/job"
	"github.com/saarfitness/gymhub/internal/jobs"
	"github.com/saarfitness/gymhub/internal/notifications"
	"github.com/saarfitness/gymhub/internal/queue/worker"
)

type fakeJobsRepo struct {
	claimFn   func(ctx context.Context, workerID string) (job.Job, error)
	done      []string
	failed    map[string]string
	rescheds  []time.Time
	requeueFn func(ctx context.Context, lockTTL time.Duration) (int64, error)
}

func newFakeJobsRepo() *fakeJobsRepo {
	return &fakeJobsRepo{failed: map[string]string{}}
}

func (f *fakeJobsRepo) ClaimNext(ctx context.Context, workerID string) (job.Job, error) {
	return f.claimFn(ctx, workerID)
}

func (f *fakeJobsRepo) MarkDone(ctx context.Context, id string) error {
	f.done = append(f.done, id)
	return nil
}

func (f *fakeJobsRepo) MarkFailed(ctx context.Context, id string, errMsg string) error {
	f.failed[id] = errMsg
	return nil
}

func (f *fakeJobsRepo) Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error {
	f.rescheds = append(f.rescheds, runAt)
	return nil
}

func (f *fakeJobsRepo) RequeueStaleProcessing(ctx context.Context, lockTTL time.Duration) (int64, error) {
	if f.requeueFn != nil {
		return f.requeueFn(ctx, lockTTL)
	}
	return 0, nil
}

type stubNotifier struct {
	welcomes int
	notices  int
	err      error
}

func (n *stubNotifier) SendWelcome(ctx context.Context, input notifications.WelcomeInput) error {
	n.welcomes++
	return n.err
}

func (n *stubNotifier) SendExpiryNotice(ctx context.Context, input notifications.ExpiryNoticeInput) error {
	n.notices++
	return n.err
}

func (n *stubNotifier) SendExpiryDigest(ctx context.Context, input notifications.ExpiryDigestInput) error {
	return n.err
}

func newWorker(repo worker.JobsRepository, n notifications.Notifier) *worker.Worker {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	return worker.New(worker.Config{WorkerID: "test-worker"}, repo, n, nil, log)
}

func welcomeJob(t *testing.T, attempts, maxAttempts int) job.Job {
	t.Helper()

	payload, err := jobs.WelcomeMailPayload{
		MemberID: "m-1",
		Email:    "m@example.com",
		Name:     "Asha",
	}.JSON()

	if err != nil {
		t.Fatalf("encode payload: %v", err)
	}

	return job.Job{
		ID:          "j-1",
		Type:        string(jobs.TypeWelcomeMail),
		Payload:     payload,
		Attempts:    attempts,
		MaxAttempts: maxAttempts,
	}
}

func TestProcessOneSuccess(t *testing.T) {
	repo := newFakeJobsRepo()
	notifier := &stubNotifier{}

	j := welcomeJob(t, 0, 5)

	repo.claimFn = func(ctx context.Context, workerID string) (job.Job, error) {
		return j, nil
	}

	w := newWorker(repo, notifier)

	processed, err := w.ProcessOne(context.Background())

	if err != nil || !processed {
		t.Fatalf("processed=%v err=%v", processed, err)
	}

	if notifier.welcomes != 1 {
		t.Fatalf("welcome sent %d times", notifier.welcomes)
	}
	if len(repo.done) != 1 || repo.done[0] != "j-1" {
		t.Fatalf("done = %v", repo.done)
	}
	if len(repo.failed) != 0 || len(repo.rescheds) != 0 {
		t.Fatalf("unexpected failure bookkeeping: %v %v", repo.failed, repo.rescheds)
	}
}

func TestProcessOneEmptyQueue(t *testing.T) {
	repo := newFakeJobsRepo()

	repo.claimFn = func(ctx context.Context, workerID string) (job.Job, error) {
		return job.Job{}, job.ErrJobNotFound
	}

	w := newWorker(repo, &stubNotifier{})

	processed, err := w.ProcessOne(context.Background())

	if processed || err != nil {
		t.Fatalf("empty queue: processed=%v err=%v", processed, err)
	}
}

// A transient send failure gets a backoff reschedule, not a dead letter.
func TestProcessOneRetriesTransientFailure(t *testing.T) {
	repo := newFakeJobsRepo()
	notifier := &stubNotifier{err: errors.New("smtp timeout")}

	j := welcomeJob(t, 1, 5)

	repo.claimFn = func(ctx context.Context, workerID string) (job.Job, error) {
		return j, nil
	}

	w := newWorker(repo, notifier)

	before := time.Now().UTC()

	if _, err := w.ProcessOne(context.Background()); err != nil {
		t.Fatalf("process: %v", err)
	}

	if len(repo.rescheds) != 1 {
		t.Fatalf("reschedules = %d, want 1", len(repo.rescheds))
	}
	if len(repo.failed) != 0 {
		t.Fatalf("dead-lettered a retryable job: %v", repo.failed)
	}

	// attempt 1 backs off at least 4s
	if runAt := repo.rescheds[0]; runAt.Before(before.Add(4 * time.Second)) {
		t.Fatalf("runAt %v is sooner than the backoff floor", runAt)
	}
}

func TestProcessOneDeadLettersAtMaxAttempts(t *testing.T) {
	repo := newFakeJobsRepo()
	notifier := &stubNotifier{err: errors.New("smtp timeout")}

	j := welcomeJob(t, 4, 5)

	repo.claimFn = func(ctx context.Context, workerID string) (job.Job, error) {
		return j, nil
	}

	w := newWorker(repo, notifier)

	if _, err := w.ProcessOne(context.Background()); err != nil {
		t.Fatalf("process: %v", err)
	}

	if len(repo.rescheds) != 0 {
		t.Fatal("rescheduled a job at its attempt ceiling")
	}

	msg, ok := repo.failed["j-1"]

	if !ok || !strings.Contains(msg, "max attempts") {
		t.Fatalf("failed = %v", repo.failed)
	}
}

// Malformed jobs can never succeed; they skip retries entirely.
func TestProcessOneDeadLettersInvalidPayload(t *testing.T) {
	repo := newFakeJobsRepo()
	notifier := &stubNotifier{}

	repo.claimFn = func(ctx context.Context, workerID string) (job.Job, error) {
		return job.Job{
			ID:          "j-bad",
			Type:        "mail.unknown",
			Payload:     []byte(`{}`),
			MaxAttempts: 5,
		}, nil
	}

	w := newWorker(repo, notifier)

	if _, err := w.ProcessOne(context.Background()); err != nil {
		t.Fatalf("process: %v", err)
	}

	if notifier.welcomes != 0 || notifier.notices != 0 {
		t.Fatal("a malformed job reached the notifier")
	}
	if _, ok := repo.failed["j-bad"]; !ok {
		t.Fatalf("invalid job not dead-lettered: %v", repo.failed)
	}
	if len(repo.rescheds) != 0 {
		t.Fatal("invalid job was rescheduled")
	}
}

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		floor   time.Duration
		ceiling time.Duration
	}{
		{0, 2 * time.Second, 2*time.Second + 250*time.Millisecond},
		{1, 4 * time.Second, 4*time.Second + 250*time.Millisecond},
		{3, 16 * time.Second, 16*time.Second + 250*time.Millisecond},
		{20, 5 * time.Minute, 5*time.Minute + 250*time.Millisecond},
	}

	for _, tc := range tests {
		got := worker.ExponentialBackoff(tc.attempt)

		if got < tc.floor || got > tc.ceiling {
			t.Errorf("attempt %d: backoff %v outside [%v, %v]", tc.attempt, got, tc.floor, tc.ceiling)
		}
	}
}
