package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/saarfitness/gymhub/internal/cache"
	"github.com/saarfitness/gymhub/internal/config"
	"github.com/saarfitness/gymhub/internal/domain/job"
	"github.com/saarfitness/gymhub/internal/domain/member"
	"github.com/saarfitness/gymhub/internal/domain/user"
	"github.com/saarfitness/gymhub/internal/jobs"
	"github.com/saarfitness/gymhub/internal/notifications"
	"github.com/saarfitness/gymhub/internal/observability"
	"github.com/saarfitness/gymhub/internal/rbac"
	"github.com/saarfitness/gymhub/internal/repo/postgres"
	"github.com/gin-gonic/gin"
)

type MembersExpiryStore interface {
	FindExpired(ctx context.Context, now time.Time) ([]member.Member, error)
	MarkExpired(ctx context.Context, ids []string) (int64, error)
}

type StaffDirectory interface {
	List(ctx context.Context) ([]user.User, error)
}

type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
}

const expiryLockKey = "subscriptions:check"

// SubscriptionsHandler runs the on-demand expiry sweep: find members past
// their end date, flip them to expired, mail the staff a digest, queue a
// notice per member. There is no background timer; clients invoke this.
type SubscriptionsHandler struct {
	members  MembersExpiryStore
	staff    StaffDirectory
	notifier notifications.Notifier
	mail     MailQueue
	locker   Locker
	cache    *cache.Cache
	guard    *rbac.Guard
	prom     *observability.Prom
	log      *slog.Logger
}

func NewSubscriptionsHandler(
	members MembersExpiryStore,
	staff StaffDirectory,
	notifier notifications.Notifier,
	mail MailQueue,
	locker Locker,
	c *cache.Cache,
	guard *rbac.Guard,
	prom *observability.Prom,
	log *slog.Logger,
) *SubscriptionsHandler {
	return &SubscriptionsHandler{
		members:  members,
		staff:    staff,
		notifier: notifier,
		mail:     mail,
		locker:   locker,
		cache:    c,
		guard:    guard,
		prom:     prom,
		log:      log,
	}
}

// Check is idempotent from the caller's view: a second invocation with no
// intervening time change finds nothing to expire and returns an empty list.
// The scan, the bulk update, the digest and the queued notices are separate
// steps; a failure after the update is reported, never rolled back.
func (h *SubscriptionsHandler) Check(ctx *gin.Context) {
	res := h.guard.RequireStaffOrAdmin(ctx)

	if !res.Authorized {
		RespondGuard(ctx, res.Status, res.Err)
		return
	}

	cctx, cancel := config.WithTimeout(15 * time.Second)
	defer cancel()

	// one sweep at a time across processes; redis being down degrades to an
	// unlocked (still idempotent) sweep
	if h.locker != nil {
		got, err := h.locker.AcquireLock(cctx, expiryLockKey, 60*time.Second)

		if err != nil {
			h.log.Warn("expiry lock unavailable, sweeping unlocked", "err", err)
		} else if !got {
			RespondConflict(ctx, "check_in_progress", "An expiry check is already running.")
			return
		} else {
			defer func() { _ = h.locker.ReleaseLock(context.WithoutCancel(cctx), expiryLockKey) }()
		}
	}

	now := time.Now().UTC()

	expired, err := h.members.FindExpired(cctx, now)

	if err != nil {
		RespondInternal(ctx, "Could not scan subscriptions")
		return
	}

	if len(expired) == 0 {
		ctx.JSON(http.StatusOK, gin.H{
			"ok":      true,
			"expired": []member.Member{},
			"count":   0,
		})
		return
	}

	ids := make([]string, 0, len(expired))

	for _, m := range expired {
		ids = append(ids, m.ID)
	}

	updated, err := h.members.MarkExpired(cctx, ids)

	if err != nil {
		RespondInternal(ctx, "Could not update expired members")
		return
	}

	if h.prom != nil {
		h.prom.MembersExpiredTotal.Add(float64(updated))
	}
	h.cache.Clear()

	notified := h.sendDigest(cctx, expired)
	h.enqueueNotices(cctx, expired)

	for i := range expired {
		expired[i].Status = member.StatusExpired
	}

	ctx.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"expired":  expired,
		"count":    len(expired),
		"notified": notified,
	})
}

// sendDigest mails one report to all staff contacts. Synchronous and best
// effort: a mail failure does not undo the status flip.
func (h *SubscriptionsHandler) sendDigest(ctx context.Context, expired []member.Member) bool {
	staff, err := h.staff.List(ctx)

	if err != nil {
		h.log.Error("staff lookup for digest failed", "err", err)
		return false
	}

	recipients := make([]string, 0, len(staff))

	for _, s := range staff {
		if !s.IsActive {
			continue
		}

		addr := s.NotifyEmail

		if addr == "" {
			addr = s.Email
		}
		if addr != "" {
			recipients = append(recipients, addr)
		}
	}

	if len(recipients) == 0 {
		return false
	}

	lines := make([]notifications.ExpiredMember, 0, len(expired))

	for _, m := range expired {
		lines = append(lines, notifications.ExpiredMember{
			ID:      m.ID,
			Name:    m.Name,
			Email:   m.Email,
			EndDate: m.EndDate,
		})
	}

	err = h.notifier.SendExpiryDigest(ctx, notifications.ExpiryDigestInput{
		Recipients: recipients,
		Members:    lines,
	})

	if err != nil {
		h.log.Error("expiry digest send failed", "err", err, "members", len(expired))
		return false
	}

	return true
}

// enqueueNotices queues one mail per expired member who has an address. The
// idempotency key pins the notice to this expiry window, so re-running the
// sweep never double-mails.
func (h *SubscriptionsHandler) enqueueNotices(ctx context.Context, expired []member.Member) {
	for _, m := range expired {
		if m.Email == "" {
			continue
		}

		payload, err := jobs.ExpiryNoticePayload{
			MemberID:  m.ID,
			Email:     m.Email,
			Name:      m.Name,
			ExpiredOn: m.EndDate,
		}.JSON()

		if err != nil {
			h.log.Error("notice payload encode failed", "member_id", m.ID, "err", err)
			continue
		}

		key := "expiry:" + m.ID + ":" + m.EndDate.Format("2006-01-02")

		_, err = h.mail.Create(ctx, job.CreateRequest{
			Type:           string(jobs.TypeExpiryNotice),
			Payload:        payload,
			IdempotencyKey: &key,
		})

		// a duplicate key means the notice was queued by an earlier sweep
		if err != nil && !postgres.IsUniqueViolation(err) {
			h.log.Error("enqueue expiry notice failed", "member_id", m.ID, "err", err)
		}
	}
}
