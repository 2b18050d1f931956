package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/saarfitness/gymhub/internal/cache"
	"github.com/saarfitness/gymhub/internal/config"
	"github.com/saarfitness/gymhub/internal/domain/member"
	"github.com/saarfitness/gymhub/internal/domain/payment"
	"github.com/saarfitness/gymhub/internal/rbac"
	"github.com/gin-gonic/gin"
)

type PaymentsStore interface {
	Create(ctx context.Context, req payment.CreateRequest) (payment.Payment, error)
	ListForMember(ctx context.Context, memberID string, limit, skip int) ([]payment.Payment, int, float64, error)
}

type PaymentsHandler struct {
	store   PaymentsStore
	members MembersStore
	guard   *rbac.Guard
	cache   *cache.Cache
}

func NewPaymentsHandler(store PaymentsStore, members MembersStore, guard *rbac.Guard, c *cache.Cache) *PaymentsHandler {
	return &PaymentsHandler{store: store, members: members, guard: guard, cache: c}
}

// Create records a payment and flips the member's payment status to paid.
// The two writes are independent; if the status update fails the payment
// still stands and the mismatch is surfaced in the response.
func (h *PaymentsHandler) Create(ctx *gin.Context) {
	res := h.guard.RequireStaffOrAdmin(ctx)

	if !res.Authorized {
		RespondGuard(ctx, res.Status, res.Err)
		return
	}

	var req payment.CreateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	if _, err := h.members.GetByID(cctx, req.MemberID); err != nil {
		if errors.Is(err, member.ErrNotFound) {
			RespondNotFound(ctx, "Member not found")
			return
		}
		RespondInternal(ctx, "Could not record payment")
		return
	}

	p, err := h.store.Create(cctx, req)

	if err != nil {
		RespondInternal(ctx, "Could not record payment")
		return
	}

	paid := string(member.PaymentPaid)

	statusSynced := true

	_, err = h.members.Update(cctx, req.MemberID, member.UpdateRequest{PaymentStatus: &paid}, nil)

	if err != nil {
		statusSynced = false
	}

	h.cache.Clear()

	ctx.JSON(http.StatusCreated, gin.H{
		"ok":                  true,
		"payment":             p,
		"paymentStatusSynced": statusSynced,
	})
}

func (h *PaymentsHandler) ListForMember(ctx *gin.Context) {
	h.list(ctx, ctx.Param("id"))
}

// List is the query-parameter variant: GET /api/payments?memberId=...
func (h *PaymentsHandler) List(ctx *gin.Context) {
	memberID := ctx.Query("memberId")

	if memberID == "" {
		RespondBadRequest(ctx, "memberId query parameter is required", nil)
		return
	}

	h.list(ctx, memberID)
}

func (h *PaymentsHandler) list(ctx *gin.Context, memberID string) {
	res := h.guard.RequireStaffOrAdmin(ctx)

	if !res.Authorized {
		RespondGuard(ctx, res.Status, res.Err)
		return
	}

	limit, _ := strconv.Atoi(ctx.Query("limit"))
	skip, _ := strconv.Atoi(ctx.Query("skip"))

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	items, total, totalPaid, err := h.store.ListForMember(cctx, memberID, limit, skip)

	if err != nil {
		RespondInternal(ctx, "Could not list payments")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"ok":        true,
		"items":     items,
		"total":     total,
		"totalPaid": totalPaid,
	})
}
