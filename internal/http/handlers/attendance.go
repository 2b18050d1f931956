package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/saarfitness/gymhub/internal/config"
	"github.com/saarfitness/gymhub/internal/domain/attendance"
	"github.com/saarfitness/gymhub/internal/domain/member"
	"github.com/saarfitness/gymhub/internal/rbac"
	"github.com/gin-gonic/gin"
)

type AttendanceStore interface {
	CheckIn(ctx context.Context, memberID, notes string) (attendance.Record, error)
	CheckOut(ctx context.Context, memberID string) (attendance.Record, error)
	ListForMember(ctx context.Context, memberID string, limit, skip int) ([]attendance.Record, int, error)
}

type AttendanceHandler struct {
	store   AttendanceStore
	members MembersStore
	guard   *rbac.Guard
}

func NewAttendanceHandler(store AttendanceStore, members MembersStore, guard *rbac.Guard) *AttendanceHandler {
	return &AttendanceHandler{store: store, members: members, guard: guard}
}

// CheckIn opens a visit for a member. Front desk only; members do not check
// themselves in.
func (h *AttendanceHandler) CheckIn(ctx *gin.Context) {
	res := h.guard.RequireStaffOrAdmin(ctx)

	if !res.Authorized {
		RespondGuard(ctx, res.Status, res.Err)
		return
	}

	var req attendance.CheckInRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	// the member must exist and hold a live membership
	m, err := h.members.GetByID(cctx, req.MemberID)

	if err != nil {
		if errors.Is(err, member.ErrNotFound) {
			RespondNotFound(ctx, "Member not found")
			return
		}
		RespondInternal(ctx, "Could not check in")
		return
	}

	if m.Status == member.StatusExpired || !m.IsActive {
		RespondForbidden(ctx, "Membership is expired or inactive")
		return
	}

	rec, err := h.store.CheckIn(cctx, req.MemberID, req.Notes)

	if err != nil {
		RespondInternal(ctx, "Could not check in")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"ok":         true,
		"attendance": rec,
	})
}

func (h *AttendanceHandler) CheckOut(ctx *gin.Context) {
	res := h.guard.RequireStaffOrAdmin(ctx)

	if !res.Authorized {
		RespondGuard(ctx, res.Status, res.Err)
		return
	}

	var req attendance.CheckOutRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	rec, err := h.store.CheckOut(cctx, req.MemberID)

	if err != nil {
		if errors.Is(err, attendance.ErrNotFound) {
			RespondNotFound(ctx, "No open visit for this member")
			return
		}
		RespondInternal(ctx, "Could not check out")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"ok":         true,
		"attendance": rec,
	})
}

// ListForMember serves the staff view of a member's visit history.
func (h *AttendanceHandler) ListForMember(ctx *gin.Context) {
	h.list(ctx, ctx.Param("id"))
}

// List is the query-parameter variant: GET /api/attendance?memberId=...
func (h *AttendanceHandler) List(ctx *gin.Context) {
	memberID := ctx.Query("memberId")

	if memberID == "" {
		RespondBadRequest(ctx, "memberId query parameter is required", nil)
		return
	}

	h.list(ctx, memberID)
}

func (h *AttendanceHandler) list(ctx *gin.Context, memberID string) {
	res := h.guard.RequireStaffOrAdmin(ctx)

	if !res.Authorized {
		RespondGuard(ctx, res.Status, res.Err)
		return
	}

	limit, _ := strconv.Atoi(ctx.Query("limit"))
	skip, _ := strconv.Atoi(ctx.Query("skip"))

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	items, total, err := h.store.ListForMember(cctx, memberID, limit, skip)

	if err != nil {
		RespondInternal(ctx, "Could not list attendance")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"ok":    true,
		"items": items,
		"total": total,
	})
}
