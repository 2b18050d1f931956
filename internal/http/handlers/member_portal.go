package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/saarfitness/gymhub/internal/config"
	"github.com/saarfitness/gymhub/internal/domain/member"
	"github.com/saarfitness/gymhub/internal/rbac"
	"github.com/gin-gonic/gin"
)

// MemberPortalHandler serves the self-service endpoints. Every operation
// resolves the member id from the session, never from the URL, so a member
// can only ever read their own data.
type MemberPortalHandler struct {
	members    MembersStore
	attendance AttendanceStore
	payments   PaymentsStore
	photos     PhotoStore
	guard      *rbac.Guard
}

func NewMemberPortalHandler(members MembersStore, att AttendanceStore, pay PaymentsStore, photos PhotoStore, guard *rbac.Guard) *MemberPortalHandler {
	return &MemberPortalHandler{
		members:    members,
		attendance: att,
		payments:   pay,
		photos:     photos,
		guard:      guard,
	}
}

func (h *MemberPortalHandler) session(ctx *gin.Context) (string, bool) {
	res := h.guard.RequireMember(ctx)

	if !res.Authorized {
		RespondGuard(ctx, res.Status, res.Err)
		return "", false
	}

	own := rbac.ValidateOwnership(res.Session, res.Session.ID)

	if !own.Authorized {
		RespondGuard(ctx, own.Status, own.Err)
		return "", false
	}

	return res.Session.ID, true
}

func (h *MemberPortalHandler) Profile(ctx *gin.Context) {
	id, ok := h.session(ctx)

	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	m, err := h.members.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, member.ErrNotFound) {
			// token outlived the record
			RespondNotFound(ctx, "Member record not found")
			return
		}
		RespondInternal(ctx, "Could not fetch profile")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"profile": m,
	})
}

// ProfileUpdateRequest limits self-service edits to body measurements.
// Everything else on the record is front-desk territory.
type ProfileUpdateRequest struct {
	HeightCm *float64 `json:"heightCm" binding:"omitempty,min=0"`
	WeightKg *float64 `json:"weightKg" binding:"omitempty,min=0"`
}

func (h *MemberPortalHandler) UpdateProfile(ctx *gin.Context) {
	id, ok := h.session(ctx)

	if !ok {
		return
	}

	var req ProfileUpdateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if req.HeightCm == nil && req.WeightKg == nil {
		RespondBadRequest(ctx, "Nothing to update", nil)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	current, err := h.members.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, member.ErrNotFound) {
			RespondNotFound(ctx, "Member record not found")
			return
		}
		RespondInternal(ctx, "Could not update profile")
		return
	}

	height := current.HeightCm
	weight := current.WeightKg

	if req.HeightCm != nil {
		height = *req.HeightCm
	}
	if req.WeightKg != nil {
		weight = *req.WeightKg
	}

	bmi := member.ComputeBMI(height, weight)

	updated, err := h.members.Update(cctx, id, member.UpdateRequest{
		HeightCm: req.HeightCm,
		WeightKg: req.WeightKg,
	}, &bmi)

	if err != nil {
		RespondInternal(ctx, "Could not update profile")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"profile": updated,
	})
}

// Membership is the renewal-facing summary: subscription window, status and
// how many days are left.
func (h *MemberPortalHandler) Membership(ctx *gin.Context) {
	id, ok := h.session(ctx)

	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	m, err := h.members.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, member.ErrNotFound) {
			RespondNotFound(ctx, "Member record not found")
			return
		}
		RespondInternal(ctx, "Could not fetch membership")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"ok": true,
		"membership": gin.H{
			"planType":           m.PlanType,
			"subscriptionMonths": m.SubscriptionMonths,
			"startDate":          m.StartDate,
			"endDate":            m.EndDate,
			"status":             m.Status,
			"paymentStatus":      m.PaymentStatus,
			"daysRemaining":      member.DaysRemaining(m.EndDate, time.Now().UTC()),
		},
	})
}

func (h *MemberPortalHandler) Attendance(ctx *gin.Context) {
	id, ok := h.session(ctx)

	if !ok {
		return
	}

	limit, _ := strconv.Atoi(ctx.Query("limit"))
	skip, _ := strconv.Atoi(ctx.Query("skip"))

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	items, total, err := h.attendance.ListForMember(cctx, id, limit, skip)

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

func (h *MemberPortalHandler) Payments(ctx *gin.Context) {
	id, ok := h.session(ctx)

	if !ok {
		return
	}

	limit, _ := strconv.Atoi(ctx.Query("limit"))
	skip, _ := strconv.Atoi(ctx.Query("skip"))

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	items, total, totalPaid, err := h.payments.ListForMember(cctx, id, limit, skip)

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

func (h *MemberPortalHandler) Photo(ctx *gin.Context) {
	id, ok := h.session(ctx)

	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	m, err := h.members.GetByID(cctx, id)

	if err != nil {
		RespondNotFound(ctx, "Member record not found")
		return
	}

	if m.PhotoKey == "" || h.photos == nil {
		RespondNotFound(ctx, "No photo on file")
		return
	}

	reader, contentType, size, err := h.photos.Get(cctx, m.PhotoKey)

	if err != nil {
		RespondNotFound(ctx, "Photo not found")
		return
	}
	defer reader.Close()

	ctx.DataFromReader(http.StatusOK, size, contentType, reader, nil)
}
