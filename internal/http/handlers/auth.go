package handlers

import (
	"net/http"
	"time"

	"github.com/saarfitness/gymhub/internal/auth"
	"github.com/saarfitness/gymhub/internal/config"
	"github.com/saarfitness/gymhub/internal/rbac"
	"github.com/gin-gonic/gin"
)

// PartitionLogin bundles a partition's provider with its token manager. One
// exists per partition; nothing is shared between them.
type PartitionLogin struct {
	Provider *auth.Provider
	Manager  *auth.Manager
}

type AuthHandler struct {
	admin  PartitionLogin
	staff  PartitionLogin
	member PartitionLogin
	guard  *rbac.Guard
	secure bool
}

func NewAuthHandler(admin, staff, member PartitionLogin, guard *rbac.Guard, secure bool) *AuthHandler {
	return &AuthHandler{
		admin:  admin,
		staff:  staff,
		member: member,
		guard:  guard,
		secure: secure,
	}
}

// LoginRequest carries no role field. The endpoint fixes the partition; a
// client cannot steer which store is consulted.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) AdminLogin(ctx *gin.Context)  { h.login(ctx, h.admin) }
func (h *AuthHandler) StaffLogin(ctx *gin.Context)  { h.login(ctx, h.staff) }
func (h *AuthHandler) MemberLogin(ctx *gin.Context) { h.login(ctx, h.member) }

func (h *AuthHandler) login(ctx *gin.Context, pl PartitionLogin) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	identity, err := pl.Provider.Authorize(cctx, req.Email, req.Password)

	if err != nil {
		RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	token, _, err := pl.Manager.Mint(identity)

	if err != nil {
		RespondInternal(ctx, "Could not create session")
		return
	}

	rbac.WriteSessionCookie(ctx, pl.Manager, token, h.secure)

	ctx.JSON(http.StatusOK, gin.H{
		"ok":   true,
		"user": identity,
	})
}

// Logout clears every partition cookie the browser presents. Clearing a
// cookie that was never set is harmless, so no namespace is singled out.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	rbac.ClearSessionCookie(ctx, h.admin.Manager, h.secure)
	rbac.ClearSessionCookie(ctx, h.staff.Manager, h.secure)
	rbac.ClearSessionCookie(ctx, h.member.Manager, h.secure)

	ctx.JSON(http.StatusOK, gin.H{"ok": true})
}

// Session reports every live session the browser holds. A browser can hold
// an admin and a member session at once, so the response is a map keyed by
// namespace, not a single identity.
func (h *AuthHandler) Session(ctx *gin.Context) {
	sessions := gin.H{}

	// each namespace resolves on its own; a browser holding admin and staff
	// cookies at once reports both
	if s, ok := h.guard.AdminSession(ctx); ok {
		sessions["admin"] = s
	}

	if s, ok := h.guard.StaffSession(ctx); ok {
		sessions["staff"] = s
	}

	if s, ok := h.guard.MemberSession(ctx); ok {
		sessions["member"] = s
	}

	if len(sessions) == 0 {
		RespondUnAuthorized(ctx, "unauthorized", "No active session")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"sessions": sessions,
	})
}
