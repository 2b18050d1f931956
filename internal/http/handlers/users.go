package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/saarfitness/gymhub/internal/config"
	"github.com/saarfitness/gymhub/internal/domain/user"
	"github.com/saarfitness/gymhub/internal/rbac"
	"github.com/saarfitness/gymhub/internal/repo/postgres"
	"github.com/saarfitness/gymhub/internal/security"
	"github.com/gin-gonic/gin"
)

type UsersStore interface {
	Create(ctx context.Context, name, email, passwordHash, notifyEmail string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	List(ctx context.Context) ([]user.User, error)
	UpdateFlags(ctx context.Context, id string, isActive *bool) (user.User, error)
	Delete(ctx context.Context, id string) error
}

// UsersHandler manages one credential partition (staff or admin). Writes are
// admin-only in both partitions; the staff roster is readable by staff, the
// admin roster only by admins.
type UsersHandler struct {
	store         UsersStore
	guard         *rbac.Guard
	label         string // "staff" | "admin user", for messages
	staffReadable bool
}

func NewStaffHandler(store UsersStore, guard *rbac.Guard) *UsersHandler {
	return &UsersHandler{store: store, guard: guard, label: "staff", staffReadable: true}
}

func NewAdminUsersHandler(store UsersStore, guard *rbac.Guard) *UsersHandler {
	return &UsersHandler{store: store, guard: guard, label: "admin user"}
}

func (h *UsersHandler) requireRead(ctx *gin.Context) rbac.Result {
	if h.staffReadable {
		return h.guard.RequireStaffOrAdmin(ctx)
	}

	return h.guard.RequireAdmin(ctx)
}

func (h *UsersHandler) Create(ctx *gin.Context) {
	res := h.guard.RequireAdmin(ctx)

	if !res.Authorized {
		RespondGuard(ctx, res.Status, res.Err)
		return
	}

	var req user.CreateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not create "+h.label)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	email := strings.ToLower(strings.TrimSpace(req.Email))

	u, err := h.store.Create(cctx, req.Name, email, hash, req.NotifyEmail)

	if err != nil {
		if errors.Is(err, postgres.ErrEmailAlreadyUsed) {
			RespondConflict(ctx, "email_taken", "Email is already in use in this partition.")
			return
		}
		RespondInternal(ctx, "Could not create "+h.label)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"ok":   true,
		"user": u,
	})
}

func (h *UsersHandler) List(ctx *gin.Context) {
	res := h.requireRead(ctx)

	if !res.Authorized {
		RespondGuard(ctx, res.Status, res.Err)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	users, err := h.store.List(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not list users")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"ok":    true,
		"items": users,
		"count": len(users),
	})
}

func (h *UsersHandler) GetByID(ctx *gin.Context) {
	res := h.requireRead(ctx)

	if !res.Authorized {
		RespondGuard(ctx, res.Status, res.Err)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u, err := h.store.GetByID(cctx, ctx.Param("id"))

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not fetch user")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"ok":   true,
		"user": u,
	})
}

// UpdateFlags toggles the soft-disable flag. An admin cannot disable their
// own account; that path to a lockout is closed here.
func (h *UsersHandler) UpdateFlags(ctx *gin.Context) {
	res := h.guard.RequireAdmin(ctx)

	if !res.Authorized {
		RespondGuard(ctx, res.Status, res.Err)
		return
	}

	var req user.UpdateFlagsRequest

	if !BindJSON(ctx, &req) {
		return
	}

	id := ctx.Param("id")

	if id == res.Session.ID && req.IsActive != nil && !*req.IsActive {
		RespondBadRequest(ctx, "You cannot deactivate your own account", nil)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u, err := h.store.UpdateFlags(cctx, id, req.IsActive)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not update user")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"ok":   true,
		"user": u,
	})
}

func (h *UsersHandler) Delete(ctx *gin.Context) {
	res := h.guard.RequireAdmin(ctx)

	if !res.Authorized {
		RespondGuard(ctx, res.Status, res.Err)
		return
	}

	id := ctx.Param("id")

	if id == res.Session.ID {
		RespondBadRequest(ctx, "You cannot delete your own account", nil)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	if err := h.store.Delete(cctx, id); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not delete user")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"ok": true})
}
