package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/saarfitness/gymhub/internal/cache"
	"github.com/saarfitness/gymhub/internal/config"
	"github.com/saarfitness/gymhub/internal/domain/job"
	"github.com/saarfitness/gymhub/internal/domain/member"
	"github.com/saarfitness/gymhub/internal/jobs"
	"github.com/saarfitness/gymhub/internal/rbac"
	"github.com/saarfitness/gymhub/internal/repo/postgres"
	"github.com/saarfitness/gymhub/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type MembersStore interface {
	Create(ctx context.Context, m member.Member) (member.Member, error)
	GetByID(ctx context.Context, id string) (member.Member, error)
	List(ctx context.Context, filter member.ListFilter) ([]member.Member, error)
	Update(ctx context.Context, id string, req member.UpdateRequest, bmi *float64) (member.Member, error)
	Delete(ctx context.Context, id string) error
}

type PhotoStore interface {
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, string, int64, error)
	Remove(ctx context.Context, key string) error
}

type MailQueue interface {
	Create(ctx context.Context, req job.CreateRequest) (job.Job, error)
}

const maxPhotoBytes = 5 << 20

type MembersHandler struct {
	store  MembersStore
	photos PhotoStore
	mail   MailQueue
	guard  *rbac.Guard
	cache  *cache.Cache
	log    *slog.Logger
}

func NewMembersHandler(store MembersStore, photos PhotoStore, mail MailQueue, guard *rbac.Guard, c *cache.Cache, log *slog.Logger) *MembersHandler {
	return &MembersHandler{
		store:  store,
		photos: photos,
		mail:   mail,
		guard:  guard,
		cache:  c,
		log:    log,
	}
}

// Create registers a member at the front desk. The request is multipart so an
// optional photo can ride along. Creating credentials in the member partition
// and storing the photo are two independent operations; a photo failure does
// not roll the member back.
func (h *MembersHandler) Create(ctx *gin.Context) {
	res := h.guard.RequireStaffOrAdmin(ctx)

	if !res.Authorized {
		RespondGuard(ctx, res.Status, res.Err)
		return
	}

	var req member.CreateRequest

	if !BindForm(ctx, &req) {
		return
	}

	start := time.Now().UTC()

	if req.StartDate != "" {
		parsed, err := time.Parse("2006-01-02", req.StartDate)

		if err == nil {
			start = parsed
		}
	}

	months := req.SubscriptionMonths

	if months <= 0 {
		months = 1
	}

	var passwordHash string

	if req.Password != "" {
		hash, err := security.HashPassword(req.Password)

		if err != nil {
			RespondInternal(ctx, "Could not create member")
			return
		}
		passwordHash = hash
	}

	m := member.Member{
		ID:                 uuid.NewString(),
		Name:               req.Name,
		Email:              strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash:       passwordHash,
		PhoneNumber:        req.PhoneNumber,
		Age:                req.Age,
		Gender:             req.Gender,
		PlanType:           req.PlanType,
		HeightCm:           req.HeightCm,
		WeightKg:           req.WeightKg,
		BMI:                member.ComputeBMI(req.HeightCm, req.WeightKg),
		SubscriptionMonths: months,
		StartDate:          start,
		EndDate:            member.SubscriptionEnd(start, months),
		Status:             member.StatusActive,
		PaymentStatus:      member.PaymentDue,
		CreatedByID:        res.Session.ID,
		IsActive:           true,
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	if file, err := ctx.FormFile("photo"); err == nil && file != nil {
		key, uploadErr := h.storePhoto(cctx, m.ID, file)

		if uploadErr != nil {
			RespondBadRequest(ctx, "Could not store member photo", gin.H{"reason": uploadErr.Error()})
			return
		}
		m.PhotoKey = key
	}

	created, err := h.store.Create(cctx, m)

	if err != nil {
		if m.PhotoKey != "" {
			_ = h.photos.Remove(cctx, m.PhotoKey)
		}

		if errors.Is(err, postgres.ErrEmailAlreadyUsed) {
			RespondConflict(ctx, "email_taken", "A member with this email already exists.")
			return
		}
		RespondInternal(ctx, "Could not create member")
		return
	}

	h.cache.Clear()
	h.enqueueWelcome(cctx, created)

	ctx.JSON(http.StatusCreated, gin.H{
		"ok":     true,
		"member": created,
	})
}

func (h *MembersHandler) storePhoto(ctx context.Context, memberID string, file *multipart.FileHeader) (string, error) {
	if h.photos == nil {
		return "", errors.New("photo storage is not configured")
	}

	if file.Size > maxPhotoBytes {
		return "", errors.New("photo exceeds 5MB limit")
	}

	ext := strings.ToLower(path.Ext(file.Filename))

	contentType := ""

	switch ext {
	case ".jpg", ".jpeg":
		contentType = "image/jpeg"
	case ".png":
		contentType = "image/png"
	case ".webp":
		contentType = "image/webp"
	default:
		return "", errors.New("photo must be jpeg, png or webp")
	}

	f, err := file.Open()

	if err != nil {
		return "", err
	}
	defer f.Close()

	key := "members/" + memberID + ext

	if err := h.photos.Put(ctx, key, f, file.Size, contentType); err != nil {
		return "", err
	}

	return key, nil
}

func (h *MembersHandler) enqueueWelcome(ctx context.Context, m member.Member) {
	if m.Email == "" {
		return
	}

	payload, err := jobs.WelcomeMailPayload{
		MemberID:    m.ID,
		Email:       m.Email,
		Name:        m.Name,
		RequestedAt: time.Now().UTC(),
	}.JSON()

	if err != nil {
		h.log.Error("welcome payload encode failed", "member_id", m.ID, "err", err)
		return
	}

	key := "welcome:" + m.ID

	_, err = h.mail.Create(ctx, job.CreateRequest{
		Type:           string(jobs.TypeWelcomeMail),
		Payload:        payload,
		IdempotencyKey: &key,
	})

	// mail is best effort; the member is already created
	if err != nil && !postgres.IsUniqueViolation(err) {
		h.log.Error("enqueue welcome mail failed", "member_id", m.ID, "err", err)
	}
}

func (h *MembersHandler) List(ctx *gin.Context) {
	res := h.guard.RequireStaffOrAdmin(ctx)

	if !res.Authorized {
		RespondGuard(ctx, res.Status, res.Err)
		return
	}

	limit, _ := strconv.Atoi(ctx.Query("limit"))

	query := ctx.Query("q")

	if query == "" {
		query = ctx.Query("query")
	}

	filter := member.ListFilter{
		Query: query,
		Sort:  ctx.Query("sort"),
		Limit: limit,
	}

	cacheKey := "members:" + filter.Query + ":" + filter.Sort + ":" + strconv.Itoa(filter.Limit)

	if v, ok := h.cache.Get(cacheKey); ok {
		if items, ok := v.([]member.Member); ok {
			ctx.JSON(http.StatusOK, gin.H{
				"ok":     true,
				"items":  items,
				"count":  len(items),
				"cached": true,
			})
			return
		}
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	items, err := h.store.List(cctx, filter)

	if err != nil {
		RespondInternal(ctx, "Could not list members")
		return
	}

	h.cache.Set(cacheKey, items)

	ctx.JSON(http.StatusOK, gin.H{
		"ok":    true,
		"items": items,
		"count": len(items),
	})
}

func (h *MembersHandler) GetByID(ctx *gin.Context) {
	res := h.guard.RequireStaffOrAdmin(ctx)

	if !res.Authorized {
		RespondGuard(ctx, res.Status, res.Err)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	m, err := h.store.GetByID(cctx, ctx.Param("id"))

	if err != nil {
		if errors.Is(err, member.ErrNotFound) {
			RespondNotFound(ctx, "Member not found")
			return
		}
		RespondInternal(ctx, "Could not fetch member")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"ok":     true,
		"member": m,
	})
}

// Update applies a partial update. Two staff updating the same record race,
// last write wins; there is no version token.
func (h *MembersHandler) Update(ctx *gin.Context) {
	res := h.guard.RequireStaffOrAdmin(ctx)

	if !res.Authorized {
		RespondGuard(ctx, res.Status, res.Err)
		return
	}

	var req member.UpdateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	// a measurement change invalidates the stored BMI
	var bmi *float64

	if req.HeightCm != nil || req.WeightKg != nil {
		current, err := h.store.GetByID(cctx, id)

		if err != nil {
			if errors.Is(err, member.ErrNotFound) {
				RespondNotFound(ctx, "Member not found")
				return
			}
			RespondInternal(ctx, "Could not update member")
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

		v := member.ComputeBMI(height, weight)
		bmi = &v
	}

	updated, err := h.store.Update(cctx, id, req, bmi)

	if err != nil {
		if errors.Is(err, member.ErrNotFound) {
			RespondNotFound(ctx, "Member not found")
			return
		}
		RespondInternal(ctx, "Could not update member")
		return
	}

	h.cache.Clear()

	ctx.JSON(http.StatusOK, gin.H{
		"ok":     true,
		"member": updated,
	})
}

func (h *MembersHandler) Delete(ctx *gin.Context) {
	res := h.guard.RequireAdmin(ctx)

	if !res.Authorized {
		RespondGuard(ctx, res.Status, res.Err)
		return
	}

	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	m, err := h.store.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, member.ErrNotFound) {
			RespondNotFound(ctx, "Member not found")
			return
		}
		RespondInternal(ctx, "Could not delete member")
		return
	}

	if err := h.store.Delete(cctx, id); err != nil {
		if errors.Is(err, member.ErrNotFound) {
			RespondNotFound(ctx, "Member not found")
			return
		}
		RespondInternal(ctx, "Could not delete member")
		return
	}

	if m.PhotoKey != "" && h.photos != nil {
		if err := h.photos.Remove(cctx, m.PhotoKey); err != nil {
			h.log.Warn("orphaned photo after member delete", "key", m.PhotoKey, "err", err)
		}
	}

	h.cache.Clear()

	ctx.JSON(http.StatusOK, gin.H{"ok": true})
}

// Photo streams a member's photo from the object store.
func (h *MembersHandler) Photo(ctx *gin.Context) {
	res := h.guard.RequireStaffOrAdmin(ctx)

	if !res.Authorized {
		RespondGuard(ctx, res.Status, res.Err)
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	m, err := h.store.GetByID(cctx, ctx.Param("id"))

	if err != nil {
		if errors.Is(err, member.ErrNotFound) {
			RespondNotFound(ctx, "Member not found")
			return
		}
		RespondInternal(ctx, "Could not fetch member")
		return
	}

	if m.PhotoKey == "" || h.photos == nil {
		RespondNotFound(ctx, "Member has no photo")
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

// PhotoByKey streams a photo by its raw object key. Any authenticated
// session may fetch; the key itself carries no authority.
func (h *MembersHandler) PhotoByKey(ctx *gin.Context) {
	res := h.guard.RequireAuthenticated(ctx)

	if !res.Authorized {
		RespondGuard(ctx, res.Status, res.Err)
		return
	}

	key := strings.TrimPrefix(ctx.Param("key"), "/")

	if key == "" || h.photos == nil {
		RespondNotFound(ctx, "Photo not found")
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	reader, contentType, size, err := h.photos.Get(cctx, key)

	if err != nil {
		RespondNotFound(ctx, "Photo not found")
		return
	}
	defer reader.Close()

	ctx.DataFromReader(http.StatusOK, size, contentType, reader, nil)
}
