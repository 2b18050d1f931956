package handlers_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/saarfitness/gymhub/internal/auth"
	"github.com/saarfitness/gymhub/internal/domain/job"
	"github.com/saarfitness/gymhub/internal/domain/member"
	"github.com/saarfitness/gymhub/internal/rbac"
	"github.com/gin-gonic/gin"
)

// Make sure Gin does not spam the console during the test

func init() {
	gin.SetMode(gin.TestMode)
}

const sessionSecret = "handler-test-secret"

// partitions holds one token manager per credential namespace, all sharing
// the test secret, matching how the router wires them.
type partitions struct {
	admin  *auth.Manager
	staff  *auth.Manager
	member *auth.Manager
}

func newPartitions() partitions {
	return partitions{
		admin:  auth.NewManager(sessionSecret, auth.PartitionAdmin, time.Hour, 0),
		staff:  auth.NewManager(sessionSecret, auth.PartitionStaff, time.Hour, 0),
		member: auth.NewManager(sessionSecret, auth.PartitionMember, time.Hour, 0),
	}
}

func (p partitions) guard() *rbac.Guard {
	return rbac.NewGuard(p.admin, p.staff, p.member, false)
}

func sessionCookie(t *testing.T, m *auth.Manager, id string) *http.Cookie {
	t.Helper()

	token, _, err := m.Mint(auth.Identity{ID: id, Name: "Test User", Email: id + "@example.com"})

	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}

	return &http.Cookie{Name: m.CookieName(), Value: token}
}

func setupRouter(method, path string, h gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Handle(method, path, h)
	return r
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// errorResponse mirrors the uniform error body.
type errorResponse struct {
	OK        bool   `json:"ok"`
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId"`
}

// Fake implementations shared across handler tests.

type fakeMembersRepo struct {
	createFn func(ctx context.Context, m member.Member) (member.Member, error)
	getFn    func(ctx context.Context, id string) (member.Member, error)
	listFn   func(ctx context.Context, filter member.ListFilter) ([]member.Member, error)
	updateFn func(ctx context.Context, id string, req member.UpdateRequest, bmi *float64) (member.Member, error)
	deleteFn func(ctx context.Context, id string) error
}

func (f *fakeMembersRepo) Create(ctx context.Context, m member.Member) (member.Member, error) {
	return f.createFn(ctx, m)
}

func (f *fakeMembersRepo) GetByID(ctx context.Context, id string) (member.Member, error) {
	return f.getFn(ctx, id)
}

func (f *fakeMembersRepo) List(ctx context.Context, filter member.ListFilter) ([]member.Member, error) {
	return f.listFn(ctx, filter)
}

func (f *fakeMembersRepo) Update(ctx context.Context, id string, req member.UpdateRequest, bmi *float64) (member.Member, error) {
	return f.updateFn(ctx, id, req, bmi)
}

func (f *fakeMembersRepo) Delete(ctx context.Context, id string) error {
	return f.deleteFn(ctx, id)
}

type fakeMailQueue struct {
	created []job.CreateRequest
	err     error
}

func (f *fakeMailQueue) Create(ctx context.Context, req job.CreateRequest) (job.Job, error) {
	if f.err != nil {
		return job.Job{}, f.err
	}

	f.created = append(f.created, req)
	return job.New(req), nil
}
