package middlewares_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/saarfitness/gymhub/internal/auth"
	"github.com/saarfitness/gymhub/internal/http/middlewares"
	"github.com/saarfitness/gymhub/internal/rbac"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const gateSecret = "edge-gate-test-secret"

type gateFixture struct {
	engine *gin.Engine
	admin  *auth.Manager
	staff  *auth.Manager
	member *auth.Manager
}

func newGateFixture() gateFixture {
	admin := auth.NewManager(gateSecret, auth.PartitionAdmin, time.Hour, 0)
	staff := auth.NewManager(gateSecret, auth.PartitionStaff, time.Hour, 0)
	member := auth.NewManager(gateSecret, auth.PartitionMember, time.Hour, 0)

	guard := rbac.NewGuard(admin, staff, member, false)

	engine := gin.New()
	engine.Use(middlewares.EdgeGate(guard))

	// catch-all so we can observe what passed the gate
	engine.NoRoute(func(c *gin.Context) {
		c.String(http.StatusOK, "through")
	})

	return gateFixture{engine: engine, admin: admin, staff: staff, member: member}
}

func (f gateFixture) do(t *testing.T, path string, m *auth.Manager) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)

	if m != nil {
		token, _, err := m.Mint(auth.Identity{ID: "u-1", Email: "u@example.com"})

		if err != nil {
			t.Fatalf("mint failed: %v", err)
		}

		req.AddCookie(&http.Cookie{Name: m.CookieName(), Value: token})
	}

	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func TestEdgeGatePublicPaths(t *testing.T) {
	f := newGateFixture()

	paths := []string{
		"/",
		"/login",
		"/admin/login",
		"/member/login",
		"/unauthorized",
		"/health",
		"/metrics",
		"/api/auth/login",
		"/static/app.css",
		"/favicon.ico",
	}

	for _, p := range paths {
		if w := f.do(t, p, nil); w.Code != http.StatusOK {
			t.Errorf("public path %s got %d, want 200", p, w.Code)
		}
	}
}

func TestEdgeGateBrowserRedirects(t *testing.T) {
	f := newGateFixture()

	tests := []struct {
		name     string
		path     string
		session  *auth.Manager
		wantLoc  string
	}{
		{"anonymous on admin area", "/admin/members", nil, "/admin/login?callbackUrl=%2Fadmin%2Fmembers"},
		{"anonymous on staff area", "/dashboard/members", nil, "/login?callbackUrl=%2Fdashboard%2Fmembers"},
		{"anonymous on member area", "/member/profile", nil, "/member/login?callbackUrl=%2Fmember%2Fprofile"},
		{"staff session on admin area", "/admin/members", f.staff, "/dashboard"},
		{"member session on admin area", "/admin/members", f.member, "/member"},
		{"member session on staff area", "/dashboard/members", f.member, "/member"},
		{"admin session on member area", "/member/profile", f.admin, "/admin"},
		{"staff session on member area", "/member/profile", f.staff, "/dashboard"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := f.do(t, tc.path, tc.session)

			if w.Code != http.StatusTemporaryRedirect {
				t.Fatalf("status = %d, want 307", w.Code)
			}

			if loc := w.Header().Get("Location"); loc != tc.wantLoc {
				t.Fatalf("Location = %q, want %q", loc, tc.wantLoc)
			}
		})
	}
}

func TestEdgeGatePassesMatchingSessions(t *testing.T) {
	f := newGateFixture()

	tests := []struct {
		path    string
		session *auth.Manager
	}{
		{"/admin/members", f.admin},
		{"/dashboard/members", f.staff},
		{"/dashboard/members", f.admin},
		{"/member/profile", f.member},
		{"/api/members", f.staff},
		{"/api/members", f.admin},
		{"/api/member/profile", f.member},
		// raw photo fetch passes for every namespace
		{"/api/photos/members/abc.png", f.admin},
		{"/api/photos/members/abc.png", f.staff},
		{"/api/photos/members/abc.png", f.member},
	}

	for _, tc := range tests {
		if w := f.do(t, tc.path, tc.session); w.Code != http.StatusOK {
			t.Errorf("%s with %s session got %d, want 200", tc.path, tc.session.Partition(), w.Code)
		}
	}
}

// API calls never get a redirect, whatever the session situation is.
func TestEdgeGateAPIRejectsWithJSON(t *testing.T) {
	f := newGateFixture()

	tests := []struct {
		name       string
		path       string
		session    *auth.Manager
		wantStatus int
	}{
		{"anonymous api call", "/api/members", nil, http.StatusUnauthorized},
		{"member token on staff api", "/api/members", f.member, http.StatusUnauthorized},
		{"staff token on member api", "/api/member/profile", f.staff, http.StatusForbidden},
		{"anonymous member api call", "/api/member/profile", nil, http.StatusUnauthorized},
		{"anonymous photo fetch", "/api/photos/members/abc.png", nil, http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := f.do(t, tc.path, tc.session)

			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tc.wantStatus)
			}

			if loc := w.Header().Get("Location"); loc != "" {
				t.Fatalf("API call got a redirect to %q", loc)
			}

			var body struct {
				OK    bool   `json:"ok"`
				Error string `json:"error"`
			}

			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("response is not JSON: %v", err)
			}

			if body.OK || body.Error == "" {
				t.Fatalf("unexpected body: %+v", body)
			}
		})
	}
}
