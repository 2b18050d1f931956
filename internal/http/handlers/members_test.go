package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/saarfitness/gymhub/internal/cache"
	"github.com/saarfitness/gymhub/internal/domain/member"
	"github.com/saarfitness/gymhub/internal/http/handlers"
	"github.com/saarfitness/gymhub/internal/jobs"
	"github.com/saarfitness/gymhub/internal/repo/postgres"
)

type fakePhotoStore struct {
	puts    map[string]string // key -> content type
	removed []string
	getFn   func(ctx context.Context, key string) (io.ReadCloser, string, int64, error)
}

func newFakePhotoStore() *fakePhotoStore {
	return &fakePhotoStore{puts: map[string]string{}}
}

func (f *fakePhotoStore) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	f.puts[key] = contentType
	return nil
}

func (f *fakePhotoStore) Get(ctx context.Context, key string) (io.ReadCloser, string, int64, error) {
	if f.getFn != nil {
		return f.getFn(ctx, key)
	}
	return nil, "", 0, errors.New("no photo")
}

func (f *fakePhotoStore) Remove(ctx context.Context, key string) error {
	f.removed = append(f.removed, key)
	return nil
}

type membersFixture struct {
	parts  partitions
	repo   *fakeMembersRepo
	photos *fakePhotoStore
	mail   *fakeMailQueue
	h      *handlers.MembersHandler
}

func newMembersFixture() *membersFixture {
	parts := newPartitions()

	repo := &fakeMembersRepo{}
	photos := newFakePhotoStore()
	mail := &fakeMailQueue{}

	h := handlers.NewMembersHandler(repo, photos, mail, parts.guard(), cache.New(time.Minute), discardLogger())

	return &membersFixture{parts: parts, repo: repo, photos: photos, mail: mail, h: h}
}

func memberForm(t *testing.T, fields map[string]string, photoName string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}

	if photoName != "" {
		fw, err := w.CreateFormFile("photo", photoName)

		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		_, _ = fw.Write([]byte("not-really-an-image"))
	}

	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	return body, w.FormDataContentType()
}

type memberEnvelope struct {
	OK     bool          `json:"ok"`
	Member member.Member `json:"member"`
}

func TestMembersCreate(t *testing.T) {
	f := newMembersFixture()

	f.repo.createFn = func(ctx context.Context, m member.Member) (member.Member, error) {
		return m, nil
	}

	r := setupRouter(http.MethodPost, "/api/members", f.h.Create)

	body, contentType := memberForm(t, map[string]string{
		"name":               "Ravi Kumar",
		"email":              "Ravi.Kumar@Example.COM",
		"heightCm":           "180",
		"weightKg":           "81",
		"subscriptionMonths": "3",
		"startDate":          "2026-08-01",
	}, "")

	req := httptest.NewRequest(http.MethodPost, "/api/members", body)
	req.Header.Set("Content-Type", contentType)
	req.AddCookie(sessionCookie(t, f.parts.staff, "s-1"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body %s", w.Code, w.Body.String())
	}

	var resp memberEnvelope

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	m := resp.Member

	if m.Email != "ravi.kumar@example.com" {
		t.Errorf("email not lowercased: %q", m.Email)
	}
	if m.BMI != 25.0 {
		t.Errorf("bmi = %v, want 25.0", m.BMI)
	}
	if m.Status != member.StatusActive || m.PaymentStatus != member.PaymentDue {
		t.Errorf("new member status = %s/%s, want active/due", m.Status, m.PaymentStatus)
	}
	if m.CreatedByID != "s-1" {
		t.Errorf("createdById = %q, want the session id s-1", m.CreatedByID)
	}

	wantEnd := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)

	if !m.EndDate.Equal(wantEnd) {
		t.Errorf("endDate = %v, want %v", m.EndDate, wantEnd)
	}

	if len(f.mail.created) != 1 {
		t.Fatalf("welcome jobs queued = %d, want 1", len(f.mail.created))
	}

	queued := f.mail.created[0]

	if queued.Type != string(jobs.TypeWelcomeMail) {
		t.Errorf("job type = %q", queued.Type)
	}
	if queued.IdempotencyKey == nil || *queued.IdempotencyKey != "welcome:"+m.ID {
		t.Errorf("idempotency key = %v, want welcome:%s", queued.IdempotencyKey, m.ID)
	}
}

func TestMembersCreateWithPhoto(t *testing.T) {
	f := newMembersFixture()

	f.repo.createFn = func(ctx context.Context, m member.Member) (member.Member, error) {
		return m, nil
	}

	r := setupRouter(http.MethodPost, "/api/members", f.h.Create)

	body, contentType := memberForm(t, map[string]string{"name": "Photo Member"}, "face.png")

	req := httptest.NewRequest(http.MethodPost, "/api/members", body)
	req.Header.Set("Content-Type", contentType)
	req.AddCookie(sessionCookie(t, f.parts.staff, "s-1"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp memberEnvelope

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	key := resp.Member.PhotoKey

	if !strings.HasPrefix(key, "members/") || !strings.HasSuffix(key, ".png") {
		t.Fatalf("photo key = %q", key)
	}

	if ct := f.photos.puts[key]; ct != "image/png" {
		t.Fatalf("stored content type = %q, want image/png", ct)
	}
}

func TestMembersCreateDuplicateEmail(t *testing.T) {
	f := newMembersFixture()

	f.repo.createFn = func(ctx context.Context, m member.Member) (member.Member, error) {
		return member.Member{}, postgres.ErrEmailAlreadyUsed
	}

	r := setupRouter(http.MethodPost, "/api/members", f.h.Create)

	body, contentType := memberForm(t, map[string]string{
		"name":  "Dup Member",
		"email": "dup@example.com",
	}, "")

	req := httptest.NewRequest(http.MethodPost, "/api/members", body)
	req.Header.Set("Content-Type", contentType)
	req.AddCookie(sessionCookie(t, f.parts.staff, "s-1"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}

	var resp errorResponse

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp.Code != "email_taken" {
		t.Fatalf("code = %q, want email_taken", resp.Code)
	}

	if len(f.mail.created) != 0 {
		t.Fatal("welcome mail queued for a failed create")
	}
}

// A member session cannot reach the staff-facing member registry.
func TestMembersRequiresStaffOrAdmin(t *testing.T) {
	f := newMembersFixture()

	f.repo.listFn = func(ctx context.Context, filter member.ListFilter) ([]member.Member, error) {
		return nil, nil
	}

	r := setupRouter(http.MethodGet, "/api/members", f.h.List)

	req := httptest.NewRequest(http.MethodGet, "/api/members", nil)
	req.AddCookie(sessionCookie(t, f.parts.member, "m-1"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestMembersListUsesCache(t *testing.T) {
	f := newMembersFixture()

	calls := 0

	f.repo.listFn = func(ctx context.Context, filter member.ListFilter) ([]member.Member, error) {
		calls++
		return []member.Member{{ID: "m-1", Name: "Cached"}}, nil
	}

	r := setupRouter(http.MethodGet, "/api/members", f.h.List)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/members", nil)
		req.AddCookie(sessionCookie(t, f.parts.staff, "s-1"))

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d on call %d", w.Code, i)
		}

		var resp struct {
			OK     bool `json:"ok"`
			Count  int  `json:"count"`
			Cached bool `json:"cached"`
		}

		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}

		if resp.Count != 1 {
			t.Fatalf("count = %d", resp.Count)
		}

		if wantCached := i == 1; resp.Cached != wantCached {
			t.Fatalf("call %d cached = %v, want %v", i, resp.Cached, wantCached)
		}
	}

	if calls != 1 {
		t.Fatalf("store hit %d times, want 1", calls)
	}
}

func TestMembersUpdateRecomputesBMI(t *testing.T) {
	f := newMembersFixture()

	f.repo.getFn = func(ctx context.Context, id string) (member.Member, error) {
		return member.Member{ID: id, HeightCm: 180, WeightKg: 90}, nil
	}

	var gotBMI *float64

	f.repo.updateFn = func(ctx context.Context, id string, req member.UpdateRequest, bmi *float64) (member.Member, error) {
		gotBMI = bmi
		return member.Member{ID: id}, nil
	}

	r := setupRouter(http.MethodPatch, "/api/members/:id", f.h.Update)

	req := httptest.NewRequest(http.MethodPatch, "/api/members/m-1", strings.NewReader(`{"weightKg": 81}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(sessionCookie(t, f.parts.staff, "s-1"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	if gotBMI == nil {
		t.Fatal("bmi was not recomputed on a weight change")
	}

	// 81kg at the stored 180cm
	if *gotBMI != 25.0 {
		t.Fatalf("bmi = %v, want 25.0", *gotBMI)
	}
}

func TestMembersDelete(t *testing.T) {
	f := newMembersFixture()

	f.repo.getFn = func(ctx context.Context, id string) (member.Member, error) {
		return member.Member{ID: id, PhotoKey: "members/m-1.jpg"}, nil
	}
	f.repo.deleteFn = func(ctx context.Context, id string) error {
		return nil
	}

	r := setupRouter(http.MethodDelete, "/api/members/:id", f.h.Delete)

	// staff cannot delete
	req := httptest.NewRequest(http.MethodDelete, "/api/members/m-1", nil)
	req.AddCookie(sessionCookie(t, f.parts.staff, "s-1"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("staff delete status = %d, want 401", w.Code)
	}

	// admin can, and the photo goes with the record
	req = httptest.NewRequest(http.MethodDelete, "/api/members/m-1", nil)
	req.AddCookie(sessionCookie(t, f.parts.admin, "a-1"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("admin delete status = %d, body %s", w.Code, w.Body.String())
	}

	if len(f.photos.removed) != 1 || f.photos.removed[0] != "members/m-1.jpg" {
		t.Fatalf("photo not removed: %v", f.photos.removed)
	}
}

func TestMembersGetNotFound(t *testing.T) {
	f := newMembersFixture()

	f.repo.getFn = func(ctx context.Context, id string) (member.Member, error) {
		return member.Member{}, member.ErrNotFound
	}

	r := setupRouter(http.MethodGet, "/api/members/:id", f.h.GetByID)

	req := httptest.NewRequest(http.MethodGet, "/api/members/missing", nil)
	req.AddCookie(sessionCookie(t, f.parts.staff, "s-1"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestMembersPhotoWithoutKey(t *testing.T) {
	f := newMembersFixture()

	f.repo.getFn = func(ctx context.Context, id string) (member.Member, error) {
		return member.Member{ID: id}, nil
	}

	r := setupRouter(http.MethodGet, "/api/members/:id/photo", f.h.Photo)

	req := httptest.NewRequest(http.MethodGet, "/api/members/m-1/photo", nil)
	req.AddCookie(sessionCookie(t, f.parts.staff, "s-1"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}
