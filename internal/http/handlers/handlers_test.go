package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-mdt-backend/internal/auth"
	"github.com/tbourn/go-mdt-backend/internal/broadcast"
	"github.com/tbourn/go-mdt-backend/internal/citizens"
	"github.com/tbourn/go-mdt-backend/internal/domain"
	"github.com/tbourn/go-mdt-backend/internal/http/middleware"
	"github.com/tbourn/go-mdt-backend/internal/repo"
	"github.com/tbourn/go-mdt-backend/internal/services"
)

// ---------- fakes ----------

func strp(s string) *string { return &s }

var johnDoe = &domain.Citizen{NumericID: 42, Identifier: "char1:0000002a", Firstname: strp("John"), Lastname: strp("Doe")}

type fakeRecords[T domain.Record] struct {
	mu sync.Mutex

	created  []T
	scope    string
	key      string
	replay   bool
	fields   map[string]any
	filter   repo.RecordFilter
	deleted  uint
	err      error
	getErr   error
	count    int64
	maxTS    *time.Time
	listRecs []T
}

func (f *fakeRecords[T]) CreateIdempotent(_ context.Context, _ auth.Principal, scope, key string, rec T) (citizens.Aggregated[T], bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scope, f.key = scope, key
	if f.err != nil {
		return citizens.Aggregated[T]{}, false, f.err
	}
	if err := rec.Validate(); err != nil {
		return citizens.Aggregated[T]{}, false, err
	}
	f.created = append(f.created, rec)
	return citizens.Aggregated[T]{Entity: rec, Citizen: johnDoe}, f.replay, nil
}

func (f *fakeRecords[T]) Get(_ context.Context, id uint) (citizens.Aggregated[T], error) {
	if f.getErr != nil {
		return citizens.Aggregated[T]{}, f.getErr
	}
	var zero T
	return citizens.Aggregated[T]{Entity: zero}, nil
}

func (f *fakeRecords[T]) ListPage(_ context.Context, flt repo.RecordFilter, _, _ int) ([]citizens.Aggregated[T], int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filter = flt
	if f.err != nil {
		return nil, 0, f.err
	}
	out := make([]citizens.Aggregated[T], 0, len(f.listRecs))
	for _, r := range f.listRecs {
		out = append(out, citizens.Aggregated[T]{Entity: r})
	}
	return out, int64(len(f.listRecs)), nil
}

func (f *fakeRecords[T]) Stats(context.Context, repo.RecordFilter) (int64, *time.Time, error) {
	return f.count, f.maxTS, nil
}

func (f *fakeRecords[T]) Update(_ context.Context, _ auth.Principal, _ uint, fields map[string]any) (citizens.Aggregated[T], error) {
	f.fields = fields
	if f.err != nil {
		return citizens.Aggregated[T]{}, f.err
	}
	var zero T
	return citizens.Aggregated[T]{Entity: zero}, nil
}

func (f *fakeRecords[T]) Delete(_ context.Context, _ auth.Principal, id uint) error {
	f.deleted = id
	return f.err
}

type fakeCitizens struct {
	body   []byte
	hit    bool
	err    error
	q      string
	page   int
	limit  int
	purged int
}

func (f *fakeCitizens) Search(_ context.Context, q string, page, limit int) ([]byte, bool, error) {
	f.q, f.page, f.limit = q, page, limit
	return f.body, f.hit, f.err
}

func (f *fakeCitizens) Get(_ context.Context, id int64) (*domain.Citizen, error) {
	if f.err != nil {
		return nil, f.err
	}
	if id != 42 {
		return nil, services.ErrCitizenNotFound
	}
	return johnDoe, nil
}

func (f *fakeCitizens) Records(ctx context.Context, id int64) (*services.CitizenRecords, error) {
	c, err := f.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &services.CitizenRecords{Citizen: c}, nil
}

func (f *fakeCitizens) PurgeCache() int { f.purged++; return 7 }

type fakeNotes struct {
	deleteErr error
}

func (fakeNotes) List(context.Context, int64) ([]domain.CitizenNote, error) { return nil, nil }

func (fakeNotes) Create(_ context.Context, actor auth.Principal, id int64, content string) (citizens.Aggregated[domain.CitizenNote], error) {
	return citizens.Aggregated[domain.CitizenNote]{
		Entity:  domain.CitizenNote{ID: 1, CitizenID: id, OfficerID: actor.OfficerID, Content: content},
		Citizen: johnDoe,
	}, nil
}

func (f fakeNotes) Delete(context.Context, auth.Principal, uint) error { return f.deleteErr }

type fakeAuth struct{}

func (fakeAuth) Login(_ context.Context, u, p string) (*services.Session, error) {
	if u != "adams" || p != "hunter22" {
		return nil, services.ErrBadCredentials
	}
	return &services.Session{Token: "tok", ExpiresAt: time.Now().Add(time.Hour), Officer: &domain.Officer{ID: 7, Username: "adams"}}, nil
}

func (fakeAuth) Me(_ context.Context, p auth.Principal) (*domain.Officer, error) {
	return &domain.Officer{ID: p.OfficerID, Username: p.Username}, nil
}

type fakeOfficers struct{ created services.NewOfficer }

func (f *fakeOfficers) Create(_ context.Context, _ auth.Principal, in services.NewOfficer) (*domain.Officer, error) {
	if in.Username == "taken" {
		return nil, services.ErrUsernameTaken
	}
	f.created = in
	return &domain.Officer{ID: 9, Username: in.Username}, nil
}

func (f *fakeOfficers) ListPage(context.Context, int, int) ([]domain.Officer, int64, error) {
	return []domain.Officer{{ID: 1}}, 1, nil
}

func (f *fakeOfficers) Update(_ context.Context, _ auth.Principal, id uint, p services.OfficerPatch) (*domain.Officer, error) {
	if p.Active != nil && !*p.Active && id == 7 {
		return nil, &domain.ValidationError{Msg: "cannot deactivate yourself"}
	}
	return &domain.Officer{ID: id}, nil
}

type fakeTokens struct{}

func (fakeTokens) Create(_ context.Context, _ auth.Principal, name string) (string, *domain.APIToken, error) {
	return "mdt_secret", &domain.APIToken{ID: 3, Name: name}, nil
}
func (fakeTokens) List(context.Context) ([]domain.APIToken, error) { return nil, nil }
func (fakeTokens) Revoke(_ context.Context, id uint) error {
	if id != 3 {
		return services.ErrNotFound
	}
	return nil
}

// ---------- harness ----------

type harness struct {
	arrests  *fakeRecords[domain.Arrest]
	wanted   *fakeRecords[domain.WantedPerson]
	licenses *fakeRecords[domain.WeaponLicense]
	citizens *fakeCitizens
	officers *fakeOfficers
	hub      *broadcast.Hub
	h        *Handlers
	r        *gin.Engine
}

var adams = auth.Principal{OfficerID: 7, Username: "adams", DisplayName: "Sgt. Adams", Role: domain.RoleOfficer}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hs := &harness{
		arrests:  &fakeRecords[domain.Arrest]{},
		wanted:   &fakeRecords[domain.WantedPerson]{},
		licenses: &fakeRecords[domain.WeaponLicense]{},
		citizens: &fakeCitizens{body: []byte(`{"citizens":[],"total":0,"page":1,"limit":20}`)},
		officers: &fakeOfficers{},
		hub:      broadcast.NewHub(),
	}
	hs.h = New(Services{
		Arrests:  hs.arrests,
		Reports:  &fakeRecords[domain.Report]{},
		Wanted:   hs.wanted,
		Licenses: hs.licenses,
		Citizens: hs.citizens,
		Notes:    fakeNotes{deleteErr: services.ErrForbidden},
		Officers: hs.officers,
		Auth:     fakeAuth{},
		Tokens:   fakeTokens{},
		Events:   hs.hub,
	}, Options{Heartbeat: 20 * time.Millisecond})

	r := gin.New()
	r.POST("/auth/login", hs.h.Login)
	r.POST("/auth/logout", hs.h.Logout)
	api := r.Group("", func(c *gin.Context) { middleware.SetPrincipal(c, adams); c.Next() })
	api.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, nil))
	api.GET("/auth/me", hs.h.Me)
	api.POST("/arrests", hs.h.CreateArrest)
	api.GET("/arrests", hs.h.ListArrest)
	api.GET("/arrests/:id", hs.h.GetArrest)
	api.PATCH("/arrests/:id", hs.h.UpdateArrest)
	api.DELETE("/arrests/:id", hs.h.DeleteArrest)
	api.PATCH("/licenses/:id", hs.h.UpdateLicense)
	api.POST("/wanted", hs.h.CreateWanted)
	api.GET("/citizens", hs.h.SearchCitizens)
	api.GET("/citizens/:id", hs.h.GetCitizen)
	api.GET("/citizens/:id/records", hs.h.GetCitizenRecords)
	api.POST("/citizens/:id/notes", hs.h.CreateNote)
	api.DELETE("/notes/:id", hs.h.DeleteNote)
	api.POST("/officers", hs.h.CreateOfficer)
	api.PATCH("/officers/:id", hs.h.UpdateOfficer)
	api.POST("/admin/search-cache/purge", hs.h.PurgeSearchCache)
	api.POST("/admin/tokens", hs.h.CreateToken)
	api.DELETE("/admin/tokens/:id", hs.h.RevokeToken)
	api.GET("/events/recent", hs.h.RecentEvents)
	api.GET("/events", hs.h.StreamEvents)
	api.GET("/events/ws", hs.h.StreamEventsWS)
	r.GET("/bot/wanted", hs.h.BotListWanted)
	hs.r = r
	return hs
}

func (hs *harness) do(method, path, body string, hdr ...string) *httptest.ResponseRecorder {
	var rd *bytes.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	hs.r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("json %s: %v", w.Body.String(), err)
	}
	return m
}

// ---------- helpers-only tests ----------

func Test_clampPagination(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for _, tc := range []struct {
		query      string
		page, size int
	}{
		{"", 1, 20},
		{"page=0&page_size=0", 1, 1},
		{"page=3&page_size=500", 3, 100},
		{"limit=5", 1, 5},
		{"page_size=7&limit=5", 1, 7},
		{"page=x&limit=y", 1, 20},
	} {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/?"+tc.query, nil)
		p, s := clampPagination(c)
		if p != tc.page || s != tc.size {
			t.Fatalf("%q: got (%d,%d) want (%d,%d)", tc.query, p, s, tc.page, tc.size)
		}
	}
}

func Test_newPagination(t *testing.T) {
	p := newPagination(2, 10, 25)
	if p.TotalPages != 3 || !p.HasNext {
		t.Fatalf("unexpected %+v", p)
	}
	p = newPagination(1, 20, 0)
	if p.TotalPages != 0 || p.HasNext {
		t.Fatalf("unexpected empty %+v", p)
	}
}

// ---------- records ----------

func TestCreateArrest(t *testing.T) {
	hs := newHarness(t)

	w := hs.do(http.MethodPost, "/arrests", `{"citizen_id":42,"charges":" Speeding ","fine":100}`, "Idempotency-Key", "key-12345")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", w.Code, w.Body.String())
	}
	m := decode(t, w)
	if m["charges"] != "Speeding" || m["officer_id"] != float64(7) {
		t.Fatalf("unexpected body: %v", m)
	}
	if cit, _ := m["citizen"].(map[string]any); cit == nil || cit["firstname"] != "John" {
		t.Fatalf("citizen not attached: %v", m)
	}
	if hs.arrests.key != "key-12345" || hs.arrests.scope != "/arrests" {
		t.Fatalf("idempotency not forwarded: key=%q scope=%q", hs.arrests.key, hs.arrests.scope)
	}
	if w.Header().Get("Idempotency-Replayed") != "" {
		t.Fatalf("first create must not be marked as replay")
	}
}

func TestCreateArrest_Replay(t *testing.T) {
	hs := newHarness(t)
	hs.arrests.replay = true
	w := hs.do(http.MethodPost, "/arrests", `{"citizen_id":42,"charges":"x"}`, "Idempotency-Key", "key-12345")
	if w.Code != http.StatusOK || w.Header().Get("Idempotency-Replayed") != "true" {
		t.Fatalf("expected replayed 200, got %d %v", w.Code, w.Header())
	}
}

func TestCreateArrest_BadInput(t *testing.T) {
	hs := newHarness(t)
	for _, body := range []string{
		`{`,
		`{"charges":"x"}`,
		`{"citizen_id":-1,"charges":"x"}`,
		`{"citizen_id":42}`,
		`{"citizen_id":42,"charges":"x","fine":-5}`,
	} {
		w := hs.do(http.MethodPost, "/arrests", body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", body, w.Code)
		}
	}
	// Service-side validation surfaces as validation_failed.
	w := hs.do(http.MethodPost, "/arrests", `{"citizen_id":42,"charges":"x","status":"lost"}`)
	if w.Code != http.StatusBadRequest || decode(t, w)["code"] != ErrCodeValidation {
		t.Fatalf("expected validation_failed, got %d %s", w.Code, w.Body.String())
	}
}

func TestCreateWanted_DefaultsDanger(t *testing.T) {
	hs := newHarness(t)
	w := hs.do(http.MethodPost, "/wanted", `{"citizen_id":42,"reason":"robbery"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", w.Code, w.Body.String())
	}
	if got := hs.wanted.created[0].Danger; got != 1 {
		t.Fatalf("danger default = %d", got)
	}
}

func TestListArrests_FiltersAndETag(t *testing.T) {
	hs := newHarness(t)
	ts := time.Unix(1700000000, 0)
	hs.arrests.count, hs.arrests.maxTS = 1, &ts
	hs.arrests.listRecs = []domain.Arrest{{ID: 1, CitizenID: 42}}

	w := hs.do(http.MethodGet, "/arrests?citizen_id=42&status=open&page_size=5", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if hs.arrests.filter.CitizenID != 42 || hs.arrests.filter.Status != "open" {
		t.Fatalf("filter not applied: %+v", hs.arrests.filter)
	}
	m := decode(t, w)
	pg := m["pagination"].(map[string]any)
	if pg["total"] != float64(1) || pg["page_size"] != float64(5) {
		t.Fatalf("pagination: %v", pg)
	}
	etag := w.Header().Get("ETag")
	if !strings.HasPrefix(etag, `W/"arrest:c42:`) {
		t.Fatalf("etag = %q", etag)
	}

	w = hs.do(http.MethodGet, "/arrests?citizen_id=42&status=open&page_size=5", "", "If-None-Match", etag)
	if w.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", w.Code)
	}

	w = hs.do(http.MethodGet, "/arrests?citizen_id=abc", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad filter, got %d", w.Code)
	}
}

func TestListArrests_UpstreamFailure(t *testing.T) {
	hs := newHarness(t)
	hs.arrests.err = errors.New("citizens: search: connection refused")
	w := hs.do(http.MethodGet, "/arrests", "")
	if w.Code != http.StatusInternalServerError || decode(t, w)["code"] != ErrCodeListFailed {
		t.Fatalf("expected 500 list_failed, got %d %s", w.Code, w.Body.String())
	}
}

func TestGetArrest(t *testing.T) {
	hs := newHarness(t)
	if w := hs.do(http.MethodGet, "/arrests/0", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("id 0: %d", w.Code)
	}
	if w := hs.do(http.MethodGet, "/arrests/1", ""); w.Code != http.StatusOK {
		t.Fatalf("found: %d", w.Code)
	}
	hs.arrests.getErr = services.ErrNotFound
	if w := hs.do(http.MethodGet, "/arrests/1", ""); w.Code != http.StatusNotFound {
		t.Fatalf("missing: %d", w.Code)
	}
	hs.arrests.getErr = errors.New("game db down")
	if w := hs.do(http.MethodGet, "/arrests/1", ""); w.Code != http.StatusInternalServerError {
		t.Fatalf("upstream: %d", w.Code)
	}
}

func TestUpdateArrest_Whitelist(t *testing.T) {
	hs := newHarness(t)

	w := hs.do(http.MethodPatch, "/arrests/3", `{"status":"processed","fine":250}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", w.Code, w.Body.String())
	}
	if hs.arrests.fields["status"] != "processed" || hs.arrests.fields["fine"] != 250 {
		t.Fatalf("fields = %v", hs.arrests.fields)
	}

	for _, body := range []string{`{"citizen_id":7}`, `{}`, `{"fine":"lots"}`, `[1]`} {
		w = hs.do(http.MethodPatch, "/arrests/3", body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", body, w.Code)
		}
	}
}

func TestUpdateLicense_ExpiresAt(t *testing.T) {
	hs := newHarness(t)
	w := hs.do(http.MethodPatch, "/licenses/1", `{"expires_at":"2027-01-02T15:04:05+02:00"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", w.Code, w.Body.String())
	}
	got, ok := hs.licenses.fields["expires_at"].(time.Time)
	if !ok || !got.Equal(time.Date(2027, 1, 2, 13, 4, 5, 0, time.UTC)) || got.Location() != time.UTC {
		t.Fatalf("expires_at = %#v", hs.licenses.fields["expires_at"])
	}

	w = hs.do(http.MethodPatch, "/licenses/1", `{"expires_at":null}`)
	if w.Code != http.StatusOK {
		t.Fatalf("null: %d", w.Code)
	}
	if v, present := hs.licenses.fields["expires_at"]; !present || v != nil {
		t.Fatalf("null should clear the column: %v", hs.licenses.fields)
	}
}

func TestDeleteArrest(t *testing.T) {
	hs := newHarness(t)
	if w := hs.do(http.MethodDelete, "/arrests/5", ""); w.Code != http.StatusNoContent || hs.arrests.deleted != 5 {
		t.Fatalf("delete: %d deleted=%d", w.Code, hs.arrests.deleted)
	}
	hs.arrests.err = services.ErrNotFound
	if w := hs.do(http.MethodDelete, "/arrests/5", ""); w.Code != http.StatusNotFound {
		t.Fatalf("missing: %d", w.Code)
	}
}

// ---------- citizens ----------

func TestSearchCitizens(t *testing.T) {
	hs := newHarness(t)
	w := hs.do(http.MethodGet, "/citizens?q=john+doe&page=2&limit=10&_=123", "")
	if w.Code != http.StatusOK || w.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("got %d cache=%q", w.Code, w.Header().Get("X-Cache"))
	}
	if w.Body.String() != string(hs.citizens.body) {
		t.Fatalf("body should be passed through: %s", w.Body.String())
	}
	if hs.citizens.q != "john doe" || hs.citizens.page != 2 || hs.citizens.limit != 10 {
		t.Fatalf("args: %+v", hs.citizens)
	}

	hs.citizens.hit = true
	if w := hs.do(http.MethodGet, "/citizens?q=john", ""); w.Header().Get("X-Cache") != "HIT" {
		t.Fatalf("expected HIT")
	}

	hs.citizens.err = errors.New("down")
	if w := hs.do(http.MethodGet, "/citizens?q=john", ""); w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestGetCitizen(t *testing.T) {
	hs := newHarness(t)
	if w := hs.do(http.MethodGet, "/citizens/42", ""); w.Code != http.StatusOK || decode(t, w)["firstname"] != "John" {
		t.Fatalf("found: %d %s", w.Code, w.Body.String())
	}
	if w := hs.do(http.MethodGet, "/citizens/43", ""); w.Code != http.StatusNotFound {
		t.Fatalf("missing: %d", w.Code)
	}
	if w := hs.do(http.MethodGet, "/citizens/abc", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id: %d", w.Code)
	}
	if w := hs.do(http.MethodGet, "/citizens/42/records", ""); w.Code != http.StatusOK {
		t.Fatalf("records: %d", w.Code)
	}
	hs.citizens.err = errors.New("down")
	if w := hs.do(http.MethodGet, "/citizens/42", ""); w.Code != http.StatusInternalServerError {
		t.Fatalf("upstream: %d", w.Code)
	}
}

func TestNotes(t *testing.T) {
	hs := newHarness(t)
	w := hs.do(http.MethodPost, "/citizens/42/notes", `{"content":"seen near the docks"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	if m := decode(t, w); m["officer_id"] != float64(7) || m["citizen"] == nil {
		t.Fatalf("body: %v", m)
	}
	if w := hs.do(http.MethodPost, "/citizens/42/notes", `{"content":"  "}`); w.Code != http.StatusBadRequest {
		t.Fatalf("blank: %d", w.Code)
	}
	if w := hs.do(http.MethodDelete, "/notes/1", ""); w.Code != http.StatusForbidden {
		t.Fatalf("forbidden: %d", w.Code)
	}
}

// ---------- auth, officers, admin ----------

func TestLoginLogoutMe(t *testing.T) {
	hs := newHarness(t)

	w := hs.do(http.MethodPost, "/auth/login", `{"username":"adams","password":"hunter22"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("login: %d %s", w.Code, w.Body.String())
	}
	ck := w.Header().Get("Set-Cookie")
	if !strings.Contains(ck, "mdt_session=tok") || !strings.Contains(ck, "HttpOnly") {
		t.Fatalf("cookie: %q", ck)
	}
	if decode(t, w)["token"] != "tok" {
		t.Fatalf("token missing from body")
	}

	if w := hs.do(http.MethodPost, "/auth/login", `{"username":"adams","password":"nope"}`); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: %d", w.Code)
	}
	if w := hs.do(http.MethodPost, "/auth/login", `{"username":"adams"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("missing password: %d", w.Code)
	}

	w = hs.do(http.MethodPost, "/auth/logout", "")
	if w.Code != http.StatusNoContent || !strings.Contains(w.Header().Get("Set-Cookie"), "Max-Age=0") {
		t.Fatalf("logout: %d %q", w.Code, w.Header().Get("Set-Cookie"))
	}

	if w := hs.do(http.MethodGet, "/auth/me", ""); w.Code != http.StatusOK || decode(t, w)["username"] != "adams" {
		t.Fatalf("me: %d", w.Code)
	}
}

func TestOfficers(t *testing.T) {
	hs := newHarness(t)
	w := hs.do(http.MethodPost, "/officers", `{"username":"baker","password":"longenough","role":"supervisor"}`)
	if w.Code != http.StatusCreated || hs.officers.created.Role != "supervisor" {
		t.Fatalf("create: %d %+v", w.Code, hs.officers.created)
	}
	if w := hs.do(http.MethodPost, "/officers", `{"username":"taken","password":"longenough"}`); w.Code != http.StatusConflict {
		t.Fatalf("taken: %d", w.Code)
	}
	if w := hs.do(http.MethodPatch, "/officers/7", `{"active":false}`); w.Code != http.StatusBadRequest {
		t.Fatalf("self deactivation: %d", w.Code)
	}
	if w := hs.do(http.MethodPatch, "/officers/8", `{"rank":"Lieutenant"}`); w.Code != http.StatusOK {
		t.Fatalf("update: %d", w.Code)
	}
}

func TestAdmin(t *testing.T) {
	hs := newHarness(t)
	w := hs.do(http.MethodPost, "/admin/search-cache/purge", "")
	if w.Code != http.StatusOK || decode(t, w)["purged"] != float64(7) || hs.citizens.purged != 1 {
		t.Fatalf("purge: %d %s", w.Code, w.Body.String())
	}

	w = hs.do(http.MethodPost, "/admin/tokens", `{"name":"discord-bot"}`)
	if w.Code != http.StatusCreated || decode(t, w)["token"] != "mdt_secret" {
		t.Fatalf("token: %d %s", w.Code, w.Body.String())
	}
	if w := hs.do(http.MethodPost, "/admin/tokens", `{}`); w.Code != http.StatusBadRequest {
		t.Fatalf("nameless token: %d", w.Code)
	}
	if w := hs.do(http.MethodDelete, "/admin/tokens/3", ""); w.Code != http.StatusNoContent {
		t.Fatalf("revoke: %d", w.Code)
	}
	if w := hs.do(http.MethodDelete, "/admin/tokens/4", ""); w.Code != http.StatusNotFound {
		t.Fatalf("revoke missing: %d", w.Code)
	}
}

func TestBotListWanted(t *testing.T) {
	hs := newHarness(t)
	hs.wanted.listRecs = []domain.WantedPerson{{ID: 1, CitizenID: 42, Danger: 3}}
	w := hs.do(http.MethodGet, "/bot/wanted", "")
	if w.Code != http.StatusOK || hs.wanted.filter.Status != "active" {
		t.Fatalf("got %d filter=%+v", w.Code, hs.wanted.filter)
	}
	if items := decode(t, w)["items"].([]any); len(items) != 1 {
		t.Fatalf("items: %v", items)
	}
}
