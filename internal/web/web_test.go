package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"calboard/internal/calendar"
	"calboard/internal/config"
	appLog "calboard/internal/log"
	"calboard/internal/model"
)

func TestMain(m *testing.M) {
	appLog.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type harness struct {
	t     *testing.T
	clock *calendar.ManualClock
	state *calendar.State
	h     http.Handler
}

func newHarness(t *testing.T, mutate func(*config.Config)) *harness {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Timezone = "UTC"
	if mutate != nil {
		mutate(cfg)
	}
	clock := calendar.NewManualClock(time.Date(2025, time.May, 14, 10, 0, 0, 0, time.UTC))
	state := calendar.NewState(calendar.Options{
		Clock:           clock,
		Categories:      cfg.SeedCategories(),
		DefaultCategory: cfg.DefaultCategory,
		ErrorClearDelay: cfg.ErrorClearDelay,
		SaveDelay:       cfg.SaveDelay,
	})
	return &harness{t: t, clock: clock, state: state, h: NewServer(cfg, state).Handler()}
}

func (h *harness) do(method, path, body string) *httptest.ResponseRecorder {
	h.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.h.ServeHTTP(w, req)
	return w
}

func decodeSnapshot(t *testing.T, w *httptest.ResponseRecorder) calendar.Snapshot {
	t.Helper()
	var snap calendar.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v\n%s", err, w.Body.String())
	}
	return snap
}

func TestHealth(t *testing.T) {
	h := newHarness(t, nil)
	w := h.do(http.MethodGet, "/health", "")
	if w.Code != http.StatusOK || w.Body.String() != "OK" {
		t.Errorf("health = %d %q", w.Code, w.Body.String())
	}
}

func TestStateEndpoint(t *testing.T) {
	h := newHarness(t, nil)
	w := h.do(http.MethodGet, "/api/state", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	snap := decodeSnapshot(t, w)
	if len(snap.Grid) != calendar.GridSize {
		t.Errorf("grid = %d cells", len(snap.Grid))
	}
	if snap.Anchor != model.Date(2025, time.May, 14) {
		t.Errorf("anchor = %s", snap.Anchor)
	}
	if len(snap.Categories) != 3 || snap.Weekdays[0] != "Sun" {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestCreateEventFlow(t *testing.T) {
	h := newHarness(t, nil)

	if w := h.do(http.MethodPost, "/api/select", `{"date":"2025-05-20"}`); w.Code != http.StatusOK {
		t.Fatalf("select = %d %s", w.Code, w.Body.String())
	}
	if w := h.do(http.MethodPost, "/api/dialog/create", ""); w.Code != http.StatusOK {
		t.Fatalf("open dialog = %d", w.Code)
	}
	w := h.do(http.MethodPut, "/api/dialog/form",
		`{"title":"Dentist","description":"checkup","category_id":"urgent","start_time":"08:00","end_time":"08:30"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("set form = %d %s", w.Code, w.Body.String())
	}

	w = h.do(http.MethodPost, "/api/dialog/save", "")
	if w.Code != http.StatusOK {
		t.Fatalf("save = %d %s", w.Code, w.Body.String())
	}
	if snap := decodeSnapshot(t, w); !snap.Loading {
		t.Error("save should report loading")
	}
	if w := h.do(http.MethodPost, "/api/dialog/save", ""); w.Code != http.StatusConflict {
		t.Errorf("save while saving = %d, want 409", w.Code)
	}

	h.clock.Advance(calendar.DefaultSaveDelay)

	snap := decodeSnapshot(t, h.do(http.MethodGet, "/api/state", ""))
	if snap.Loading || snap.EventDialog.Open {
		t.Errorf("after commit loading=%v open=%v", snap.Loading, snap.EventDialog.Open)
	}
	if len(snap.Events) != 1 {
		t.Fatalf("sidebar events = %+v", snap.Events)
	}
	ev := snap.Events[0]
	if ev.Title != "Dentist" || ev.Color != "#F44336" || ev.TimeLabel != "08:00 - 08:30" {
		t.Errorf("event view = %+v", ev)
	}
}

func TestSaveWithClosedDialogIs409(t *testing.T) {
	h := newHarness(t, nil)

	h.do(http.MethodPost, "/api/select", `{"date":"2025-05-20"}`)
	h.do(http.MethodPost, "/api/dialog/create", "")
	h.do(http.MethodPut, "/api/dialog/form", `{"title":"Once","category_id":"work","start_time":"08:00","end_time":"09:00"}`)
	if w := h.do(http.MethodPost, "/api/dialog/save", ""); w.Code != http.StatusOK {
		t.Fatalf("save = %d %s", w.Code, w.Body.String())
	}
	h.clock.Advance(calendar.DefaultSaveDelay)

	w := h.do(http.MethodPost, "/api/dialog/save", "")
	if w.Code != http.StatusConflict {
		t.Fatalf("save after commit = %d, want 409", w.Code)
	}
	var body intentError
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Error != calendar.ErrDialogClosed.Error() || len(body.State.Events) != 1 {
		t.Errorf("body = %q, events = %d", body.Error, len(body.State.Events))
	}
}

func TestValidationErrorsAre422(t *testing.T) {
	h := newHarness(t, nil)

	w := h.do(http.MethodPost, "/api/categories", `{"name":"work","color":"#000"}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("duplicate category = %d", w.Code)
	}
	var body intentError
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Error != "Category name already exists." {
		t.Errorf("error = %q", body.Error)
	}
	if body.State.Error == nil || *body.State.Error != body.Error {
		t.Errorf("snapshot error slot = %v", body.State.Error)
	}

	h.do(http.MethodPost, "/api/select", `{"date":"2025-05-14"}`)
	h.do(http.MethodPost, "/api/dialog/create", "")
	if w := h.do(http.MethodPost, "/api/dialog/save", ""); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("save with empty title = %d", w.Code)
	}
}

func TestBadRequests(t *testing.T) {
	h := newHarness(t, nil)
	cases := []struct {
		method, path, body string
	}{
		{http.MethodPost, "/api/select", `{"date":"tomorrow"}`},
		{http.MethodPost, "/api/select", `{}`},
		{http.MethodPost, "/api/search", `not json`},
		{http.MethodPut, "/api/dialog/form", `{"unknown":1}`},
	}
	for _, c := range cases {
		if w := h.do(c.method, c.path, c.body); w.Code != http.StatusBadRequest {
			t.Errorf("%s %s %s = %d, want 400", c.method, c.path, c.body, w.Code)
		}
	}
	if w := h.do(http.MethodGet, "/api/month/next", ""); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET on POST route = %d", w.Code)
	}
}

func TestCategoryDeleteNeedsConfirmation(t *testing.T) {
	h := newHarness(t, nil)

	w := h.do(http.MethodPost, "/api/categories/delete", `{"id":"urgent"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("request delete = %d", w.Code)
	}
	snap := decodeSnapshot(t, w)
	if !snap.Confirm.Visible || snap.Confirm.Action != "delete-category" {
		t.Fatalf("confirm = %+v", snap.Confirm)
	}

	snap = decodeSnapshot(t, h.do(http.MethodPost, "/api/confirm", ""))
	if len(snap.Categories) != 2 || snap.Confirm.Visible {
		t.Errorf("after confirm: %+v", snap)
	}

	if w := h.do(http.MethodPost, "/api/confirm", ""); w.Code != http.StatusConflict {
		t.Errorf("confirm with nothing pending = %d", w.Code)
	}
}

func TestEventDeleteAndSearch(t *testing.T) {
	h := newHarness(t, nil)
	d := model.Date(2025, time.May, 14)
	for _, title := range []string{"qwert", "asdfg"} {
		if _, err := h.state.CreateEvent(model.EventForm{Title: title, CategoryID: "work"}, &d); err != nil {
			t.Fatal(err)
		}
	}

	h.do(http.MethodPost, "/api/select", `{"date":"2025-05-14"}`)
	snap := decodeSnapshot(t, h.do(http.MethodPost, "/api/search", `{"term":"asd"}`))
	if len(snap.Events) != 1 || snap.Events[0].Title != "asdfg" {
		t.Fatalf("search = %+v", snap.Events)
	}

	id := snap.Events[0].ID
	h.do(http.MethodPost, "/api/events/delete", `{"id":`+jsonInt(id)+`}`)
	h.do(http.MethodPost, "/api/confirm/cancel", "")
	if n := len(h.state.Events()); n != 2 {
		t.Fatalf("cancelled delete left %d events", n)
	}
	h.do(http.MethodPost, "/api/events/delete", `{"id":`+jsonInt(id)+`}`)
	h.do(http.MethodPost, "/api/confirm", "")
	if n := len(h.state.Events()); n != 1 {
		t.Fatalf("confirmed delete left %d events", n)
	}
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestNavigation(t *testing.T) {
	h := newHarness(t, nil)
	h.do(http.MethodPost, "/api/select", `{"date":"2025-05-14"}`)

	snap := decodeSnapshot(t, h.do(http.MethodPost, "/api/month/next", ""))
	if snap.Anchor != model.Date(2025, time.June, 1) || snap.SidebarVisible || snap.SelectedDate != nil {
		t.Errorf("next month: anchor=%s sidebar=%v selected=%v", snap.Anchor, snap.SidebarVisible, snap.SelectedDate)
	}
	snap = decodeSnapshot(t, h.do(http.MethodPost, "/api/month/today", ""))
	if snap.Anchor != model.Date(2025, time.May, 14) {
		t.Errorf("today anchor = %s", snap.Anchor)
	}
}

func TestExportAndImport(t *testing.T) {
	h := newHarness(t, nil)
	d := model.Date(2025, time.May, 14)
	if _, err := h.state.CreateEvent(model.EventForm{Title: "Standup", CategoryID: "work", StartTime: "09:00"}, &d); err != nil {
		t.Fatal(err)
	}

	w := h.do(http.MethodGet, "/api/export.ics", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Header().Get("Content-Type"), "text/calendar") {
		t.Fatalf("export = %d %s", w.Code, w.Header().Get("Content-Type"))
	}
	exported := w.Body.String()
	if !strings.Contains(exported, "SUMMARY:Standup") {
		t.Fatalf("export body:\n%s", exported)
	}

	w = h.do(http.MethodPost, "/api/import?category=urgent", exported)
	if w.Code != http.StatusOK {
		t.Fatalf("import = %d %s", w.Code, w.Body.String())
	}
	var resp importResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Added != 1 || resp.Skipped != 0 {
		t.Errorf("import = %+v", resp)
	}
	events := h.state.EventsOn(d)
	if len(events) != 2 || events[1].CategoryID != "urgent" || events[1].StartTime != "09:00" {
		t.Errorf("events after import = %+v", events)
	}

	if w := h.do(http.MethodPost, "/api/import", ""); w.Code != http.StatusBadRequest {
		t.Errorf("empty import = %d", w.Code)
	}
}

func TestBasicAuth(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatal(err)
	}

	for name, configured := range map[string]string{"plaintext": "s3cret", "argon2id": hash} {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, func(c *config.Config) {
				c.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: configured}
			})

			if w := h.do(http.MethodGet, "/health", ""); w.Code != http.StatusOK {
				t.Errorf("health should stay public, got %d", w.Code)
			}
			if w := h.do(http.MethodGet, "/api/state", ""); w.Code != http.StatusUnauthorized {
				t.Errorf("no credentials = %d", w.Code)
			}

			req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
			req.SetBasicAuth("admin", "wrong")
			w := httptest.NewRecorder()
			h.h.ServeHTTP(w, req)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("wrong password = %d", w.Code)
			}

			req = httptest.NewRequest(http.MethodGet, "/api/state", nil)
			req.SetBasicAuth("admin", "s3cret")
			w = httptest.NewRecorder()
			h.h.ServeHTTP(w, req)
			if w.Code != http.StatusOK {
				t.Errorf("valid credentials = %d", w.Code)
			}
		})
	}
}

func TestVerifyPassword(t *testing.T) {
	hash, err := HashPassword("pw")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$") {
		t.Errorf("unexpected hash format %q", hash)
	}
	if ok, err := VerifyPassword("pw", hash); err != nil || !ok {
		t.Errorf("VerifyPassword(correct) = %v, %v", ok, err)
	}
	if ok, _ := VerifyPassword("nope", hash); ok {
		t.Error("wrong password verified")
	}
	if _, err := VerifyPassword("pw", "$2a$10$bcrypt"); err == nil {
		t.Error("non-argon2 hash should be rejected")
	}
}
