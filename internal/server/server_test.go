package server

import (
	"bytes"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"timelinepanel/internal/models"
	"timelinepanel/internal/panel"
	"timelinepanel/internal/storage"
)

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func testFrames() []models.Frame {
	return []models.Frame{{
		RefID: "A",
		Fields: []models.Field{
			{Name: "time", Values: []any{"2024-03-15T10:00:00Z", "2024-03-15T11:00:00Z"}},
			{Name: "service", Values: []any{"api", "worker"}},
		},
	}}
}

func newTestServer(t *testing.T, opts Options) (*Server, *storage.PanelStore) {
	t.Helper()
	store, err := storage.NewPanelStore("")
	if err != nil {
		t.Fatalf("NewPanelStore: %v", err)
	}
	opts.Now = func() time.Time { return testNow }
	opts.Random = rand.New(rand.NewSource(1))
	return New(":0", store, opts), store
}

func seedPanel(t *testing.T, store *storage.PanelStore) {
	t.Helper()
	err := store.Put(models.PanelSnapshot{
		ID:      "deploys",
		Title:   "Deploys",
		Frames:  testFrames(),
		Metrics: []models.MetricConfig{{ID: "m1", Name: "Releases", RefID: "A", DateField: "time"}},
		Options: models.DefaultDisplayOptions(),
		Range:   "6h",
		Width:   800,
		Height:  200,
	})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func TestIndexAndSecurityHeaders(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	rec := do(t, srv.Handler(), http.MethodGet, "/", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<html") {
		t.Fatalf("index: %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" || rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatalf("security headers missing: %v", rec.Header())
	}
	if rec := do(t, srv.Handler(), http.MethodGet, "/static/app.js", ""); rec.Code != http.StatusOK {
		t.Fatalf("static asset: %d", rec.Code)
	}
	if rec := do(t, srv.Handler(), http.MethodGet, "/nope", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown path: %d", rec.Code)
	}
}

func TestRenderStateless(t *testing.T) {
	srv, store := newTestServer(t, Options{})
	body, _ := json.Marshal(models.PanelSnapshot{
		Frames:  testFrames(),
		Metrics: []models.MetricConfig{{Name: "Releases", RefID: "A", DateField: "time"}},
		Window:  &models.TimeWindow{From: testNow.Add(-3 * time.Hour).UnixMilli(), To: testNow.UnixMilli()},
		Width:   600,
		Height:  150,
	})

	rec := do(t, srv.Handler(), http.MethodPost, "/api/render", string(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("render: %d %s", rec.Code, rec.Body.String())
	}
	model := decode[models.Model](t, rec)
	if model.Events != 2 || len(model.Tracks) != 1 || model.Tracks[0].MetricID == "" {
		t.Fatalf("model %+v", model)
	}
	if len(store.List()) != 0 {
		t.Fatal("render must not store anything")
	}

	rec = do(t, srv.Handler(), http.MethodPost, "/api/render?format=svg", string(body))
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/svg+xml" {
		t.Fatalf("svg: %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	rec = do(t, srv.Handler(), http.MethodPost, "/api/render?format=png", string(body))
	if rec.Code != http.StatusOK || !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Fatalf("png: %d", rec.Code)
	}
	if rec := do(t, srv.Handler(), http.MethodPost, "/api/render?format=gif", string(body)); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown format: %d", rec.Code)
	}
	if rec := do(t, srv.Handler(), http.MethodPost, "/api/render", "{"); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad body: %d", rec.Code)
	}
}

func TestRejectsOversizedViewport(t *testing.T) {
	srv, store := newTestServer(t, Options{})
	h := srv.Handler()
	for _, body := range []string{`{"width":1e12,"height":200}`, `{"width":800,"height":20000}`, `{"width":-1}`} {
		if rec := do(t, h, http.MethodPost, "/api/render", body); rec.Code != http.StatusBadRequest {
			t.Fatalf("render %s: got %d", body, rec.Code)
		}
		if rec := do(t, h, http.MethodPut, "/api/panels/big", body); rec.Code != http.StatusBadRequest {
			t.Fatalf("put %s: got %d", body, rec.Code)
		}
	}
	if len(store.List()) != 0 {
		t.Fatal("rejected panels must not be stored")
	}
	if rec := do(t, h, http.MethodPost, "/api/render", `{"width":16384,"height":16384}`); rec.Code != http.StatusOK {
		t.Fatalf("largest viewport should render, got %d", rec.Code)
	}
}

func TestPanelLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	h := srv.Handler()

	if rec := do(t, h, http.MethodGet, "/api/panels/missing", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("missing panel: %d", rec.Code)
	}

	rec := do(t, h, http.MethodPut, "/api/panels/ops", `{"title":"Ops","range":"6h","width":800,"height":200,"options":{"showLegend":true},
		"metrics":[{"name":"Releases","refId":"A","dateField":"time"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("put: %d %s", rec.Code, rec.Body.String())
	}
	snap := decode[models.PanelSnapshot](t, rec)
	if snap.ID != "ops" || snap.Metrics[0].ID == "" || snap.Metrics[0].PointColor == "" {
		t.Fatalf("snapshot should be normalised: %+v", snap)
	}
	if !snap.Options.ShowLegend || !snap.Options.ShowTimeLabels || snap.Options.MaxLabelWidth != 90 {
		t.Fatalf("options should decode over defaults: %+v", snap.Options)
	}

	list := decode[[]panelSummary](t, do(t, h, http.MethodGet, "/api/panels", ""))
	if len(list) != 1 || list[0].ID != "ops" || list[0].Metrics != 1 {
		t.Fatalf("list %+v", list)
	}

	model := decode[models.Model](t, do(t, h, http.MethodGet, "/api/panels/ops/model", ""))
	if model.Empty != panel.NoDataMessage {
		t.Fatalf("panel without frames should be empty, got %+v", model)
	}

	if rec := do(t, h, http.MethodDelete, "/api/panels/ops", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rec.Code)
	}
	if rec := do(t, h, http.MethodDelete, "/api/panels/ops", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("second delete: %d", rec.Code)
	}
}

func TestPanelViews(t *testing.T) {
	srv, store := newTestServer(t, Options{})
	seedPanel(t, store)
	h := srv.Handler()

	model := decode[models.Model](t, do(t, h, http.MethodGet, "/api/panels/deploys/model", ""))
	if model.Events != 2 || len(model.Axis) == 0 {
		t.Fatalf("model %+v", model)
	}

	rec := do(t, h, http.MethodGet, "/api/panels/deploys/svg", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Releases") {
		t.Fatalf("svg: %d", rec.Code)
	}
	rec = do(t, h, http.MethodGet, "/api/panels/deploys/png", "")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("png: %d", rec.Code)
	}

	stats := decode[map[string]json.RawMessage](t, do(t, h, http.MethodGet, "/api/panels/deploys/stats", ""))
	if string(stats["events"]) != "2" {
		t.Fatalf("stats %s", stats["events"])
	}

	sources := decode[sourcesResponse](t, do(t, h, http.MethodGet, "/api/panels/deploys/sources", ""))
	if len(sources.RefIDs) != 1 || len(sources.Fields["A"]) != 2 {
		t.Fatalf("sources %+v", sources)
	}
}

func TestMetricEditing(t *testing.T) {
	srv, store := newTestServer(t, Options{})
	seedPanel(t, store)
	h := srv.Handler()

	rec := do(t, h, http.MethodPost, "/api/panels/deploys/metrics", `{"name":"Services","index":0}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add: %d %s", rec.Code, rec.Body.String())
	}
	added := decode[struct {
		Metric  models.MetricConfig   `json:"metric"`
		Metrics []models.MetricConfig `json:"metrics"`
	}](t, rec)
	if added.Metric.Name != "Services" || added.Metric.RefID != "A" || added.Metric.DateField != "time" {
		t.Fatalf("added %+v", added.Metric)
	}
	if len(added.Metrics) != 2 || added.Metrics[0].ID != added.Metric.ID {
		t.Fatalf("new metric should move to the front: %+v", added.Metrics)
	}

	if rec := do(t, h, http.MethodPost, "/api/panels/deploys/metrics", ""); rec.Code != http.StatusCreated {
		t.Fatalf("add without body: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodPatch, "/api/panels/deploys/metrics/m1", `{"pointColor":"#123456"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch: %d %s", rec.Code, rec.Body.String())
	}
	snap, _ := store.Get("deploys")
	var found bool
	for _, m := range snap.Metrics {
		if m.ID == "m1" {
			found = m.PointColor == "#123456"
		}
	}
	if !found {
		t.Fatalf("patch not stored: %+v", snap.Metrics)
	}

	if rec := do(t, h, http.MethodPatch, "/api/panels/deploys/metrics/nope", `{}`); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown metric: %d", rec.Code)
	}
	if rec := do(t, h, http.MethodDelete, "/api/panels/deploys/metrics/m1", ""); rec.Code != http.StatusOK {
		t.Fatalf("remove: %d", rec.Code)
	}
	if snap, _ := store.Get("deploys"); len(snap.Metrics) != 2 {
		t.Fatalf("remove not stored: %+v", snap.Metrics)
	}
}

func TestAddMetricWithoutSources(t *testing.T) {
	srv, store := newTestServer(t, Options{})
	_ = store.Put(models.PanelSnapshot{ID: "empty"})
	rec := do(t, srv.Handler(), http.MethodPost, "/api/panels/empty/metrics", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, Options{RequestsPerSecond: 0.001, Burst: 2})
	h := srv.Handler()
	for i := 0; i < 2; i++ {
		if rec := do(t, h, http.MethodGet, "/api/panels", ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d: %d", i, rec.Code)
		}
	}
	rec := do(t, h, http.MethodGet, "/api/panels", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "rate limit") {
		t.Fatalf("body %q", rec.Body.String())
	}
}

func TestLiveUpdatesAndTooltip(t *testing.T) {
	srv, store := newTestServer(t, Options{})
	seedPanel(t, store)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/panels/deploys/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	read := func() liveMessage {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg liveMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		return msg
	}

	first := read()
	if first.Type != "model" || first.Model == nil || first.Model.Events != 2 {
		t.Fatalf("initial message %+v", first)
	}
	eventID := first.Model.Tracks[0].Markers[0].Event.ID

	if err := conn.WriteJSON(viewerMessage{Type: "hover", EventID: eventID, X: 10, Y: 20}); err != nil {
		t.Fatalf("write: %v", err)
	}
	msg := read()
	if msg.Type != "tooltip" || msg.Tooltip == nil || !msg.Tooltip.Visible || msg.Tooltip.EventID != eventID {
		t.Fatalf("tooltip message %+v", msg)
	}
	_ = conn.WriteJSON(viewerMessage{Type: "leaveTooltip"})
	if msg := read(); msg.Type != "tooltip" || msg.Tooltip.Visible {
		t.Fatalf("hide message %+v", msg)
	}

	if err := store.UpdateFrames("deploys", nil); err != nil {
		t.Fatalf("UpdateFrames: %v", err)
	}
	if msg := read(); msg.Type != "model" || msg.Model.Events != 0 {
		t.Fatalf("update message %+v", msg)
	}

	_ = store.Delete("deploys")
	if msg := read(); msg.Type != "deleted" {
		t.Fatalf("delete message %+v", msg)
	}
}

func TestLiveUnknownPanel(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	rec := do(t, srv.Handler(), http.MethodGet, "/api/panels/none/ws", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
