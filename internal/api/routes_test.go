package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matchcut/matchcut-agent/internal/db"
	"github.com/matchcut/matchcut-agent/internal/detect"
	"github.com/matchcut/matchcut-agent/internal/ingest"
	"github.com/matchcut/matchcut-agent/internal/library"
	"github.com/matchcut/matchcut-agent/internal/notify"
	"github.com/matchcut/matchcut-agent/internal/playback"
	"github.com/matchcut/matchcut-agent/internal/process"
	"github.com/matchcut/matchcut-agent/internal/scene"
)

const testToken = "test-token"

func testConfig(t *testing.T) ServerConfig {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.New(dbPath, logger)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	repo := library.NewRepository(database.Conn())
	if err := repo.SetConfig(context.Background(), "auth_token", testToken); err != nil {
		t.Fatalf("failed to seed auth token: %v", err)
	}

	registry := library.NewService(repo, logger)
	store := scene.NewStore()
	events := notify.NewBuffer()

	return ServerConfig{
		Port:         0,
		Library:      registry,
		Repository:   repo,
		Ingest:       ingest.NewManager(registry, events, time.Millisecond, logger),
		Orchestrator: process.NewOrchestrator(registry, store, detect.NewSynthesizer(1), events, logger),
		Matches:      store,
		Events:       events,
		Notifier:     events,
		Playback:     playback.NewServer(logger),
		ExportDir:    t.TempDir(),
		Logger:       logger,
		StartTime:    time.Now(),
		DeviceID:     "device-test",
	}
}

func authedRequest(method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Authorization", "Bearer "+testToken)
	return req
}

func decodeJSONBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return body
}

func seedRaw(t *testing.T, cfg ServerConfig, names ...string) []*library.MediaItem {
	t.Helper()
	items := make([]*library.MediaItem, len(names))
	for i, name := range names {
		items[i] = &library.MediaItem{
			ID:      library.NewID(),
			Name:    name,
			Locator: "/media/" + name,
		}
	}
	if err := cfg.Library.AddRaw(context.Background(), items); err != nil {
		t.Fatalf("AddRaw() error = %v", err)
	}
	return items
}

func TestHealthHandler_NoAuthRequired(t *testing.T) {
	cfg := testConfig(t)
	router := NewRouter(cfg)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status code = %d, want %d", rr.Code, http.StatusOK)
	}
	body := decodeJSONBody(t, rr)
	if body["status"] != "ok" || body["device_id"] != "device-test" {
		t.Fatalf("unexpected health body: %v", body)
	}
}

func TestIngestHandler_SmallRawBatch(t *testing.T) {
	cfg := testConfig(t)
	router := NewRouter(cfg)

	payload := `{"role":"raw","files":[
		{"name":"a.mp4","size_bytes":1000,"locator":"/media/a.mp4"},
		{"name":"b.mp4","size_bytes":2000,"locator":"/media/b.mp4"}]}`

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodPost, "/library/ingest", strings.NewReader(payload)))

	if rr.Code != http.StatusAccepted {
		t.Fatalf("status code = %d, want %d: %s", rr.Code, http.StatusAccepted, rr.Body.String())
	}

	body := decodeJSONBody(t, rr)
	committed, ok := body["committed"].([]interface{})
	if !ok || len(committed) != 2 {
		t.Fatalf("committed = %v, want 2 entries", body["committed"])
	}

	pool, err := cfg.Library.RawPool(context.Background())
	if err != nil {
		t.Fatalf("RawPool() error = %v", err)
	}
	if len(pool) != 2 || pool[0].Name != "a.mp4" {
		t.Fatalf("pool = %+v", pool)
	}
}

func TestIngestHandler_RejectsBadRequests(t *testing.T) {
	cfg := testConfig(t)
	router := NewRouter(cfg)

	for name, payload := range map[string]string{
		"empty files":     `{"role":"raw","files":[]}`,
		"missing locator": `{"role":"raw","files":[{"name":"a.mp4","size_bytes":10}]}`,
		"bad role":        `{"role":"producer","files":[{"name":"a.mp4","size_bytes":10,"locator":"/a"}]}`,
		"not json":        `nope`,
	} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, authedRequest(http.MethodPost, "/library/ingest", strings.NewReader(payload)))
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: status code = %d, want %d", name, rr.Code, http.StatusBadRequest)
		}
	}
}

func TestSetCategoryHandler(t *testing.T) {
	cfg := testConfig(t)
	router := NewRouter(cfg)
	items := seedRaw(t, cfg, "a.mp4")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodPut, "/library/"+items[0].ID+"/category",
		strings.NewReader(`{"category":"ceremony"}`)))

	if rr.Code != http.StatusOK {
		t.Fatalf("status code = %d: %s", rr.Code, rr.Body.String())
	}
	if body := decodeJSONBody(t, rr); body["category"] != "ceremony" {
		t.Fatalf("category = %v, want ceremony", body["category"])
	}

	var sawTally bool
	for _, ev := range cfg.Events.Events() {
		if ev.Kind == notify.KindCategoryTally && strings.Contains(ev.Message, "ceremony=1") {
			sawTally = true
		}
	}
	if !sawTally {
		t.Error("no category tally event published")
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodPut, "/library/"+items[0].ID+"/category",
		strings.NewReader(`{"category":"explosion"}`)))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("invalid category: status code = %d, want 400", rr.Code)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodPut, "/library/nope/category",
		strings.NewReader(`{"category":"party"}`)))
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown id: status code = %d, want 404", rr.Code)
	}
}

func TestLibraryHandler(t *testing.T) {
	cfg := testConfig(t)
	router := NewRouter(cfg)
	seedRaw(t, cfg, "a.mp4", "b.mp4")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodGet, "/library", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status code = %d", rr.Code)
	}
	body := decodeJSONBody(t, rr)
	if _, ok := body["reference"]; ok {
		t.Error("reference should be omitted when unset")
	}
	pool, ok := body["raw_pool"].([]interface{})
	if !ok || len(pool) != 2 {
		t.Fatalf("raw_pool = %v, want 2 entries", body["raw_pool"])
	}
}

func TestCancelUploadHandler_UnknownID(t *testing.T) {
	cfg := testConfig(t)
	router := NewRouter(cfg)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodDelete, "/uploads/nope", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status code = %d, want 404", rr.Code)
	}
}

func TestStartProcessHandler_PreconditionFailure(t *testing.T) {
	cfg := testConfig(t)
	router := NewRouter(cfg)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodPost, "/process", nil))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status code = %d, want 400: %s", rr.Code, rr.Body.String())
	}
	if body := decodeJSONBody(t, rr); body["code"] != "PRECONDITION_FAILED" {
		t.Fatalf("code = %v, want PRECONDITION_FAILED", body["code"])
	}
}

func TestStatusHandler_ReflectsRegistry(t *testing.T) {
	cfg := testConfig(t)
	router := NewRouter(cfg)
	seedRaw(t, cfg, "a.mp4", "b.mp4", "c.mp4")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodGet, "/status", nil))

	body := decodeJSONBody(t, rr)
	if body["stage"] != "idle" {
		t.Errorf("stage = %v, want idle", body["stage"])
	}
	if body["has_reference"] != false {
		t.Errorf("has_reference = %v, want false", body["has_reference"])
	}
	if body["raw_count"] != float64(3) {
		t.Errorf("raw_count = %v, want 3", body["raw_count"])
	}
}

func TestListMatchesHandler(t *testing.T) {
	cfg := testConfig(t)
	router := NewRouter(cfg)
	items := seedRaw(t, cfg, "a.mp4")

	cfg.Matches.ReplaceAll([]scene.Match{{
		ID: "m1", ReferenceStart: 0, ReferenceEnd: 5, RawVideoID: items[0].ID,
		RawVideoStart: 0, RawVideoEnd: 5, SimilarityScore: 0.9, SceneType: library.CategoryParty,
	}})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodGet, "/matches", nil))

	var matches []map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &matches); err != nil {
		t.Fatalf("failed to decode match list: %v", err)
	}
	if len(matches) != 1 || matches[0]["id"] != "m1" {
		t.Fatalf("matches = %v", matches)
	}
}

func TestDownloadExportHandler(t *testing.T) {
	cfg := testConfig(t)
	router := NewRouter(cfg)
	items := seedRaw(t, cfg, "cam_a.mp4")

	cfg.Matches.ReplaceAll([]scene.Match{{
		ID: "m1", ReferenceStart: 0, ReferenceEnd: 5, RawVideoID: items[0].ID,
		RawVideoStart: 10, RawVideoEnd: 15, SimilarityScore: 0.9, SceneType: library.CategoryCeremony,
	}})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodGet, "/export/download?format=edl", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status code = %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/plain" {
		t.Errorf("Content-Type = %q, want text/plain", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "wedding_edit_") || !strings.Contains(cd, ".edl") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !strings.HasPrefix(rr.Body.String(), "TITLE: Wedding Edit\n") {
		t.Errorf("body = %q", rr.Body.String())
	}
}

func TestDownloadExportHandler_NoMatches(t *testing.T) {
	cfg := testConfig(t)
	router := NewRouter(cfg)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodGet, "/export/download?format=xml", nil))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status code = %d, want 422", rr.Code)
	}
}

func TestExportTimelineHandler_WritesFile(t *testing.T) {
	cfg := testConfig(t)
	router := NewRouter(cfg)
	items := seedRaw(t, cfg, "cam_a.mp4")

	cfg.Matches.ReplaceAll([]scene.Match{{
		ID: "m1", ReferenceStart: 0, ReferenceEnd: 5, RawVideoID: items[0].ID,
		RawVideoStart: 0, RawVideoEnd: 5, SimilarityScore: 0.9, SceneType: library.CategoryParty,
	}})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodPost, "/export",
		strings.NewReader(`{"format":"fcpxml"}`)))

	if rr.Code != http.StatusOK {
		t.Fatalf("status code = %d: %s", rr.Code, rr.Body.String())
	}
	body := decodeJSONBody(t, rr)
	outputPath, _ := body["output_path"].(string)
	if !strings.HasPrefix(filepath.Base(outputPath), "wedding_edit_") {
		t.Fatalf("output_path = %q", outputPath)
	}

	content, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("reading export file: %v", err)
	}
	if !strings.Contains(string(content), "<fcpxml version=\"1.9\">") {
		t.Errorf("export file content = %q", content)
	}

	var sawCompleted bool
	for _, ev := range cfg.Events.Events() {
		if ev.Kind == notify.KindExportCompleted {
			sawCompleted = true
		}
	}
	if !sawCompleted {
		t.Error("no export completion event published")
	}
}

func TestExportTimelineHandler_BadFormat(t *testing.T) {
	cfg := testConfig(t)
	router := NewRouter(cfg)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodPost, "/export",
		strings.NewReader(`{"format":"mov"}`)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status code = %d, want 400", rr.Code)
	}
}
