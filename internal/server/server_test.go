package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"szurutools/internal/events"
	"szurutools/internal/history"
	"szurutools/internal/implications"
	"szurutools/internal/importer"
	"szurutools/internal/server"
	"szurutools/internal/services"
	"szurutools/internal/szuru"
	"szurutools/internal/testsupport"
)

type fakeBoard struct {
	mu      sync.Mutex
	posts   []szuru.Post
	implies map[string][]string
	unused  []szuru.Tag
	updates map[int][]string
	deleted []string
}

func newFakeBoard() *fakeBoard {
	return &fakeBoard{
		posts: []szuru.Post{
			{ID: 1, Version: 3, Tags: []szuru.TagRef{{Names: []string{"cat"}}}},
			{ID: 2, Version: 1, Tags: []szuru.TagRef{{Names: []string{"cat"}}, {Names: []string{"animal"}}}},
		},
		implies: map[string][]string{"cat": {"animal"}},
		unused:  []szuru.Tag{{Names: []string{"stale"}, Version: 2}},
		updates: map[int][]string{},
	}
}

func (f *fakeBoard) Implications(_ context.Context, tag string) ([]string, error) {
	return f.implies[tag], nil
}

func (f *fakeBoard) SearchPosts(_ context.Context, query string, _, offset int) (*szuru.PostPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	page := &szuru.PostPage{Query: query, Offset: offset}
	if offset > 0 {
		return page, nil
	}
	tag := strings.TrimPrefix(query, "tag:")
	for _, post := range f.posts {
		for _, name := range post.TagNames() {
			if name == tag {
				page.Results = append(page.Results, post)
				break
			}
		}
	}
	page.Total = len(page.Results)
	return page, nil
}

func (f *fakeBoard) UpdatePostTags(_ context.Context, id int, tags []string, _ int) (*szuru.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates[id] = append([]string(nil), tags...)
	return &szuru.Post{ID: id}, nil
}

func (f *fakeBoard) TagsWithImplications(context.Context) ([]string, error) {
	return []string{"cat"}, nil
}

func (f *fakeBoard) UnusedTags(context.Context) ([]szuru.Tag, error) {
	return f.unused, nil
}

func (f *fakeBoard) DeleteTag(_ context.Context, name string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, name)
	return nil
}

type fakeImporter struct {
	result *importer.Result
	err    error
	got    importer.Request
}

func (f *fakeImporter) Import(_ context.Context, req importer.Request, sink events.Sink) (*importer.Result, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	events.NewEmitter(sink).Complete(f.result, "IMPORT COMPLETE")
	return f.result, nil
}

type harness struct {
	srv      *server.Server
	board    *fakeBoard
	importer *fakeImporter
	history  *history.Store
}

func newHarness(t *testing.T, token string) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithAPIToken(token))
	store := testsupport.MustOpenHistory(t, cfg)
	h := &harness{
		board:    newFakeBoard(),
		importer: &fakeImporter{result: &importer.Result{Downloaded: 1, Uploaded: 1}},
		history:  store,
	}
	srv, err := server.New(server.Options{
		APIToken: cfg.Server.APIToken,
		Board:    h.board,
		Importer: h.importer,
		History:  store,
	})
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	h.srv = srv
	return h
}

func (h *harness) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := server.New(server.Options{Importer: &fakeImporter{}}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error without board, got %v", err)
	}
	if _, err := server.New(server.Options{Board: newFakeBoard()}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error without importer, got %v", err)
	}
}

func TestHealthEndpoints(t *testing.T) {
	h := newHarness(t, "secret")

	rec := h.do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if body["status"] != "healthy" || body["service"] != server.ServiceName {
		t.Fatalf("unexpected health body: %v", body)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}

	rec = h.do(t, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("healthz = %d %s", rec.Code, rec.Body.String())
	}
}

func TestAPIRequiresBearerToken(t *testing.T) {
	h := newHarness(t, "secret")

	for _, token := range []string{"", "wrong"} {
		rec := h.do(t, http.MethodGet, "/api/status", token, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("token %q: status = %d, want 401", token, rec.Code)
		}
	}
	rec := h.do(t, http.MethodGet, "/api/status", "secret", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var status server.StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Service != server.ServiceName || status.HistoryPath == "" {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestAPIOpenWithoutToken(t *testing.T) {
	h := newHarness(t, "")
	if rec := h.do(t, http.MethodGet, "/api/status", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestApplyImplications(t *testing.T) {
	h := newHarness(t, "")

	rec := h.do(t, http.MethodPost, "/api/tag-tools/apply-implications", "", implications.Request{Tags: []string{"cat"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var result implications.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.ProcessedTags != 1 || result.PostsFound != 2 || result.PostsUpdated != 1 || result.ImplicationsAdded != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if diff := cmp.Diff(map[int][]string{1: {"cat", "animal"}}, h.board.updates); diff != "" {
		t.Fatalf("updates mismatch (-want +got):\n%s", diff)
	}

	runs, err := h.history.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 || runs[0].Kind != history.KindImplications || runs[0].RequestID == "" {
		t.Fatalf("unexpected recorded runs: %+v", runs)
	}
}

func TestApplyImplicationsRejectsBadBody(t *testing.T) {
	h := newHarness(t, "")
	req := httptest.NewRequest(http.MethodPost, "/api/tag-tools/apply-implications", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestApplyImplicationsStream(t *testing.T) {
	h := newHarness(t, "")

	rec := h.do(t, http.MethodPost, "/api/tag-tools/apply-implications-stream", "", implications.Request{Tags: []string{"cat"}, DryRun: true})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	var got []events.Event
	if err := events.ReadStream(rec.Body, func(evt events.Event) error {
		got = append(got, evt)
		return nil
	}); err != nil {
		t.Fatalf("read stream: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("expected events")
	}
	if got[0].Type != events.TypeStatus {
		t.Fatalf("first event = %+v", got[0])
	}
	last := got[len(got)-1]
	if last.Type != events.TypeComplete || last.Message != "DRY RUN COMPLETE" {
		t.Fatalf("last event = %+v", last)
	}
	if len(h.board.updates) != 0 {
		t.Fatalf("dry run updated posts: %v", h.board.updates)
	}
}

func TestDeleteUnused(t *testing.T) {
	h := newHarness(t, "")

	rec := h.do(t, http.MethodPost, "/api/tag-tools/delete-unused", "", implications.SweepRequest{})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var result implications.SweepResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.TagsFound != 1 || result.TagsDeleted != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if diff := cmp.Diff([]string{"stale"}, h.board.deleted); diff != "" {
		t.Fatalf("deleted mismatch (-want +got):\n%s", diff)
	}
}

func TestDeleteUnusedStreamDryRun(t *testing.T) {
	h := newHarness(t, "")

	rec := h.do(t, http.MethodPost, "/api/tag-tools/delete-unused-stream", "", implications.SweepRequest{DryRun: true})
	var types []events.Type
	if err := events.ReadStream(rec.Body, func(evt events.Event) error {
		types = append(types, evt.Type)
		return nil
	}); err != nil {
		t.Fatalf("read stream: %v", err)
	}
	if len(types) == 0 || types[len(types)-1] != events.TypeComplete {
		t.Fatalf("unexpected event types: %v", types)
	}
	if len(h.board.deleted) != 0 {
		t.Fatalf("dry run deleted tags: %v", h.board.deleted)
	}
}

func TestImport(t *testing.T) {
	h := newHarness(t, "")

	rec := h.do(t, http.MethodPost, "/api/import", "", importer.Request{URL: "https://example.com/gallery", Safety: "sketchy"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if h.importer.got.URL != "https://example.com/gallery" || h.importer.got.Safety != "sketchy" {
		t.Fatalf("importer got %+v", h.importer.got)
	}
}

func TestImportErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", services.Wrap(services.ErrValidation, "importer", "import", "url is required", nil), http.StatusBadRequest},
		{"download", services.Wrap(services.ErrExternalTool, "downloader", "download", "gallery-dl failed", nil), http.StatusBadRequest},
		{"configuration", services.Wrap(services.ErrConfiguration, "downloader", "init", "binary missing", nil), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, "")
			h.importer.err = tt.err
			rec := h.do(t, http.MethodPost, "/api/import", "", importer.Request{URL: "https://example.com"})
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if !strings.Contains(rec.Body.String(), `"error"`) {
				t.Fatalf("expected error body, got %s", rec.Body.String())
			}
		})
	}
}

func TestRunsListing(t *testing.T) {
	h := newHarness(t, "")
	h.do(t, http.MethodPost, "/api/tag-tools/delete-unused", "", implications.SweepRequest{DryRun: true})
	h.do(t, http.MethodPost, "/api/tag-tools/apply-implications", "", implications.Request{Tags: []string{"cat"}, DryRun: true})

	rec := h.do(t, http.MethodGet, "/api/runs?limit=1", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp server.RunsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Runs) != 1 || resp.Runs[0].Kind != history.KindImplications || !resp.Runs[0].DryRun {
		t.Fatalf("unexpected runs: %+v", resp.Runs)
	}

	if rec := h.do(t, http.MethodGet, "/api/runs?limit=zero", "", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid limit status = %d, want 400", rec.Code)
	}
}

func TestRunsWithoutHistory(t *testing.T) {
	srv, err := server.New(server.Options{Board: newFakeBoard(), Importer: &fakeImporter{}})
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"runs":[]`) {
		t.Fatalf("runs = %d %s", rec.Code, rec.Body.String())
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	srv, err := server.New(server.Options{Board: newFakeBoard(), Importer: &fakeImporter{}})
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, listener) }()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + listener.Addr().String() + "/healthz")
	if err != nil {
		cancel()
		t.Fatalf("get healthz: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestRunRejectsSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	held := flock.New(cfg.ServerLockPath())
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("hold lock: ok=%v err=%v", ok, err)
	}
	defer func() { _ = held.Unlock() }()

	srv, err := server.New(server.Options{
		Bind:     "127.0.0.1:0",
		LockPath: cfg.ServerLockPath(),
		Board:    newFakeBoard(),
		Importer: &fakeImporter{},
	})
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	if err := srv.Run(context.Background()); !errors.Is(err, server.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}
