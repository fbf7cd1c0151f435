package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"szurutools/internal/config"
	"szurutools/internal/history"
	"szurutools/internal/implications"
	"szurutools/internal/testsupport"
)

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, cfg *config.Config) string {
	t.Helper()
	path := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	content := fmt.Sprintf(
		"[szuru]\nbase_url = %q\nuser = %q\npassword = %q\n\n[import]\ndownload_dir = %q\n\n[paths]\nstate_dir = %q\nlog_dir = \"\"\n",
		cfg.Szuru.BaseURL,
		cfg.Szuru.User,
		cfg.Szuru.Password,
		cfg.Import.DownloadDir,
		cfg.Paths.StateDir,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

// boardStub serves the tag listing and delete endpoints used by prune-unused.
type boardStub struct {
	mu      sync.Mutex
	deleted []string
}

func (b *boardStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/tags/":
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("offset") != "0" {
			_, _ = w.Write([]byte(`{"results":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"results":[{"names":["stale"],"usages":0,"version":4},{"names":["busy"],"usages":3,"version":1}]}`))
	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/api/tag/"):
		b.mu.Lock()
		b.deleted = append(b.deleted, strings.TrimPrefix(r.URL.Path, "/api/tag/"))
		b.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	default:
		http.NotFound(w, r)
	}
}

func TestTagsClassifyRunsWithoutConfig(t *testing.T) {
	out, _, err := runCLI(t, "", "--json", "tags", "classify", "Creator:Jane Doe", "Blue  Sky", "  ")
	if err != nil {
		t.Fatalf("tags classify: %v", err)
	}
	var got classifyOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	want := classifyOutput{
		UploadTags: []string{"blue_sky", "jane_doe"},
		Categories: map[string][]string{"creator": {"jane_doe"}, "default": {}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("classification mismatch (-want +got):\n%s", diff)
	}
}

func TestTagsClassifyTable(t *testing.T) {
	out, _, err := runCLI(t, "", "tags", "classify", "series:Fate", "saber")
	if err != nil {
		t.Fatalf("tags classify: %v", err)
	}
	requireContains(t, out, "Upload tags: fate saber")
	requireContains(t, out, "series")
}

func TestConfigInitAndShow(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	target := filepath.Join(t.TempDir(), "config.toml")

	out, _, err := runCLI(t, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, _, err := runCLI(t, "", "config", "init", "--path", target); err == nil {
		t.Fatal("expected second init without --overwrite to fail")
	}

	cfg := testsupport.NewConfig(t)
	cfg.Szuru.Password = "hunter2"
	path := writeTestConfig(t, cfg)
	out, _, err = runCLI(t, path, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "base_url")
	requireContains(t, out, redacted)
	if strings.Contains(out, "hunter2") {
		t.Fatalf("config show leaked the password: %s", out)
	}
}

func TestImplicationsApplyRequiresTags(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := writeTestConfig(t, cfg)
	_, _, err := runCLI(t, path, "implications", "apply")
	if err == nil {
		t.Fatal("expected error without tags or --full-scan")
	}
	requireContains(t, err.Error(), "--full-scan")
}

func TestBoardCommandsReportMissingCredentials(t *testing.T) {
	t.Setenv("SZURU_USER", "")
	t.Setenv("SZURU_PASSWORD", "")
	t.Setenv("SZURU_TOKEN", "")
	cfg := testsupport.NewConfig(t)
	cfg.Szuru.User = ""
	path := writeTestConfig(t, cfg)
	_, _, err := runCLI(t, path, "tags", "prune-unused")
	if err == nil {
		t.Fatal("expected missing user error")
	}
	requireContains(t, err.Error(), "szuru.user")
}

func TestPruneUnusedAndHistory(t *testing.T) {
	stub := &boardStub{}
	board := httptest.NewServer(stub)
	defer board.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithBoard(board.URL))
	path := writeTestConfig(t, cfg)

	out, _, err := runCLI(t, path, "tags", "prune-unused", "--dry-run")
	if err != nil {
		t.Fatalf("prune-unused --dry-run: %v", err)
	}
	requireContains(t, out, "Would delete tag stale")
	requireContains(t, out, "DRY RUN COMPLETE")
	if len(stub.deleted) != 0 {
		t.Fatalf("dry run deleted tags: %v", stub.deleted)
	}

	out, _, err = runCLI(t, path, "--json", "tags", "prune-unused")
	if err != nil {
		t.Fatalf("prune-unused: %v", err)
	}
	var result implications.SweepResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode result %q: %v", out, err)
	}
	if result.TagsFound != 1 || result.TagsDeleted != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if diff := cmp.Diff([]string{"stale"}, stub.deleted); diff != "" {
		t.Fatalf("deleted mismatch (-want +got):\n%s", diff)
	}

	out, _, err = runCLI(t, path, "--json", "history", "--limit", "5")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var runs []history.Run
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("decode runs %q: %v", out, err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].Kind != history.KindSweep || runs[0].DryRun || !runs[1].DryRun || runs[0].RequestID == "" {
		t.Fatalf("unexpected runs: %+v", runs)
	}

	out, _, err = runCLI(t, path, "history")
	if err != nil {
		t.Fatalf("history table: %v", err)
	}
	requireContains(t, out, "sweep")
}

func TestHistoryEmpty(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := writeTestConfig(t, cfg)
	out, _, err := runCLI(t, path, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No runs recorded")
}
