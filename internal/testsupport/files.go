package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// WriteMedia writes a small media file and, when sidecar is non-nil, its
// gallery-dl style JSON metadata sidecar next to it.
func WriteMedia(t testing.TB, path string, sidecar map[string]any) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte{0x89, 'P', 'N', 'G'}, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	if sidecar == nil {
		return
	}
	data, err := json.Marshal(sidecar)
	if err != nil {
		t.Fatalf("encode sidecar for %s: %v", path, err)
	}
	if err := os.WriteFile(path+".json", data, 0o644); err != nil {
		t.Fatalf("write sidecar for %s: %v", path, err)
	}
}
