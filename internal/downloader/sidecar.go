package downloader

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"szurutools/internal/tags"
)

var sidecarSuffixes = []string{".json", ".info.json"}

var sourceKeys = []string{"source", "webpage_url", "url", "original_url", "extractor_url"}

// SidecarTags returns the normalized, sorted, deduplicated tags found under
// the "tags" and "keywords" keys of the file's metadata sidecars. Missing or
// malformed sidecars contribute nothing.
func SidecarTags(mediaPath string) []string {
	var raw []string
	for _, doc := range readSidecars(mediaPath) {
		for _, key := range []string{"tags", "keywords"} {
			values, ok := doc[key].([]any)
			if !ok {
				continue
			}
			for _, value := range values {
				raw = append(raw, stringify(value))
			}
		}
	}
	return tags.NormalizeAll(raw)
}

// SidecarSource returns the first http(s) URL found in the file's metadata
// sidecars, or "".
func SidecarSource(mediaPath string) string {
	for _, doc := range readSidecars(mediaPath) {
		for _, key := range sourceKeys {
			if value, ok := doc[key].(string); ok && strings.HasPrefix(value, "http") {
				return value
			}
		}
	}
	return ""
}

func readSidecars(mediaPath string) []map[string]any {
	var docs []map[string]any
	for _, suffix := range sidecarSuffixes {
		data, err := os.ReadFile(mediaPath + suffix)
		if err != nil {
			continue
		}
		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			continue
		}
		docs = append(docs, doc)
	}
	return docs
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
