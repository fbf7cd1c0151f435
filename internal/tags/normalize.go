package tags

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultCategory holds tags that carry no recognized namespace.
const DefaultCategory = "default"

var recognizedNamespaces = map[string]struct{}{
	"page":      {},
	"creator":   {},
	"person":    {},
	"series":    {},
	"character": {},
	"title":     {},
	"meme":      {},
	"meta":      {},
}

// RecognizedNamespaces returns the namespace prefixes that map to categories,
// sorted alphabetically.
func RecognizedNamespaces() []string {
	out := make([]string, 0, len(recognizedNamespaces))
	for ns := range recognizedNamespaces {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// Normalize converts raw into a tag identifier. It reports false when raw is
// empty or whitespace-only.
func Normalize(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	// cases.Caser is stateful; build one per call.
	lowered := cases.Lower(language.Und).String(trimmed)
	fields := strings.Fields(lowered)
	if len(fields) == 0 {
		return "", false
	}
	return strings.Join(fields, "_"), true
}

// NormalizeAll normalizes every entry, drops the ones that do not produce a
// tag and returns the sorted, deduplicated remainder.
func NormalizeAll(raw []string) []string {
	set := make(map[string]struct{}, len(raw))
	for _, value := range raw {
		if tag, ok := Normalize(value); ok {
			set[tag] = struct{}{}
		}
	}
	return sortedKeys(set)
}

// SplitNamespace separates a recognized namespace prefix from tag. The colon
// must sit after at least one character and the prefix must be recognized;
// otherwise tag is returned unchanged with ok false, colon included.
func SplitNamespace(tag string) (prefix, rest string, ok bool) {
	idx := strings.IndexByte(tag, ':')
	if idx <= 0 {
		return "", tag, false
	}
	candidate := tag[:idx]
	if _, known := recognizedNamespaces[candidate]; !known {
		return "", tag, false
	}
	return candidate, tag[idx+1:], true
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for key := range set {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
