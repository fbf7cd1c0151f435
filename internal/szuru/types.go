package szuru

import "strings"

// TagRef is a tag as embedded in posts and tag relations.
type TagRef struct {
	Names    []string `json:"names"`
	Category string   `json:"category,omitempty"`
	Usages   int      `json:"usages,omitempty"`
}

// PrimaryName returns the first name, or "" when the reference has none.
func (t TagRef) PrimaryName() string {
	return primary(t.Names)
}

// Tag is a full tag resource.
type Tag struct {
	Names        []string `json:"names"`
	Category     string   `json:"category"`
	Version      int      `json:"version"`
	Usages       int      `json:"usages"`
	Implications []TagRef `json:"implications"`
	Suggestions  []TagRef `json:"suggestions"`
}

// PrimaryName returns the first name, or "" when the tag has none.
func (t Tag) PrimaryName() string {
	return primary(t.Names)
}

// Post is a post resource. Version must be echoed back on updates.
type Post struct {
	ID      int      `json:"id"`
	Version int      `json:"version"`
	Safety  string   `json:"safety,omitempty"`
	Source  string   `json:"source,omitempty"`
	Tags    []TagRef `json:"tags"`
}

// TagNames returns the primary name of every tag on the post, in post order.
// Entries without names contribute nothing.
func (p Post) TagNames() []string {
	names := make([]string, 0, len(p.Tags))
	for _, ref := range p.Tags {
		if name := ref.PrimaryName(); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// PostPage is one page of a post search.
type PostPage struct {
	Query   string `json:"query"`
	Offset  int    `json:"offset"`
	Limit   int    `json:"limit"`
	Total   int    `json:"total"`
	Results []Post `json:"results"`
}

type tagPage struct {
	Results []Tag `json:"results"`
}

// EnsureResult reports whether an ensured resource already existed.
type EnsureResult string

const (
	EnsureExists  EnsureResult = "exists"
	EnsureCreated EnsureResult = "created"
)

// Safety ratings accepted by the board.
const (
	SafetySafe    = "safe"
	SafetySketchy = "sketchy"
	SafetyUnsafe  = "unsafe"
)

// ValidSafety reports whether value is a safety rating the board accepts.
func ValidSafety(value string) bool {
	switch value {
	case SafetySafe, SafetySketchy, SafetyUnsafe:
		return true
	default:
		return false
	}
}

var queryEscaper = strings.NewReplacer(`\`, `\\`, `:`, `\:`, `,`, `\,`, `*`, `\*`)

// TagQuery builds the search query matching posts that carry tag, escaping
// the characters the query language treats specially.
func TagQuery(tag string) string {
	return "tag:" + queryEscaper.Replace(tag)
}

func primary(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return names[0]
}
