package tags

import "sort"

// Classification describes the categories and tags an upload needs.
type Classification struct {
	// Categories maps a category name to the tag names it must contain. A
	// category may be present with no members.
	Categories map[string]map[string]struct{}
	// UploadTags is the sorted, deduplicated list attached to the post.
	UploadTags []string
}

// ClassifyForUpload normalizes raw tags and assigns each to a category.
// Namespaced tags land in their namespace category under the stripped name;
// everything else is uploaded as-is and forces the default category to exist.
func ClassifyForUpload(raw []string) Classification {
	categories := make(map[string]map[string]struct{})
	upload := make(map[string]struct{}, len(raw))

	for _, value := range raw {
		tag, ok := Normalize(value)
		if !ok {
			continue
		}
		prefix, rest, namespaced := SplitNamespace(tag)
		if namespaced {
			members := ensureCategory(categories, prefix)
			members[rest] = struct{}{}
			upload[rest] = struct{}{}
			continue
		}
		ensureCategory(categories, DefaultCategory)
		upload[tag] = struct{}{}
	}

	return Classification{
		Categories: categories,
		UploadTags: sortedKeys(upload),
	}
}

// CategoryNames returns the category names in alphabetical order.
func (c Classification) CategoryNames() []string {
	out := make([]string, 0, len(c.Categories))
	for name := range c.Categories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Members returns the tag names assigned to category in alphabetical order.
func (c Classification) Members(category string) []string {
	return sortedKeys(c.Categories[category])
}

// Has reports whether category holds name.
func (c Classification) Has(category, name string) bool {
	members, ok := c.Categories[category]
	if !ok {
		return false
	}
	_, ok = members[name]
	return ok
}

func ensureCategory(categories map[string]map[string]struct{}, name string) map[string]struct{} {
	members, ok := categories[name]
	if !ok {
		members = make(map[string]struct{})
		categories[name] = members
	}
	return members
}
