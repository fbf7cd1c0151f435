package implications

import "context"

// Enrich returns uploadTags followed by every implication of those tags not
// already present, in discovery order. Implications are not followed
// transitively. A provider failure for one tag skips that tag.
func Enrich(ctx context.Context, uploadTags []string, provider ImplicationProvider) []string {
	out := append([]string(nil), uploadTags...)
	if provider == nil {
		return out
	}
	seen := make(map[string]struct{}, len(uploadTags))
	for _, tag := range uploadTags {
		seen[tag] = struct{}{}
	}
	for _, tag := range uploadTags {
		if ctx.Err() != nil {
			break
		}
		implied, err := provider.Implications(ctx, tag)
		if err != nil {
			continue
		}
		for _, name := range normalizeOrdered(implied) {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}
