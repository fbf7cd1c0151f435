package implications

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"szurutools/internal/events"
	"szurutools/internal/logging"
	"szurutools/internal/paging"
	"szurutools/internal/szuru"
	"szurutools/internal/tags"
)

// Request selects the tags to propagate.
type Request struct {
	Tags     []string `json:"tags"`
	FullScan bool     `json:"full_scan"`
	DryRun   bool     `json:"dry_run"`
}

// Result aggregates a propagation run. Dry runs count the posts and tags they
// would have changed.
type Result struct {
	ProcessedTags     int      `json:"processed_tags"`
	PostsFound        int      `json:"posts_found"`
	PostsUpdated      int      `json:"posts_updated"`
	ImplicationsAdded int      `json:"implications_added"`
	Details           []string `json:"details"`
}

// Propagator applies implied tags to posts.
type Propagator struct {
	implications ImplicationProvider
	posts        PostStore
	catalog      TagCatalog
	logger       *slog.Logger
}

// NewPropagator wires a propagator. catalog is only consulted for full scans
// and may be nil otherwise.
func NewPropagator(provider ImplicationProvider, posts PostStore, catalog TagCatalog, logger *slog.Logger) *Propagator {
	return &Propagator{
		implications: provider,
		posts:        posts,
		catalog:      catalog,
		logger:       logging.NewComponentLogger(logger, "implications"),
	}
}

// Run propagates implications for the requested tags, reporting to sink.
func (p *Propagator) Run(ctx context.Context, req Request, sink events.Sink) *Result {
	emit := events.NewEmitter(sink)
	logger := logging.WithContext(ctx, p.logger)
	started := time.Now()
	result := &Result{}

	emit.Status("Starting tag implication process...")
	worklist := p.worklist(ctx, req, emit)

	for idx, tag := range worklist {
		if err := ctx.Err(); err != nil {
			emit.Error("Run cancelled before tag %s: %v", tag, err)
			break
		}
		result.ProcessedTags++
		emit.Progress(idx+1, len(worklist), tag)
		if err := p.processTag(ctx, tag, req.DryRun, result, emit); err != nil {
			emit.Error("Error processing tag %s: %v", tag, err)
			logger.Warn("tag propagation failed", logging.String("tag", tag), logging.Error(err))
		}
	}

	message := "APPLICATION COMPLETE"
	if req.DryRun {
		message = "DRY RUN COMPLETE"
	}
	if req.FullScan {
		message += " (FULL SCAN)"
	}
	result.Details = emit.Details()
	emit.Complete(result, message)

	logger.Info("implication run finished",
		logging.Int("processed_tags", result.ProcessedTags),
		logging.Int("posts_found", result.PostsFound),
		logging.Int("posts_updated", result.PostsUpdated),
		logging.Int("implications_added", result.ImplicationsAdded),
		logging.Bool("dry_run", req.DryRun),
		logging.Duration("duration", time.Since(started)),
	)
	return result
}

// worklist normalizes the requested tags. Duplicates are kept; entries that
// normalize to nothing are dropped.
func (p *Propagator) worklist(ctx context.Context, req Request, emit *events.Emitter) []string {
	raw := req.Tags
	if req.FullScan {
		emit.Status("Full scan mode: Getting all tags with implications...")
		if p.catalog == nil {
			emit.Error("Error getting tags with implications: no tag catalog configured")
			return nil
		}
		names, err := p.catalog.TagsWithImplications(ctx)
		if err != nil {
			emit.Error("Error getting tags with implications: %v", err)
			return nil
		}
		raw = names
	}
	out := make([]string, 0, len(raw))
	for _, entry := range raw {
		if tag, ok := tags.Normalize(entry); ok {
			out = append(out, tag)
		}
	}
	if req.FullScan {
		emit.Status("Found %d tags with implications", len(out))
	}
	return out
}

func (p *Propagator) processTag(ctx context.Context, tag string, dryRun bool, result *Result, emit *events.Emitter) error {
	raw, err := p.implications.Implications(ctx, tag)
	if err != nil {
		return err
	}
	implied := normalizeOrdered(raw)
	if len(implied) == 0 {
		emit.Info("No implications found for tag: %s", tag)
		return nil
	}
	emit.Info("Tag %s implies: %s", tag, strings.Join(implied, ", "))

	posts, err := paging.Collect(ctx, paging.PageSize, func(ctx context.Context, offset, limit int) ([]szuru.Post, error) {
		page, err := p.posts.SearchPosts(ctx, szuru.TagQuery(tag), limit, offset)
		if err != nil {
			return nil, err
		}
		return page.Results, nil
	})
	if err != nil {
		return err
	}
	result.PostsFound += len(posts)
	if len(posts) == 0 {
		emit.Info("No posts found with tag: %s", tag)
		return nil
	}
	emit.Info("Found %d posts with tag: %s", len(posts), tag)

	updated := 0
	for _, post := range posts {
		current := post.TagNames()
		missing := Missing(implied, current)
		if len(missing) == 0 {
			continue
		}
		added := strings.Join(missing, ", ")
		if dryRun {
			emit.Info("Post %d: Would add %s", post.ID, added)
		} else {
			next := append(append(make([]string, 0, len(current)+len(missing)), current...), missing...)
			if _, err := p.posts.UpdatePostTags(ctx, post.ID, next, post.Version); err != nil {
				emit.Error("Failed to update post %d: %v", post.ID, err)
				continue
			}
			emit.Success("Post %d: Added %s", post.ID, added)
		}
		updated++
		result.ImplicationsAdded += len(missing)
	}
	result.PostsUpdated += updated

	if dryRun {
		emit.Summary("DRY RUN: Would update %d posts for tag %s", updated, tag)
	} else {
		emit.Summary("Updated %d posts for tag %s", updated, tag)
	}
	return nil
}

// Missing returns the entries of implied absent from current, in implied order.
func Missing(implied, current []string) []string {
	have := make(map[string]struct{}, len(current))
	for _, name := range current {
		have[name] = struct{}{}
	}
	var missing []string
	for _, name := range implied {
		if _, ok := have[name]; ok {
			continue
		}
		have[name] = struct{}{}
		missing = append(missing, name)
	}
	return missing
}

func normalizeOrdered(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, entry := range raw {
		if tag, ok := tags.Normalize(entry); ok {
			out = append(out, tag)
		}
	}
	return out
}
