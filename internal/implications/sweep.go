package implications

import (
	"context"
	"log/slog"

	"szurutools/internal/events"
	"szurutools/internal/logging"
)

// SweepRequest configures an unused-tag sweep.
type SweepRequest struct {
	DryRun bool `json:"dry_run"`
}

// SweepResult aggregates a sweep. Dry runs count the tags they would delete.
type SweepResult struct {
	TagsFound   int      `json:"tags_found"`
	TagsDeleted int      `json:"tags_deleted"`
	Details     []string `json:"details"`
}

// Sweeper deletes tags no post uses.
type Sweeper struct {
	catalog TagCatalog
	logger  *slog.Logger
}

// NewSweeper wires a sweeper.
func NewSweeper(catalog TagCatalog, logger *slog.Logger) *Sweeper {
	return &Sweeper{catalog: catalog, logger: logging.NewComponentLogger(logger, "sweep")}
}

// Sweep removes every unused tag, reporting to sink.
func (s *Sweeper) Sweep(ctx context.Context, req SweepRequest, sink events.Sink) *SweepResult {
	emit := events.NewEmitter(sink)
	logger := logging.WithContext(ctx, s.logger)
	result := &SweepResult{}

	emit.Status("Fetching unused tags...")
	unused, err := s.catalog.UnusedTags(ctx)
	if err != nil {
		emit.Error("Error getting unused tags: %v", err)
		unused = nil
	}
	result.TagsFound = len(unused)
	if err == nil {
		emit.Status("Found %d unused tags", len(unused))
	}

	for idx, tag := range unused {
		if err := ctx.Err(); err != nil {
			emit.Error("Run cancelled: %v", err)
			break
		}
		name := tag.PrimaryName()
		if name == "" {
			continue
		}
		emit.Progress(idx+1, len(unused), name)
		if req.DryRun {
			emit.Info("Would delete tag %s", name)
			result.TagsDeleted++
			continue
		}
		if err := s.catalog.DeleteTag(ctx, name, tag.Version); err != nil {
			emit.Error("Failed to delete tag %s: %v", name, err)
			logger.Warn("tag delete failed", logging.String("tag", name), logging.Error(err))
			continue
		}
		emit.Success("Deleted tag %s", name)
		result.TagsDeleted++
	}

	if req.DryRun {
		emit.Summary("DRY RUN: Would delete %d of %d unused tags", result.TagsDeleted, result.TagsFound)
	} else {
		emit.Summary("Deleted %d of %d unused tags", result.TagsDeleted, result.TagsFound)
	}
	message := "CLEANUP COMPLETE"
	if req.DryRun {
		message = "DRY RUN COMPLETE"
	}
	result.Details = emit.Details()
	emit.Complete(result, message)
	logger.Info("unused tag sweep finished",
		logging.Int("tags_found", result.TagsFound),
		logging.Int("tags_deleted", result.TagsDeleted),
		logging.Bool("dry_run", req.DryRun),
	)
	return result
}
