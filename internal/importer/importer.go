// Package importer downloads a gallery and uploads each file to the board
// with tags and a source taken from its metadata sidecars.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"szurutools/internal/downloader"
	"szurutools/internal/events"
	"szurutools/internal/implications"
	"szurutools/internal/logging"
	"szurutools/internal/services"
	"szurutools/internal/szuru"
	"szurutools/internal/tags"
)

// Fetcher downloads a URL into a directory of media files.
type Fetcher interface {
	Download(ctx context.Context, url string) (*downloader.Result, error)
}

// Board is the subset of the board client an import uses.
type Board interface {
	EnsureCategory(ctx context.Context, name string, order int) error
	EnsureTag(ctx context.Context, name, category string) (szuru.EnsureResult, error)
	UploadPost(ctx context.Context, filePath string, tags []string, safety, source string) (*szuru.Post, error)
	Implications(ctx context.Context, tag string) ([]string, error)
}

// Request names the gallery to import.
type Request struct {
	URL    string `json:"url"`
	Safety string `json:"safety"`
}

// Result aggregates an import run.
type Result struct {
	Downloaded int      `json:"downloaded"`
	Uploaded   int      `json:"uploaded"`
	Errors     int      `json:"errors"`
	Details    []string `json:"details"`
}

// Options tunes import behaviour.
type Options struct {
	DefaultSafety      string
	ExpandImplications bool
	KeepDownloads      bool
}

// Importer runs imports.
type Importer struct {
	fetcher Fetcher
	board   Board
	opts    Options
	logger  *slog.Logger
}

// New wires an importer.
func New(fetcher Fetcher, board Board, opts Options, logger *slog.Logger) *Importer {
	if opts.DefaultSafety == "" {
		opts.DefaultSafety = szuru.SafetySafe
	}
	return &Importer{
		fetcher: fetcher,
		board:   board,
		opts:    opts,
		logger:  logging.NewComponentLogger(logger, "importer"),
	}
}

// Import downloads req.URL and uploads every media file. Only validation and
// download failures are returned as errors; per-file failures are counted
// and reported through sink.
func (i *Importer) Import(ctx context.Context, req Request, sink events.Sink) (*Result, error) {
	safety := strings.ToLower(strings.TrimSpace(req.Safety))
	if safety == "" {
		safety = i.opts.DefaultSafety
	}
	if !szuru.ValidSafety(safety) {
		return nil, services.Wrap(services.ErrValidation, "importer", "import", fmt.Sprintf("invalid safety %q (expected safe, sketchy or unsafe)", req.Safety), nil)
	}
	if strings.TrimSpace(req.URL) == "" {
		return nil, services.Wrap(services.ErrValidation, "importer", "import", "url required", nil)
	}

	logger := logging.WithContext(ctx, i.logger)
	emit := events.NewEmitter(sink)
	started := time.Now()

	emit.Status("Downloading %s", req.URL)
	download, err := i.fetcher.Download(ctx, req.URL)
	if err != nil {
		return nil, err
	}
	if !i.opts.KeepDownloads {
		defer func() {
			if err := download.Cleanup(); err != nil {
				logger.Warn("download cleanup failed", logging.String("dir", download.Dir), logging.Error(err))
			}
		}()
	}

	result := &Result{Downloaded: len(download.Files)}
	emit.Status("Downloaded %d files", len(download.Files))
	for idx, file := range download.Files {
		if err := ctx.Err(); err != nil {
			emit.Error("Import cancelled: %v", err)
			break
		}
		name := filepath.Base(file)
		emit.Progress(idx+1, len(download.Files), name)
		if err := i.importFile(ctx, file, safety); err != nil {
			result.Errors++
			emit.Error("Upload failed %s: %v", name, err)
			logger.Warn("file import failed", logging.String("file", name), logging.Error(err))
			continue
		}
		result.Uploaded++
		emit.Success("Uploaded %s", name)
	}

	result.Details = emit.Details()
	emit.Complete(result, "IMPORT COMPLETE")
	logger.Info("import finished",
		logging.String("url", req.URL),
		logging.Int("downloaded", result.Downloaded),
		logging.Int("uploaded", result.Uploaded),
		logging.Int("errors", result.Errors),
		logging.Duration("duration", time.Since(started)),
	)
	return result, nil
}

func (i *Importer) importFile(ctx context.Context, file, safety string) error {
	classification := tags.ClassifyForUpload(downloader.SidecarTags(file))
	uploadTags := classification.UploadTags
	if i.opts.ExpandImplications {
		uploadTags = implications.Enrich(ctx, uploadTags, i.board)
	}

	order := 0
	for _, category := range classification.CategoryNames() {
		if err := i.board.EnsureCategory(ctx, category, order); err != nil {
			return fmt.Errorf("ensure category %s: %w", category, err)
		}
		order++
		for _, member := range classification.Members(category) {
			if _, err := i.board.EnsureTag(ctx, member, category); err != nil {
				return fmt.Errorf("ensure tag %s: %w", member, err)
			}
		}
	}

	if _, err := i.board.UploadPost(ctx, file, uploadTags, safety, downloader.SidecarSource(file)); err != nil {
		return err
	}
	return nil
}
