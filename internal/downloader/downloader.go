package downloader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	"szurutools/internal/config"
	"szurutools/internal/logging"
	"szurutools/internal/services"
)

// outputTailLines is how much gallery-dl output a failure carries.
const outputTailLines = 40

// Result lists the media files of one download.
type Result struct {
	Dir   string
	Files []string
}

// Cleanup removes the download directory.
func (r *Result) Cleanup() error {
	if r == nil || r.Dir == "" {
		return nil
	}
	return os.RemoveAll(r.Dir)
}

// Option configures the downloader.
type Option func(*Downloader)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(d *Downloader) {
		if exec != nil {
			d.exec = exec
		}
	}
}

// WithLogger attaches a logger for command diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Downloader) {
		d.logger = logging.NewComponentLogger(logger, "downloader")
	}
}

// Downloader runs gallery-dl.
type Downloader struct {
	binary       string
	root         string
	skipPatterns []string
	exec         Executor
	logger       *slog.Logger
}

// New constructs a downloader writing below root.
func New(binary, root string, skipPatterns []string, opts ...Option) (*Downloader, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, services.Wrap(services.ErrConfiguration, "downloader", "init", "gallery-dl binary required", nil)
	}
	if strings.TrimSpace(root) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "downloader", "init", "download directory required", nil)
	}
	for _, pattern := range skipPatterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, services.Wrap(services.ErrConfiguration, "downloader", "init", fmt.Sprintf("invalid skip pattern %q", pattern), nil)
		}
	}
	d := &Downloader{
		binary:       binary,
		root:         root,
		skipPatterns: append([]string(nil), skipPatterns...),
		exec:         commandExecutor{},
		logger:       logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// NewFromConfig builds a downloader from the [import] configuration section.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Downloader, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "downloader", "init", "configuration unavailable", nil)
	}
	return New(cfg.Import.GalleryDLBinary, cfg.Import.DownloadDir, cfg.Import.SkipPatterns, WithLogger(logger))
}

// Download fetches url into a fresh directory and returns the media files it
// produced, sorted by name.
func (d *Downloader) Download(ctx context.Context, url string) (*Result, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, services.Wrap(services.ErrValidation, "downloader", "download", "url required", nil)
	}
	dir := filepath.Join(d.root, uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create download directory: %w", err)
	}

	logger := logging.WithContext(ctx, d.logger)
	tail := newLineTail(outputTailLines)
	args := []string{"--write-metadata", "--no-skip", "-D", dir, url}
	logger.Debug("running gallery-dl", logging.String("url", url), logging.String("dir", dir))
	if err := d.exec.Run(ctx, d.binary, args, func(line string) {
		tail.add(line)
		logger.Debug("gallery-dl output", logging.String("line", line))
	}); err != nil {
		_ = os.RemoveAll(dir)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		message := "gallery-dl failed"
		if lines := tail.lines(); len(lines) > 0 {
			message += "\n" + strings.Join(lines, "\n")
		}
		return nil, services.Wrap(services.ErrExternalTool, "downloader", "gallery-dl", message, err)
	}

	files, err := d.mediaFiles(dir)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("inspect download outputs: %w", err)
	}
	logger.Info("download finished", logging.String("url", url), logging.Int("files", len(files)))
	return &Result{Dir: dir, Files: files}, nil
}

func (d *Downloader) mediaFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if d.skipped(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func (d *Downloader) skipped(name string) bool {
	for _, pattern := range d.skipPatterns {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// lineTail keeps the last n lines written to it.
type lineTail struct {
	max  int
	buf  []string
	next int
	full bool
}

func newLineTail(n int) *lineTail {
	return &lineTail{max: n, buf: make([]string, n)}
}

func (t *lineTail) add(line string) {
	t.buf[t.next] = line
	t.next = (t.next + 1) % t.max
	if t.next == 0 {
		t.full = true
	}
}

func (t *lineTail) lines() []string {
	if !t.full {
		return append([]string(nil), t.buf[:t.next]...)
	}
	return append(append([]string(nil), t.buf[t.next:]...), t.buf[:t.next]...)
}
