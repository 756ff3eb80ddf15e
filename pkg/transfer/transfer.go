// Package transfer writes resolved variant binaries to the output directory.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dtnitsch/downapk/models"
	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
)

const DefaultOutputDir = "downloads"

var (
	// ErrUnknownPackageType is returned for a variant whose type has no file extension.
	ErrUnknownPackageType = errors.New("unknown package type")
	// ErrIO marks failures of the local filesystem, as opposed to the network.
	ErrIO = errors.New("file system failure")
)

// Opener issues the GET for a binary. *fetcher.Fetcher satisfies it, so the
// download reuses the session cookies and header profile of the scrape.
type Opener interface {
	Open(ctx context.Context, url string) (*http.Response, error)
}

// Result describes one finished download.
type Result struct {
	Variant models.VariantDescriptor `json:"variant" yaml:"variant"`
	Path    string                   `json:"path" yaml:"path"`
	Bytes   int64                    `json:"bytes" yaml:"bytes"`
}

// Manager streams variants to files under one output directory.
type Manager struct {
	opener    Opener
	outputDir string
	workers   int
	progress  io.Writer
	logger    *slog.Logger
}

type Option func(*Manager)

// WithWorkers bounds how many files DownloadAll writes at once.
func WithWorkers(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.workers = n
		}
	}
}

// WithProgress draws a progress bar per file on w. nil turns bars off.
func WithProgress(w io.Writer) Option {
	return func(m *Manager) { m.progress = w }
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewManager creates a Manager writing into outputDir (DefaultOutputDir when empty).
func NewManager(opener Opener, outputDir string, opts ...Option) *Manager {
	if outputDir == "" {
		outputDir = DefaultOutputDir
	}
	m := &Manager{
		opener:    opener,
		outputDir: outputDir,
		workers:   1,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Filename is <package>_<version>_<arch>_<dpi>.<ext>. The same inputs always
// give the same name.
func Filename(packageID string, v models.VariantDescriptor) (string, error) {
	ext, err := v.Type.Extension()
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownPackageType, string(v.Type))
	}
	parts := []string{packageID, v.Version, v.Architecture, v.ScreenDPI}
	for i, p := range parts {
		parts[i] = safeComponent(p)
	}
	return strings.Join(parts, "_") + "." + ext, nil
}

// safeComponent keeps a name component from escaping the output directory.
func safeComponent(s string) string {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("/", "-", `\`, "-").Replace(s)
	if s == "." || s == ".." {
		return strings.Repeat("-", len(s))
	}
	return s
}

// Path is where Download would write v.
func (m *Manager) Path(packageID string, v models.VariantDescriptor) (string, error) {
	name, err := Filename(packageID, v)
	if err != nil {
		return "", err
	}
	return filepath.Join(m.outputDir, name), nil
}

// Download fetches v.DownloadLink into the output directory. On any failure
// the partially written file is removed.
func (m *Manager) Download(ctx context.Context, packageID string, v models.VariantDescriptor) (Result, error) {
	path, err := m.Path(packageID, v)
	if err != nil {
		return Result{}, err
	}
	if v.DownloadLink == "" {
		return Result{}, fmt.Errorf("variant %s has no download link", v)
	}
	if err := os.MkdirAll(m.outputDir, 0755); err != nil {
		return Result{}, fmt.Errorf("%w: failed to create output directory: %v", ErrIO, err)
	}

	m.logger.Info("Downloading", "url", v.DownloadLink, "path", path)
	start := time.Now()

	resp, err := m.opener.Open(ctx, v.DownloadLink)
	if err != nil {
		return Result{}, fmt.Errorf("failed to download %s: %w", filepath.Base(path), err)
	}
	defer resp.Body.Close()

	f, err := os.Create(path)
	if err != nil {
		return Result{}, fmt.Errorf("%w: failed to create %s: %v", ErrIO, path, err)
	}

	var w io.Writer = fileWriter{f}
	var bar *progressbar.ProgressBar
	if m.progress != nil {
		bar = newBar(m.progress, resp.ContentLength, filepath.Base(path))
		w = io.MultiWriter(w, bar)
	}

	n, copyErr := io.Copy(w, resp.Body)
	closeErr := f.Close()
	if bar != nil {
		_ = bar.Finish()
	}

	if copyErr == nil && closeErr != nil {
		copyErr = fmt.Errorf("%w: failed to close %s: %v", ErrIO, path, closeErr)
	}
	if copyErr == nil && resp.ContentLength >= 0 && n != resp.ContentLength {
		copyErr = fmt.Errorf("short body: got %d of %d bytes", n, resp.ContentLength)
	}
	if copyErr != nil {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			m.logger.Warn("Failed to remove partial file", "path", path, "error", rmErr)
		}
		return Result{}, fmt.Errorf("failed to download %s: %w", filepath.Base(path), copyErr)
	}

	m.logger.Info("Finished downloading", "path", path, "size", humanize.Bytes(uint64(n)), "duration", time.Since(start))
	return Result{Variant: v, Path: path, Bytes: n}, nil
}

// DownloadAll downloads vs with at most the configured number of files in
// flight. Results are in input order; the first failure cancels the rest.
// On failure the files that finished are still on disk and are returned,
// in input order, together with the error.
func (m *Manager) DownloadAll(ctx context.Context, packageID string, vs []models.VariantDescriptor) ([]Result, error) {
	out := make([]Result, len(vs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for i, v := range vs {
		g.Go(func() error {
			res, err := m.Download(gctx, packageID, v)
			if err != nil {
				return err
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		done := make([]Result, 0, len(out))
		for _, r := range out {
			if r.Path != "" {
				done = append(done, r)
			}
		}
		return done, err
	}
	return out, nil
}

func newBar(w io.Writer, size int64, name string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(size,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(name),
		progressbar.OptionShowBytes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(20),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionOnCompletion(func() { fmt.Fprint(w, "\n") }),
	)
}

// fileWriter tags write errors so callers can tell a full disk from a dropped connection.
type fileWriter struct {
	f *os.File
}

func (w fileWriter) Write(p []byte) (int, error) {
	n, err := w.f.Write(p)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrIO, err)
	}
	return n, err
}
