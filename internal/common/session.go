package common

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dtnitsch/downapk/models"
	"github.com/dtnitsch/downapk/pkg/caching"
	"github.com/dtnitsch/downapk/pkg/db"
	"github.com/dtnitsch/downapk/pkg/fetcher"
	"github.com/dtnitsch/downapk/pkg/mirror"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
)

const (
	ExitUsage = 1
	ExitFatal = 2
)

var (
	// ErrNoResults means the site answered but nothing matched.
	ErrNoResults = errors.New("no results")
	// ErrInvalidChoice is a menu index outside the listed range or an unknown option.
	ErrInvalidChoice = errors.New("invalid choice")
	// ErrUsage is a flag combination the command cannot run with.
	ErrUsage = errors.New("invalid usage")
)

// ExitCode maps an action error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrNoResults), errors.Is(err, ErrInvalidChoice), errors.Is(err, ErrUsage):
		return ExitUsage
	default:
		return ExitFatal
	}
}

// Fail logs err and returns the cli exit error for it.
func Fail(logger *slog.Logger, msg string, err error) error {
	code := ExitCode(err)
	logger.Error(msg, "error", err, "exit_code", code)
	if code == ExitUsage {
		return cli.Exit("Error: "+err.Error(), code)
	}
	return cli.Exit("", code)
}

// NewLogger builds the JSON stderr logger from --quiet / --verbose.
func NewLogger(c *cli.Context) *slog.Logger {
	logLevel := slog.LevelInfo
	if c.Bool("verbose") {
		logLevel = slog.LevelDebug
	}
	if c.Bool("quiet") {
		logLevel = slog.LevelError
	}
	var w io.Writer = os.Stderr
	if c.App != nil && c.App.ErrWriter != nil {
		w = c.App.ErrWriter
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logLevel}))
}

// ConfigFromContext layers the config file and any flag or DOWNAPK_*
// variable that was set on top of the defaults.
func ConfigFromContext(c *cli.Context) (models.ClientConfig, error) {
	cfg, err := models.LoadConfig(c.String("config"))
	if err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrUsage, err)
	}

	if c.IsSet("base-url") {
		cfg.BaseURL = c.String("base-url")
	}
	if c.IsSet("user-agent") {
		cfg.Headers.UserAgent = c.String("user-agent")
	}
	if c.IsSet("proxy") {
		cfg.Proxy = c.String("proxy")
	}
	if c.IsSet("cookie-file") {
		cfg.CookieFile = c.String("cookie-file")
	}
	if c.IsSet("rate") {
		cfg.RateLimit = c.Float64("rate")
	}
	if c.IsSet("timeout") {
		cfg.Timeout = c.Duration("timeout")
	}
	if c.IsSet("max-age") {
		cfg.MaxAge = c.Duration("max-age")
	}
	if c.IsSet("cache-dir") {
		cfg.CacheDir = c.String("cache-dir")
	}
	if c.IsSet("db") {
		cfg.DBPath = c.String("db")
	}
	if c.IsSet("workers") {
		cfg.WorkerCount = c.Int("workers")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	return cfg, nil
}

// Session is everything one command run needs: a bootstrapped site client,
// the download history and the run id its rows are tagged with.
type Session struct {
	Config  models.ClientConfig
	Logger  *slog.Logger
	Fetcher *fetcher.Fetcher
	Client  *mirror.Client
	History *db.DB
	RunID   string
}

// NewSession wires the fetcher, page cache and client from cfg, opens the
// history database and performs the cookie warm-up.
func NewSession(ctx context.Context, cfg models.ClientConfig, logger *slog.Logger, opts ...fetcher.Option) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	runID := uuid.NewString()
	logger = logger.With("run_id", runID)

	f, err := fetcher.New(cfg, logger, opts...)
	if err != nil {
		return nil, err
	}

	cache, err := caching.NewCache(cfg.CacheDir, cfg.MaxAge)
	if err != nil {
		return nil, err
	}

	client, err := mirror.NewClient(f,
		mirror.WithCache(cache),
		mirror.WithLogger(logger),
		mirror.WithWorkers(cfg.WorkerCount),
	)
	if err != nil {
		return nil, err
	}

	history, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	s := &Session{
		Config:  cfg,
		Logger:  logger,
		Fetcher: f,
		Client:  client,
		History: history,
		RunID:   runID,
	}

	if err := client.Bootstrap(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Close persists cookies and closes the history database.
func (s *Session) Close() {
	if err := s.Fetcher.SaveCookies(); err != nil {
		s.Logger.Warn("Failed to save cookies", "error", err)
	}
	if s.History != nil {
		if err := s.History.Close(); err != nil {
			s.Logger.Warn("Failed to close history database", "error", err)
		}
	}
}

// RecordSearch stores a search in the history. Failures are only logged.
func (s *Session) RecordSearch(query, versionFilter string, results int) {
	if _, err := s.History.RecordSearch(s.RunID, query, versionFilter, results); err != nil {
		s.Logger.Warn("Failed to record search", "error", err)
	}
}

// RecordDownload stores a finished download in the history. Failures are only logged.
func (s *Session) RecordDownload(packageID, releaseURL string, v models.VariantDescriptor, path string, size int64) {
	if _, err := s.History.RecordDownload(s.RunID, packageID, releaseURL, v, path, size); err != nil {
		s.Logger.Warn("Failed to record download", "error", err)
	}
}
