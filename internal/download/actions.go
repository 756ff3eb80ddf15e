// Package download implements the download command: pick a release, pick
// variants, write them to disk and record them in the history.
package download

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dtnitsch/downapk/internal/common"
	"github.com/dtnitsch/downapk/internal/search"
	"github.com/dtnitsch/downapk/models"
	"github.com/dtnitsch/downapk/pkg/manifest"
	"github.com/dtnitsch/downapk/pkg/transfer"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"
)

const (
	OptionOne = "one"
	OptionAll = "all"
)

// Options for one download run. Zero indexes and an empty DownloadOption are
// asked for interactively.
type Options struct {
	PackageID      string
	ReleaseURL     string
	Version        string
	SearchIndex    int
	DownloadOption string
	DownloadIndex  int
	Filter         models.FilterCriteria
	OutputDir      string
	Manifest       string
	Workers        int
	Format         string
	Progress       io.Writer
}

func DownloadAction(c *cli.Context) error {
	logger := common.NewLogger(c)

	filter, err := search.FilterFromContext(c)
	if err != nil {
		return common.Fail(logger, "invalid filter", err)
	}

	opts := Options{
		PackageID:      strings.TrimSpace(c.String("package-id")),
		ReleaseURL:     common.SanitizeURL(c.String("release-url")),
		Version:        models.NormalizeFilterValue(c.String("version")),
		SearchIndex:    c.Int("search-index"),
		DownloadOption: strings.ToLower(strings.TrimSpace(c.String("download-option"))),
		DownloadIndex:  c.Int("download-index"),
		Filter:         filter,
		OutputDir:      c.String("output-dir"),
		Manifest:       c.String("manifest"),
		Format:         c.String("format"),
	}
	if !c.Bool("quiet") {
		opts.Progress = os.Stderr
	}
	if err := opts.validate(); err != nil {
		return common.Fail(logger, "invalid arguments", err)
	}

	cfg, err := common.ConfigFromContext(c)
	if err != nil {
		return common.Fail(logger, "invalid configuration", err)
	}
	opts.Workers = cfg.WorkerCount

	s, err := common.NewSession(c.Context, cfg, logger)
	if err != nil {
		return common.Fail(logger, "failed to start session", err)
	}
	defer s.Close()

	prompter := common.NewPrompter(os.Stdin, c.App.Writer)
	if _, err := Run(c.Context, s, opts, prompter, c.App.Writer); err != nil {
		return common.Fail(s.Logger, "download failed", err)
	}
	return nil
}

func (o Options) validate() error {
	if o.PackageID == "" {
		return fmt.Errorf("%w: --package-id is required", common.ErrUsage)
	}
	switch o.DownloadOption {
	case "", OptionOne, OptionAll:
	default:
		return fmt.Errorf("%w: --download-option must be %q or %q", common.ErrUsage, OptionOne, OptionAll)
	}
	if o.SearchIndex < 0 || o.DownloadIndex < 0 {
		return fmt.Errorf("%w: indexes start at 1", common.ErrUsage)
	}
	return nil
}

// Run executes a download from release selection to history rows. Nothing
// is written to disk unless every selected variant resolved.
func Run(ctx context.Context, s *common.Session, opts Options, p *common.Prompter, out io.Writer) ([]transfer.Result, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	releaseURL := opts.ReleaseURL
	if releaseURL == "" {
		release, err := search.PickRelease(ctx, s, opts.PackageID, opts.Version, opts.SearchIndex, p, out)
		if err != nil {
			return nil, err
		}
		releaseURL = release.Link
	}

	variants, err := s.Client.Variants(ctx, releaseURL, opts.Filter)
	if err != nil {
		return nil, err
	}
	if len(variants) == 0 {
		return nil, fmt.Errorf("%w: no apk files found for download, retry again after some time", common.ErrNoResults)
	}

	selected, err := chooseVariants(variants, opts, p, out)
	if err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = s.Config.WorkerCount
	}
	m := transfer.NewManager(s.Fetcher, opts.OutputDir,
		transfer.WithWorkers(workers),
		transfer.WithProgress(opts.Progress),
		transfer.WithLogger(s.Logger),
	)
	results, err := m.DownloadAll(ctx, opts.PackageID, selected)
	for _, r := range results {
		s.RecordDownload(opts.PackageID, releaseURL, r.Variant, r.Path, r.Bytes)
	}
	if err != nil {
		return nil, fmt.Errorf("%d of %d files downloaded: %w", len(results), len(selected), err)
	}
	if n, err := s.History.CountDownloads(s.RunID); err == nil {
		s.Logger.Debug("history updated", "downloads", n)
	}

	if opts.Manifest != "" {
		run, err := manifest.Generate(s.RunID, opts.PackageID, releaseURL, results)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", transfer.ErrIO, err)
		}
		if err := manifest.Write(opts.Manifest, run); err != nil {
			return nil, fmt.Errorf("%w: %w", transfer.ErrIO, err)
		}
		s.Logger.Info("manifest written", "path", opts.Manifest, "files", run.TotalFiles)
	}

	err = common.WriteOutput(out, opts.Format, results, func(w io.Writer) error {
		fmt.Fprintln(w)
		for _, r := range results {
			fmt.Fprintf(w, "%s (%s)\n", r.Path, humanize.Bytes(uint64(r.Bytes)))
		}
		common.Success(w, "Downloaded successfully")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// chooseVariants applies --download-option / --download-index, asking for
// whatever is missing. A single variant is always downloaded as-is.
func chooseVariants(variants []models.VariantDescriptor, opts Options, p *common.Prompter, out io.Writer) ([]models.VariantDescriptor, error) {
	if len(variants) == 1 {
		return variants, nil
	}

	option := opts.DownloadOption
	if option == "" {
		fmt.Fprintln(out, "There are multiple apk files available for download")
		fmt.Fprintln(out, "1. Download one specific file")
		fmt.Fprintln(out, "2. Download all files")
		n, err := p.ReadIndex("Choose a number from above:", 2)
		if err != nil {
			return nil, err
		}
		option = OptionOne
		if n == 2 {
			option = OptionAll
		}
	}

	if option == OptionAll {
		return variants, nil
	}

	index := opts.DownloadIndex
	if index == 0 {
		fmt.Fprintln(out)
		if err := common.PrintVariants(out, variants); err != nil {
			return nil, err
		}
		var err error
		index, err = p.ReadIndex("Choose a number from above to download:", len(variants))
		if err != nil {
			return nil, fmt.Errorf("invalid download index: %w", err)
		}
	} else if err := common.CheckIndex(index, len(variants)); err != nil {
		return nil, fmt.Errorf("invalid download index: %w", err)
	}
	return []models.VariantDescriptor{variants[index-1]}, nil
}
