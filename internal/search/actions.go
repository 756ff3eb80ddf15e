// Package search implements the search and variants commands.
package search

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dtnitsch/downapk/internal/common"
	"github.com/dtnitsch/downapk/models"
	"github.com/urfave/cli/v2"
)

// Options for the search command.
type Options struct {
	Query   string
	Version string // exact version, "" for any
	Format  string
}

// VariantOptions for the variants command. Either ReleaseURL or Query is set;
// SearchIndex 0 means ask (or take the only result).
type VariantOptions struct {
	Query       string
	ReleaseURL  string
	Version     string
	SearchIndex int
	Filter      models.FilterCriteria
	Format      string
}

func SearchAction(c *cli.Context) error {
	logger := common.NewLogger(c)

	query := strings.TrimSpace(c.String("query"))
	if query == "" {
		return common.Fail(logger, "missing query", fmt.Errorf("%w: --query is required", common.ErrUsage))
	}

	cfg, err := common.ConfigFromContext(c)
	if err != nil {
		return common.Fail(logger, "invalid configuration", err)
	}

	s, err := common.NewSession(c.Context, cfg, logger)
	if err != nil {
		return common.Fail(logger, "failed to start session", err)
	}
	defer s.Close()

	opts := Options{
		Query:   query,
		Version: models.NormalizeFilterValue(c.String("version")),
		Format:  c.String("format"),
	}
	if _, err := Run(c.Context, s, opts, c.App.Writer); err != nil {
		return common.Fail(s.Logger, "search failed", err)
	}
	return nil
}

// Run searches the site and writes the matching releases to out.
func Run(ctx context.Context, s *common.Session, opts Options, out io.Writer) ([]models.ReleaseSummary, error) {
	results, err := s.Client.Search(ctx, opts.Query, opts.Version)
	if err != nil {
		return nil, err
	}
	s.RecordSearch(opts.Query, opts.Version, len(results))

	err = common.WriteOutput(out, opts.Format, results, func(w io.Writer) error {
		if len(results) == 0 {
			fmt.Fprintf(w, "No releases found for %q\n", opts.Query)
			return nil
		}
		common.Header(w, "%-4s %-50s %-16s %-12s %s", "#", "Title", "Version", "Size", "Uploaded")
		fmt.Fprintln(w, strings.Repeat("-", 110))
		for i, r := range results {
			fmt.Fprintf(w, "%-4d %-50s %-16s %-12s %s\n", i+1, truncate(r.Title, 50), r.Version, r.FileSize, r.Uploaded)
			fmt.Fprintf(w, "     %s\n", r.Link)
		}
		fmt.Fprintf(w, "\nTotal: %d releases\n", len(results))
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return results, fmt.Errorf("%w: nothing matched %q", common.ErrNoResults, opts.Query)
	}
	return results, nil
}

func VariantsAction(c *cli.Context) error {
	logger := common.NewLogger(c)

	opts := VariantOptions{
		Query:       strings.TrimSpace(c.String("query")),
		ReleaseURL:  strings.TrimSpace(c.String("release-url")),
		Version:     models.NormalizeFilterValue(c.String("version")),
		SearchIndex: c.Int("search-index"),
		Format:      c.String("format"),
	}
	filter, err := FilterFromContext(c)
	if err != nil {
		return common.Fail(logger, "invalid filter", err)
	}
	opts.Filter = filter

	if opts.Query == "" && opts.ReleaseURL == "" {
		return common.Fail(logger, "missing target", fmt.Errorf("%w: --query or --release-url is required", common.ErrUsage))
	}

	cfg, err := common.ConfigFromContext(c)
	if err != nil {
		return common.Fail(logger, "invalid configuration", err)
	}

	s, err := common.NewSession(c.Context, cfg, logger)
	if err != nil {
		return common.Fail(logger, "failed to start session", err)
	}
	defer s.Close()

	prompter := common.NewPrompter(os.Stdin, c.App.Writer)
	if _, err := RunVariants(c.Context, s, opts, prompter, c.App.Writer); err != nil {
		return common.Fail(s.Logger, "listing variants failed", err)
	}
	return nil
}

// RunVariants picks a release and writes its resolved variants to out.
func RunVariants(ctx context.Context, s *common.Session, opts VariantOptions, p *common.Prompter, out io.Writer) ([]models.VariantDescriptor, error) {
	releaseURL := opts.ReleaseURL
	if releaseURL == "" {
		release, err := PickRelease(ctx, s, opts.Query, opts.Version, opts.SearchIndex, p, out)
		if err != nil {
			return nil, err
		}
		releaseURL = release.Link
	}

	variants, err := s.Client.Variants(ctx, releaseURL, opts.Filter)
	if err != nil {
		return nil, err
	}

	err = common.WriteOutput(out, opts.Format, variants, func(w io.Writer) error {
		if len(variants) == 0 {
			fmt.Fprintln(w, "No variants match the given filters")
			return nil
		}
		common.Header(w, "%-4s %-14s %-8s %-26s %-14s %s", "#", "Version", "Type", "Architecture", "DPI", "Min OS")
		fmt.Fprintln(w, strings.Repeat("-", 90))
		for i, v := range variants {
			fmt.Fprintf(w, "%-4d %-14s %-8s %-26s %-14s %s\n", i+1, v.Version, v.Type, v.Architecture, v.ScreenDPI, v.MinOSVersion)
			fmt.Fprintf(w, "     %s\n", v.DownloadLink)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(variants) == 0 {
		return variants, fmt.Errorf("%w: no variants on %s", common.ErrNoResults, releaseURL)
	}
	return variants, nil
}

// PickRelease searches for query and returns the release at the 1-based
// index. With index 0 the only result is taken, or the user is asked.
// A query that is already a release page URL skips the search.
func PickRelease(ctx context.Context, s *common.Session, query, version string, index int, p *common.Prompter, out io.Writer) (models.ReleaseSummary, error) {
	if target, isURL := common.SplitTarget(query); isURL {
		return models.ReleaseSummary{Link: target}, nil
	}

	results, err := s.Client.Search(ctx, query, version)
	if err != nil {
		return models.ReleaseSummary{}, err
	}
	s.RecordSearch(query, version, len(results))

	if len(results) == 0 {
		return models.ReleaseSummary{}, fmt.Errorf("%w: no releases found for %q", common.ErrNoResults, query)
	}

	switch {
	case index != 0:
		if err := common.CheckIndex(index, len(results)); err != nil {
			return models.ReleaseSummary{}, fmt.Errorf("invalid search index: %w", err)
		}
	case len(results) == 1:
		index = 1
	default:
		if err := common.PrintReleases(out, results); err != nil {
			return models.ReleaseSummary{}, err
		}
		index, err = p.ReadIndex("Choose a number from above to download:", len(results))
		if err != nil {
			return models.ReleaseSummary{}, fmt.Errorf("invalid search index: %w", err)
		}
	}

	chosen := results[index-1]
	s.Logger.Info("Selected release", "title", chosen.Title, "url", chosen.Link)
	return chosen, nil
}

// FilterFromContext reads --type, --arch and --dpi. "all" means no constraint.
func FilterFromContext(c *cli.Context) (models.FilterCriteria, error) {
	filter := models.FilterCriteria{
		Architecture: models.NormalizeFilterValue(c.String("arch")),
		ScreenDPI:    models.NormalizeFilterValue(c.String("dpi")),
	}
	if t := models.NormalizeFilterValue(c.String("type")); t != "" {
		pt, err := models.ParsePackageType(strings.ToUpper(t))
		if err != nil {
			return filter, fmt.Errorf("%w: %v", common.ErrUsage, err)
		}
		filter.Type = pt
	}
	return filter, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
