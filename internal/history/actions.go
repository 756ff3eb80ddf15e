// Package history implements the history command.
package history

import (
	"fmt"
	"io"
	"strings"

	"github.com/dtnitsch/downapk/internal/common"
	dbpkg "github.com/dtnitsch/downapk/pkg/db"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"
)

// Options for the history listing.
type Options struct {
	Limit     int
	PackageID string
	Searches  bool
	Format    string
}

func HistoryAction(c *cli.Context) error {
	logger := common.NewLogger(c)

	cfg, err := common.ConfigFromContext(c)
	if err != nil {
		return common.Fail(logger, "invalid configuration", err)
	}

	database, err := dbpkg.Open(cfg.DBPath)
	if err != nil {
		return common.Fail(logger, "failed to open database", err)
	}
	defer database.Close()

	opts := Options{
		Limit:     c.Int("limit"),
		PackageID: strings.TrimSpace(c.String("package-id")),
		Searches:  c.Bool("searches"),
		Format:    c.String("format"),
	}
	if err := Run(database, opts, c.App.Writer); err != nil {
		return common.Fail(logger, "failed to list history", err)
	}
	return nil
}

// Run writes the newest downloads, or with opts.Searches the newest searches, to out.
func Run(database *dbpkg.DB, opts Options, out io.Writer) error {
	if opts.Searches {
		return runSearches(database, opts, out)
	}

	downloads, err := database.ListDownloads(opts.Limit, opts.PackageID)
	if err != nil {
		return err
	}
	if downloads == nil {
		downloads = []dbpkg.Download{}
	}

	return common.WriteOutput(out, opts.Format, downloads, func(w io.Writer) error {
		if len(downloads) == 0 {
			fmt.Fprintln(w, "No downloads found")
			return nil
		}

		common.Header(w, "%-6s %-20s %-30s %-14s %-8s %-24s %-10s %s",
			"ID", "When", "Package", "Version", "Type", "Architecture", "Size", "File")
		fmt.Fprintln(w, strings.Repeat("-", 140))
		var total int64
		for _, d := range downloads {
			fmt.Fprintf(w, "%-6d %-20s %-30s %-14s %-8s %-24s %-10s %s\n",
				d.DownloadID,
				humanize.Time(d.CreatedAt),
				d.PackageID,
				d.Version,
				d.PackageType,
				d.Architecture,
				humanize.Bytes(uint64(d.SizeBytes)),
				d.FilePath,
			)
			total += d.SizeBytes
		}

		fmt.Fprintf(w, "\nTotal: %d downloads, %s\n", len(downloads), humanize.Bytes(uint64(total)))
		return nil
	})
}

func runSearches(database *dbpkg.DB, opts Options, out io.Writer) error {
	if opts.PackageID != "" {
		return fmt.Errorf("%w: --package-id does not apply to --searches", common.ErrUsage)
	}
	searches, err := database.ListSearches(opts.Limit)
	if err != nil {
		return err
	}
	if searches == nil {
		searches = []dbpkg.Search{}
	}

	return common.WriteOutput(out, opts.Format, searches, func(w io.Writer) error {
		if len(searches) == 0 {
			fmt.Fprintln(w, "No searches found")
			return nil
		}

		common.Header(w, "%-6s %-20s %-40s %-14s %s", "ID", "When", "Query", "Version", "Results")
		fmt.Fprintln(w, strings.Repeat("-", 90))
		for _, s := range searches {
			version := s.VersionFilter
			if version == "" {
				version = "latest"
			}
			fmt.Fprintf(w, "%-6d %-20s %-40s %-14s %d\n",
				s.SearchID, humanize.Time(s.CreatedAt), s.Query, version, s.ResultCount)
		}
		fmt.Fprintf(w, "\nTotal: %d searches\n", len(searches))
		return nil
	})
}
