package mirror

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/downapk/models"
	"golang.org/x/sync/errgroup"
)

// VariantRow is a filtered-in table row whose download link still points at
// the site's variant page, not at the binary.
type VariantRow struct {
	Index       int
	Variant     models.VariantDescriptor
	VariantPage string
}

// Variants extracts the variant table of a release page, keeps the rows that
// match filter and resolves each of them to a final binary URL.
//
// Rows are resolved concurrently (bounded by the worker count) and returned in
// table order. A single failed resolution fails the whole call.
func (c *Client) Variants(ctx context.Context, releaseURL string, filter models.FilterCriteria) ([]models.VariantDescriptor, error) {
	c.logger.Info("Trying to get all download links", "url", releaseURL)

	doc, err := c.sitePage(ctx, StageVariants, releaseURL)
	if err != nil {
		return nil, err
	}

	rows, err := ExtractVariantRows(doc, c.base, c.layout, filter, c.logger)
	if err != nil {
		var se *SiteError
		if errors.As(err, &se) {
			se.URL = releaseURL
		}
		return nil, err
	}

	results, err := c.resolveRows(ctx, rows)
	if err != nil {
		return nil, err
	}
	c.logger.Info("Finished getting all download links", "url", releaseURL, "variants", len(results))
	return results, nil
}

func (c *Client) resolveRows(ctx context.Context, rows []VariantRow) ([]models.VariantDescriptor, error) {
	out := make([]models.VariantDescriptor, len(rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, row := range rows {
		g.Go(func() error {
			link, err := c.Resolve(gctx, row.VariantPage)
			if err != nil {
				c.logger.Error("Failed to resolve variant", "row", row.Index, "url", row.VariantPage, "error", err)
				return err
			}
			v := row.Variant
			v.DownloadLink = link
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ExtractVariantRows walks the variant table and returns the rows that pass
// filter, in document order.
//
// Constraints are applied type, then architecture, then density. Cells
// without a download anchor, or with an empty badge, label or href, are not
// variants and are skipped silently.
func ExtractVariantRows(doc *goquery.Document, base *url.URL, layout RowLayout, filter models.FilterCriteria, logger *slog.Logger) ([]VariantRow, error) {
	if logger == nil {
		logger = slog.Default()
	}

	rows := []VariantRow{}
	var extractErr error

	doc.Find(variantRowSelector).EachWithBreak(func(_ int, row *goquery.Selection) bool {
		row.Find(variantCellSelector).EachWithBreak(func(_ int, cell *goquery.Selection) bool {
			badge := strings.TrimSpace(cell.Find(variantBadgeSelector).First().Text())

			anchor := cell.Find(variantAnchorSelector).First()
			if anchor.Length() == 0 {
				return true
			}
			version := strings.TrimSpace(anchor.Text())
			href, _ := anchor.Attr("href")
			if badge == "" || version == "" || strings.TrimSpace(href) == "" {
				return true
			}
			page, err := AbsoluteURL(base, href)
			if err != nil {
				return true
			}

			// a set type filter is compared against the raw badge, so rows of
			// other types are skipped before the badge is validated
			if !filter.MatchType(models.PackageType(badge)) {
				logger.Debug("Skipping type", "type", badge)
				return true
			}
			pkgType, err := models.ParsePackageType(badge)
			if err != nil {
				extractErr = mismatchError(StageVariants, "type badge APK or BUNDLE, got "+badge, "")
				return false
			}

			fields, ok := layout.rowFields(row)
			if !ok {
				extractErr = mismatchError(StageVariants, layout.landmark(), "")
				return false
			}
			if !filter.MatchArchitecture(fields.architecture) {
				logger.Debug("Skipping arch", "arch", fields.architecture)
				return true
			}
			if !filter.MatchScreenDPI(fields.density) {
				logger.Debug("Skipping dpi", "dpi", fields.density)
				return true
			}
			if fields.architecture == "" || fields.minOS == "" || fields.density == "" {
				logger.Debug("Skipping row with empty columns", "version", version)
				return true
			}

			logger.Debug("Found variant", "version", version, "type", badge, "arch", fields.architecture, "min_version", fields.minOS, "screen_dpi", fields.density)
			rows = append(rows, VariantRow{
				Index: len(rows),
				Variant: models.VariantDescriptor{
					Version:      version,
					Type:         pkgType,
					Architecture: fields.architecture,
					MinOSVersion: fields.minOS,
					ScreenDPI:    fields.density,
				},
				VariantPage: page,
			})
			return true
		})
		return extractErr == nil
	})

	if extractErr != nil {
		return nil, extractErr
	}
	return rows, nil
}
