package mirror

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/downapk/models"
)

// Search runs a package search and returns the result blocks in site order.
// versionFilter, when non-empty, must equal the scraped version byte for byte.
func (c *Client) Search(ctx context.Context, query, versionFilter string) ([]models.ReleaseSummary, error) {
	return c.Listings(ctx, SearchURL(c.base, query), versionFilter)
}

// Listings extracts release summaries from any listing page URL.
func (c *Client) Listings(ctx context.Context, pageURL, versionFilter string) ([]models.ReleaseSummary, error) {
	if versionFilter != "" {
		c.logger.Info("Searching for version", "url", pageURL, "version", versionFilter)
	} else {
		c.logger.Info("Searching", "url", pageURL)
	}

	doc, err := c.sitePage(ctx, StageListing, pageURL)
	if err != nil {
		return nil, err
	}

	results := ExtractListings(doc, c.base, versionFilter)
	c.logger.Info("Finished search", "url", pageURL, "results", len(results))
	return results, nil
}

// ExtractListings turns a listing document into release summaries.
//
// Only the first results container is read, and within it only direct div
// children without a class attribute (one per result). Blocks missing the
// title anchor, its href, or the info panel are left out.
func ExtractListings(doc *goquery.Document, base *url.URL, versionFilter string) []models.ReleaseSummary {
	results := []models.ReleaseSummary{}
	filter := models.FilterCriteria{Version: versionFilter}

	widget := doc.Find(listWidgetSelector).First()
	widget.ChildrenFiltered(resultBlockSelector).Each(func(_ int, block *goquery.Selection) {
		summary, ok := extractSummary(block, base)
		if !ok {
			return
		}
		if !filter.MatchVersion(summary.Version) {
			return
		}
		results = append(results, summary)
	})

	return results
}

func extractSummary(block *goquery.Selection, base *url.URL) (models.ReleaseSummary, bool) {
	link := block.Find(titleLinkSelector).First()
	if link.Length() == 0 {
		return models.ReleaseSummary{}, false
	}
	href, ok := link.Attr("href")
	if !ok {
		return models.ReleaseSummary{}, false
	}
	abs, err := AbsoluteURL(base, href)
	if err != nil {
		return models.ReleaseSummary{}, false
	}

	info := block.Find(infoPanelSelector).First()
	if info.Length() == 0 {
		return models.ReleaseSummary{}, false
	}

	summary := models.ReleaseSummary{
		Title: strings.TrimSpace(link.Text()),
		Link:  abs,
	}

	info.Find(infoPairSelector).Each(func(_ int, p *goquery.Selection) {
		name := p.Find(infoNameSelector).First()
		value := p.Find(infoValueSelector).First()
		if name.Length() == 0 || value.Length() == 0 {
			return
		}

		label := strings.TrimSuffix(strings.TrimSpace(name.Text()), ":")
		text := strings.TrimSpace(value.Text())

		switch label {
		case labelVersion:
			summary.Version = text
		case labelDownloads:
			summary.Downloads = text
		case labelFileSize:
			summary.FileSize = text
		case labelUploaded:
			summary.Uploaded = text
		}
	})

	return summary, true
}
