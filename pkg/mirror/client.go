// Package mirror scrapes APKMirror: release listings, variant tables and the
// two-hop chain from a variant to its binary.
package mirror

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/downapk/pkg/caching"
	"github.com/dtnitsch/downapk/pkg/fetcher"
)

// Client runs the extraction pipeline on top of one fetcher session.
type Client struct {
	fetcher *fetcher.Fetcher
	cache   *caching.Cache
	base    *url.URL
	layout  RowLayout
	workers int
	logger  *slog.Logger
}

type Option func(*Client)

// WithCache serves listing and release pages from c when fresh.
func WithCache(c *caching.Cache) Option {
	return func(cl *Client) { cl.cache = c }
}

// WithLogger sets the logger. Skipped rows are reported at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.logger = l
		}
	}
}

// WithWorkers bounds how many variant rows are resolved at once.
func WithWorkers(n int) Option {
	return func(cl *Client) {
		if n > 0 {
			cl.workers = n
		}
	}
}

// WithRowLayout overrides the variant table layout.
func WithRowLayout(l RowLayout) Option {
	return func(cl *Client) { cl.layout = l }
}

func NewClient(f *fetcher.Fetcher, opts ...Option) (*Client, error) {
	base, err := url.Parse(f.BaseURL())
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", f.BaseURL(), err)
	}
	c := &Client{
		fetcher: f,
		base:    base,
		layout:  VariantRowLayoutV1,
		workers: 4,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Base returns the site root the client resolves relative links against.
func (c *Client) Base() *url.URL {
	u := *c.base
	return &u
}

// Bootstrap acquires session cookies and checks that the landing page is a
// well-formed site page. It must run before any other call.
func (c *Client) Bootstrap(ctx context.Context) error {
	doc, err := c.fetcher.Warmup(ctx)
	if err != nil {
		return transportError(StageBootstrap, c.base.String(), err)
	}
	if n := doc.Find(siteLandmarkSelector).Length(); n != 1 {
		c.logger.Error("Landing page failed validity check", "landmark", siteLandmarkSelector, "found", n)
		return mismatchError(StageBootstrap, siteLandmarkSelector, c.base.String())
	}
	c.logger.Info("Finished getting valid cookies")
	return nil
}

// sitePage loads a listing or release page, through the cache when enabled,
// and rejects pages that are not recognisable site pages.
func (c *Client) sitePage(ctx context.Context, stage Stage, pageURL string) (*goquery.Document, error) {
	body, hit := c.cache.Get(pageURL)
	if hit {
		c.logger.Debug("Page served from cache", "stage", stage, "url", pageURL)
	} else {
		var err error
		body, err = c.fetcher.GetHtmlBytes(ctx, pageURL)
		if err != nil {
			return nil, transportError(stage, pageURL, err)
		}
	}

	doc, err := fetcher.ParseHtml(body)
	if err != nil {
		return nil, transportError(stage, pageURL, err)
	}

	if doc.Find(siteLandmarkSelector).Length() == 0 {
		if hit {
			_ = c.cache.Delete(pageURL)
		}
		return nil, mismatchError(stage, siteLandmarkSelector, pageURL)
	}

	if !hit {
		if err := c.cache.Set(pageURL, body); err != nil {
			c.logger.Warn("Failed to cache page", "url", pageURL, "error", err)
		}
	}
	return doc, nil
}

// page loads a page that must never be cached (resolver hops).
func (c *Client) page(ctx context.Context, stage Stage, pageURL string) (*goquery.Document, error) {
	doc, err := c.fetcher.GetHtml(ctx, pageURL)
	if err != nil {
		return nil, transportError(stage, pageURL, err)
	}
	return doc, nil
}
