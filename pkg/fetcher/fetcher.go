package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/downapk/models"
	cookiejar "github.com/juju/persistent-cookiejar"
	"golang.org/x/net/proxy"
	"golang.org/x/time/rate"
)

// Fetcher is the one HTTP session of a run. All requests share its cookie jar,
// header profile and rate limiter. Pages go through client, which bounds the whole
// request by the configured timeout; binaries go through stream, where the timeout
// only covers waiting for the response headers.
type Fetcher struct {
	client  *http.Client
	stream  *http.Client
	jar     *sessionJar
	headers models.HeaderProfile
	limiter *rate.Limiter
	baseURL string
	logger  *slog.Logger
}

// Option tweaks how New builds the underlying HTTP client.
type Option func(*options)

type options struct {
	transport *http.Transport
}

// WithTransport starts from t (cloned) instead of http.DefaultTransport.
func WithTransport(t *http.Transport) Option {
	return func(o *options) { o.transport = t }
}

// New builds a Fetcher from cfg. The header profile is copied and never changes afterwards.
func New(cfg models.ClientConfig, logger *slog.Logger, opts ...Option) (*Fetcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	store, err := cookiejar.New(&cookiejar.Options{
		Filename:  cfg.CookieFile,
		NoPersist: cfg.CookieFile == "",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	jar := &sessionJar{Jar: store}

	base := o.transport
	if base == nil {
		base = http.DefaultTransport.(*http.Transport)
	}
	transport := base.Clone()
	if cfg.Proxy != "" {
		dialer, err := proxy.SOCKS5("tcp", cfg.Proxy, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to configure SOCKS5 proxy (%s): %w", cfg.Proxy, err)
		}
		transport.Proxy = nil
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		} else {
			transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
	}

	streamTransport := transport.Clone()
	streamTransport.ResponseHeaderTimeout = cfg.Timeout

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	return &Fetcher{
		client: &http.Client{
			Transport: transport,
			Jar:       jar,
			Timeout:   cfg.Timeout,
		},
		stream: &http.Client{
			Transport: streamTransport,
			Jar:       jar,
		},
		jar:     jar,
		headers: cfg.Headers,
		limiter: limiter,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		logger:  logger,
	}, nil
}

// BaseURL returns the site root without a trailing slash.
func (f *Fetcher) BaseURL() string {
	return f.baseURL
}

// Warmup issues the single request that collects the site's session cookies and
// returns the landing page so the caller can check it is a real site page.
// Once it succeeds the jar is frozen: later responses cannot change cookie state.
func (f *Fetcher) Warmup(ctx context.Context) (*goquery.Document, error) {
	f.logger.Info("Heading to site root for session cookies", "url", f.baseURL+"/")
	doc, err := f.GetHtml(ctx, f.baseURL+"/")
	if err != nil {
		return nil, err
	}
	f.jar.freeze()
	f.logger.Debug("Got session cookies", "count", f.cookieCount())
	return doc, nil
}

// SaveCookies persists the jar when a cookie file is configured.
func (f *Fetcher) SaveCookies() error {
	if err := f.jar.Save(); err != nil {
		return fmt.Errorf("failed to save cookies: %w", err)
	}
	return nil
}

func (f *Fetcher) cookieCount() int {
	return len(f.jar.AllCookies())
}

func (f *Fetcher) GetHtml(ctx context.Context, url string) (*goquery.Document, error) {
	bodyBytes, err := f.GetHtmlBytes(ctx, url)
	if err != nil {
		return nil, err
	}
	return ParseHtml(bodyBytes)
}

// ParseHtml turns raw bytes (from the network or the page cache) into a document.
func ParseHtml(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

func (f *Fetcher) GetHtmlBytes(ctx context.Context, url string) ([]byte, error) {
	resp, err := f.do(ctx, f.client, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return bodyBytes, nil
}

// Open performs a GET for a binary and returns the response with an unread body.
// There is no deadline on reading the body, only on receiving the headers; ctx
// cancels the transfer. Non-200 responses are turned into errors. The caller
// must close the body.
func (f *Fetcher) Open(ctx context.Context, url string) (*http.Response, error) {
	return f.do(ctx, f.stream, url)
}

func (f *Fetcher) do(ctx context.Context, client *http.Client, url string) (*http.Response, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	f.applyHeaders(req)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make HTTP request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to fetch %s, status code: %d", url, resp.StatusCode)
	}
	return resp, nil
}

func (f *Fetcher) applyHeaders(req *http.Request) {
	h := f.headers
	req.Header.Set("User-Agent", h.UserAgent)
	if h.Accept != "" {
		req.Header.Set("Accept", h.Accept)
	}
	if h.AcceptLanguage != "" {
		req.Header.Set("Accept-Language", h.AcceptLanguage)
	}
	if h.RequestedWith != "" {
		req.Header.Set("X-Requested-With", h.RequestedWith)
	}
	req.Header.Set("Upgrade-Insecure-Requests", "1")
}

// sessionJar drops Set-Cookie headers once frozen, so the resolver hops running in
// parallel all see the cookies collected by the warm-up.
type sessionJar struct {
	*cookiejar.Jar
	frozen atomic.Bool
}

func (j *sessionJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	if j.frozen.Load() {
		return
	}
	j.Jar.SetCookies(u, cookies)
}

func (j *sessionJar) freeze() {
	j.frozen.Store(true)
}
