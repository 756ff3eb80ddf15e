// Package sitetest serves a small fake of the mirror site over TLS so the
// scraper, resolver and downloader can be exercised end to end in tests.
package sitetest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/dtnitsch/downapk/models"
)

const (
	sessionCookie = "apkm_session"
	filePrefix    = "/wp-content/themes/APKMirror/download.php"
	releasePrefix = "/apk/example/app/"
)

// Release is one search result and the release page behind it.
type Release struct {
	Title     string
	Slug      string
	Version   string
	Downloads string
	FileSize  string
	Uploaded  string
}

// Variant is one row of a release page's variant table. An empty Badge renders
// a row without a type badge; ExtraColumn renders one cell too many.
type Variant struct {
	Badge       string
	Version     string
	Arch        string
	MinOS       string
	DPI         string
	ExtraColumn bool
}

// Site is the fake. Fields may be changed between requests, not during them.
type Site struct {
	*httptest.Server

	Releases        []Release
	Variants        map[string][]Variant
	MalformedBlocks int

	OmitLandmark       bool
	OmitDownloadButton bool
	OmitFinalMarker    bool
	RequireSession     bool

	Payload           []byte
	OmitContentLength bool
	TruncateFile      bool
	FailVariants      []int // variant rows whose file route answers 500

	mu        sync.Mutex
	hits      map[string]int
	lastQuery string
}

// New starts a site with two stable releases, one beta, and a variant table of
// four typed rows plus one unbadged row per release. It is closed on cleanup.
func New(t testing.TB) *Site {
	t.Helper()

	s := &Site{
		Releases: []Release{
			{Title: "Example App 2.0.0", Slug: "example-app-2-0-0-release", Version: "2.0.0", Downloads: "1,204", FileSize: "45.10 MB", Uploaded: "October 1, 2026 at 10:00AM UTC"},
			{Title: "Example App 2.0.0-beta", Slug: "example-app-2-0-0-beta-release", Version: "2.0.0-beta", Downloads: "310", FileSize: "45.02 MB", Uploaded: "September 20, 2026 at 8:12PM UTC"},
			{Title: "Example App 1.9.0", Slug: "example-app-1-9-0-release", Version: "1.9.0", Downloads: "18,331", FileSize: "44.87 MB", Uploaded: "August 2, 2026 at 3:40PM UTC"},
		},
		Variants:        map[string][]Variant{},
		MalformedBlocks: 2,
		RequireSession:  true,
		Payload:         []byte("PK\x03\x04fake-apk-payload"),
		hits:            map[string]int{},
	}
	for _, r := range s.Releases {
		s.Variants[r.Slug] = DefaultVariants(r.Version)
	}

	s.Server = httptest.NewTLSServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// DefaultVariants is the table New uses for every release.
func DefaultVariants(version string) []Variant {
	return []Variant{
		{Badge: "APK", Version: version, Arch: "arm64-v8a", MinOS: "Android 8.0+", DPI: "nodpi"},
		{Badge: "APK", Version: version, Arch: "armeabi-v7a", MinOS: "Android 8.0+", DPI: "nodpi"},
		{Badge: "BUNDLE", Version: version, Arch: "arm64-v8a + armeabi-v7a", MinOS: "Android 8.0+", DPI: "nodpi"},
		{Badge: "APK", Version: version, Arch: "x86_64", MinOS: "Android 9.0+", DPI: "120-640dpi"},
		{Version: version, Arch: "arm64-v8a", MinOS: "Android 8.0+", DPI: "nodpi"},
	}
}

// Config returns a client config pointed at the site with rate limiting and
// caching off. Pair it with Transport so the test certificate is trusted.
func (s *Site) Config() models.ClientConfig {
	cfg := models.DefaultClientConfig()
	cfg.BaseURL = s.URL
	cfg.RateLimit = 0
	cfg.MaxAge = 0
	cfg.CacheDir = ""
	return cfg
}

// Transport trusts the site's self-signed certificate.
func (s *Site) Transport() *http.Transport {
	return s.Client().Transport.(*http.Transport)
}

// Hits reports how many requests a route kind has served: "landing",
// "search", "release", "variant", "interstitial" or "file".
func (s *Site) Hits(kind string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[kind]
}

// LastQuery is the most recent search term received.
func (s *Site) LastQuery() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastQuery
}

// FileURL is the binary URL the resolver should end at for row n of a release.
func (s *Site) FileURL(slug string, n int) string {
	return s.URL + filePath(slug, n)
}

// ReleaseURL is the absolute release page URL for slug.
func (s *Site) ReleaseURL(slug string) string {
	return s.URL + releasePath(slug)
}

func (s *Site) hit(kind string) {
	s.mu.Lock()
	s.hits[kind]++
	s.mu.Unlock()
}

func (s *Site) serve(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if path == "/" {
		if q := r.URL.Query().Get("s"); q != "" {
			if !s.authorized(w, r) {
				return
			}
			s.hit("search")
			s.mu.Lock()
			s.lastQuery = q
			s.mu.Unlock()
			s.html(w, searchPage(s.Releases, s.MalformedBlocks))
			return
		}
		s.hit("landing")
		http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "warm", Path: "/"})
		s.html(w, landingPage())
		return
	}

	if !s.authorized(w, r) {
		return
	}

	if path == filePrefix {
		s.serveFile(w, r)
		return
	}

	if !strings.HasPrefix(path, releasePrefix) {
		http.NotFound(w, r)
		return
	}
	parts := strings.Split(strings.Trim(strings.TrimPrefix(path, releasePrefix), "/"), "/")
	slug := parts[0]
	release, ok := s.release(slug)
	if !ok {
		http.NotFound(w, r)
		return
	}

	switch len(parts) {
	case 1:
		s.hit("release")
		s.html(w, releasePage(release, s.Variants[slug]))
	case 2, 3:
		n, err := strconv.Atoi(strings.TrimPrefix(parts[1], "variant-"))
		if err != nil || n < 0 || n >= len(s.Variants[slug]) {
			http.NotFound(w, r)
			return
		}
		if len(parts) == 2 {
			s.hit("variant")
			s.html(w, variantPage(slug, n, !s.OmitDownloadButton))
			return
		}
		if parts[2] != "download" {
			http.NotFound(w, r)
			return
		}
		s.hit("interstitial")
		s.html(w, interstitialPage(slug, n, !s.OmitFinalMarker))
	default:
		http.NotFound(w, r)
	}
}

func (s *Site) serveFile(w http.ResponseWriter, r *http.Request) {
	s.hit("file")
	if n, err := strconv.Atoi(r.URL.Query().Get("variant")); err == nil && slices.Contains(s.FailVariants, n) {
		http.Error(w, "storage unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.android.package-archive")

	switch {
	case s.TruncateFile:
		w.Header().Set("Content-Length", strconv.Itoa(len(s.Payload)+1024))
		w.WriteHeader(http.StatusOK)
		w.Write(s.Payload)
	case s.OmitContentLength:
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		w.Write(s.Payload)
	default:
		w.Header().Set("Content-Length", strconv.Itoa(len(s.Payload)))
		w.WriteHeader(http.StatusOK)
		w.Write(s.Payload)
	}
}

func (s *Site) authorized(w http.ResponseWriter, r *http.Request) bool {
	if !s.RequireSession {
		return true
	}
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return true
	}
	http.Error(w, "session required", http.StatusForbidden)
	return false
}

func (s *Site) release(slug string) (Release, bool) {
	for _, r := range s.Releases {
		if r.Slug == slug {
			return r, true
		}
	}
	return Release{}, false
}

func (s *Site) html(w http.ResponseWriter, page string) {
	if s.OmitLandmark {
		page = strings.Replace(page, `<button class="searchButton" type="submit"></button>`, "", 1)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, page)
}
