package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dtnitsch/downapk/models"
)

func newTestFetcher(t *testing.T, baseURL string) *Fetcher {
	t.Helper()

	cfg := models.DefaultClientConfig()
	cfg.BaseURL = baseURL
	cfg.RateLimit = 0
	f, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return f
}

func TestFetcher_SendsHeaderProfile(t *testing.T) {
	var gotUA, gotLang, gotXRW string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotLang = r.Header.Get("Accept-Language")
		gotXRW = r.Header.Get("X-Requested-With")
		w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer srv.Close()

	f := newTestFetcher(t, srv.URL)
	if _, err := f.GetHtmlBytes(context.Background(), srv.URL+"/"); err != nil {
		t.Fatalf("GetHtmlBytes() failed: %v", err)
	}

	if gotUA != models.DefaultUserAgent {
		t.Errorf("User-Agent = %q, want default profile", gotUA)
	}
	if gotLang != models.DefaultAcceptLanguage {
		t.Errorf("Accept-Language = %q, want %q", gotLang, models.DefaultAcceptLanguage)
	}
	if gotXRW != models.DefaultRequestedWith {
		t.Errorf("X-Requested-With = %q, want %q", gotXRW, models.DefaultRequestedWith)
	}
}

func TestFetcher_WarmupCookieIsReused(t *testing.T) {
	var sawCookie bool
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
		w.Write([]byte(`<html><body><button class="searchButton"></button></body></html>`))
	})
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("session"); err == nil && c.Value == "abc" {
			sawCookie = true
		}
		w.Write([]byte("<html></html>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := newTestFetcher(t, srv.URL)
	doc, err := f.Warmup(context.Background())
	if err != nil {
		t.Fatalf("Warmup() failed: %v", err)
	}
	if doc.Find("button.searchButton").Length() != 1 {
		t.Error("Warmup() did not return the landing page")
	}

	if _, err := f.GetHtml(context.Background(), srv.URL+"/page"); err != nil {
		t.Fatalf("GetHtml() failed: %v", err)
	}
	if !sawCookie {
		t.Error("session cookie from warmup was not sent on the next request")
	}
}

func TestFetcher_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	f := newTestFetcher(t, srv.URL)
	_, err := f.GetHtmlBytes(context.Background(), srv.URL+"/x")
	if err == nil {
		t.Fatal("expected error for 403 response")
	}
	if !strings.Contains(err.Error(), "403") {
		t.Errorf("error %q does not mention status code", err)
	}
}

func TestNew_WithSOCKS5Proxy(t *testing.T) {
	cfg := models.DefaultClientConfig()
	cfg.Proxy = "127.0.0.1:9050"
	if _, err := New(cfg, nil); err != nil {
		t.Fatalf("New() with SOCKS5 proxy failed: %v", err)
	}
}

func TestNew_WithTransport(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>secure</body></html>"))
	}))
	defer srv.Close()

	cfg := models.DefaultClientConfig()
	cfg.BaseURL = srv.URL
	cfg.RateLimit = 0

	plain, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if _, err := plain.GetHtmlBytes(context.Background(), srv.URL+"/"); err == nil {
		t.Error("expected certificate error without the test transport")
	}

	f, err := New(cfg, nil, WithTransport(srv.Client().Transport.(*http.Transport)))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	doc, err := f.GetHtml(context.Background(), srv.URL+"/")
	if err != nil {
		t.Fatalf("GetHtml() failed: %v", err)
	}
	if got := strings.TrimSpace(doc.Find("body").Text()); got != "secure" {
		t.Errorf("body = %q, want secure", got)
	}
}

func TestFetcher_CookiesFrozenAfterWarmup(t *testing.T) {
	var gotSession, gotExtra string
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
		w.Write([]byte("<html></html>"))
	})
	mux.HandleFunc("/rotate", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "xyz", Path: "/"})
		http.SetCookie(w, &http.Cookie{Name: "extra", Value: "1", Path: "/"})
		w.Write([]byte("<html></html>"))
	})
	mux.HandleFunc("/check", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("session"); err == nil {
			gotSession = c.Value
		}
		if c, err := r.Cookie("extra"); err == nil {
			gotExtra = c.Value
		}
		w.Write([]byte("<html></html>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := newTestFetcher(t, srv.URL)
	if _, err := f.Warmup(context.Background()); err != nil {
		t.Fatalf("Warmup() failed: %v", err)
	}
	for _, path := range []string{"/rotate", "/check"} {
		if _, err := f.GetHtmlBytes(context.Background(), srv.URL+path); err != nil {
			t.Fatalf("GetHtmlBytes(%s) failed: %v", path, err)
		}
	}

	if gotSession != "abc" {
		t.Errorf("session cookie = %q, want the warmup value", gotSession)
	}
	if gotExtra != "" {
		t.Errorf("cookie set after warmup was stored: extra=%q", gotExtra)
	}
}

// slowBody writes n chunks with a pause between them.
func slowBody(n int, pause time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		flusher := w.(http.Flusher)
		for i := 0; i < n; i++ {
			w.Write([]byte(strings.Repeat("x", 1024)))
			flusher.Flush()
			time.Sleep(pause)
		}
	}
}

func TestFetcher_OpenOutlivesTimeout(t *testing.T) {
	srv := httptest.NewServer(slowBody(6, 100*time.Millisecond))
	defer srv.Close()

	cfg := models.DefaultClientConfig()
	cfg.BaseURL = srv.URL
	cfg.RateLimit = 0
	cfg.Timeout = 250 * time.Millisecond
	f, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if _, err := f.GetHtmlBytes(context.Background(), srv.URL+"/page"); err == nil {
		t.Error("GetHtmlBytes() should be bounded by the timeout")
	}

	resp, err := f.Open(context.Background(), srv.URL+"/file")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading the stream failed: %v", err)
	}
	if len(body) != 6*1024 {
		t.Errorf("read %d bytes, want %d", len(body), 6*1024)
	}
}

func TestFetcher_OpenHeaderTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	cfg := models.DefaultClientConfig()
	cfg.BaseURL = srv.URL
	cfg.RateLimit = 0
	cfg.Timeout = 100 * time.Millisecond
	f, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if _, err := f.Open(context.Background(), srv.URL+"/file"); err == nil {
		t.Error("Open() should fail when headers take longer than the timeout")
	}
}
