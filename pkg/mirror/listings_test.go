package mirror

import (
	"context"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/downapk/internal/sitetest"
)

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("failed to parse fixture: %v", err)
	}
	return doc
}

const listingFixture = `<html><body>
<div class="listWidget">
  <div class="widgetHeader">Results</div>
  <div>
    <a class="fontBlack" href="/apk/acme/app/app-3-1-0-release/">Acme App 3.1.0</a>
    <div class="infoSlide t-height">
      <p><span class="infoSlide-name">Version:</span><span class="infoSlide-value"> 3.1.0 </span></p>
      <p><span class="infoSlide-name">Downloads:</span><span class="infoSlide-value">9,001</span></p>
      <p><span class="infoSlide-name">File Size:</span><span class="infoSlide-value">12.3 MB</span></p>
      <p><span class="infoSlide-name">Uploaded:</span><span class="infoSlide-value">May 1, 2026</span></p>
      <p><span class="infoSlide-name">Unknown:</span><span class="infoSlide-value">dropped</span></p>
      <p><span class="infoSlide-value">no name</span></p>
    </div>
  </div>
  <div>
    <a class="fontBlack" href="/apk/acme/app/app-3-0-0-release/">Acme App 3.0.0</a>
    <div class="infoSlide t-height">
      <p><span class="infoSlide-name">Version:</span><span class="infoSlide-value">3.0.0</span></p>
    </div>
  </div>
  <div>
    <a class="fontBlack">No href</a>
    <div class="infoSlide t-height"></div>
  </div>
  <div>
    <a class="fontBlack extra" href="/apk/acme/app/wrong-class/">Wrong class</a>
    <div class="infoSlide t-height"></div>
  </div>
  <div class="pagination"><a class="fontBlack" href="/page/2/">Next</a><div class="infoSlide t-height"></div></div>
</div>
<div class="listWidget">
  <div><a class="fontBlack" href="/apk/other/">Other widget</a><div class="infoSlide t-height"></div></div>
</div>
</body></html>`

func TestExtractListings(t *testing.T) {
	base := mustParse(t, "https://www.apkmirror.com")
	doc := parseDoc(t, listingFixture)

	got := ExtractListings(doc, base, "")
	if len(got) != 2 {
		t.Fatalf("ExtractListings() returned %d results, want 2: %+v", len(got), got)
	}

	first := got[0]
	if first.Title != "Acme App 3.1.0" {
		t.Errorf("Title = %q", first.Title)
	}
	if first.Link != "https://www.apkmirror.com/apk/acme/app/app-3-1-0-release/" {
		t.Errorf("Link = %q, want absolute URL", first.Link)
	}
	if first.Version != "3.1.0" {
		t.Errorf("Version = %q, want trimmed 3.1.0", first.Version)
	}
	if first.Downloads != "9,001" || first.FileSize != "12.3 MB" || first.Uploaded != "May 1, 2026" {
		t.Errorf("info fields not routed: %+v", first)
	}

	second := got[1]
	if second.Version != "3.0.0" {
		t.Errorf("Version = %q, want 3.0.0", second.Version)
	}
	if second.Downloads != "" || second.FileSize != "" || second.Uploaded != "" {
		t.Errorf("absent labels should stay empty: %+v", second)
	}
}

func TestExtractListings_VersionFilter(t *testing.T) {
	base := mustParse(t, "https://www.apkmirror.com")
	doc := parseDoc(t, listingFixture)

	tests := []struct {
		name   string
		filter string
		want   int
	}{
		{name: "no filter", filter: "", want: 2},
		{name: "exact", filter: "3.0.0", want: 1},
		{name: "prefix is not a match", filter: "3.1", want: 0},
		{name: "whitespace matters", filter: " 3.1.0", want: 0},
		{name: "unknown", filter: "9.9.9", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractListings(doc, base, tt.filter)
			if len(got) != tt.want {
				t.Fatalf("ExtractListings(%q) returned %d, want %d", tt.filter, len(got), tt.want)
			}
			for _, r := range got {
				if r.Version != tt.filter {
					t.Errorf("result version %q does not equal filter %q", r.Version, tt.filter)
				}
			}
		})
	}
}

func TestExtractListings_NoWidget(t *testing.T) {
	base := mustParse(t, "https://www.apkmirror.com")
	doc := parseDoc(t, `<html><body><div class="other"><div><a class="fontBlack" href="/x/">x</a></div></div></body></html>`)

	got := ExtractListings(doc, base, "")
	if got == nil {
		t.Fatal("ExtractListings() returned nil, want empty slice")
	}
	if len(got) != 0 {
		t.Errorf("ExtractListings() returned %d results, want 0", len(got))
	}
}

func TestClient_Search(t *testing.T) {
	site := sitetest.New(t)
	site.MalformedBlocks = 5
	c := newSiteClient(t, site)

	got, err := c.Search(context.Background(), "com.example.app", "")
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(got) != len(site.Releases) {
		t.Fatalf("Search() returned %d results, want %d", len(got), len(site.Releases))
	}
	for i, r := range got {
		if r.Title != site.Releases[i].Title {
			t.Errorf("result %d title = %q, want %q (site order)", i, r.Title, site.Releases[i].Title)
		}
		if r.Link != site.ReleaseURL(site.Releases[i].Slug) {
			t.Errorf("result %d link = %q", i, r.Link)
		}
	}
	if site.LastQuery() != "com.example.app" {
		t.Errorf("site saw query %q", site.LastQuery())
	}
}

func TestClient_SearchVersionFilter(t *testing.T) {
	site := sitetest.New(t)
	c := newSiteClient(t, site)

	got, err := c.Search(context.Background(), "com.example.app", "2.0.0")
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Search() returned %d results, want exactly the 2.0.0 release", len(got))
	}
	if got[0].Version != "2.0.0" {
		t.Errorf("Version = %q, want 2.0.0", got[0].Version)
	}

	none, err := c.Search(context.Background(), "com.example.app", "0.0.1")
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("Search() with unmatched version = %v, want empty slice", none)
	}
}

func TestClient_SearchWithoutLandmark(t *testing.T) {
	site := sitetest.New(t)
	c := newSiteClient(t, site)
	site.OmitLandmark = true

	_, err := c.Search(context.Background(), "com.example.app", "")
	if !IsSiteChange(err) {
		t.Fatalf("Search() error = %v, want structural mismatch", err)
	}
}
