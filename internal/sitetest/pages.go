package sitetest

import (
	"fmt"
	"html"
	"strings"
)

const header = `<html><head><title>APKMirror</title></head><body>
<header><form><input name="s"/><button class="searchButton" type="submit"></button></form></header>
`

const footer = `</body></html>`

func landingPage() string {
	return header + `<div class="listWidget"><div class="widgetHeader">Latest Uploads</div></div>` + footer
}

func searchPage(releases []Release, malformed int) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString(`<div class="listWidget">`)
	b.WriteString(`<div class="widgetHeader search-header">Results</div>`)
	for _, r := range releases {
		fmt.Fprintf(&b, `<div>
  <div class="appRow"><h5 class="appRowTitle"><a class="fontBlack" href="%s">%s</a></h5></div>
  <div class="infoSlide t-height">
    <p><span class="infoSlide-name">Version:</span><span class="infoSlide-value">%s</span></p>
    <p><span class="infoSlide-name">Downloads:</span><span class="infoSlide-value">%s</span></p>
    <p><span class="infoSlide-name">File Size:</span><span class="infoSlide-value">%s</span></p>
    <p><span class="infoSlide-name">Uploaded:</span><span class="infoSlide-value"><span class="datetime_utc">%s</span></span></p>
    <p><span class="infoSlide-name">Signature:</span><span class="infoSlide-value">ignored</span></p>
  </div>
</div>
`, releasePath(r.Slug), html.EscapeString(r.Title), r.Version, r.Downloads, r.FileSize, r.Uploaded)

	}
	for i := 0; i < malformed; i++ {
		if i%2 == 0 {
			// no title anchor
			b.WriteString(`<div><div class="appRow"><h5>No link here</h5></div><div class="infoSlide t-height"><p><span class="infoSlide-name">Version:</span><span class="infoSlide-value">0.0.0</span></p></div></div>`)
		} else {
			// no info panel
			b.WriteString(`<div><div class="appRow"><a class="fontBlack" href="/apk/broken/">Broken</a></div></div>`)
		}
	}
	b.WriteString(`<div class="pagination"><a class="fontBlack" href="/?page=2">Next</a></div>`)
	b.WriteString(`</div>`)
	// a second widget must never be read
	b.WriteString(`<div class="listWidget"><div><a class="fontBlack" href="/apk/other/">Sidebar</a><div class="infoSlide t-height"></div></div></div>`)
	b.WriteString(footer)
	return b.String()
}

func releasePage(r Release, variants []Variant) string {
	var b strings.Builder
	b.WriteString(header)
	fmt.Fprintf(&b, `<h1>%s</h1><div class="variants-table">`, html.EscapeString(r.Title))
	b.WriteString(`<div class="table-row headerFont">
  <div class="table-cell rowheight addseparator expand pad dowrap">Variant</div>
  <div class="table-cell rowheight addseparator expand pad dowrap">Architecture</div>
  <div class="table-cell rowheight addseparator expand pad dowrap">Minimum Version</div>
  <div class="table-cell rowheight addseparator expand pad dowrap">Screen DPI</div>
  <div class="table-cell rowheight addseparator expand pad dowrap"></div>
</div>
`)
	for i, v := range variants {
		badge := ""
		if v.Badge != "" {
			badge = fmt.Sprintf(`<span class="apkm-badge">%s</span>`, v.Badge)
		}
		extra := ""
		if v.ExtraColumn {
			extra = `<div class="table-cell rowheight addseparator expand pad dowrap">extra</div>`
		}
		fmt.Fprintf(&b, `<div class="table-row headerFont">
  <div class="table-cell rowheight addseparator expand pad dowrap"><a class="accent_color" href="%s">%s</a><br/>%s</div>
  <div class="table-cell rowheight addseparator expand pad dowrap">%s</div>
  <div class="table-cell rowheight addseparator expand pad dowrap">%s</div>
  <div class="table-cell rowheight addseparator expand pad dowrap">%s</div>
  <div class="table-cell rowheight addseparator expand pad dowrap"><a class="accent_bg btn btn-flat" href="%s"></a></div>
  %s
</div>
`, variantPath(r.Slug, i), v.Version, badge, v.Arch, v.MinOS, v.DPI, variantPath(r.Slug, i), extra)
	}
	b.WriteString(`</div>`)
	b.WriteString(footer)
	return b.String()
}

func variantPage(slug string, n int, withButton bool) string {
	if !withButton {
		return header + `<div class="notes">Nothing to download</div>` + footer
	}
	return header + fmt.Sprintf(`<a class="accent_bg btn btn-flat downloadButton" href="%s">Download APK</a>`, interstitialPath(slug, n)) + footer
}

func interstitialPage(slug string, n int, withMarker bool) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString(`<a rel="nofollow" href="https://ads.example.invalid/click">Download now</a>`)
	b.WriteString(`<a data-google-vignette="false" href="/not-the-file">Other</a>`)
	if withMarker {
		fmt.Fprintf(&b, `<a rel="nofollow" data-google-vignette="false" href="%s">here</a>`, html.EscapeString(filePath(slug, n)))
	}
	b.WriteString(footer)
	return b.String()
}

func releasePath(slug string) string {
	return "/apk/example/app/" + slug + "/"
}

func variantPath(slug string, n int) string {
	return fmt.Sprintf("/apk/example/app/%s/variant-%d/", slug, n)
}

func interstitialPath(slug string, n int) string {
	return fmt.Sprintf("/apk/example/app/%s/variant-%d/download/", slug, n)
}

func filePath(slug string, n int) string {
	return fmt.Sprintf("/wp-content/themes/APKMirror/download.php?release=%s&variant=%d", slug, n)
}
