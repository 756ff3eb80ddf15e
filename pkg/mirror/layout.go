package mirror

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Selectors for the site's markup. The exact-attribute forms ([class='...']) are
// intentional: the site reuses the same classes in combination elsewhere.
const (
	siteLandmarkSelector = "button[class='searchButton']"

	listWidgetSelector   = "div.listWidget"
	resultBlockSelector  = "div:not([class])"
	titleLinkSelector    = "a[class='fontBlack']"
	infoPanelSelector    = "div.infoSlide.t-height"
	infoPairSelector     = "p"
	infoNameSelector     = "span.infoSlide-name"
	infoValueSelector    = "span.infoSlide-value"

	variantRowSelector    = "div[class='table-row headerFont']"
	variantCellSelector   = "div[class='table-cell rowheight addseparator expand pad dowrap']"
	variantBadgeSelector  = "span.apkm-badge"
	variantAnchorSelector = "a[class='accent_color']"

	downloadButtonSelector = "a.accent_bg.btn.btn-flat.downloadButton"
	finalLinkSelector      = "a[rel='nofollow'][data-google-vignette='false']"
)

// Info panel labels routed into ReleaseSummary fields.
const (
	labelVersion   = "Version"
	labelDownloads = "Downloads"
	labelFileSize  = "File Size"
	labelUploaded  = "Uploaded"
)

// Variant table columns.
const (
	ColumnVariant      = "variant"
	ColumnArchitecture = "architecture"
	ColumnMinOS        = "min_os"
	ColumnDensity      = "density"
	ColumnDownload     = "download"
)

// RowLayout names the direct div children of a variant table row, in order.
// A row whose child count differs from the layout width is rejected rather
// than read with shifted columns.
type RowLayout struct {
	Version string
	Columns []string
}

// VariantRowLayoutV1 is the variant table as the site renders it.
var VariantRowLayoutV1 = RowLayout{
	Version: "v1",
	Columns: []string{ColumnVariant, ColumnArchitecture, ColumnMinOS, ColumnDensity, ColumnDownload},
}

func (l RowLayout) Width() int {
	return len(l.Columns)
}

func (l RowLayout) index(column string) int {
	for i, c := range l.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

func (l RowLayout) landmark() string {
	return fmt.Sprintf("variant row with %d columns (layout %s: %s)", l.Width(), l.Version, strings.Join(l.Columns, ", "))
}

// rowFields reads the text of the named columns of one row.
func (l RowLayout) rowFields(row *goquery.Selection) (rowFields, bool) {
	cells := row.ChildrenFiltered("div")
	if cells.Length() != l.Width() {
		return rowFields{}, false
	}
	text := func(column string) string {
		i := l.index(column)
		if i < 0 {
			return ""
		}
		return strings.TrimSpace(cells.Eq(i).Text())
	}
	return rowFields{
		architecture: text(ColumnArchitecture),
		minOS:        text(ColumnMinOS),
		density:      text(ColumnDensity),
	}, true
}

type rowFields struct {
	architecture string
	minOS        string
	density      string
}
