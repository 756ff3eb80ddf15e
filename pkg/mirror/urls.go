package mirror

import (
	"fmt"
	"net/url"
	"strings"
)

// AbsoluteURL resolves href against the site base. Absolute hrefs are returned as-is.
func AbsoluteURL(base *url.URL, href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", fmt.Errorf("empty href")
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("invalid href %q: %w", href, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	return base.ResolveReference(ref).String(), nil
}

// SearchURL builds the site's package search URL for query.
func SearchURL(base *url.URL, query string) string {
	u := *base
	u.Path = "/"
	u.RawQuery = url.Values{
		"post_type":  {"app_release"},
		"searchtype": {"apk"},
		"s":          {query},
	}.Encode()
	u.Fragment = ""
	return u.String()
}

// IsPageURL tells a release page URL apart from a free-text query.
func IsPageURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
