package mirror

import (
	"context"
)

// Resolve walks variant page → interstitial page → binary URL.
//
// The site puts an ad/consent page between the "Download" button and the file;
// the real link on it is the nofollow anchor with vignettes disabled. A missing
// landmark at either hop is a structural mismatch. Nothing is retried.
func (c *Client) Resolve(ctx context.Context, variantPageURL string) (string, error) {
	c.logger.Debug("Trying to get download page link", "url", variantPageURL)

	doc, err := c.page(ctx, StageResolveVariant, variantPageURL)
	if err != nil {
		return "", err
	}
	button := doc.Find(downloadButtonSelector).First()
	href, ok := button.Attr("href")
	if button.Length() == 0 || !ok {
		return "", mismatchError(StageResolveVariant, downloadButtonSelector, variantPageURL)
	}
	interstitial, err := AbsoluteURL(c.base, href)
	if err != nil {
		return "", mismatchError(StageResolveVariant, downloadButtonSelector, variantPageURL)
	}

	c.logger.Debug("Found download link page, trying to get final download link", "url", interstitial)
	doc, err = c.page(ctx, StageResolveInterstitial, interstitial)
	if err != nil {
		return "", err
	}
	final := doc.Find(finalLinkSelector).First()
	href, ok = final.Attr("href")
	if final.Length() == 0 || !ok {
		return "", mismatchError(StageResolveInterstitial, finalLinkSelector, interstitial)
	}
	link, err := AbsoluteURL(c.base, href)
	if err != nil {
		return "", mismatchError(StageResolveInterstitial, finalLinkSelector, interstitial)
	}

	c.logger.Debug("Found final download link", "url", link)
	return link, nil
}
