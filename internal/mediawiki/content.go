package mediawiki

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/offcache/wikicache/internal/domain"
)

// PageContent is the expensive full fetch: extracted plain text, the
// canonical browser URL and the thumbnail reference (empty when the
// page has no image). Thumbnail bytes are fetched separately via
// FetchBytes.
type PageContent struct {
	Extract  string
	FullURL  string
	ThumbURL string
}

type contentResponse struct {
	Query struct {
		Pages []struct {
			Missing   bool   `json:"missing"`
			Extract   string `json:"extract"`
			FullURL   string `json:"fullurl"`
			Thumbnail struct {
				Source string `json:"source"`
			} `json:"thumbnail"`
		} `json:"pages"`
	} `json:"query"`
}

// PageContent fetches the full extract for pageID. Requires the
// TextExtracts extension on the remote wiki (checked when a wiki is
// added, via SiteInfo). Empty result sets return ErrPageMissing.
func (c *Client) PageContent(ctx context.Context, wiki *domain.Wiki, pageID int64) (*PageContent, error) {
	reqURL, err := apiURL(wiki.APIURL, url.Values{
		"action":        {"query"},
		"prop":          {"extracts|info|pageimages"},
		"explaintext":   {"1"},
		"inprop":        {"url"},
		"pilicense":     {"any"},
		"pithumbsize":   {strconv.Itoa(c.thumbSize)},
		"format":        {"json"},
		"formatversion": {"2"},
		"pageids":       {strconv.FormatInt(pageID, 10)},
	})
	if err != nil {
		return nil, err
	}

	data, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var res contentResponse
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("mediawiki: decode content response: %w", err)
	}

	if len(res.Query.Pages) == 0 || res.Query.Pages[0].Missing {
		return nil, ErrPageMissing
	}
	page := res.Query.Pages[0]

	return &PageContent{
		Extract:  page.Extract,
		FullURL:  page.FullURL,
		ThumbURL: page.Thumbnail.Source,
	}, nil
}
