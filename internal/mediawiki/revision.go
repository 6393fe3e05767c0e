package mediawiki

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/offcache/wikicache/internal/domain"
)

// Revision is the cheap freshness probe result: the latest revision id
// of a page plus its canonical title.
type Revision struct {
	ID    int64
	Title string
}

type revisionResponse struct {
	Query struct {
		Pages []struct {
			PageID    int64  `json:"pageid"`
			Title     string `json:"title"`
			Missing   bool   `json:"missing"`
			Revisions []struct {
				RevID int64 `json:"revid"`
			} `json:"revisions"`
		} `json:"pages"`
	} `json:"query"`
}

// LatestRevision asks the wiki for the newest revision id of pageID.
// An empty or missing result set returns ErrPageMissing. Single
// attempt; retry policy is the caller's concern.
func (c *Client) LatestRevision(ctx context.Context, wiki *domain.Wiki, pageID int64) (*Revision, error) {
	reqURL, err := apiURL(wiki.APIURL, url.Values{
		"action":        {"query"},
		"prop":          {"revisions"},
		"rvlimit":       {"1"},
		"rvprop":        {"ids"},
		"utf8":          {"1"},
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

	var res revisionResponse
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("mediawiki: decode revision response: %w", err)
	}

	if len(res.Query.Pages) == 0 {
		return nil, ErrPageMissing
	}
	page := res.Query.Pages[0]
	if page.Missing || len(page.Revisions) == 0 {
		return nil, ErrPageMissing
	}

	return &Revision{ID: page.Revisions[0].RevID, Title: page.Title}, nil
}
