package mediawiki

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/url"
	"strconv"
	"strings"

	"github.com/offcache/wikicache/internal/domain"
)

// SearchResult is one ranked hit from the remote keyword search.
// Snippet is plain text; the remote's highlight markup is stripped.
type SearchResult struct {
	PageID  int64
	Title   string
	Snippet string
}

type searchResponse struct {
	Query struct {
		Search []struct {
			PageID  int64  `json:"pageid"`
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
		} `json:"search"`
	} `json:"query"`
}

// SearchTitles runs a keyword search on the remote wiki and returns the
// ranked hits. A non-positive limit leaves the remote default in place.
func (c *Client) SearchTitles(ctx context.Context, wiki *domain.Wiki, query string, limit int) ([]SearchResult, error) {
	params := url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"utf8":     {"1"},
		"format":   {"json"},
		"srsearch": {query},
	}
	if limit > 0 {
		params.Set("srlimit", strconv.Itoa(limit))
	}

	reqURL, err := apiURL(wiki.APIURL, params)
	if err != nil {
		return nil, err
	}

	data, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var res searchResponse
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("mediawiki: decode search response: %w", err)
	}

	results := make([]SearchResult, 0, len(res.Query.Search))
	for _, entry := range res.Query.Search {
		results = append(results, SearchResult{
			PageID:  entry.PageID,
			Title:   entry.Title,
			Snippet: stripHTML(entry.Snippet),
		})
	}
	return results, nil
}

// stripHTML removes markup tags and unescapes entities. Search snippets
// arrive with <span class="searchmatch"> highlights we do not render.
func stripHTML(s string) string {
	if !strings.ContainsRune(s, '<') && !strings.ContainsRune(s, '&') {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return html.UnescapeString(b.String())
}
