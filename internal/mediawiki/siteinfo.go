package mediawiki

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/offcache/wikicache/internal/domain"
)

// Site describes a remote wiki: its display name and installed
// extensions. Used to verify TextExtracts is available before a wiki is
// accepted as a content source.
type Site struct {
	Name       string
	Extensions []string
}

// HasExtension reports whether the named extension is installed.
func (s *Site) HasExtension(name string) bool {
	for _, ext := range s.Extensions {
		if ext == name {
			return true
		}
	}
	return false
}

type siteInfoResponse struct {
	Query struct {
		General struct {
			SiteName string `json:"sitename"`
		} `json:"general"`
		Extensions []struct {
			Name string `json:"name"`
		} `json:"extensions"`
	} `json:"query"`
}

// SiteInfo fetches general metadata and the extension list for a wiki.
func (c *Client) SiteInfo(ctx context.Context, wiki *domain.Wiki) (*Site, error) {
	reqURL, err := apiURL(wiki.APIURL, url.Values{
		"action": {"query"},
		"meta":   {"siteinfo"},
		"siprop": {"general|extensions"},
		"format": {"json"},
	})
	if err != nil {
		return nil, err
	}

	data, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var res siteInfoResponse
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("mediawiki: decode siteinfo response: %w", err)
	}

	site := &Site{Name: res.Query.General.SiteName}
	for _, ext := range res.Query.Extensions {
		site.Extensions = append(site.Extensions, ext.Name)
	}
	return site, nil
}
