// Package mediawiki speaks the MediaWiki action API: revision probes,
// extract fetches, keyword search, login sessions and site info.
//
// The JSON shapes consumed here (formatversion=2) are dictated by the
// remote service; this package treats them as an external contract.
package mediawiki

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/offcache/wikicache/internal/logger"
	"github.com/offcache/wikicache/internal/utils"
)

// ErrPageMissing reports an empty result set from the remote: the page
// id does not exist (or is hidden) on that wiki.
var ErrPageMissing = errors.New("mediawiki: page not found")

// DefaultThumbSize is the requested thumbnail width when none is configured.
const DefaultThumbSize = 500

// maxResponseBytes caps remote response bodies (thumbnails included).
const maxResponseBytes = 32 << 20

// Client is an HTTP client for MediaWiki sites. It keeps a cookie jar
// so login sessions persist across requests to the same site.
type Client struct {
	http      *http.Client
	userAgent string
	thumbSize int
	logger    logger.Logger
}

// NewClient builds a client with the given per-request timeout.
// thumbSize <= 0 falls back to DefaultThumbSize.
func NewClient(timeout time.Duration, thumbSize int, userAgent string, log logger.Logger) *Client {
	jar, err := cookiejar.New(nil)
	if err != nil {
		// cookiejar.New with nil options cannot fail
		panic(err)
	}
	if thumbSize <= 0 {
		thumbSize = DefaultThumbSize
	}
	if userAgent == "" {
		userAgent = "wikicache/1.0"
	}

	return &Client{
		http: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
		userAgent: userAgent,
		thumbSize: thumbSize,
		logger:    log,
	}
}

// apiURL merges params into the query string of the api.php base URL.
func apiURL(base string, params url.Values) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("mediawiki: parse api url %q: %w", base, err)
	}

	q := u.Query()
	for key, vals := range params {
		for _, v := range vals {
			q.Set(key, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// get performs a GET with the MediaWiki etiquette headers and returns
// the body. Non-2xx responses are errors.
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, rawURL, "", nil)
}

// postForm performs a form POST (used by the login flow).
func (c *Client) postForm(ctx context.Context, rawURL string, form url.Values) ([]byte, error) {
	return c.do(ctx, http.MethodPost, rawURL,
		"application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
}

func (c *Client) do(ctx context.Context, method, rawURL, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("mediawiki: build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mediawiki: %s %s: %w", method, rawURL, err)
	}
	defer utils.Close(res.Body)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, fmt.Errorf("mediawiki: %s %s: unexpected status %d", method, rawURL, res.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("mediawiki: read response: %w", err)
	}
	return data, nil
}

// FetchBytes downloads a raw resource, typically thumbnail image bytes.
func (c *Client) FetchBytes(ctx context.Context, rawURL string) ([]byte, error) {
	return c.get(ctx, rawURL)
}
