package mediawiki

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/offcache/wikicache/internal/domain"
	"github.com/offcache/wikicache/internal/logger"
)

type loginTokenResponse struct {
	Query struct {
		Tokens struct {
			LoginToken string `json:"logintoken"`
		} `json:"tokens"`
	} `json:"query"`
}

type loginResponse struct {
	Login struct {
		Result string `json:"result"`
	} `json:"login"`
}

// LogIn authenticates against a private wiki and keeps the session in
// the client's cookie jar. Requires wiki.AuthUsername/AuthPassword.
func (c *Client) LogIn(ctx context.Context, wiki *domain.Wiki) error {
	if !wiki.RequiresAuth() {
		return fmt.Errorf("mediawiki: wiki %q has no credentials configured", wiki.Name)
	}

	// step 1: obtain a login token
	tokenURL, err := apiURL(wiki.APIURL, url.Values{
		"action": {"query"},
		"meta":   {"tokens"},
		"type":   {"login"},
		"format": {"json"},
	})
	if err != nil {
		return err
	}

	data, err := c.get(ctx, tokenURL)
	if err != nil {
		return err
	}

	var tokenRes loginTokenResponse
	if err := json.Unmarshal(data, &tokenRes); err != nil {
		return fmt.Errorf("mediawiki: decode login token: %w", err)
	}
	token := tokenRes.Query.Tokens.LoginToken
	if token == "" {
		return fmt.Errorf("mediawiki: empty login token from %s", wiki.APIURL)
	}

	// step 2: log in with the token
	loginURL, err := apiURL(wiki.APIURL, url.Values{
		"action": {"login"},
		"format": {"json"},
	})
	if err != nil {
		return err
	}

	data, err = c.postForm(ctx, loginURL, url.Values{
		"lgname":     {wiki.AuthUsername},
		"lgpassword": {wiki.AuthPassword},
		"lgtoken":    {token},
	})
	if err != nil {
		return err
	}

	var loginRes loginResponse
	if err := json.Unmarshal(data, &loginRes); err != nil {
		return fmt.Errorf("mediawiki: decode login response: %w", err)
	}
	if loginRes.Login.Result != "Success" {
		return fmt.Errorf("mediawiki: login to %q failed: %s", wiki.Name, loginRes.Login.Result)
	}

	c.logger.Info("logged in to wiki",
		logger.String("wiki", wiki.Name),
		logger.String("user", wiki.AuthUsername))
	return nil
}

// LoggedIn reports whether the cookie jar holds a session for the
// wiki's user. Cookie names differ across MediaWiki versions and
// instances, so the username is searched in the cookie values.
func (c *Client) LoggedIn(wiki *domain.Wiki) bool {
	u, err := url.Parse(wiki.APIURL)
	if err != nil {
		return false
	}

	for _, cookie := range c.http.Jar.Cookies(u) {
		if cookie.Value == wiki.AuthUsername {
			return true
		}
	}
	return false
}
