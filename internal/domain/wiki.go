package domain

// Wiki represents one configured remote MediaWiki site.
//
// Articles are cached per wiki; deleting a wiki cascades to all of its
// cached articles (no orphan article may reference a missing wiki).
type Wiki struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is the canonical unique identifier, assigned by the store.
	ID int64 `json:"id"`

	// ─────────────────────────────
	// Configuration
	// ─────────────────────────────

	// Name is the display name, unique across wikis.
	// Example: Wikipedia
	Name string `json:"name"`

	// APIURL is the base URL of the MediaWiki api.php endpoint.
	// Example: https://en.wikipedia.org/w/api.php
	APIURL string `json:"api_url"`

	// AuthUsername and AuthPassword are optional credentials for
	// private wikis. Empty strings mean anonymous access.
	AuthUsername string `json:"auth_username,omitempty"`
	AuthPassword string `json:"-"`
}

// RequiresAuth reports whether credentials are configured for this wiki.
func (w *Wiki) RequiresAuth() bool {
	return w.AuthUsername != "" && w.AuthPassword != ""
}
