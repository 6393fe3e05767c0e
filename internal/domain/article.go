package domain

// ArticleSizeOverhead approximates the per-record cost of the fixed-width
// columns. The storage estimate is user-facing and deliberately ignores
// real storage-engine overhead.
const ArticleSizeOverhead = 5

// Article is the cached snapshot of one remote page for one wiki.
//
// Optional fields use their zero value to mean "never fetched":
// an empty Content means the body was never successfully downloaded,
// a zero RevisionID means the page was never validated against the
// remote, and a nil Thumbnail means no image bytes were fetched (which
// is distinct from "the page has no image").
type Article struct {
	// ─────────────────────────────
	// Identity (immutable, composite key)
	// ─────────────────────────────

	// WikiID references the wiki this article belongs to.
	WikiID int64 `json:"wiki_id"`

	// PageID is the page id used by the MediaWiki API.
	PageID int64 `json:"page_id"`

	// ─────────────────────────────
	// User state
	// ─────────────────────────────

	// Starred marks the article for the user's starred list.
	// Independent of freshness; preserved across refetches.
	Starred bool `json:"starred"`

	// ─────────────────────────────
	// Content
	// ─────────────────────────────

	// Title is the canonical page title. Always non-empty once the
	// article has been resolved at least once (a placeholder is
	// synthesized when the remote never answered).
	Title string `json:"title"`

	// Snippet is a short plain-text preview. Its lifecycle is
	// independent of Content: search results carry a snippet without
	// any body.
	Snippet string `json:"snippet,omitempty"`

	// Content is the full extracted plain text of the page.
	Content string `json:"content,omitempty"`

	// Thumbnail holds cached image bytes.
	Thumbnail []byte `json:"-"`

	// PageURL is the canonical browser URL of the page.
	PageURL string `json:"page_url,omitempty"`

	// ─────────────────────────────
	// Freshness bookkeeping
	// ─────────────────────────────

	// RevisionID is the remote revision last confirmed to match
	// Content. Content is always tagged with the revision it reflects.
	RevisionID int64 `json:"revision_id,omitempty"`

	// CheckedAt is when RevisionID was last confirmed, in ms since
	// epoch. Independent of when Content was fetched.
	CheckedAt int64 `json:"checked_at,omitempty"`
}

// Validated reports whether the article was ever checked against the remote.
func (a *Article) Validated() bool {
	return a.RevisionID != 0
}

// EstimatedSize returns the approximate number of bytes this article
// occupies in the cache. Absent optional fields contribute zero.
func (a *Article) EstimatedSize() int64 {
	return ArticleSizeOverhead +
		int64(len(a.Title)) +
		int64(len(a.Content)) +
		int64(len(a.Snippet)) +
		int64(len(a.PageURL)) +
		int64(len(a.Thumbnail))
}

// StorageEstimate aggregates cache usage over one wiki's articles.
// Derived, never persisted.
type StorageEstimate struct {
	TotalBytes   int64 `json:"total_bytes"`
	ArticleCount int   `json:"article_count"`
}

// EstimateStorage folds the per-article size formula over articles.
func EstimateStorage(articles []*Article) StorageEstimate {
	var est StorageEstimate
	for _, a := range articles {
		est.TotalBytes += a.EstimatedSize()
	}
	est.ArticleCount = len(articles)
	return est
}
