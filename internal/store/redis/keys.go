package redis

import "fmt"

const (
	// KeyPrefixSearch is the prefix for cached remote search results.
	KeyPrefixSearch = "wikicache:search:"
)

// SearchKey returns the Redis key for one remote search request.
// Query is part of the key verbatim; MediaWiki search is case-folded
// remotely, so the caller lowercases before keying.
func SearchKey(wikiID int64, query string, limit int) string {
	return fmt.Sprintf("%s%d:%d:%s", KeyPrefixSearch, wikiID, limit, query)
}
