package domain

import "fmt"

// SearchSource selects where a search is executed.
type SearchSource string

const (
	// SearchAuto picks online when the connectivity oracle says so,
	// cache otherwise. The check happens once at call time.
	SearchAuto SearchSource = "auto"
	// SearchCacheOnly matches cached titles, never touches the network.
	SearchCacheOnly SearchSource = "cache"
	// SearchOnlineOnly delegates to the remote search API.
	SearchOnlineOnly SearchSource = "online"
)

// ParseSearchSource maps a query-string value to a SearchSource.
// An empty value defaults to SearchAuto.
func ParseSearchSource(s string) (SearchSource, error) {
	switch s {
	case "", "auto":
		return SearchAuto, nil
	case "cache":
		return SearchCacheOnly, nil
	case "online":
		return SearchOnlineOnly, nil
	default:
		return "", fmt.Errorf("unknown search source %q", s)
	}
}
