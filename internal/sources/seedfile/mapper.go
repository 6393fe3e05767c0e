package seedfile

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/offcache/wikicache/internal/domain"
)

// Mapper converts seed file entries to domain wikis
type Mapper struct{}

// NewMapper creates a new seed mapper
func NewMapper() *Mapper {
	return &Mapper{}
}

// MapWikis converts a SeedConfig to a domain.Wiki slice. Entries
// without a name or with an unusable API URL are rejected rather than
// skipped: a broken seed file should fail loudly at startup.
func (m *Mapper) MapWikis(config *SeedConfig) ([]*domain.Wiki, error) {
	wikis := make([]*domain.Wiki, 0, len(config.Wikis))

	for i, entry := range config.Wikis {
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			return nil, fmt.Errorf("seed entry %d has no name", i)
		}
		if err := validateAPIURL(entry.APIURL); err != nil {
			return nil, fmt.Errorf("seed entry %q: %w", name, err)
		}

		wikis = append(wikis, &domain.Wiki{
			Name:         name,
			APIURL:       entry.APIURL,
			AuthUsername: entry.Username,
			AuthPassword: entry.Password,
		})
	}

	return wikis, nil
}

func validateAPIURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid api_url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api_url %q must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("api_url %q has no host", raw)
	}
	return nil
}
