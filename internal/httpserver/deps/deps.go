package deps

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/offcache/wikicache/internal/cache"
	"github.com/offcache/wikicache/internal/connectivity"
	"github.com/offcache/wikicache/internal/logger"
	"github.com/offcache/wikicache/internal/mediawiki"
	redisstore "github.com/offcache/wikicache/internal/store/redis"
	"github.com/offcache/wikicache/internal/store/sqlite"
)

type Deps struct {
	Logger       logger.Logger
	StartTime    time.Time
	Version      string
	Commit       string
	BuildDate    string
	GoVersion    string
	TimeNow      func() time.Time // for testing, defaults to time.Now
	AllowedHosts []string         // Host headers allowed to access the server
	AllowedCIDRS []string         // IPs allowed to access healthz/readyz endpoints
	TrustProxy   bool             // true if running behind a trusted reverse proxy (e.g., cloudflared)

	Store          *sqlite.Store            // article and wiki persistence
	Resolver       *cache.Resolver          // freshness decisions for article reads
	Searcher       *cache.Searcher          // cache/online search routing
	Accountant     *cache.Accountant        // per-wiki storage usage
	Oracle         connectivity.Oracle      // online/offline verdicts
	MediaWiki      *mediawiki.Client        // remote API client (wiki validation on create)
	RedisClient    *redis.Client            // nil when the search result cache is disabled
	SearchCache    *redisstore.SearchCache  // nil when the search result cache is disabled
	RefreshTrigger chan struct{}            // Channel to trigger a manual starred refresh
}
