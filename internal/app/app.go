package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/offcache/wikicache/internal/cache"
	"github.com/offcache/wikicache/internal/config"
	"github.com/offcache/wikicache/internal/connectivity"
	"github.com/offcache/wikicache/internal/httpserver"
	"github.com/offcache/wikicache/internal/httpserver/deps"
	"github.com/offcache/wikicache/internal/logger"
	"github.com/offcache/wikicache/internal/mediawiki"
	"github.com/offcache/wikicache/internal/redis"
	"github.com/offcache/wikicache/internal/scheduler"
	"github.com/offcache/wikicache/internal/sources/seedfile"
	"github.com/offcache/wikicache/internal/store/notify"
	redisstore "github.com/offcache/wikicache/internal/store/redis"
	"github.com/offcache/wikicache/internal/store/sqlite"
	"github.com/offcache/wikicache/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	store       *sqlite.Store
	redisClient *goredis.Client
	refresher   *scheduler.StarredRefresher
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Open the article store - fail fast if the database is unusable
	store, err := sqlite.Open(cfg.DBPath, notify.NewBroker(), sqlite.DefaultProtected)
	if err != nil {
		loggerClient.Errorf("Failed to open database at %s: %v", cfg.DBPath, err)
		os.Exit(1)
	}
	loggerClient.Info("database opened", logger.String("path", cfg.DBPath))

	ctx := context.Background()
	if err := store.Seed(ctx); err != nil {
		loggerClient.Errorf("Failed to seed default wiki: %v", err)
		os.Exit(1)
	}

	// Seed additional wikis from file (if configured)
	if cfg.SeedFile != "" {
		if err := seedWikis(ctx, cfg.SeedFile, store, loggerClient); err != nil {
			loggerClient.Errorf("Failed to seed wikis from %s: %v", cfg.SeedFile, err)
			os.Exit(1)
		}
	}

	// Redis is optional: without it the daemon runs fine, repeated
	// online searches just re-hit the remote.
	var redisClient *goredis.Client
	var searchCache *redisstore.SearchCache
	if cfg.RedisAddr != "" {
		loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		redisClient, err = redis.New(redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, loggerClient)
		if err != nil {
			loggerClient.Errorf("Failed to connect to Redis: %v", err)
			os.Exit(1)
		}
		searchCache = redisstore.NewSearchCache(redisClient, cfg.SearchCacheTTL)
		loggerClient.Info("Redis search result cache initialized")
	} else {
		loggerClient.Info("Redis not configured, search result cache disabled")
	}

	mwClient := mediawiki.NewClient(cfg.HTTPTimeout, cfg.ThumbSize, cfg.UserAgent, loggerClient)
	oracle := connectivity.NewHTTPOracle(
		cfg.ConnectivityURL, cfg.ConnectivityTimeout, cfg.ConnectivityTTL, loggerClient)

	resolver := cache.NewResolver(store, mwClient, cfg.CacheTTL, loggerClient)

	var resultCache cache.ResultCache
	if searchCache != nil {
		resultCache = searchCache
	}
	searcher := cache.NewSearcher(store, mwClient, oracle, resultCache, loggerClient)
	accountant := cache.NewAccountant(store, store.Broker(), loggerClient)

	// Create manual refresh trigger channel
	refreshTrigger := make(chan struct{}, 1)

	refresher := scheduler.NewStarredRefresher(
		store,
		resolver,
		oracle,
		loggerClient,
		cfg.StarredRefreshInterval,
		refreshTrigger,
	)

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:         loggerClient,
		StartTime:      time.Now(),
		Version:        version.Version,
		Commit:         version.Commit,
		BuildDate:      version.BuildDate,
		GoVersion:      version.GoVersion,
		TimeNow:        time.Now,
		AllowedHosts:   cfg.AllowedHosts,
		AllowedCIDRS:   cfg.AllowedCIDRS,
		TrustProxy:     cfg.TrustProxy,
		Store:          store,
		Resolver:       resolver,
		Searcher:       searcher,
		Accountant:     accountant,
		Oracle:         oracle,
		MediaWiki:      mwClient,
		RedisClient:    redisClient,
		SearchCache:    searchCache,
		RefreshTrigger: refreshTrigger,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		store:       store,
		redisClient: redisClient,
		refresher:   refresher,
	}
}

// seedWikis upserts every wiki from the seed file. Name collisions with
// already-registered wikis resolve in favor of the file.
func seedWikis(ctx context.Context, path string, store *sqlite.Store, log logger.Logger) error {
	config, err := seedfile.NewLoader(path).Load()
	if err != nil {
		return err
	}
	wikis, err := seedfile.NewMapper().MapWikis(config)
	if err != nil {
		return err
	}

	for _, wiki := range wikis {
		if err := store.UpsertWiki(ctx, wiki); err != nil {
			return fmt.Errorf("seed wiki %q: %w", wiki.Name, err)
		}
	}
	log.Info("wikis seeded from file",
		logger.String("file", path),
		logger.Int("count", len(wikis)))
	return nil
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting wikicache v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("wikicache %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start starred refresher (periodic re-validation of starred articles)
	if err := a.refresher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start starred refresher: %w", err)
	}
	a.logger.Info("starred refresher started",
		logger.Duration("interval", a.cfg.StarredRefreshInterval))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	a.refresher.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	if err := a.store.Close(); err != nil {
		a.logger.Warnf("failed to close database: %v", err)
	} else {
		a.logger.Info("✅ Database closed cleanly")
	}

	a.logger.Info("✅ wikicache stopped cleanly")
	return nil
}
