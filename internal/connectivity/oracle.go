package connectivity

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/offcache/wikicache/internal/logger"
	"github.com/offcache/wikicache/internal/utils"
)

// Oracle answers the single question routing logic keeps asking: can we
// reach the network right now? Implementations must be safe for
// concurrent use.
type Oracle interface {
	Online(ctx context.Context) bool
}

// HTTPOracle probes a well-known endpoint with a HEAD request and
// caches the verdict for a short window so that bursts of lookups do
// not each pay a network round trip.
type HTTPOracle struct {
	client   *http.Client
	probeURL string
	ttl      time.Duration
	logger   logger.Logger
	now      func() time.Time

	mu        sync.Mutex
	verdict   bool
	checkedAt time.Time
}

// NewHTTPOracle builds an oracle probing probeURL. A verdict is reused
// for ttl before the endpoint is probed again.
func NewHTTPOracle(probeURL string, timeout, ttl time.Duration, log logger.Logger) *HTTPOracle {
	return &HTTPOracle{
		client:   &http.Client{Timeout: timeout},
		probeURL: probeURL,
		ttl:      ttl,
		logger:   log,
		now:      time.Now,
	}
}

// Online reports whether the probe endpoint answered recently. Any
// HTTP response counts as online; only transport errors count as
// offline.
func (o *HTTPOracle) Online(ctx context.Context) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.checkedAt.IsZero() && o.now().Sub(o.checkedAt) < o.ttl {
		return o.verdict
	}

	o.verdict = o.probe(ctx)
	o.checkedAt = o.now()
	return o.verdict
}

func (o *HTTPOracle) probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, o.probeURL, nil)
	if err != nil {
		o.logger.Error("connectivity probe request", logger.Error(err))
		return false
	}

	res, err := o.client.Do(req)
	if err != nil {
		o.logger.Debug("connectivity probe failed", logger.Error(err))
		return false
	}
	utils.Close(res.Body)
	return true
}

// Static is a fixed-verdict oracle, used in tests and in deployments
// that pin the daemon to one mode.
type Static bool

func (s Static) Online(context.Context) bool { return bool(s) }
