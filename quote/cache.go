package quote

import (
	"context"
	"sync"
	"time"

	"github.com/etnz/fxledger"
	"github.com/sirupsen/logrus"
)

// Cache serves a quote from Source for TTL. When Source fails, the last known
// quote is returned marked Stale.
type Cache struct {
	Source fxledger.PriceFeed
	TTL    time.Duration

	now     func() time.Time
	mu      sync.Mutex
	last    *fxledger.Quote
	fetched time.Time
}

// NewCache wraps source with a cache of the given time to live.
func NewCache(source fxledger.PriceFeed, ttl time.Duration) *Cache {
	return &Cache{Source: source, TTL: ttl, now: time.Now}
}

func (c *Cache) CurrentPrice(ctx context.Context) (fxledger.Quote, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.last != nil && now.Sub(c.fetched) < c.TTL {
		return *c.last, nil
	}
	q, err := c.Source.CurrentPrice(ctx)
	if err != nil {
		if c.last == nil {
			return fxledger.Quote{}, err
		}
		return staleQuote(*c.last, err), nil
	}
	c.last, c.fetched = &q, now
	return q, nil
}

func staleQuote(q fxledger.Quote, cause error) fxledger.Quote {
	logrus.WithError(cause).WithField("timestamp", q.Timestamp).Warn("current price unavailable, using last known value")
	q.Stale = true
	return q
}
