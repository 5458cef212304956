package quote

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/etnz/fxledger"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Redis is a Cache whose values live in Redis, so that several processes
// share the same time to live. Key holds the fresh quote (with expiry) and
// Key+":last" the last known one (without).
type Redis struct {
	Source fxledger.PriceFeed
	Client redis.Cmdable
	Key    string
	TTL    time.Duration
}

// NewRedis connects to addr and caches source under key.
func NewRedis(source fxledger.PriceFeed, addr, key string, ttl time.Duration) *Redis {
	return &Redis{
		Source: source,
		Client: redis.NewClient(&redis.Options{Addr: addr}),
		Key:    key,
		TTL:    ttl,
	}
}

func (r *Redis) CurrentPrice(ctx context.Context) (fxledger.Quote, error) {
	q, found, err := r.get(ctx, r.Key)
	if err != nil {
		logrus.WithError(err).Warn("quote cache unavailable")
	}
	if found {
		return q, nil
	}

	q, err = r.Source.CurrentPrice(ctx)
	if err != nil {
		last, found, lerr := r.get(ctx, r.Key+":last")
		if lerr != nil || !found {
			return fxledger.Quote{}, err
		}
		return staleQuote(last, err), nil
	}

	data, merr := json.Marshal(q)
	if merr != nil {
		return q, nil
	}
	if err := r.Client.Set(ctx, r.Key, data, r.TTL).Err(); err != nil {
		logrus.WithError(err).Warn("cannot cache quote")
		return q, nil
	}
	if err := r.Client.Set(ctx, r.Key+":last", data, 0).Err(); err != nil {
		logrus.WithError(err).Warn("cannot cache quote")
	}
	return q, nil
}

func (r *Redis) get(ctx context.Context, key string) (fxledger.Quote, bool, error) {
	val, err := r.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return fxledger.Quote{}, false, nil
	}
	if err != nil {
		return fxledger.Quote{}, false, err
	}
	var q fxledger.Quote
	if err := json.Unmarshal(val, &q); err != nil {
		return fxledger.Quote{}, false, err
	}
	return q, true, nil
}
