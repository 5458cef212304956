package quote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/etnz/fxledger"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const awesomeBody = `{"USDBRL":{"code":"USD","codein":"BRL","bid":"5.4312","ask":"5.4345","timestamp":"1735689600"}}`

func TestHTTP_CurrentPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/json/last/USD-BRL", r.URL.Path)
		_, _ = w.Write([]byte(awesomeBody))
	}))
	defer srv.Close()

	feed := AwesomeAPI("USD", "BRL")
	feed.URL = srv.URL + "/json/last/USD-BRL"

	q, err := feed.CurrentPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "5.4312", q.Sell.Decimal().String())
	assert.Equal(t, "5.4345", q.Buy.Decimal().String())
	assert.Equal(t, "BRL", q.Sell.Currency())
	assert.True(t, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC).Equal(q.Timestamp), "timestamp %v", q.Timestamp)
	assert.True(t, q.Mark().Equal(q.Sell))
}

func TestHTTP_NumbersAndCommas(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"last":5.1},{"last":"5,25"}]}`))
	}))
	defer srv.Close()

	feed := &HTTP{URL: srv.URL, Currency: "BRL", SellPath: "$.data[0].last", BuyPath: "$.data[1].last"}
	q, err := feed.CurrentPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "5.1", q.Sell.Decimal().String())
	assert.Equal(t, "5.25", q.Buy.Decimal().String())
}

func TestHTTP_Errors(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{}`},
		{name: "not json", status: http.StatusOK, body: `<html>`},
		{name: "missing value", status: http.StatusOK, body: `{"USDBRL":{}}`},
		{name: "not a number", status: http.StatusOK, body: `{"USDBRL":{"bid":"n/a","ask":"n/a"}}`},
		{name: "zero price", status: http.StatusOK, body: `{"USDBRL":{"bid":"0","ask":"0"}}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()
			feed := AwesomeAPI("USD", "BRL")
			feed.URL = srv.URL
			_, err := feed.CurrentPrice(context.Background())
			assert.Error(t, err)
		})
	}
}

// flaky is a feed that fails when err is set.
type flaky struct {
	calls int
	price float64
	err   error
}

func (f *flaky) CurrentPrice(context.Context) (fxledger.Quote, error) {
	f.calls++
	if f.err != nil {
		return fxledger.Quote{}, f.err
	}
	p := fxledger.M(f.price, "BRL")
	return fxledger.Quote{Buy: p, Sell: p, Timestamp: time.Unix(int64(f.calls), 0)}, nil
}

func TestCache(t *testing.T) {
	ctx := context.Background()
	src := &flaky{price: 5}
	c := NewCache(src, time.Minute)
	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	// Nothing cached yet and the source fails: the error is returned.
	src.err = errors.New("offline")
	_, err := c.CurrentPrice(ctx)
	require.Error(t, err)

	src.err = nil
	q, err := c.CurrentPrice(ctx)
	require.NoError(t, err)
	assert.False(t, q.Stale)

	// Fresh value is served without calling the source.
	now = now.Add(30 * time.Second)
	src.price = 6
	q, err = c.CurrentPrice(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
	assert.True(t, q.Sell.Equal(fxledger.M(5, "BRL")))

	// Expired and the source fails: last known value, marked stale.
	now = now.Add(time.Minute)
	src.err = errors.New("offline")
	q, err = c.CurrentPrice(ctx)
	require.NoError(t, err)
	assert.True(t, q.Stale)
	assert.True(t, q.Sell.Equal(fxledger.M(5, "BRL")))

	// Source is back.
	src.err = nil
	q, err = c.CurrentPrice(ctx)
	require.NoError(t, err)
	assert.False(t, q.Stale)
	assert.True(t, q.Sell.Equal(fxledger.M(6, "BRL")))
}

func TestFixed(t *testing.T) {
	f := NewFixed(fxledger.M(5.5, "BRL"))
	q, err := f.CurrentPrice(context.Background())
	require.NoError(t, err)
	assert.True(t, q.Mark().Equal(fxledger.M(5.5, "BRL")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.CurrentPrice(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

// A failed price feed values the position at 0 and never fails the ledger.
func TestMarkPrice_FeedFailure(t *testing.T) {
	ctx := context.Background()
	l, err := fxledger.New("USD", "BRL")
	require.NoError(t, err)
	_, err = l.AddLot(ctx, fxledger.LotInput{Period: fxledger.NewPeriod(2025, 1), Units: fxledger.Q(10), UnitCost: fxledger.M(5, "BRL")})
	require.NoError(t, err)

	price := fxledger.MarkPrice(ctx, &Fixed{Err: errors.New("offline")})
	assert.Nil(t, price)
	v := l.UnrealizedValue(price)
	assert.False(t, v.Priced)
	assert.True(t, v.MarketValue.IsZero())

	price = fxledger.MarkPrice(ctx, NewFixed(fxledger.M(6, "BRL")))
	require.NotNil(t, price)
	v = l.UnrealizedValue(price)
	assert.True(t, v.MarketValue.Equal(fxledger.M(60, "BRL")))
	assert.True(t, v.UnrealizedGain.Equal(fxledger.M(10, "BRL")))
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	src := &flaky{price: 5}
	key := "fxledger:test:" + ulid.Make().String()
	r := NewRedis(src, addr, key, time.Minute)
	t.Cleanup(func() { r.Client.Del(ctx, key, key+":last") })

	q, err := r.CurrentPrice(ctx)
	require.NoError(t, err)
	assert.True(t, q.Sell.Equal(fxledger.M(5, "BRL")))

	src.price = 6
	q, err = r.CurrentPrice(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls, "fresh value must come from redis")
	assert.True(t, q.Sell.Equal(fxledger.M(5, "BRL")))

	r.Client.Del(ctx, key)
	src.err = errors.New("offline")
	q, err = r.CurrentPrice(ctx)
	require.NoError(t, err)
	assert.True(t, q.Stale)
}
