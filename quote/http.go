package quote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/fxledger"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// HTTP reads a quote from a JSON document served over HTTP. Values are
// located with jsonpath expressions.
type HTTP struct {
	Client   *http.Client
	URL      string
	Currency string // cost currency of the prices
	BuyPath  string // e.g. "$.USDBRL.ask"
	SellPath string // e.g. "$.USDBRL.bid"
	TimePath string // optional, unix seconds or RFC 3339
}

// AwesomeAPI returns a feed for the public economia.awesomeapi.com.br service.
func AwesomeAPI(asset, currency string) *HTTP {
	pair := asset + currency
	return &HTTP{
		URL:      fmt.Sprintf("https://economia.awesomeapi.com.br/json/last/%s-%s", asset, currency),
		Currency: currency,
		BuyPath:  "$." + pair + ".ask",
		SellPath: "$." + pair + ".bid",
		TimePath: "$." + pair + ".timestamp",
	}
}

func (h *HTTP) CurrentPrice(ctx context.Context) (fxledger.Quote, error) {
	client := h.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	var jobj any
	if err := jwget(ctx, client, h.URL, &jobj); err != nil {
		return fxledger.Quote{}, fmt.Errorf("cannot get quote: %w", err)
	}

	q := fxledger.Quote{Timestamp: time.Now().UTC()}
	var err error
	if q.Buy, err = h.money(h.BuyPath, jobj); err != nil {
		return fxledger.Quote{}, err
	}
	if q.Sell, err = h.money(h.SellPath, jobj); err != nil {
		return fxledger.Quote{}, err
	}
	if h.TimePath != "" {
		if ts, err := timestamp(h.TimePath, jobj); err != nil {
			logrus.WithError(err).Debug("quote has no usable timestamp")
		} else {
			q.Timestamp = ts
		}
	}
	if !q.Mark().IsPositive() {
		return fxledger.Quote{}, fmt.Errorf("quote from %s has no positive price", h.URL)
	}
	return q, nil
}

func (h *HTTP) money(path string, jobj any) (fxledger.Money, error) {
	if path == "" {
		return fxledger.Money{}, nil
	}
	d, err := number(path, jobj)
	if err != nil {
		return fxledger.Money{}, err
	}
	return fxledger.M(d, h.Currency), nil
}

// lookup evaluates path. jsonpath is never clear about whether it returns a
// list of 1 answer, or a single answer: the first one is kept.
func lookup(path string, jobj any) (any, error) {
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return nil, fmt.Errorf("error parsing %q: %w", path, err)
	}
	if jlist, ok := jval.([]any); ok {
		if len(jlist) == 0 {
			return nil, fmt.Errorf("no value at %q", path)
		}
		jval = jlist[0]
	}
	return jval, nil
}

// number reads a decimal. Some services return numbers as strings, sometimes
// with a decimal comma.
func number(path string, jobj any) (decimal.Decimal, error) {
	jval, err := lookup(path, jobj)
	if err != nil {
		return decimal.Zero, err
	}
	switch v := jval.(type) {
	case json.Number:
		return decimal.NewFromString(v.String())
	case float64:
		return decimal.NewFromFloat(v), nil
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(v), ",", ".")
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, fmt.Errorf("value at %q is an invalid number %q: %w", path, v, err)
		}
		return d, nil
	default:
		return decimal.Zero, fmt.Errorf("value at %q is neither a number nor a string: %v", path, jval)
	}
}

func timestamp(path string, jobj any) (time.Time, error) {
	jval, err := lookup(path, jobj)
	if err != nil {
		return time.Time{}, err
	}
	if s, ok := jval.(string); ok {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t.UTC(), nil
		}
		if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.Unix(secs, 0).UTC(), nil
		}
		return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
	}
	d, err := number(path, jobj)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(d.IntPart(), 0).UTC(), nil
}

// jwget performs an HTTP GET request and decodes the JSON response into data,
// keeping numbers exact.
func jwget(ctx context.Context, client *http.Client, addr string, data any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	logrus.WithFields(logrus.Fields{
		"host":   resp.Request.URL.Host,
		"path":   resp.Request.URL.Path,
		"status": resp.Status,
	}).Debug("GET")
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cannot http GET %v%v: %v", resp.Request.URL.Host, resp.Request.URL.Path, resp.Status)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(resp.Body, 1<<20)); err != nil {
		return err
	}
	dec := json.NewDecoder(&buf)
	dec.UseNumber()
	return dec.Decode(data)
}
