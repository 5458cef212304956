// Package cmd implements the fx command line application.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/fxledger"
	"github.com/etnz/fxledger/config"
	"github.com/etnz/fxledger/persist"
	"github.com/etnz/fxledger/quote"
	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

// EnvConfig overrides the default configuration file.
const EnvConfig = "FX_CONFIG"

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var (
	configFile = flag.String("config", defaultConfigFile(), "Path to the configuration file (YAML or JSON)")
	Verbose    = flag.Bool("v", false, "Enable debug logging")
	rawOutput  = flag.Bool("md", false, "Print raw markdown instead of rendering it for the terminal")
)

func defaultConfigFile() string {
	if v, ok := os.LookupEnv(EnvConfig); ok && v != "" {
		return v
	}
	return "fx.yaml"
}

// commands returns every subcommand with its group.
func commands() map[string][]subcommands.Command {
	return map[string][]subcommands.Command{
		"lots":      {&buyCmd{}, &editCmd{}, &rmLotCmd{}, &lotsCmd{}},
		"sales":     {&sellCmd{}, &rmSaleCmd{}, &salesCmd{}},
		"reports":   {&balanceCmd{}, &gainsCmd{}, &driftCmd{}, &quoteCmd{}},
		"data":      {&exportCmd{}, &importCmd{}, &initCmd{}},
		"help":      {&topicCmd{}},
		"assistant": {&assistCmd{}},
	}
}

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	for group, cmds := range commands() {
		for _, cmd := range cmds {
			c.Register(cmd, group)
		}
	}
}

// loadConfig reads the configuration file and configures the loggers.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(*configFile)
	if err != nil {
		return nil, err
	}
	l := cfg.Logger(*Verbose)
	fxledger.SetLogger(l)
	logrus.SetOutput(l.Out)
	logrus.SetFormatter(l.Formatter)
	logrus.SetLevel(l.GetLevel())
	return cfg, nil
}

// session is an opened ledger and the store it is persisted in.
type session struct {
	cfg    *config.Config
	store  persist.Store
	ledger *fxledger.Ledger
}

func openSession(ctx context.Context) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	store, err := persist.Open(cfg.Storage.Backend, cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("could not open storage: %w", err)
	}
	l, err := fxledger.Open(ctx, store, cfg.Asset, cfg.Currency)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("could not load ledger from %s: %w", cfg.Storage.Path, err)
	}
	return &session{cfg: cfg, store: store, ledger: l}, nil
}

func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		logrus.WithError(err).Warn("could not close storage")
	}
}

// openFeed returns the configured price feed, or a fixed one when price is
// set. It returns nil when no source is configured.
func openFeed(cfg *config.Config, price string) (fxledger.PriceFeed, error) {
	if price != "" {
		p, err := fxledger.ParseMoney(price, cfg.Currency)
		if err != nil {
			return nil, fmt.Errorf("invalid price %q: %w", price, err)
		}
		return quote.NewFixed(p), nil
	}

	var src fxledger.PriceFeed
	switch cfg.Quote.Source {
	case config.SourceNone:
		return nil, nil
	case config.SourceFixed:
		p, err := fxledger.ParseMoney(cfg.Quote.Price, cfg.Currency)
		if err != nil {
			return nil, fmt.Errorf("invalid quote.price %q: %w", cfg.Quote.Price, err)
		}
		return quote.NewFixed(p), nil
	case config.SourceAwesomeAPI:
		src = quote.AwesomeAPI(cfg.Asset, cfg.Currency)
	case config.SourceHTTP:
		src = &quote.HTTP{
			URL:      cfg.Quote.URL,
			Currency: cfg.Currency,
			BuyPath:  cfg.Quote.BuyPath,
			SellPath: cfg.Quote.SellPath,
			TimePath: cfg.Quote.TimePath,
		}
	default:
		return nil, fmt.Errorf("unknown quote source %q", cfg.Quote.Source)
	}

	ttl, err := cfg.QuoteTTL()
	if err != nil || ttl == 0 {
		return src, nil
	}
	if cfg.Quote.RedisAddr != "" {
		key := fmt.Sprintf("fxledger:quote:%s-%s", cfg.Asset, cfg.Currency)
		return quote.NewRedis(src, cfg.Quote.RedisAddr, key, ttl), nil
	}
	return quote.NewCache(src, ttl), nil
}

// fetchQuote returns the current quote of feed, or nil when it is unavailable.
func fetchQuote(ctx context.Context, feed fxledger.PriceFeed) *fxledger.Quote {
	if feed == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	q, err := feed.CurrentPrice(ctx)
	if err != nil {
		logrus.WithError(err).Warn("current price unavailable, valuing the position at 0")
		return nil
	}
	return &q
}

// renderMarkdown formats md for the terminal.
func renderMarkdown(md string) string {
	if *rawOutput {
		return md
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err != nil {
		logrus.WithError(err).Debug("cannot create markdown renderer")
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		logrus.WithError(err).Debug("cannot render markdown")
		return md
	}
	return out
}

func printMarkdown(md string) {
	fmt.Print(renderMarkdown(md))
}

// failure prints err and returns the matching exit status. A persistence
// error means the change was not saved.
func failure(err error) subcommands.ExitStatus {
	var perr *fxledger.PersistenceError
	if errors.As(err, &perr) {
		fmt.Fprintf(os.Stderr, "Error: the change was not saved: %v\n", err)
		return subcommands.ExitFailure
	}
	var verr *fxledger.ValidationError
	if errors.As(err, &verr) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return subcommands.ExitFailure
}

// periodOrNow parses s, defaulting to the current month.
func periodOrNow(s string) (fxledger.Period, error) {
	if s == "" {
		return fxledger.PeriodOf(time.Now()), nil
	}
	return fxledger.ParsePeriod(s)
}
