// Package config loads the settings of the fx command line tool.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/etnz/fxledger"
	"github.com/etnz/fxledger/persist"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Environment variables overriding the configuration file.
const (
	EnvAsset       = "FX_ASSET"
	EnvCurrency    = "FX_CURRENCY"
	EnvBackend     = "FX_STORAGE"
	EnvPath        = "FX_PATH"
	EnvQuoteSource = "FX_QUOTE_SOURCE"
	EnvPrice       = "FX_PRICE"
	EnvRedisAddr   = "FX_REDIS_ADDR"
	EnvLogLevel    = "FX_LOG_LEVEL"
	EnvLogFormat   = "FX_LOG_FORMAT"
	EnvGeminiModel = "FX_GEMINI_MODEL"
)

// Quote sources.
const (
	SourceNone       = "none"
	SourceFixed      = "fixed"
	SourceAwesomeAPI = "awesomeapi"
	SourceHTTP       = "http"
)

// Config is the complete configuration of a ledger.
type Config struct {
	Asset    string        `json:"asset" yaml:"asset"`
	Currency string        `json:"currency" yaml:"currency"`
	Storage  StorageConfig `json:"storage" yaml:"storage"`
	Quote    QuoteConfig   `json:"quote" yaml:"quote"`
	Log      LogConfig     `json:"log" yaml:"log"`
	Assist   AssistConfig  `json:"assist" yaml:"assist"`
}

// StorageConfig selects the persistence gateway.
type StorageConfig struct {
	Backend string `json:"backend" yaml:"backend"` // memory, jsonl or sqlite
	Path    string `json:"path" yaml:"path"`
}

// QuoteConfig selects the price feed.
type QuoteConfig struct {
	Source    string `json:"source" yaml:"source"`
	Price     string `json:"price,omitempty" yaml:"price,omitempty"` // for the fixed source
	URL       string `json:"url,omitempty" yaml:"url,omitempty"`
	BuyPath   string `json:"buy_path,omitempty" yaml:"buy_path,omitempty"`
	SellPath  string `json:"sell_path,omitempty" yaml:"sell_path,omitempty"`
	TimePath  string `json:"time_path,omitempty" yaml:"time_path,omitempty"`
	TTL       string `json:"ttl" yaml:"ttl"` // e.g. "5m"
	RedisAddr string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"`
}

// LogConfig configures the logrus logger.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // text or json
}

// AssistConfig configures the assistant.
type AssistConfig struct {
	Model string `json:"model" yaml:"model"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Asset:    "USD",
		Currency: "BRL",
		Storage:  StorageConfig{Backend: persist.BackendJSONL, Path: ".fxledger"},
		Quote:    QuoteConfig{Source: SourceAwesomeAPI, TTL: "5m"},
		Log:      LogConfig{Level: "warn", Format: "text"},
		Assist:   AssistConfig{Model: "gemini-2.5-pro"},
	}
}

// Load reads the configuration at path on top of the defaults, then applies
// the environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			logrus.WithField("path", path).Debug("no configuration file, using defaults")
		case err != nil:
			return nil, fmt.Errorf("read config file: %w", err)
		default:
			// Try YAML first, fall back to JSON
			if err := yaml.Unmarshal(data, cfg); err != nil {
				cfg = Default()
				if jerr := json.Unmarshal(data, cfg); jerr != nil {
					return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", errors.Join(err, jerr))
				}
			}
		}
	}
	cfg.applyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	for env, field := range map[string]*string{
		EnvAsset:       &c.Asset,
		EnvCurrency:    &c.Currency,
		EnvBackend:     &c.Storage.Backend,
		EnvPath:        &c.Storage.Path,
		EnvQuoteSource: &c.Quote.Source,
		EnvPrice:       &c.Quote.Price,
		EnvRedisAddr:   &c.Quote.RedisAddr,
		EnvLogLevel:    &c.Log.Level,
		EnvLogFormat:   &c.Log.Format,
		EnvGeminiModel: &c.Assist.Model,
	} {
		if v, ok := lookup(env); ok && v != "" {
			*field = v
		}
	}
	c.Asset = strings.ToUpper(c.Asset)
	c.Currency = strings.ToUpper(c.Currency)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error
	if err := fxledger.ValidateCurrency(c.Asset); err != nil {
		errs = append(errs, fmt.Errorf("asset: %w", err))
	}
	if err := fxledger.ValidateCurrency(c.Currency); err != nil {
		errs = append(errs, fmt.Errorf("currency: %w", err))
	}
	if c.Asset == c.Currency {
		errs = append(errs, fmt.Errorf("asset and currency must differ"))
	}
	switch c.Storage.Backend {
	case persist.BackendMemory, persist.BackendJSONL, persist.BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("storage.backend must be memory, jsonl or sqlite, got %q", c.Storage.Backend))
	}
	if c.Storage.Backend != persist.BackendMemory && c.Storage.Path == "" {
		errs = append(errs, fmt.Errorf("storage.path is required"))
	}
	switch c.Quote.Source {
	case SourceNone, SourceAwesomeAPI:
	case SourceFixed:
		if _, err := fxledger.ParseMoney(c.Quote.Price, c.Currency); err != nil {
			errs = append(errs, fmt.Errorf("quote.price: %w", err))
		}
	case SourceHTTP:
		if c.Quote.URL == "" || (c.Quote.BuyPath == "" && c.Quote.SellPath == "") {
			errs = append(errs, fmt.Errorf("quote.url and a buy_path or sell_path are required for the http source"))
		}
	default:
		errs = append(errs, fmt.Errorf("quote.source must be none, fixed, awesomeapi or http, got %q", c.Quote.Source))
	}
	if _, err := c.QuoteTTL(); err != nil {
		errs = append(errs, fmt.Errorf("quote.ttl: %w", err))
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// QuoteTTL returns the time to live of cached quotes.
func (c *Config) QuoteTTL() (time.Duration, error) {
	if c.Quote.TTL == "" {
		return 0, nil
	}
	return time.ParseDuration(c.Quote.TTL)
}

// Logger returns a logger configured by c. verbose forces the debug level.
func (c *Config) Logger(verbose bool) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	if c.Log.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	}
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		level = logrus.WarnLevel
	}
	if verbose {
		level = logrus.DebugLevel
	}
	l.SetLevel(level)
	return l
}

// SaveToFile writes the configuration as YAML, or JSON when path ends with ".json".
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error
	if strings.HasSuffix(path, ".json") {
		data, err = json.MarshalIndent(c, "", "  ")
	} else {
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
