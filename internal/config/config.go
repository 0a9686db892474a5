package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"pricepool/internal/pool"
	"pricepool/internal/ratelimit"
)

// Default values for optional configuration fields.
const (
	DefaultProvider         = ProviderEODHD
	DefaultBaseURL          = "https://eodhd.com/api"
	DefaultAlphaVantageURL  = "https://www.alphavantage.co/query"
	DefaultWorkers          = 4
	DefaultFetchTimeout     = 10 * time.Second
	DefaultRunTimeout       = 5 * time.Minute
	DefaultPriceRate        = 10.0
	// AlphaVantage's free tier allows five calls a minute.
	DefaultAlphaVantageRate = 1.0 / 12.0
	DefaultDirectoryRate    = 1.0
	DefaultRetryCount       = 3
	DefaultLogLevel         = "info"
	DefaultSymbolTypeFilter = "Common Stock"
)

// Price providers selectable with PROVIDER.
const (
	ProviderEODHD        = "eodhd"
	ProviderAlphaVantage = "alphavantage"
)

// Config holds all configuration for the price pool application.
type Config struct {
	// API access. The directory listing always uses EODHD.
	Provider           string `mapstructure:"provider"`
	APIKey             string `mapstructure:"eodhd_api_key"`
	BaseURL            string `mapstructure:"eodhd_base_url"`
	AlphaVantageAPIKey string `mapstructure:"alphavantage_api_key"`
	AlphaVantageURL    string `mapstructure:"alphavantage_base_url"`

	// What to fetch. Symbols are listed from the directory when empty.
	Exchanges   []string `mapstructure:"exchanges"`
	Symbols     []string `mapstructure:"symbols"`
	SymbolTypes []string `mapstructure:"symbol_types"`
	SymbolLimit int      `mapstructure:"symbol_limit"`

	// Dates, either listed or as a trading-day range.
	Dates     []string `mapstructure:"dates"`
	StartDate string   `mapstructure:"start_date"`
	EndDate   string   `mapstructure:"end_date"`

	// Pool and transport tuning
	Workers       int           `mapstructure:"workers"`
	FetchTimeout  time.Duration `mapstructure:"fetch_timeout"`
	RunTimeout    time.Duration `mapstructure:"run_timeout"`
	RetryCount    int           `mapstructure:"retry_count"`
	PriceRate     float64       `mapstructure:"price_rate"`
	DirectoryRate float64       `mapstructure:"directory_rate"`

	LogLevel string `mapstructure:"log_level"`
}

// Pool returns the worker pool configuration.
func (c *Config) Pool() pool.Config {
	return pool.Config{
		Workers:      c.Workers,
		FetchTimeout: c.FetchTimeout,
	}
}

// Limits returns the per-API rate limits.
func (c *Config) Limits() map[ratelimit.API]ratelimit.Limit {
	return map[ratelimit.API]ratelimit.Limit{
		ratelimit.APIPrices:    {PerSecond: c.PriceRate, Burst: 1},
		ratelimit.APIDirectory: {PerSecond: c.DirectoryRate, Burst: 1},
	}
}

// Load reads configuration from environment variables and optional config file.
// Environment variables take precedence over config file values.
//
// Expected environment variables:
//   - EODHD_API_KEY, or ALPHAVANTAGE_API_KEY with PROVIDER=alphavantage
//   - EXCHANGES (comma or space separated)
//   - DATES, or START_DATE and END_DATE
//   - SYMBOLS (optional, listed from the directory when empty)
//   - PROVIDER, EODHD_BASE_URL, ALPHAVANTAGE_BASE_URL, WORKERS, FETCH_TIMEOUT, RUN_TIMEOUT, RETRY_COUNT,
//     PRICE_RATE, DIRECTORY_RATE, SYMBOL_TYPES, SYMBOL_LIMIT, LOG_LEVEL (optional)
func Load() (*Config, error) {
	v := viper.New()

	// Set up environment variable support
	v.SetEnvPrefix("") // No prefix, use full names
	v.AutomaticEnv()

	v.SetDefault("provider", DefaultProvider)
	v.SetDefault("eodhd_base_url", DefaultBaseURL)
	v.SetDefault("alphavantage_base_url", DefaultAlphaVantageURL)
	v.SetDefault("workers", DefaultWorkers)
	v.SetDefault("fetch_timeout", DefaultFetchTimeout)
	v.SetDefault("run_timeout", DefaultRunTimeout)
	v.SetDefault("retry_count", DefaultRetryCount)
	v.SetDefault("directory_rate", DefaultDirectoryRate)
	v.SetDefault("symbol_types", []string{DefaultSymbolTypeFilter})
	v.SetDefault("log_level", DefaultLogLevel)

	// Optionally read from config file if it exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.pricepool")

	// Read config file (ignore if not found)
	_ = v.ReadInConfig()

	for _, key := range []string{
		"provider", "eodhd_api_key", "eodhd_base_url",
		"alphavantage_api_key", "alphavantage_base_url",
		"exchanges", "symbols", "symbol_types", "symbol_limit",
		"dates", "start_date", "end_date",
		"workers", "fetch_timeout", "run_timeout", "retry_count",
		"price_rate", "directory_rate", "log_level",
	} {
		v.BindEnv(key, strings.ToUpper(key))
	}

	// Unmarshal config into struct (handles both simple and complex fields)
	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Env lists arrive as one string; accept commas as separators too.
	config.Provider = strings.ToLower(strings.TrimSpace(config.Provider))
	if !v.IsSet("price_rate") {
		config.PriceRate = defaultPriceRate(config.Provider)
	}
	config.Exchanges = splitList(config.Exchanges)
	config.Symbols = splitList(config.Symbols)
	config.SymbolTypes = splitTypes(config.SymbolTypes)
	config.Dates = splitList(config.Dates)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	var missing []string
	switch c.Provider {
	case ProviderEODHD:
		if c.APIKey == "" {
			missing = append(missing, "EODHD_API_KEY")
		}
	case ProviderAlphaVantage:
		if c.AlphaVantageAPIKey == "" {
			missing = append(missing, "ALPHAVANTAGE_API_KEY")
		}
		// Symbols come from the EODHD directory when not listed.
		if len(c.Symbols) == 0 && c.APIKey == "" {
			missing = append(missing, "SYMBOLS or EODHD_API_KEY")
		}
	default:
		return fmt.Errorf("invalid configuration: unknown provider %q", c.Provider)
	}
	if len(c.Exchanges) == 0 {
		missing = append(missing, "EXCHANGES")
	}
	if len(c.Dates) == 0 && (c.StartDate == "" || c.EndDate == "") {
		missing = append(missing, "DATES or START_DATE/END_DATE")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if err := c.Pool().Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.SymbolLimit < 0 {
		return fmt.Errorf("invalid configuration: symbol_limit must not be negative")
	}
	return nil
}

// defaultPriceRate returns the price request rate a provider's plan allows.
func defaultPriceRate(provider string) float64 {
	if provider == ProviderAlphaVantage {
		return DefaultAlphaVantageRate
	}
	return DefaultPriceRate
}

// splitList flattens entries that hold several comma or space separated
// values and drops empties.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.FieldsFunc(item, func(r rune) bool {
			return r == ',' || r == ' '
		}) {
			out = append(out, part)
		}
	}
	return out
}

// splitTypes is splitList for values that may contain spaces, like
// "Common Stock", so only commas separate.
func splitTypes(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
