// Package alphavantage prices tasks from AlphaVantage's daily time series.
// One series request covers every date of a ticker, so series are cached
// per ticker for the lifetime of the fetcher.
package alphavantage

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"resty.dev/v3"

	"pricepool/internal/fetcher"
	"pricepool/internal/ratelimit"
)

// defaultRequestTimeout bounds one shared series request, which outlives
// the per-fetch deadline of the caller that started it.
const defaultRequestTimeout = 30 * time.Second

// suffixByExchange maps price-service exchange codes to AlphaVantage ticker
// suffixes. US listings take no suffix.
var suffixByExchange = map[string]string{
	"US":     "",
	"NYSE":   "",
	"NASDAQ": "",
	"LSE":    "LON",
	"XETRA":  "DEX",
	"TO":     "TRT",
	"V":      "TRV",
	"SHG":    "SHH",
	"SHE":    "SHZ",
	"BSE":    "BSE",
}

// Bar is one day of the daily series
type Bar struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

// DailySeriesResponse represents the AlphaVantage API response for TIME_SERIES_DAILY
type DailySeriesResponse struct {
	MetaData struct {
		Information   string `json:"1. Information"`
		Symbol        string `json:"2. Symbol"`
		LastRefreshed string `json:"3. Last Refreshed"`
	} `json:"Meta Data"`
	Series map[string]Bar `json:"Time Series (Daily)"`

	// Errors and throttling arrive with status 200.
	ErrorMessage string `json:"Error Message"`
	Note         string `json:"Note"`
	Information  string `json:"Information"`
}

// DailyFetcher fetches closing prices from AlphaVantage. It implements
// fetcher.PriceFetcher.
type DailyFetcher struct {
	apiKey         string
	client         *resty.Client
	limiter        *ratelimit.Limiter
	requestTimeout time.Duration

	group  singleflight.Group
	mu     sync.RWMutex
	series map[string]map[string]Bar
}

// NewDailyFetcher creates a new closing price fetcher
func NewDailyFetcher(apiKey, baseURL string, limiter *ratelimit.Limiter, opts fetcher.ClientOptions) *DailyFetcher {
	return &DailyFetcher{
		apiKey:         apiKey,
		client:         fetcher.NewHTTPClient(baseURL, opts),
		limiter:        limiter,
		requestTimeout: defaultRequestTimeout,
		series:         make(map[string]map[string]Bar),
	}
}

// Ticker returns the AlphaVantage ticker for symbol on exchange. Unknown
// exchanges are passed through as the suffix.
func Ticker(symbol, exchange string) string {
	suffix, ok := suffixByExchange[strings.ToUpper(exchange)]
	if !ok {
		suffix = exchange
	}
	if suffix == "" {
		return symbol
	}
	return symbol + "." + suffix
}

// Fetch retrieves the closing price of symbol on exchange for date
func (f *DailyFetcher) Fetch(ctx context.Context, exchange, symbol, date string) (float64, error) {
	ticker := Ticker(symbol, exchange)

	series, err := f.load(ctx, ticker)
	if err != nil {
		return 0, err
	}

	bar, ok := series[date]
	if !ok || bar.Close == "" {
		return 0, fetcher.NewValidationError(fmt.Sprintf("price not found in response for %s on %s", ticker, date))
	}

	price, err := strconv.ParseFloat(bar.Close, 64)
	if err != nil {
		return 0, fetcher.NewValidationError(fmt.Sprintf("failed to parse close %q for %s on %s", bar.Close, ticker, date))
	}
	if price <= 0 {
		return 0, fetcher.NewValidationError(fmt.Sprintf("non-positive close %v for %s on %s", price, ticker, date))
	}

	return price, nil
}

// load returns the cached series of ticker, requesting it once even when
// several workers ask at the same time. Failures are not cached.
//
// The shared request is detached from any one caller's context and bounded
// by requestTimeout instead; each caller stops waiting when its own ctx ends.
func (f *DailyFetcher) load(ctx context.Context, ticker string) (map[string]Bar, error) {
	f.mu.RLock()
	series, ok := f.series[ticker]
	f.mu.RUnlock()
	if ok {
		return series, nil
	}

	ch := f.group.DoChan(ticker, func() (any, error) {
		f.mu.RLock()
		cached, ok := f.series[ticker]
		f.mu.RUnlock()
		if ok {
			return cached, nil
		}

		reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.requestTimeout)
		defer cancel()

		series, err := f.request(reqCtx, ticker)
		if err != nil {
			return nil, err
		}
		f.mu.Lock()
		f.series[ticker] = series
		f.mu.Unlock()
		return series, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(map[string]Bar), nil
	case <-ctx.Done():
		return nil, fetcher.TransportError(ctx, ctx.Err())
	}
}

func (f *DailyFetcher) request(ctx context.Context, ticker string) (map[string]Bar, error) {
	if err := f.limiter.Wait(ctx, ratelimit.APIPrices); err != nil {
		return nil, fetcher.Classify(err)
	}

	var result DailySeriesResponse
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"apikey":     f.apiKey,
			"function":   "TIME_SERIES_DAILY",
			"symbol":     ticker,
			"outputsize": "full",
		}).
		SetResult(&result).
		Get("")

	if err != nil {
		return nil, fetcher.TransportError(ctx, err)
	}

	if !resp.IsSuccess() {
		return nil, fetcher.ClassifyHTTPError(resp.StatusCode())
	}

	switch {
	case result.ErrorMessage != "":
		return nil, fetcher.NewClientError(http.StatusBadRequest, result.ErrorMessage)
	case result.Note != "", result.Information != "" && result.Series == nil:
		return nil, fetcher.NewRateLimitError(http.StatusTooManyRequests)
	case len(result.Series) == 0:
		return nil, fetcher.NewValidationError(fmt.Sprintf("empty daily series for %s", ticker))
	}

	return result.Series, nil
}
