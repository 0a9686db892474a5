package eodhd

import (
	"context"
	"fmt"

	"pricepool/internal/fetcher"
	"pricepool/internal/ratelimit"
)

// Bar represents one row of the end-of-day endpoint
type Bar struct {
	Date          string  `json:"date"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Close         float64 `json:"close"`
	AdjustedClose float64 `json:"adjusted_close"`
	Volume        int64   `json:"volume"`
}

// PriceClient fetches closing prices. It implements fetcher.PriceFetcher.
type PriceClient struct {
	client
}

// NewPriceClient creates a new closing price fetcher
func NewPriceClient(apiKey, baseURL string, limiter *ratelimit.Limiter, opts fetcher.ClientOptions) *PriceClient {
	return &PriceClient{client: newClient(apiKey, baseURL, limiter, opts)}
}

// Fetch retrieves the closing price of symbol on exchange for date
func (c *PriceClient) Fetch(ctx context.Context, exchange, symbol, date string) (float64, error) {
	ticker := Ticker(symbol, exchange)

	var bars []Bar
	err := c.get(ctx, ratelimit.APIPrices, "/eod/{ticker}",
		map[string]string{"ticker": ticker},
		map[string]string{
			"from":   date,
			"to":     date,
			"period": "d",
		},
		&bars,
	)
	if err != nil {
		return 0, err
	}

	for _, bar := range bars {
		if bar.Date != date {
			continue
		}
		if bar.Close <= 0 {
			return 0, fetcher.NewValidationError(fmt.Sprintf("non-positive close %v for %s on %s", bar.Close, ticker, date))
		}
		return bar.Close, nil
	}

	return 0, fetcher.NewValidationError(fmt.Sprintf("price not found in response for %s on %s", ticker, date))
}
