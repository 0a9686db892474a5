package eodhd

import (
	"context"
	"slices"

	"pricepool/internal/fetcher"
	"pricepool/internal/ratelimit"
)

// Exchange is one row of the exchanges listing
type Exchange struct {
	Name         string `json:"Name"`
	Code         string `json:"Code"`
	OperatingMIC string `json:"OperatingMIC"`
	Country      string `json:"Country"`
	Currency     string `json:"Currency"`
	CountryISO2  string `json:"CountryISO2"`
}

// Symbol is one row of an exchange's symbol listing
type Symbol struct {
	Code     string `json:"Code"`
	Name     string `json:"Name"`
	Country  string `json:"Country"`
	Exchange string `json:"Exchange"`
	Currency string `json:"Currency"`
	Type     string `json:"Type"`
	Isin     string `json:"Isin"`
}

// DirectoryClient lists exchanges and the symbols traded on them
type DirectoryClient struct {
	client
}

// NewDirectoryClient creates a new directory listing client
func NewDirectoryClient(apiKey, baseURL string, limiter *ratelimit.Limiter, opts fetcher.ClientOptions) *DirectoryClient {
	return &DirectoryClient{client: newClient(apiKey, baseURL, limiter, opts)}
}

// ListExchanges returns every exchange the service covers
func (c *DirectoryClient) ListExchanges(ctx context.Context) ([]Exchange, error) {
	var exchanges []Exchange
	if err := c.get(ctx, ratelimit.APIDirectory, "/exchanges-list/", nil, nil, &exchanges); err != nil {
		return nil, err
	}
	return exchanges, nil
}

// ListSymbols returns every symbol listed on exchange
func (c *DirectoryClient) ListSymbols(ctx context.Context, exchange string) ([]Symbol, error) {
	var symbols []Symbol
	err := c.get(ctx, ratelimit.APIDirectory, "/exchange-symbol-list/{exchange}",
		map[string]string{"exchange": exchange},
		nil,
		&symbols,
	)
	if err != nil {
		return nil, err
	}
	return symbols, nil
}

// Codes returns the codes of symbols whose Type is one of types (all types
// when types is empty), keeping listing order and stopping at limit when
// limit > 0.
func Codes(symbols []Symbol, types []string, limit int) []string {
	var codes []string
	for _, s := range symbols {
		if len(types) > 0 && !slices.Contains(types, s.Type) {
			continue
		}
		codes = append(codes, s.Code)
		if limit > 0 && len(codes) == limit {
			break
		}
	}
	return codes
}
