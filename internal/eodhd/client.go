// Package eodhd talks to an EODHD-style end-of-day price service: daily
// bars per ticker and exchange/symbol directory listings.
package eodhd

import (
	"context"
	"fmt"

	"resty.dev/v3"

	"pricepool/internal/fetcher"
	"pricepool/internal/ratelimit"
)

// client holds what the price and directory clients share.
type client struct {
	apiKey  string
	http    *resty.Client
	limiter *ratelimit.Limiter
}

func newClient(apiKey, baseURL string, limiter *ratelimit.Limiter, opts fetcher.ClientOptions) client {
	return client{
		apiKey:  apiKey,
		http:    fetcher.NewHTTPClient(baseURL, opts),
		limiter: limiter,
	}
}

// get performs a rate-limited JSON GET and decodes a 2xx body into result.
func (c client) get(ctx context.Context, api ratelimit.API, path string, pathParams, query map[string]string, result any) error {
	if err := c.limiter.Wait(ctx, api); err != nil {
		return fetcher.Classify(err)
	}

	params := map[string]string{
		"api_token": c.apiKey,
		"fmt":       "json",
	}
	for k, v := range query {
		params[k] = v
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParams(pathParams).
		SetQueryParams(params).
		SetResult(result).
		Get(path)

	if err != nil {
		return fetcher.TransportError(ctx, err)
	}

	if !resp.IsSuccess() {
		return fetcher.ClassifyHTTPError(resp.StatusCode())
	}

	return nil
}

// Ticker returns the service's ticker notation, SYMBOL.EXCHANGE.
func Ticker(symbol, exchange string) string {
	return fmt.Sprintf("%s.%s", symbol, exchange)
}
