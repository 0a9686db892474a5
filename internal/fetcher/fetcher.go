package fetcher

import "context"

// PriceFetcher is the external collaborator the pool calls for every task.
// Implementations look up the closing price of one symbol on one exchange
// for one calendar date.
type PriceFetcher interface {
	// Fetch returns the closing price for symbol on exchange at date
	// (YYYY-MM-DD). Returns an error if the lookup fails for any reason;
	// the returned price is meaningless in that case.
	Fetch(ctx context.Context, exchange, symbol, date string) (float64, error)
}

// PriceFetcherFunc is a function adapter for PriceFetcher.
type PriceFetcherFunc func(ctx context.Context, exchange, symbol, date string) (float64, error)

// Fetch implements PriceFetcher
func (f PriceFetcherFunc) Fetch(ctx context.Context, exchange, symbol, date string) (float64, error) {
	return f(ctx, exchange, symbol, date)
}
