package testutil

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"

	"pricepool/internal/fetcher"
	"pricepool/internal/task"
)

// MockFetcher is a mock implementation of the PriceFetcher interface for testing
type MockFetcher struct {
	FetchFunc func(ctx context.Context, exchange, symbol, date string) (float64, error)

	mu    sync.Mutex
	calls []task.Task
}

// Fetch implements the PriceFetcher interface
func (m *MockFetcher) Fetch(ctx context.Context, exchange, symbol, date string) (float64, error) {
	m.mu.Lock()
	m.calls = append(m.calls, task.Task{Exchange: exchange, Symbol: symbol, Date: date})
	m.mu.Unlock()

	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, exchange, symbol, date)
	}
	return 0, nil
}

// Calls returns every task the mock was asked to fetch, in call order
func (m *MockFetcher) Calls() []task.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]task.Task(nil), m.calls...)
}

// NewMockFetcher creates a simple mock fetcher that always returns the same value
func NewMockFetcher(value float64, err error) *MockFetcher {
	return &MockFetcher{
		FetchFunc: func(ctx context.Context, exchange, symbol, date string) (float64, error) {
			return value, err
		},
	}
}

// HashPrice is the deterministic price used by fake fetchers:
// fnv32a(exchange|symbol|date) mod 10000.
func HashPrice(exchange, symbol, date string) float64 {
	h := fnv.New32a()
	fmt.Fprintf(h, "%s|%s|%s", exchange, symbol, date)
	return float64(h.Sum32() % 10000)
}

// NewHashFetcher returns a fetcher that prices every task with HashPrice and
// fails for each task listed in failFor.
func NewHashFetcher(failFor ...task.Task) *MockFetcher {
	failing := make(map[task.Task]bool, len(failFor))
	for _, t := range failFor {
		failing[t] = true
	}
	return &MockFetcher{
		FetchFunc: func(ctx context.Context, exchange, symbol, date string) (float64, error) {
			if failing[task.Task{Exchange: exchange, Symbol: symbol, Date: date}] {
				return 0, fetcher.NewValidationError(fmt.Sprintf("no price for %s.%s on %s", symbol, exchange, date))
			}
			return HashPrice(exchange, symbol, date), nil
		},
	}
}
