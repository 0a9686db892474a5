package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"pricepool/internal/aggregate"
	"pricepool/internal/alphavantage"
	"pricepool/internal/config"
	"pricepool/internal/coordinator"
	"pricepool/internal/eodhd"
	"pricepool/internal/fetcher"
	"pricepool/internal/ratelimit"
	"pricepool/internal/task"
	"pricepool/internal/tradingday"
)

// symbolLister enumerates the symbols of an exchange
type symbolLister interface {
	ListSymbols(ctx context.Context, exchange string) ([]eodhd.Symbol, error)
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	})))

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	// Bound the whole run, directory listing included
	runCtx, runCancel := context.WithTimeout(ctx, cfg.RunTimeout)
	defer runCancel()

	limiter := ratelimit.New(cfg.Limits())
	opts := fetcher.ClientOptions{RetryCount: cfg.RetryCount}
	prices := newPriceFetcher(cfg, limiter, opts)
	directory := eodhd.NewDirectoryClient(cfg.APIKey, cfg.BaseURL, limiter, opts)

	tasks, err := buildTasks(runCtx, cfg, directory)
	if err != nil {
		log.Fatalf("Failed to enumerate tasks: %v", err)
	}

	coord := coordinator.New(prices, cfg.Pool(), slog.Default())

	fmt.Printf("Fetching %d closing prices from %s with %d workers...\n", len(tasks), cfg.Provider, cfg.Workers)
	fmt.Println("================================================")
	result, report, err := coord.Run(runCtx, tasks)
	if err != nil {
		log.Fatalf("Coordinator failed: %v", err)
	}

	printResult(os.Stdout, result)

	fmt.Println("================================================")
	fmt.Printf("Run %s: %d tasks, %d failed, %d abandoned in %v\n",
		report.RunID, report.Tasks, report.Failed, report.Abandoned, report.Duration)
	if !report.Complete() {
		fmt.Println("Run was interrupted; abandoned prices are shown as n/a.")
	}
}

// newPriceFetcher returns the price collaborator for the configured provider
func newPriceFetcher(cfg *config.Config, limiter *ratelimit.Limiter, opts fetcher.ClientOptions) fetcher.PriceFetcher {
	if cfg.Provider == config.ProviderAlphaVantage {
		return alphavantage.NewDailyFetcher(cfg.AlphaVantageAPIKey, cfg.AlphaVantageURL, limiter, opts)
	}
	return eodhd.NewPriceClient(cfg.APIKey, cfg.BaseURL, limiter, opts)
}

// buildTasks resolves dates and symbols and returns the task set, one
// exchange × dates × symbols product per exchange.
func buildTasks(ctx context.Context, cfg *config.Config, lister symbolLister) ([]task.Task, error) {
	var tasks []task.Task
	for _, exchange := range cfg.Exchanges {
		dates := cfg.Dates
		if len(dates) == 0 {
			var err error
			dates, err = tradingday.Range(exchange, cfg.StartDate, cfg.EndDate)
			if err != nil {
				return nil, fmt.Errorf("failed to expand dates for %s: %w", exchange, err)
			}
		}

		symbols := cfg.Symbols
		if len(symbols) == 0 {
			listed, err := lister.ListSymbols(ctx, exchange)
			if err != nil {
				return nil, fmt.Errorf("failed to list symbols for %s: %w", exchange, err)
			}
			symbols = eodhd.Codes(listed, cfg.SymbolTypes, cfg.SymbolLimit)
			slog.Info("symbols listed from directory",
				"exchange", exchange,
				"listed", len(listed),
				"selected", len(symbols))
		}

		tasks = append(tasks, task.Product([]string{exchange}, dates, symbols)...)
	}
	return tasks, nil
}

// printResult writes the nested result, n/a for absent prices
func printResult(w io.Writer, result aggregate.Result) {
	for _, exchange := range result.Exchanges() {
		fmt.Fprintln(w, exchange)
		for _, date := range result.Dates(exchange) {
			fmt.Fprintf(w, "  %s\n", date)
			for _, symbol := range result.Symbols(exchange, date) {
				if price, ok, _ := result.Lookup(exchange, date, symbol); ok {
					fmt.Fprintf(w, "    %s: $%.2f\n", symbol, price)
				} else {
					fmt.Fprintf(w, "    %s: n/a\n", symbol)
				}
			}
		}
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
