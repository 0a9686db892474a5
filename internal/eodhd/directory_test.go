package eodhd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"pricepool/internal/fetcher"
	"pricepool/internal/ratelimit"
)

const symbolListing = `[
	{"Code": "AAPL", "Name": "Apple Inc", "Country": "USA", "Exchange": "NASDAQ", "Currency": "USD", "Type": "Common Stock", "Isin": "US0378331005"},
	{"Code": "SPY", "Name": "SPDR S&P 500", "Country": "USA", "Exchange": "NYSE ARCA", "Currency": "USD", "Type": "ETF", "Isin": "US78462F1030"},
	{"Code": "MSFT", "Name": "Microsoft Corporation", "Country": "USA", "Exchange": "NASDAQ", "Currency": "USD", "Type": "Common Stock", "Isin": "US5949181045"}
]`

func TestDirectoryClient_ListSymbols(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/exchange-symbol-list/US" {
			t.Errorf("path = %q, want /exchange-symbol-list/US", r.URL.Path)
		}
		if got := r.URL.Query().Get("api_token"); got != "test_key" {
			t.Errorf("api_token = %q, want test_key", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(symbolListing))
	})

	server := httptest.NewServer(handler)
	defer server.Close()

	c := NewDirectoryClient("test_key", server.URL, ratelimit.Unlimited(), noRetry)

	symbols, err := c.ListSymbols(context.Background(), "US")
	if err != nil {
		t.Fatalf("ListSymbols() returned unexpected error: %v", err)
	}
	if len(symbols) != 3 {
		t.Fatalf("ListSymbols() returned %d symbols, want 3", len(symbols))
	}
	if symbols[0].Code != "AAPL" || symbols[0].Type != "Common Stock" {
		t.Errorf("symbols[0] = %+v", symbols[0])
	}
}

func TestDirectoryClient_ListExchanges(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/exchanges-list/" {
			t.Errorf("path = %q, want /exchanges-list/", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"Name": "USA Stocks", "Code": "US", "OperatingMIC": "XNAS, XNYS", "Country": "USA", "Currency": "USD", "CountryISO2": "US"},
			{"Name": "London Exchange", "Code": "LSE", "OperatingMIC": "XLON", "Country": "UK", "Currency": "GBP", "CountryISO2": "GB"}
		]`))
	})

	server := httptest.NewServer(handler)
	defer server.Close()

	c := NewDirectoryClient("test_key", server.URL, ratelimit.Unlimited(), noRetry)

	exchanges, err := c.ListExchanges(context.Background())
	if err != nil {
		t.Fatalf("ListExchanges() returned unexpected error: %v", err)
	}
	if len(exchanges) != 2 || exchanges[1].Code != "LSE" || exchanges[1].OperatingMIC != "XLON" {
		t.Errorf("ListExchanges() = %+v", exchanges)
	}
}

func TestDirectoryClient_ListSymbols_HTTPError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	server := httptest.NewServer(handler)
	defer server.Close()

	c := NewDirectoryClient("test_key", server.URL, ratelimit.Unlimited(), noRetry)

	_, err := c.ListSymbols(context.Background(), "US")
	if !fetcher.IsType(err, fetcher.ErrorTypeClient) {
		t.Errorf("ListSymbols() error = %v, want client error", err)
	}
}

func TestCodes(t *testing.T) {
	symbols := []Symbol{
		{Code: "AAPL", Type: "Common Stock"},
		{Code: "SPY", Type: "ETF"},
		{Code: "MSFT", Type: "Common Stock"},
		{Code: "GOOGL", Type: "Common Stock"},
	}

	tests := []struct {
		name  string
		types []string
		limit int
		want  []string
	}{
		{"all", nil, 0, []string{"AAPL", "SPY", "MSFT", "GOOGL"}},
		{"stocks", []string{"Common Stock"}, 0, []string{"AAPL", "MSFT", "GOOGL"}},
		{"limited", []string{"Common Stock"}, 2, []string{"AAPL", "MSFT"}},
		{"etf", []string{"ETF"}, 5, []string{"SPY"}},
		{"none", []string{"Fund"}, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Codes(symbols, tt.types, tt.limit); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Codes() = %v, want %v", got, tt.want)
			}
		})
	}
}
