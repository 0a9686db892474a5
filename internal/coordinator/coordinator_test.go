package coordinator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"pricepool/internal/pool"
	"pricepool/internal/task"
	"pricepool/internal/testutil"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func scenarioTasks() []task.Task {
	return task.Product(
		[]string{"US", "LSE", "XETRA"},
		[]string{"2024-01-15", "2024-01-16"},
		[]string{"AAPL", "MSFT"},
	)
}

func TestNew(t *testing.T) {
	f := testutil.NewMockFetcher(100.0, nil)

	coord := New(f, pool.Config{Workers: 2}, nil)
	if coord == nil {
		t.Fatal("New() returned nil")
	}
	if coord.logger == nil {
		t.Error("New() left logger nil")
	}
	if coord.cfg.Workers != 2 {
		t.Errorf("New() created coordinator with %d workers, want 2", coord.cfg.Workers)
	}
}

func TestRun_Scenario(t *testing.T) {
	bad := task.Task{Exchange: "LSE", Symbol: "MSFT", Date: "2024-01-16"}
	f := testutil.NewHashFetcher(bad)

	coord := New(f, pool.Config{Workers: 4, FetchTimeout: time.Second}, discard)

	result, report, err := coord.Run(context.Background(), scenarioTasks())
	if err != nil {
		t.Fatalf("Run() returned unexpected error: %v", err)
	}

	if got := result.Leaves(); got != 12 {
		t.Errorf("Leaves() = %d, want 12", got)
	}

	numeric, absent := 0, 0
	for _, tk := range scenarioTasks() {
		price, ok, requested := result.Lookup(tk.Exchange, tk.Date, tk.Symbol)
		if !requested {
			t.Errorf("%s missing from result", tk)
			continue
		}
		if !ok {
			absent++
			if tk != bad {
				t.Errorf("%s absent, want a price", tk)
			}
			continue
		}
		numeric++
		if want := testutil.HashPrice(tk.Exchange, tk.Symbol, tk.Date); price != want {
			t.Errorf("%s = %v, want %v", tk, price, want)
		}
	}
	if numeric != 11 || absent != 1 {
		t.Errorf("numeric = %d, absent = %d, want 11 and 1", numeric, absent)
	}

	if report.Tasks != 12 || report.Failed != 1 || report.Abandoned != 0 {
		t.Errorf("report = %+v, want 12 tasks, 1 failed, 0 abandoned", report)
	}
	if !report.Complete() {
		t.Error("Complete() = false for a full run")
	}
	if report.RunID == "" {
		t.Error("report has no run id")
	}
}

func TestRun_WorkerCounts(t *testing.T) {
	tasks := scenarioTasks()

	for _, workers := range []int{1, 2, len(tasks) + 5} {
		f := testutil.NewHashFetcher()
		coord := New(f, pool.Config{Workers: workers}, discard)

		result, _, err := coord.Run(context.Background(), tasks)
		if err != nil {
			t.Fatalf("Run(workers=%d) returned unexpected error: %v", workers, err)
		}
		if got := result.Leaves(); got != len(tasks) {
			t.Errorf("Run(workers=%d) Leaves() = %d, want %d", workers, got, len(tasks))
		}
		if got := len(f.Calls()); got != len(tasks) {
			t.Errorf("Run(workers=%d) fetched %d times, want %d", workers, got, len(tasks))
		}
	}
}

func TestRun_ZeroWorkers(t *testing.T) {
	f := testutil.NewMockFetcher(1, nil)
	coord := New(f, pool.Config{Workers: 0}, discard)

	_, _, err := coord.Run(context.Background(), scenarioTasks())
	if !errors.Is(err, pool.ErrInvalidWorkerCount) {
		t.Errorf("Run() error = %v, want ErrInvalidWorkerCount", err)
	}
	if len(f.Calls()) != 0 {
		t.Errorf("fetcher called %d times, want 0", len(f.Calls()))
	}
}

func TestRun_MalformedTasks(t *testing.T) {
	f := testutil.NewMockFetcher(1, nil)
	coord := New(f, pool.Config{Workers: 2}, discard)

	tasks := append(scenarioTasks(), task.Task{Exchange: "US", Symbol: "AAPL", Date: "yesterday"})

	_, _, err := coord.Run(context.Background(), tasks)
	if !errors.Is(err, task.ErrInvalidTask) {
		t.Errorf("Run() error = %v, want ErrInvalidTask", err)
	}
	if len(f.Calls()) != 0 {
		t.Errorf("fetcher called %d times, want 0", len(f.Calls()))
	}
}

func TestRun_NoTasks(t *testing.T) {
	coord := New(testutil.NewMockFetcher(1, nil), pool.Config{Workers: 3}, discard)

	done := make(chan struct{})
	go func() {
		defer close(done)
		result, report, err := coord.Run(context.Background(), nil)
		if err != nil {
			t.Errorf("Run() returned unexpected error: %v", err)
		}
		if result.Leaves() != 0 || report.Tasks != 0 {
			t.Errorf("Run() = %d leaves, %d tasks, want 0 and 0", result.Leaves(), report.Tasks)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run() with no tasks did not return")
	}
}

func TestRun_ContextCancellation(t *testing.T) {
	// Create a slow fetcher that will be cancelled
	slowFetcher := &testutil.MockFetcher{
		FetchFunc: func(ctx context.Context, exchange, symbol, date string) (float64, error) {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(5 * time.Second):
				return 100.0, nil
			}
		},
	}

	coord := New(slowFetcher, pool.Config{Workers: 2}, discard)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	result, report, err := coord.Run(ctx, scenarioTasks())
	if err != nil {
		t.Fatalf("Run() returned unexpected error: %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("Run() took %v after cancellation", time.Since(start))
	}

	// The two in-flight tasks are recorded as failures, the rest abandoned.
	if report.Complete() {
		t.Error("Complete() = true after cancellation")
	}
	if report.Abandoned == 0 {
		t.Fatalf("report = %+v, want abandoned tasks", report)
	}

	// Abandoned triples are still requested keys, just without a price.
	if got := result.Leaves(); got != 12 {
		t.Errorf("Leaves() = %d, want 12", got)
	}
	if got := len(result.Absent()); got != 12 {
		t.Errorf("len(Absent()) = %d, want 12", got)
	}
	for _, tk := range scenarioTasks() {
		if _, ok, requested := result.Lookup(tk.Exchange, tk.Date, tk.Symbol); ok || !requested {
			t.Errorf("%s: ok=%v requested=%v, want absent but requested", tk, ok, requested)
		}
	}
}

func TestRun_ConcurrentExecution(t *testing.T) {
	f := &testutil.MockFetcher{
		FetchFunc: func(ctx context.Context, exchange, symbol, date string) (float64, error) {
			time.Sleep(50 * time.Millisecond)
			return 1, nil
		},
	}

	coord := New(f, pool.Config{Workers: 12}, discard)

	start := time.Now()
	if _, _, err := coord.Run(context.Background(), scenarioTasks()); err != nil {
		t.Fatalf("Run() returned unexpected error: %v", err)
	}
	duration := time.Since(start)

	// Sequentially this would take 600ms (12 * 50ms)
	if duration > 400*time.Millisecond {
		t.Errorf("Fetches likely ran sequentially. Duration: %v", duration)
	}
}
