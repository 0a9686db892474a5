package aggregate

import (
	"errors"
	"reflect"
	"testing"

	"pricepool/internal/task"
	"pricepool/internal/testutil"
)

func TestAggregate_Scenario(t *testing.T) {
	exchanges := []string{"US", "LSE", "XETRA"}
	dates := []string{"2024-01-15", "2024-01-16"}
	symbols := []string{"AAPL", "MSFT"}
	bad := task.Task{Exchange: "LSE", Symbol: "MSFT", Date: "2024-01-16"}

	var outcomes []task.Outcome
	for _, tk := range task.Product(exchanges, dates, symbols) {
		if tk == bad {
			outcomes = append(outcomes, task.Failed(tk, errors.New("no data")))
			continue
		}
		outcomes = append(outcomes, task.Succeeded(tk, testutil.HashPrice(tk.Exchange, tk.Symbol, tk.Date)))
	}

	r := Aggregate(outcomes)

	if got := r.Leaves(); got != 12 {
		t.Fatalf("Leaves() = %d, want 12", got)
	}
	if absent := r.Absent(); !reflect.DeepEqual(absent, []task.Task{bad}) {
		t.Errorf("Absent() = %v, want [%v]", absent, bad)
	}

	for _, tk := range task.Product(exchanges, dates, symbols) {
		price, ok, requested := r.Lookup(tk.Exchange, tk.Date, tk.Symbol)
		if !requested {
			t.Errorf("Lookup(%s) not requested", tk)
			continue
		}
		if tk == bad {
			if ok {
				t.Errorf("Lookup(%s) = %v, want absent", tk, price)
			}
			continue
		}
		if want := testutil.HashPrice(tk.Exchange, tk.Symbol, tk.Date); !ok || price != want {
			t.Errorf("Lookup(%s) = %v, %v, want %v", tk, price, ok, want)
		}
	}
}

func TestAggregate_NeverRequested(t *testing.T) {
	r := Aggregate([]task.Outcome{
		task.Succeeded(task.Task{Exchange: "US", Symbol: "AAPL", Date: "2024-01-15"}, 178.23),
	})

	if _, ok, requested := r.Lookup("US", "2024-01-15", "MSFT"); ok || requested {
		t.Errorf("Lookup() for unknown symbol = ok %v requested %v, want false false", ok, requested)
	}
	if _, ok, requested := r.Lookup("LSE", "2024-01-15", "AAPL"); ok || requested {
		t.Errorf("Lookup() for unknown exchange = ok %v requested %v, want false false", ok, requested)
	}
}

func TestAggregate_Idempotent(t *testing.T) {
	tk := task.Task{Exchange: "US", Symbol: "AAPL", Date: "2024-01-15"}
	outcomes := []task.Outcome{
		task.Succeeded(tk, 178.23),
		task.Failed(task.Task{Exchange: "US", Symbol: "MSFT", Date: "2024-01-15"}, errors.New("boom")),
	}

	a := Aggregate(outcomes)
	b := Aggregate(outcomes)

	if !a.Equal(b) || !b.Equal(a) {
		t.Error("Aggregate() twice on the same outcomes produced different results")
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("Aggregate() results are not structurally equal")
	}
}

func TestAggregate_LastWriteWins(t *testing.T) {
	tk := task.Task{Exchange: "US", Symbol: "AAPL", Date: "2024-01-15"}
	r := Aggregate([]task.Outcome{
		task.Succeeded(tk, 1),
		task.Succeeded(tk, 2),
	})

	if r.Leaves() != 1 {
		t.Errorf("Leaves() = %d, want 1", r.Leaves())
	}
	if price, _, _ := r.Lookup("US", "2024-01-15", "AAPL"); price != 2 {
		t.Errorf("Lookup() = %v, want 2", price)
	}
}

func TestAggregate_DoesNotAliasOutcomePrices(t *testing.T) {
	tk := task.Task{Exchange: "US", Symbol: "AAPL", Date: "2024-01-15"}
	outcomes := []task.Outcome{task.Succeeded(tk, 10)}

	r := Aggregate(outcomes)
	*outcomes[0].Price = 99

	if price, _, _ := r.Lookup("US", "2024-01-15", "AAPL"); price != 10 {
		t.Errorf("Lookup() = %v after mutating the outcome, want 10", price)
	}
}

func TestResult_SortedKeys(t *testing.T) {
	r := Aggregate(nil)
	if len(r.Exchanges()) != 0 {
		t.Errorf("Exchanges() on empty result = %v", r.Exchanges())
	}

	var outcomes []task.Outcome
	for _, tk := range task.Product([]string{"XETRA", "US"}, []string{"2024-01-16", "2024-01-15"}, []string{"MSFT", "AAPL"}) {
		outcomes = append(outcomes, task.Succeeded(tk, 1))
	}
	r = Aggregate(outcomes)

	if got, want := r.Exchanges(), []string{"US", "XETRA"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Exchanges() = %v, want %v", got, want)
	}
	if got, want := r.Dates("US"), []string{"2024-01-15", "2024-01-16"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Dates() = %v, want %v", got, want)
	}
	if got, want := r.Symbols("US", "2024-01-15"), []string{"AAPL", "MSFT"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Symbols() = %v, want %v", got, want)
	}
}

func TestResult_Equal(t *testing.T) {
	tk := task.Task{Exchange: "US", Symbol: "AAPL", Date: "2024-01-15"}

	priced := Aggregate([]task.Outcome{task.Succeeded(tk, 1)})
	otherPrice := Aggregate([]task.Outcome{task.Succeeded(tk, 2)})
	absent := Aggregate([]task.Outcome{task.Failed(tk, errors.New("boom"))})

	if priced.Equal(otherPrice) {
		t.Error("Equal() = true for different prices")
	}
	if priced.Equal(absent) || absent.Equal(priced) {
		t.Error("Equal() = true for priced vs absent")
	}
}
