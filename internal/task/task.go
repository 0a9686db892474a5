package task

import (
	"errors"
	"fmt"
	"time"
)

// DateFormat is the layout of Task.Date (ISO 8601 calendar date).
const DateFormat = "2006-01-02"

// ErrInvalidTask is returned when a task set contains a malformed task.
var ErrInvalidTask = errors.New("invalid task")

// Task describes one price lookup. It is a plain value: two tasks with the
// same fields are equal, and duplicates are processed independently.
type Task struct {
	Exchange string `json:"exchange"`
	Symbol   string `json:"symbol"`
	Date     string `json:"date"`
}

// String returns a compact "EXCHANGE:SYMBOL@DATE" form used in logs.
func (t Task) String() string {
	return fmt.Sprintf("%s:%s@%s", t.Exchange, t.Symbol, t.Date)
}

// Validate reports whether the task can be handed to a fetcher.
func (t Task) Validate() error {
	switch {
	case t.Exchange == "":
		return fmt.Errorf("%w: empty exchange in %s", ErrInvalidTask, t)
	case t.Symbol == "":
		return fmt.Errorf("%w: empty symbol in %s", ErrInvalidTask, t)
	case t.Date == "":
		return fmt.Errorf("%w: empty date in %s", ErrInvalidTask, t)
	}
	if _, err := time.Parse(DateFormat, t.Date); err != nil {
		return fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidTask, t.Date)
	}
	return nil
}

// ValidateAll checks every task and returns the first problem found.
func ValidateAll(tasks []Task) error {
	for i, t := range tasks {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("task %d: %w", i, err)
		}
	}
	return nil
}

// Product returns every exchange × date × symbol combination, in that
// nesting order.
func Product(exchanges, dates, symbols []string) []Task {
	tasks := make([]Task, 0, len(exchanges)*len(dates)*len(symbols))
	for _, exchange := range exchanges {
		for _, date := range dates {
			for _, symbol := range symbols {
				tasks = append(tasks, Task{
					Exchange: exchange,
					Symbol:   symbol,
					Date:     date,
				})
			}
		}
	}
	return tasks
}
