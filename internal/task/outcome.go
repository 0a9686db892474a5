package task

// Outcome is the result of processing one Task.
// It's published by pool workers to a Sink and folded by the aggregator.
type Outcome struct {
	// Task is the unit of work this outcome belongs to
	Task Task

	// Price is the closing price. Nil when the fetch failed.
	Price *float64

	// Err describes why the fetch failed.
	// If Err is not nil, Price should be considered invalid.
	Err error
}

// Succeeded builds a successful outcome.
func Succeeded(t Task, price float64) Outcome {
	return Outcome{Task: t, Price: &price}
}

// Failed builds a failed outcome.
func Failed(t Task, err error) Outcome {
	return Outcome{Task: t, Err: err}
}

// OK reports whether the outcome carries a usable price.
func (o Outcome) OK() bool {
	return o.Err == nil && o.Price != nil
}
