package shared

import (
	"fmt"

	"go.uber.org/multierr"
)

// Result is the outcome of one item in a batch operation
type Result[T any] struct {
	Index int
	Value T
	Err   error
}

// OK reports whether the item succeeded
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// BatchOutcome collects per-item results instead of aborting at the first failure
type BatchOutcome[T any] struct {
	Results   []Result[T]
	Succeeded int
	Failed    int
}

// Add appends one item result and updates the counters
func (b *BatchOutcome[T]) Add(index int, value T, err error) {
	b.Results = append(b.Results, Result[T]{Index: index, Value: value, Err: err})
	if err != nil {
		b.Failed++
		return
	}
	b.Succeeded++
}

// HasFailures reports whether any item failed
func (b *BatchOutcome[T]) HasFailures() bool {
	return b.Failed > 0
}

// Values returns the values of the successful items in input order
func (b *BatchOutcome[T]) Values() []T {
	out := make([]T, 0, b.Succeeded)
	for _, r := range b.Results {
		if r.Err == nil {
			out = append(out, r.Value)
		}
	}
	return out
}

// Err combines every item failure into one error, prefixed with the item index
func (b *BatchOutcome[T]) Err() error {
	var combined error
	for _, r := range b.Results {
		if r.Err != nil {
			combined = multierr.Append(combined, fmt.Errorf("item %d: %w", r.Index, r.Err))
		}
	}
	return combined
}
