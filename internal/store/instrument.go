package store

import (
	"context"
	"errors"
	"time"

	"twitter_api/internal/observability"
)

type instrumented[T Record] struct {
	entity  string
	next    Collection[T]
	metrics *observability.Metrics
}

// Instrumented records operation counts and latencies for c. A nil metric
// set returns c unchanged.
func Instrumented[T Record](entity string, c Collection[T], metrics *observability.Metrics) Collection[T] {
	if metrics == nil {
		return c
	}
	return &instrumented[T]{entity: entity, next: c, metrics: metrics}
}

func (i *instrumented[T]) List(ctx context.Context) ([]T, error) {
	start := time.Now()
	records, err := i.next.List(ctx)
	i.observe("list", start, err)
	return records, err
}

func (i *instrumented[T]) Append(ctx context.Context, rec T) (T, error) {
	start := time.Now()
	out, err := i.next.Append(ctx, rec)
	i.observe("append", start, err)
	return out, err
}

func (i *instrumented[T]) FindByID(ctx context.Context, id string) (T, error) {
	start := time.Now()
	out, err := i.next.FindByID(ctx, id)
	i.observe("find", start, err)
	return out, err
}

func (i *instrumented[T]) UpdateByID(ctx context.Context, id string, mutate Mutator[T]) (T, error) {
	start := time.Now()
	out, err := i.next.UpdateByID(ctx, id, mutate)
	i.observe("update", start, err)
	return out, err
}

func (i *instrumented[T]) DeleteByID(ctx context.Context, id string) (T, error) {
	start := time.Now()
	out, err := i.next.DeleteByID(ctx, id)
	i.observe("delete", start, err)
	return out, err
}

func (i *instrumented[T]) observe(op string, start time.Time, err error) {
	i.metrics.StoreOperationDuration.WithLabelValues(i.entity, op).Observe(time.Since(start).Seconds())
	i.metrics.StoreOperationsTotal.WithLabelValues(i.entity, op, outcome(err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrDuplicateID):
		return "duplicate"
	default:
		return "error"
	}
}
