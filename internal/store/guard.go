package store

import (
	"context"
	"sync"
)

// serialized funnels every operation on one collection through one mutex.
// It removes the lost-update race of unguarded read-modify-write cycles, but
// only within a single process.
type serialized[T Record] struct {
	mu   sync.Mutex
	next Collection[T]
}

// Serialized wraps c so that at most one operation runs at a time.
func Serialized[T Record](c Collection[T]) Collection[T] {
	return &serialized[T]{next: c}
}

func (s *serialized[T]) List(ctx context.Context) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next.List(ctx)
}

func (s *serialized[T]) Append(ctx context.Context, rec T) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next.Append(ctx, rec)
}

func (s *serialized[T]) FindByID(ctx context.Context, id string) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next.FindByID(ctx, id)
}

func (s *serialized[T]) UpdateByID(ctx context.Context, id string, mutate Mutator[T]) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next.UpdateByID(ctx, id, mutate)
}

func (s *serialized[T]) DeleteByID(ctx context.Context, id string) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next.DeleteByID(ctx, id)
}
