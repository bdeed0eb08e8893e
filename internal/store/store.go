// Package store defines the persistence capability shared by every entity
// type and its interchangeable backends: JSON documents on disk, SQL tables
// and MongoDB collections.
package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when no record carries the requested id.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateID is returned by Append when the id is already taken.
	ErrDuplicateID = errors.New("record id already exists")
)

// Record is one persisted instance of an entity type. The id is compared in
// its canonical string form.
type Record interface {
	RecordID() string
}

// Mutator changes a record in place. Returning an error aborts the update and
// leaves the collection untouched. Mutators must not change the record id.
type Mutator[T Record] func(rec *T) error

// Collection is the storage capability for one entity type.
type Collection[T Record] interface {
	List(ctx context.Context) ([]T, error)
	Append(ctx context.Context, rec T) (T, error)
	FindByID(ctx context.Context, id string) (T, error)
	UpdateByID(ctx context.Context, id string, mutate Mutator[T]) (T, error)
	DeleteByID(ctx context.Context, id string) (T, error)
}
