package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DocumentCollection stores one entity type in a MongoDB collection, one
// document per record, with a unique index on the key field.
type DocumentCollection[T Record] struct {
	coll *mongo.Collection
	key  string
}

func NewDocumentCollection[T Record](ctx context.Context, db *mongo.Database, name, key string) (*DocumentCollection[T], error) {
	coll := db.Collection(name)

	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: key, Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("create %s index on %s: %w", key, name, err)
	}

	return &DocumentCollection[T]{coll: coll, key: key}, nil
}

func (c *DocumentCollection[T]) List(ctx context.Context) ([]T, error) {
	cur, err := c.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", c.coll.Name(), err)
	}

	records := []T{}
	if err := cur.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.coll.Name(), err)
	}
	return records, nil
}

func (c *DocumentCollection[T]) Append(ctx context.Context, rec T) (T, error) {
	var zero T
	if _, err := c.coll.InsertOne(ctx, rec); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return zero, ErrDuplicateID
		}
		return zero, fmt.Errorf("insert %s: %w", c.coll.Name(), err)
	}
	return rec, nil
}

func (c *DocumentCollection[T]) FindByID(ctx context.Context, id string) (T, error) {
	return c.decode(c.coll.FindOne(ctx, c.filter(id)))
}

func (c *DocumentCollection[T]) UpdateByID(ctx context.Context, id string, mutate Mutator[T]) (T, error) {
	var zero T

	rec, err := c.FindByID(ctx, id)
	if err != nil {
		return zero, err
	}

	if err := mutate(&rec); err != nil {
		return zero, err
	}
	if rec.RecordID() != id {
		return zero, fmt.Errorf("update %s: record id changed to %s", id, rec.RecordID())
	}

	res, err := c.coll.ReplaceOne(ctx, c.filter(id), rec)
	if err != nil {
		return zero, fmt.Errorf("update %s: %w", c.coll.Name(), err)
	}
	if res.MatchedCount == 0 {
		return zero, ErrNotFound
	}
	return rec, nil
}

func (c *DocumentCollection[T]) DeleteByID(ctx context.Context, id string) (T, error) {
	return c.decode(c.coll.FindOneAndDelete(ctx, c.filter(id)))
}

func (c *DocumentCollection[T]) filter(id string) bson.D {
	return bson.D{{Key: c.key, Value: id}}
}

func (c *DocumentCollection[T]) decode(res *mongo.SingleResult) (T, error) {
	var rec T
	err := res.Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		var zero T
		return zero, ErrNotFound
	}
	if err != nil {
		var zero T
		return zero, fmt.Errorf("query %s: %w", c.coll.Name(), err)
	}
	return rec, nil
}
