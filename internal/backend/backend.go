// Package backend opens the configured storage backend and hands out one
// collection per entity type, so routes never depend on where records live.
package backend

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"twitter_api/internal/config"
	"twitter_api/internal/db"
	"twitter_api/internal/observability"
	"twitter_api/internal/store"
	"twitter_api/internal/tweet"
	"twitter_api/internal/user"
)

type Backend struct {
	Name   string
	Users  store.Collection[user.Record]
	Tweets store.Collection[tweet.Record]

	closers []func() error
}

// Open builds the collections for cfg.Storage.Backend. Metrics may be nil.
func Open(ctx context.Context, cfg *config.Config, metrics *observability.Metrics) (*Backend, error) {
	b := &Backend{Name: cfg.Storage.Backend}

	switch cfg.Storage.Backend {
	case config.BackendFile:
		b.Users = store.NewFileCollection[user.Record](cfg.Storage.DataDir, user.FileName)
		b.Tweets = store.NewFileCollection[tweet.Record](cfg.Storage.DataDir, tweet.FileName)

	case config.BackendTable:
		conn, err := db.Init(&cfg.DB)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, conn.Close)

		if err := db.EnsureSchema(ctx, conn, user.CreateTableSQL, tweet.CreateTableSQL); err != nil {
			b.Close()
			return nil, err
		}
		b.Users = store.NewTableCollection[user.Record](conn, cfg.DB.Driver, user.TableSchema)
		b.Tweets = store.NewTableCollection[tweet.Record](conn, cfg.DB.Driver, tweet.TableSchema)

	case config.BackendDocument:
		client, database, err := db.ConnectMongo(ctx, &cfg.Mongo)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() error {
			return client.Disconnect(context.Background())
		})

		users, err := store.NewDocumentCollection[user.Record](ctx, database, "users", "user_id")
		if err != nil {
			b.Close()
			return nil, err
		}
		tweets, err := store.NewDocumentCollection[tweet.Record](ctx, database, "tweets", "tweet_id")
		if err != nil {
			b.Close()
			return nil, err
		}
		b.Users = users
		b.Tweets = tweets

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	if cfg.Storage.Serialize {
		b.Users = store.Serialized(b.Users)
		b.Tweets = store.Serialized(b.Tweets)
	}

	b.Users = store.Instrumented("user", b.Users, metrics)
	b.Tweets = store.Instrumented("tweet", b.Tweets, metrics)

	logrus.WithFields(logrus.Fields{
		"backend":   b.Name,
		"serialize": cfg.Storage.Serialize,
	}).Info("Storage backend ready")
	return b, nil
}

func (b *Backend) Close() error {
	var firstErr error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	b.closers = nil
	return firstErr
}
