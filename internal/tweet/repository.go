package tweet

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"twitter_api/internal/store"
)

type TweetRepository struct {
	records store.Collection[Record]
}

type TweetRepositoryInterface interface {
	Create(ctx context.Context, tweet *Tweet) error
	List(ctx context.Context) ([]*Tweet, error)
	GetByID(ctx context.Context, id string) (*Tweet, error)
	Update(ctx context.Context, id string, apply func(tweet *Tweet) error) (*Tweet, error)
	Delete(ctx context.Context, id string) (*Tweet, error)
}

func NewTweetRepository(records store.Collection[Record]) TweetRepositoryInterface {
	return &TweetRepository{records: records}
}

func (r *TweetRepository) Create(ctx context.Context, tweet *Tweet) error {
	if _, err := r.records.Append(ctx, ToRecord(tweet)); err != nil {
		logrus.WithError(err).WithField("tweet_id", tweet.ID).Error("Failed to create tweet")
		return err
	}

	logrus.WithFields(logrus.Fields{
		"tweet_id": tweet.ID,
		"user_by":  tweet.UserBy,
	}).Info("Tweet created successfully")

	return nil
}

func (r *TweetRepository) List(ctx context.Context) ([]*Tweet, error) {
	records, err := r.records.List(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to list tweets")
		return nil, err
	}

	tweets := make([]*Tweet, 0, len(records))
	for _, rec := range records {
		t, err := FromRecord(rec)
		if err != nil {
			return nil, err
		}
		tweets = append(tweets, t)
	}
	return tweets, nil
}

func (r *TweetRepository) GetByID(ctx context.Context, id string) (*Tweet, error) {
	rec, err := r.records.FindByID(ctx, id)
	if err != nil {
		r.logLookupError(err, id, "Failed to get tweet by ID")
		return nil, err
	}
	return FromRecord(rec)
}

// Update decodes the stored tweet, lets apply change it and writes it back.
func (r *TweetRepository) Update(ctx context.Context, id string, apply func(tweet *Tweet) error) (*Tweet, error) {
	rec, err := r.records.UpdateByID(ctx, id, func(rec *Record) error {
		t, err := FromRecord(*rec)
		if err != nil {
			return err
		}
		if err := apply(t); err != nil {
			return err
		}
		*rec = ToRecord(t)
		return nil
	})
	if err != nil {
		r.logLookupError(err, id, "Failed to update tweet")
		return nil, err
	}

	logrus.WithField("tweet_id", id).Info("Tweet updated successfully")
	return FromRecord(rec)
}

func (r *TweetRepository) Delete(ctx context.Context, id string) (*Tweet, error) {
	rec, err := r.records.DeleteByID(ctx, id)
	if err != nil {
		r.logLookupError(err, id, "Failed to delete tweet")
		return nil, err
	}

	logrus.WithField("tweet_id", id).Info("Tweet deleted successfully")
	return FromRecord(rec)
}

func (r *TweetRepository) logLookupError(err error, id, msg string) {
	if errors.Is(err, store.ErrNotFound) {
		logrus.WithField("tweet_id", id).Warn("Tweet not found")
		return
	}
	logrus.WithError(err).WithField("tweet_id", id).Error(msg)
}
