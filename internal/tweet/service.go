package tweet

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"twitter_api/internal/cache"
	"twitter_api/internal/queue"
)

type PostInput struct {
	TweetID *uuid.UUID
	Content string
	UserBy  uuid.UUID
}

type TweetServiceInterface interface {
	PostTweet(ctx context.Context, in PostInput) (*Tweet, error)
	ListTweets(ctx context.Context) ([]*Tweet, error)
	GetTweet(ctx context.Context, id string) (*Tweet, error)
	UpdateTweet(ctx context.Context, id, content string) (*Tweet, error)
	DeleteTweet(ctx context.Context, id string) (*Tweet, error)
}

type TweetService struct {
	repo   TweetRepositoryInterface
	cache  cache.Store
	events queue.Publisher
	now    func() time.Time
}

func NewTweetService(repo TweetRepositoryInterface, cacheStore cache.Store, events queue.Publisher) TweetServiceInterface {
	if cacheStore == nil {
		cacheStore = cache.Noop{}
	}
	if events == nil {
		events = queue.NopPublisher{}
	}
	return &TweetService{
		repo:   repo,
		cache:  cacheStore,
		events: events,
		now:    time.Now,
	}
}

// PostTweet stores a new tweet. The author is not checked against the
// user store.
func (s *TweetService) PostTweet(ctx context.Context, in PostInput) (*Tweet, error) {
	id := uuid.New()
	if in.TweetID != nil {
		id = *in.TweetID
	}

	tweet := &Tweet{
		ID:        id,
		Content:   in.Content,
		CreatedAt: s.now().UTC(),
		UserBy:    in.UserBy,
	}

	if err := s.repo.Create(ctx, tweet); err != nil {
		return nil, err
	}

	s.publish(ctx, queue.TweetPosted, tweet)
	return tweet, nil
}

func (s *TweetService) ListTweets(ctx context.Context) ([]*Tweet, error) {
	return s.repo.List(ctx)
}

// GetTweet reads through the cache. After filling the cache on a miss the
// store is checked again so a concurrent delete cannot leave a stale entry.
func (s *TweetService) GetTweet(ctx context.Context, id string) (*Tweet, error) {
	cacheKey := cache.TweetKey(id)
	cachedData, err := s.cache.Get(ctx, cacheKey)
	if err != nil {
		logrus.WithError(err).Warn("Failed to read tweet from cache")
	} else if cachedData != nil {
		var tweet Tweet
		if json.Unmarshal(cachedData, &tweet) == nil {
			logrus.WithField("tweet_id", id).Debug("cache hit for tweet")
			return &tweet, nil
		}
	}

	tweet, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, cacheKey, tweet); err != nil {
		logrus.WithError(err).Warn("Failed to set cache for tweet")
		return tweet, nil
	}

	if _, err := s.repo.GetByID(ctx, id); err != nil {
		s.invalidate(ctx, id)
		return nil, err
	}
	return tweet, nil
}

// UpdateTweet replaces the content and stamps updated_at, which never
// precedes created_at.
func (s *TweetService) UpdateTweet(ctx context.Context, id, content string) (*Tweet, error) {
	tweet, err := s.repo.Update(ctx, id, func(t *Tweet) error {
		updatedAt := s.now().UTC()
		if updatedAt.Before(t.CreatedAt) {
			updatedAt = t.CreatedAt
		}
		t.Content = content
		t.UpdatedAt = &updatedAt
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)
	s.publish(ctx, queue.TweetUpdated, tweet)
	return tweet, nil
}

func (s *TweetService) DeleteTweet(ctx context.Context, id string) (*Tweet, error) {
	tweet, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)
	s.publish(ctx, queue.TweetDeleted, tweet)
	return tweet, nil
}

func (s *TweetService) invalidate(ctx context.Context, id string) {
	if err := s.cache.Delete(ctx, cache.TweetKey(id)); err != nil {
		logrus.WithError(err).WithField("tweet_id", id).Warn("Failed to invalidate tweet cache")
	}
}

func (s *TweetService) publish(ctx context.Context, eventType string, tweet *Tweet) {
	ev, err := queue.NewEvent(eventType, tweet.ID.String(), tweet)
	if err == nil {
		err = s.events.Publish(ctx, ev)
	}
	if err != nil {
		logrus.WithError(err).WithField("event_type", eventType).Error("Failed to publish tweet event")
	}
}
