package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"twitter_api/internal/observability"
	"twitter_api/internal/queue"
	"twitter_api/internal/store"
	"twitter_api/internal/tweet"
	"twitter_api/internal/user"
)

// ErrInvalidPayload marks events that can never be processed.
var ErrInvalidPayload = errors.New("invalid event payload")

// Auditor watches entity events for tweets whose author does not exist.
// Dangling references are allowed by the API; they are only counted.
type Auditor struct {
	users   user.UserRepositoryInterface
	tweets  tweet.TweetRepositoryInterface
	metrics *observability.Metrics
}

func NewAuditor(users user.UserRepositoryInterface, tweets tweet.TweetRepositoryInterface, metrics *observability.Metrics) *Auditor {
	return &Auditor{users: users, tweets: tweets, metrics: metrics}
}

// Handle processes one event and returns the number of dangling references
// it found. Storage errors are returned so the caller can retry.
func (a *Auditor) Handle(ctx context.Context, ev queue.Event) (int, error) {
	switch ev.Type {
	case queue.TweetPosted, queue.TweetUpdated:
		return a.checkAuthor(ctx, ev)
	case queue.UserDeleted:
		return a.countOrphans(ctx, ev.EntityID)
	default:
		logrus.WithField("event_type", ev.Type).Debug("Event needs no audit")
		return 0, nil
	}
}

func (a *Auditor) checkAuthor(ctx context.Context, ev queue.Event) (int, error) {
	var t tweet.Tweet
	if err := json.Unmarshal(ev.Payload, &t); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	_, err := a.users.GetByID(ctx, t.UserBy.String())
	if errors.Is(err, store.ErrNotFound) {
		logrus.WithFields(logrus.Fields{
			"tweet_id": ev.EntityID,
			"user_by":  t.UserBy,
		}).Warn("Tweet references a user that does not exist")
		a.countDangling("tweet", 1)
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return 0, nil
}

func (a *Auditor) countOrphans(ctx context.Context, userID string) (int, error) {
	tweets, err := a.tweets.List(ctx)
	if err != nil {
		return 0, err
	}

	orphans := 0
	for _, t := range tweets {
		if t.UserBy.String() == userID {
			orphans++
		}
	}

	if orphans > 0 {
		logrus.WithFields(logrus.Fields{
			"user_id": userID,
			"tweets":  orphans,
		}).Warn("Deleted user left tweets behind")
		a.countDangling("user_deleted", orphans)
	}
	return orphans, nil
}

func (a *Auditor) countDangling(source string, n int) {
	if a.metrics != nil {
		a.metrics.DanglingReferencesTotal.WithLabelValues(source).Add(float64(n))
	}
}
