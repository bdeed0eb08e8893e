package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twitter_api/internal/observability"
	"twitter_api/internal/queue"
	"twitter_api/internal/store"
	"twitter_api/internal/tweet"
	"twitter_api/internal/user"
)

type auditFixture struct {
	auditor *Auditor
	users   user.UserRepositoryInterface
	tweets  tweet.TweetRepositoryInterface
	metrics *observability.Metrics
}

func newAuditFixture(t *testing.T) *auditFixture {
	dir := t.TempDir()
	f := &auditFixture{
		users:   user.NewUserRepository(store.NewFileCollection[user.Record](dir, user.FileName)),
		tweets:  tweet.NewTweetRepository(store.NewFileCollection[tweet.Record](dir, tweet.FileName)),
		metrics: observability.NewMetrics(prometheus.NewRegistry()),
	}
	f.auditor = NewAuditor(f.users, f.tweets, f.metrics)
	return f
}

func (f *auditFixture) addUser(t *testing.T) *user.User {
	u := &user.User{ID: uuid.New(), Email: uuid.NewString() + "@example.com", FirstName: "A", LastName: "B"}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *auditFixture) addTweet(t *testing.T, author uuid.UUID) *tweet.Tweet {
	tw := &tweet.Tweet{ID: uuid.New(), Content: "hello", CreatedAt: time.Now().UTC(), UserBy: author}
	require.NoError(t, f.tweets.Create(context.Background(), tw))
	return tw
}

func tweetEvent(t *testing.T, eventType string, tw *tweet.Tweet) queue.Event {
	ev, err := queue.NewEvent(eventType, tw.ID.String(), tw)
	require.NoError(t, err)
	return ev
}

func TestAuditor_TweetWithKnownAuthor(t *testing.T) {
	f := newAuditFixture(t)
	author := f.addUser(t)
	tw := f.addTweet(t, author.ID)

	n, err := f.auditor.Handle(context.Background(), tweetEvent(t, queue.TweetPosted, tw))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestAuditor_TweetWithDanglingAuthor(t *testing.T) {
	f := newAuditFixture(t)
	tw := f.addTweet(t, uuid.New())

	for _, eventType := range []string{queue.TweetPosted, queue.TweetUpdated} {
		n, err := f.auditor.Handle(context.Background(), tweetEvent(t, eventType, tw))
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.DanglingReferencesTotal.WithLabelValues("tweet")))
}

func TestAuditor_UserDeletedCountsOrphans(t *testing.T) {
	f := newAuditFixture(t)
	author := f.addUser(t)
	other := f.addUser(t)
	f.addTweet(t, author.ID)
	f.addTweet(t, author.ID)
	f.addTweet(t, other.ID)

	_, err := f.users.Delete(context.Background(), author.ID.String())
	require.NoError(t, err)

	ev, err := queue.NewEvent(queue.UserDeleted, author.ID.String(), author)
	require.NoError(t, err)

	n, err := f.auditor.Handle(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.DanglingReferencesTotal.WithLabelValues("user_deleted")))
}

func TestAuditor_IgnoresOtherEvents(t *testing.T) {
	f := newAuditFixture(t)

	n, err := f.auditor.Handle(context.Background(), queue.Event{Type: queue.UserSignedUp, EntityID: "x"})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestAuditor_InvalidPayload(t *testing.T) {
	f := newAuditFixture(t)

	_, err := f.auditor.Handle(context.Background(), queue.Event{
		Type:    queue.TweetPosted,
		Payload: []byte(`{"user_by": 42}`),
	})
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

type brokenUsers struct {
	user.UserRepositoryInterface
}

func (brokenUsers) GetByID(ctx context.Context, id string) (*user.User, error) {
	return nil, errors.New("document unreadable")
}

func TestAuditor_StorageErrorIsRetryable(t *testing.T) {
	f := newAuditFixture(t)
	auditor := NewAuditor(brokenUsers{}, f.tweets, nil)
	tw := &tweet.Tweet{ID: uuid.New(), UserBy: uuid.New(), CreatedAt: time.Now()}

	_, err := auditor.Handle(context.Background(), tweetEvent(t, queue.TweetPosted, tw))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidPayload)
}

func TestRetryCountOf(t *testing.T) {
	assert.Equal(t, int32(0), retryCountOf(&amqp.Delivery{}))
	assert.Equal(t, int32(2), retryCountOf(&amqp.Delivery{Headers: amqp.Table{"x-retry-count": int32(2)}}))
	assert.Equal(t, int32(3), retryCountOf(&amqp.Delivery{Headers: amqp.Table{"x-retry-count": int64(3)}}))
	assert.Equal(t, int32(0), retryCountOf(&amqp.Delivery{Headers: amqp.Table{"x-retry-count": "3"}}))
}
