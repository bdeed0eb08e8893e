package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	before := time.Now().UTC()
	ev, err := NewEvent(TweetPosted, "t1", map[string]string{"user_by": "u1"})
	require.NoError(t, err)

	assert.Equal(t, TweetPosted, ev.Type)
	assert.Equal(t, "t1", ev.EntityID)
	assert.False(t, ev.OccurredAt.Before(before))
	assert.JSONEq(t, `{"user_by":"u1"}`, string(ev.Payload))
}

func TestNewEvent_NoPayload(t *testing.T) {
	ev, err := NewEvent(UserDeleted, "u1", nil)
	require.NoError(t, err)
	assert.Nil(t, ev.Payload)

	data, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "payload")
}

func TestNewEvent_UnmarshalablePayload(t *testing.T) {
	_, err := NewEvent(UserUpdated, "u1", make(chan int))
	assert.Error(t, err)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), Event{Type: UserSignedUp}))
}
