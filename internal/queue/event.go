package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types published after a successful mutation.
const (
	UserSignedUp = "user.signed_up"
	UserUpdated  = "user.updated"
	UserDeleted  = "user.deleted"
	TweetPosted  = "tweet.posted"
	TweetUpdated = "tweet.updated"
	TweetDeleted = "tweet.deleted"
)

type Event struct {
	Type       string          `json:"type"`
	EntityID   string          `json:"entity_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// NewEvent stamps the event with the current time and marshals payload.
func NewEvent(eventType, entityID string, payload interface{}) (Event, error) {
	ev := Event{
		Type:       eventType,
		EntityID:   entityID,
		OccurredAt: time.Now().UTC(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
		}
		ev.Payload = data
	}
	return ev, nil
}
