package tweet

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"twitter_api/internal/store"
)

// FileName is the document holding tweets for the file backend.
const FileName = "tweets.json"

type Tweet struct {
	ID        uuid.UUID  `json:"tweet_id"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
	UserBy    uuid.UUID  `json:"user_by"`
}

// Record is the persisted form of a tweet.
type Record struct {
	TweetID   string  `json:"tweet_id" bson:"tweet_id"`
	Content   string  `json:"content" bson:"content"`
	CreatedAt string  `json:"created_at" bson:"created_at"`
	UpdatedAt *string `json:"updated_at" bson:"updated_at"`
	UserBy    string  `json:"user_by" bson:"user_by"`
}

func (r Record) RecordID() string { return r.TweetID }

func ToRecord(t *Tweet) Record {
	return Record{
		TweetID:   store.EncodeID(t.ID),
		Content:   t.Content,
		CreatedAt: store.EncodeTime(t.CreatedAt),
		UpdatedAt: store.EncodeNullableTime(t.UpdatedAt),
		UserBy:    store.EncodeID(t.UserBy),
	}
}

func FromRecord(r Record) (*Tweet, error) {
	id, err := store.DecodeID(r.TweetID)
	if err != nil {
		return nil, err
	}
	createdAt, err := store.DecodeTime(r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("tweet %s: %w", r.TweetID, err)
	}
	updatedAt, err := store.DecodeNullableTime(r.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("tweet %s: %w", r.TweetID, err)
	}
	userBy, err := store.DecodeID(r.UserBy)
	if err != nil {
		return nil, fmt.Errorf("tweet %s: %w", r.TweetID, err)
	}
	return &Tweet{
		ID:        id,
		Content:   r.Content,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		UserBy:    userBy,
	}, nil
}

var TableSchema = store.Schema[Record]{
	Table:   "tweets",
	Key:     "tweet_id",
	Columns: []string{"content", "created_at", "updated_at", "user_by"},
	Values: func(r Record) []any {
		return []any{r.Content, r.CreatedAt, r.UpdatedAt, r.UserBy}
	},
	Scan: func(row store.Scanner) (Record, error) {
		var r Record
		err := row.Scan(&r.TweetID, &r.Content, &r.CreatedAt, &r.UpdatedAt, &r.UserBy)
		return r, err
	},
}

const CreateTableSQL = `
	CREATE TABLE IF NOT EXISTS tweets (
		tweet_id   VARCHAR(36) PRIMARY KEY,
		content    VARCHAR(256) NOT NULL,
		created_at VARCHAR(40) NOT NULL,
		updated_at VARCHAR(40),
		user_by    VARCHAR(36) NOT NULL
	)
`
