package user

import (
	"fmt"

	"github.com/google/uuid"

	"twitter_api/internal/store"
)

// FileName is the document holding users for the file backend.
const FileName = "users.json"

// User is the profile returned to clients. The password hash never leaves
// the service.
type User struct {
	ID           uuid.UUID   `json:"user_id"`
	Email        string      `json:"email"`
	FirstName    string      `json:"first_name"`
	LastName     string      `json:"last_name"`
	BirthDate    *store.Date `json:"birth_date"`
	PasswordHash string      `json:"-"`
}

// Record is the persisted form: flat, string typed, shared by every backend.
type Record struct {
	UserID    string  `json:"user_id" bson:"user_id"`
	Email     string  `json:"email" bson:"email"`
	Password  string  `json:"password" bson:"password"`
	FirstName string  `json:"first_name" bson:"first_name"`
	LastName  string  `json:"last_name" bson:"last_name"`
	BirthDate *string `json:"birth_date" bson:"birth_date"`
}

func (r Record) RecordID() string { return r.UserID }

func ToRecord(u *User) Record {
	return Record{
		UserID:    store.EncodeID(u.ID),
		Email:     u.Email,
		Password:  u.PasswordHash,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		BirthDate: store.EncodeDate(u.BirthDate),
	}
}

func FromRecord(r Record) (*User, error) {
	id, err := store.DecodeID(r.UserID)
	if err != nil {
		return nil, err
	}
	birthDate, err := store.DecodeDate(r.BirthDate)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", r.UserID, err)
	}
	return &User{
		ID:           id,
		Email:        r.Email,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		BirthDate:    birthDate,
		PasswordHash: r.Password,
	}, nil
}

var TableSchema = store.Schema[Record]{
	Table:   "users",
	Key:     "user_id",
	Columns: []string{"email", "password", "first_name", "last_name", "birth_date"},
	Values: func(r Record) []any {
		return []any{r.Email, r.Password, r.FirstName, r.LastName, r.BirthDate}
	},
	Scan: func(row store.Scanner) (Record, error) {
		var r Record
		err := row.Scan(&r.UserID, &r.Email, &r.Password, &r.FirstName, &r.LastName, &r.BirthDate)
		return r, err
	},
}

const CreateTableSQL = `
	CREATE TABLE IF NOT EXISTS users (
		user_id    VARCHAR(36) PRIMARY KEY,
		email      VARCHAR(255) NOT NULL,
		password   VARCHAR(255) NOT NULL,
		first_name VARCHAR(50) NOT NULL,
		last_name  VARCHAR(50) NOT NULL,
		birth_date VARCHAR(10)
	)
`
