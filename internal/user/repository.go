package user

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"twitter_api/internal/store"
)

type UserRepository struct {
	records store.Collection[Record]
}

type UserRepositoryInterface interface {
	Create(ctx context.Context, user *User) error
	List(ctx context.Context) ([]*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	Update(ctx context.Context, id string, apply func(user *User) error) (*User, error)
	Delete(ctx context.Context, id string) (*User, error)
}

func NewUserRepository(records store.Collection[Record]) UserRepositoryInterface {
	return &UserRepository{records: records}
}

// Create appends a new user record
func (r *UserRepository) Create(ctx context.Context, user *User) error {
	if _, err := r.records.Append(ctx, ToRecord(user)); err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Error("Failed to create user")
		return err
	}

	logrus.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   user.Email,
	}).Info("User created successfully")

	return nil
}

// List returns every stored user in storage order
func (r *UserRepository) List(ctx context.Context) ([]*User, error) {
	records, err := r.records.List(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to list users")
		return nil, err
	}

	users := make([]*User, 0, len(records))
	for _, rec := range records {
		u, err := FromRecord(rec)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*User, error) {
	rec, err := r.records.FindByID(ctx, id)
	if err != nil {
		r.logLookupError(err, id, "Failed to get user by ID")
		return nil, err
	}
	return FromRecord(rec)
}

// Update decodes the stored user, lets apply change it and writes it back.
// An error from apply aborts the update.
func (r *UserRepository) Update(ctx context.Context, id string, apply func(user *User) error) (*User, error) {
	rec, err := r.records.UpdateByID(ctx, id, func(rec *Record) error {
		u, err := FromRecord(*rec)
		if err != nil {
			return err
		}
		if err := apply(u); err != nil {
			return err
		}
		*rec = ToRecord(u)
		return nil
	})
	if err != nil {
		r.logLookupError(err, id, "Failed to update user")
		return nil, err
	}

	logrus.WithField("user_id", id).Info("User updated successfully")
	return FromRecord(rec)
}

// Delete removes a user and returns the removed profile
func (r *UserRepository) Delete(ctx context.Context, id string) (*User, error) {
	rec, err := r.records.DeleteByID(ctx, id)
	if err != nil {
		r.logLookupError(err, id, "Failed to delete user")
		return nil, err
	}

	logrus.WithField("user_id", id).Info("User deleted successfully")
	return FromRecord(rec)
}

func (r *UserRepository) logLookupError(err error, id, msg string) {
	if errors.Is(err, store.ErrNotFound) {
		logrus.WithField("user_id", id).Warn("User not found")
		return
	}
	logrus.WithError(err).WithField("user_id", id).Error(msg)
}
