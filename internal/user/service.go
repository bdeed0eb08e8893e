package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"twitter_api/internal/auth"
	"twitter_api/internal/cache"
	"twitter_api/internal/queue"
	"twitter_api/internal/store"
)

var (
	// ErrInvalidCredential means the account exists but the password does
	// not match.
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrEmailTaken means another user already registered the email.
	ErrEmailTaken = errors.New("email already registered")
)

type SignupInput struct {
	UserID    *uuid.UUID
	Email     string
	Password  string
	FirstName string
	LastName  string
	BirthDate *store.Date
}

// LoginInput identifies the account by email or by id.
type LoginInput struct {
	Email    string
	UserID   string
	Password string
}

type UpdateInput struct {
	Email     string
	FirstName string
	LastName  string
}

type UserServiceInterface interface {
	Signup(ctx context.Context, in SignupInput) (*User, error)
	Login(ctx context.Context, in LoginInput) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)
	GetUser(ctx context.Context, id string) (*User, error)
	UpdateUser(ctx context.Context, id string, in UpdateInput) (*User, error)
	DeleteUser(ctx context.Context, id string) (*User, error)
}

type UserService struct {
	repo   UserRepositoryInterface
	hasher *auth.Hasher
	cache  cache.Store
	events queue.Publisher
}

func NewUserService(repo UserRepositoryInterface, hasher *auth.Hasher, cacheStore cache.Store, events queue.Publisher) UserServiceInterface {
	if cacheStore == nil {
		cacheStore = cache.Noop{}
	}
	if events == nil {
		events = queue.NopPublisher{}
	}
	return &UserService{
		repo:   repo,
		hasher: hasher,
		cache:  cacheStore,
		events: events,
	}
}

// Signup stores a new user with a hashed password
func (s *UserService) Signup(ctx context.Context, in SignupInput) (*User, error) {
	if err := s.checkEmailFree(ctx, in.Email, ""); err != nil {
		return nil, err
	}

	hashedPassword, err := s.hasher.GeneratePasswordHash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	id := uuid.New()
	if in.UserID != nil {
		id = *in.UserID
	}

	user := &User{
		ID:           id,
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		BirthDate:    in.BirthDate,
		PasswordHash: hashedPassword,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.publish(ctx, queue.UserSignedUp, user)
	return user, nil
}

// Login scans the users for the account. A matching account with the right
// password wins; otherwise a matching account reports ErrInvalidCredential
// and no match reports store.ErrNotFound.
func (s *UserService) Login(ctx context.Context, in LoginInput) (*User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	found := false
	for _, u := range users {
		if !matchesLogin(u, in) {
			continue
		}
		found = true
		if s.hasher.ComparePasswordHash(u.PasswordHash, in.Password) {
			return u, nil
		}
	}

	if found {
		logrus.WithFields(logrus.Fields{
			"email":   in.Email,
			"user_id": in.UserID,
		}).Warn("Login with wrong password")
		return nil, ErrInvalidCredential
	}
	return nil, store.ErrNotFound
}

func (s *UserService) ListUsers(ctx context.Context) ([]*User, error) {
	return s.repo.List(ctx)
}

// GetUser reads through the cache. After filling the cache on a miss the
// store is checked again so a concurrent delete cannot leave a stale entry.
func (s *UserService) GetUser(ctx context.Context, id string) (*User, error) {
	cacheKey := cache.UserKey(id)
	cachedData, err := s.cache.Get(ctx, cacheKey)
	if err != nil {
		logrus.WithError(err).Warn("Failed to read user from cache")
	} else if cachedData != nil {
		var user User
		if json.Unmarshal(cachedData, &user) == nil {
			logrus.WithField("user_id", id).Debug("cache hit for user")
			return &user, nil
		}
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, cacheKey, user); err != nil {
		logrus.WithError(err).Warn("Failed to set cache for user")
		return user, nil
	}

	if _, err := s.repo.GetByID(ctx, id); err != nil {
		s.invalidate(ctx, id)
		return nil, err
	}
	return user, nil
}

// UpdateUser replaces the name and email fields; id and birth date are kept.
func (s *UserService) UpdateUser(ctx context.Context, id string, in UpdateInput) (*User, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if err := s.checkEmailFree(ctx, in.Email, id); err != nil {
		return nil, err
	}

	user, err := s.repo.Update(ctx, id, func(u *User) error {
		u.FirstName = in.FirstName
		u.LastName = in.LastName
		u.Email = in.Email
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)
	s.publish(ctx, queue.UserUpdated, user)
	return user, nil
}

// DeleteUser removes the user. Tweets written by the user are kept.
func (s *UserService) DeleteUser(ctx context.Context, id string) (*User, error) {
	user, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)
	s.publish(ctx, queue.UserDeleted, user)
	return user, nil
}

// checkEmailFree fails with ErrEmailTaken when a user other than exceptID
// owns email. Emails compare case-insensitively.
func (s *UserService) checkEmailFree(ctx context.Context, email, exceptID string) error {
	users, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	for _, u := range users {
		if strings.EqualFold(u.Email, email) && u.ID.String() != exceptID {
			return ErrEmailTaken
		}
	}
	return nil
}

func (s *UserService) invalidate(ctx context.Context, id string) {
	if err := s.cache.Delete(ctx, cache.UserKey(id)); err != nil {
		logrus.WithError(err).WithField("user_id", id).Warn("Failed to invalidate user cache")
	}
}

func (s *UserService) publish(ctx context.Context, eventType string, user *User) {
	ev, err := queue.NewEvent(eventType, user.ID.String(), user)
	if err == nil {
		err = s.events.Publish(ctx, ev)
	}
	if err != nil {
		logrus.WithError(err).WithField("event_type", eventType).Error("Failed to publish user event")
	}
}

func matchesLogin(u *User, in LoginInput) bool {
	if in.UserID != "" && u.ID.String() != in.UserID {
		return false
	}
	if in.Email != "" && !strings.EqualFold(u.Email, in.Email) {
		return false
	}
	return in.UserID != "" || in.Email != ""
}
