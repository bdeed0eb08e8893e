package user

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"twitter_api/internal/auth"
	"twitter_api/internal/cache"
	"twitter_api/internal/queue"
	"twitter_api/internal/store"
)

// memoryCache is an in-process cache.Store
type memoryCache struct {
	mu   sync.Mutex
	data  map[string][]byte
	err   error
	onSet func()
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}}
}

func (m *memoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.data[key], nil
}

func (m *memoryCache) Set(ctx context.Context, key string, data interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	m.data[key] = b
	if m.onSet != nil {
		m.onSet()
	}
	return nil
}

func (m *memoryCache) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return m.err
}

func (m *memoryCache) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

// recordingPublisher keeps every published event
type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, ev queue.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type serviceFixture struct {
	service   UserServiceInterface
	records   *store.FileCollection[Record]
	cache     *memoryCache
	publisher *recordingPublisher
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	hasher, err := auth.NewHasherWithCost("user-test-secret", bcrypt.MinCost)
	require.NoError(t, err)

	records := store.NewFileCollection[Record](t.TempDir(), FileName)
	f := &serviceFixture{
		records:   records,
		cache:     newMemoryCache(),
		publisher: &recordingPublisher{},
	}
	f.service = NewUserService(NewUserRepository(records), hasher, f.cache, f.publisher)
	return f
}

func carlos() SignupInput {
	birth := store.NewDate(1990, time.May, 17)
	return SignupInput{
		Email:     "carlos@example.com",
		Password:  "secret123",
		FirstName: "Carlos",
		LastName:  "Oliveira",
		BirthDate: &birth,
	}
}

func TestSignup_RoundTrip(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	created, err := f.service.Signup(ctx, carlos())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)

	got, err := f.service.GetUser(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "carlos@example.com", got.Email)
	assert.Equal(t, "Carlos", got.FirstName)
	assert.Equal(t, "Oliveira", got.LastName)
	require.NotNil(t, got.BirthDate)
	assert.Equal(t, "1990-05-17", got.BirthDate.String())

	assert.Equal(t, []string{queue.UserSignedUp}, f.publisher.types())
}

func TestSignup_PasswordNotStoredInClear(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.service.Signup(context.Background(), carlos())
	require.NoError(t, err)

	recs, err := f.records.List(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.NotEqual(t, "secret123", recs[0].Password)
	assert.NotContains(t, recs[0].Password, "secret123")
}

func TestSignup_ClientSuppliedID(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	id := uuid.New()
	in := carlos()
	in.UserID = &id

	created, err := f.service.Signup(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, id, created.ID)

	in.Email = "other@example.com"
	_, err = f.service.Signup(ctx, in)
	assert.ErrorIs(t, err, store.ErrDuplicateID)
}

func TestSignup_EmailTaken(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.service.Signup(ctx, carlos())
	require.NoError(t, err)

	again := carlos()
	again.Email = "CARLOS@example.com"
	_, err = f.service.Signup(ctx, again)
	assert.ErrorIs(t, err, ErrEmailTaken)

	users, err := f.service.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestLogin_ThreeStates(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	created, err := f.service.Signup(ctx, carlos())
	require.NoError(t, err)

	t.Run("ValidByEmail", func(t *testing.T) {
		u, err := f.service.Login(ctx, LoginInput{Email: "carlos@example.com", Password: "secret123"})
		require.NoError(t, err)
		assert.Equal(t, created.ID, u.ID)
	})

	t.Run("ValidByID", func(t *testing.T) {
		u, err := f.service.Login(ctx, LoginInput{UserID: created.ID.String(), Password: "secret123"})
		require.NoError(t, err)
		assert.Equal(t, "carlos@example.com", u.Email)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		_, err := f.service.Login(ctx, LoginInput{UserID: created.ID.String(), Password: "wrong-pass"})
		assert.ErrorIs(t, err, ErrInvalidCredential)
	})

	t.Run("UnknownAccount", func(t *testing.T) {
		_, err := f.service.Login(ctx, LoginInput{UserID: uuid.NewString(), Password: "secret123"})
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("IDAndEmailMustAgree", func(t *testing.T) {
		_, err := f.service.Login(ctx, LoginInput{
			UserID:   created.ID.String(),
			Email:    "someone@example.com",
			Password: "secret123",
		})
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestGetUser_NotFound(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.service.GetUser(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetUser_UsesCache(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	created, err := f.service.Signup(ctx, carlos())
	require.NoError(t, err)
	key := cache.UserKey(created.ID.String())
	assert.False(t, f.cache.has(key), "signup does not pre-populate the cache")

	_, err = f.service.GetUser(ctx, created.ID.String())
	require.NoError(t, err)
	assert.True(t, f.cache.has(key))

	// Served from cache even after the record is gone from the store.
	_, err = f.records.DeleteByID(ctx, created.ID.String())
	require.NoError(t, err)
	got, err := f.service.GetUser(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestGetUser_DeleteDuringFillDropsEntry(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	created, err := f.service.Signup(ctx, carlos())
	require.NoError(t, err)
	id := created.ID.String()

	// The record disappears after it was loaded but before the fill lands.
	f.cache.onSet = func() {
		_, err := f.records.DeleteByID(ctx, id)
		require.NoError(t, err)
	}

	_, err = f.service.GetUser(ctx, id)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.False(t, f.cache.has(cache.UserKey(id)))

	f.cache.onSet = nil
	_, err = f.service.GetUser(ctx, id)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetUser_CacheFailureFallsBackToStore(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	created, err := f.service.Signup(ctx, carlos())
	require.NoError(t, err)

	f.cache.err = errors.New("redis down")
	got, err := f.service.GetUser(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestUpdateUser(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	created, err := f.service.Signup(ctx, carlos())
	require.NoError(t, err)
	_, err = f.service.GetUser(ctx, created.ID.String())
	require.NoError(t, err)

	updated, err := f.service.UpdateUser(ctx, created.ID.String(), UpdateInput{
		Email:     "carlos.o@example.com",
		FirstName: "Carl",
		LastName:  "Oliver",
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Carl", updated.FirstName)
	assert.Equal(t, "Oliver", updated.LastName)
	assert.Equal(t, "carlos.o@example.com", updated.Email)
	require.NotNil(t, updated.BirthDate)
	assert.Equal(t, "1990-05-17", updated.BirthDate.String())

	assert.False(t, f.cache.has(cache.UserKey(created.ID.String())), "update invalidates the cache")

	got, err := f.service.GetUser(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Carl", got.FirstName)

	// The password survives the update.
	_, err = f.service.Login(ctx, LoginInput{Email: "carlos.o@example.com", Password: "secret123"})
	assert.NoError(t, err)

	assert.Equal(t, []string{queue.UserSignedUp, queue.UserUpdated}, f.publisher.types())
}

func TestUpdateUser_KeepOwnEmail(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	created, err := f.service.Signup(ctx, carlos())
	require.NoError(t, err)

	_, err = f.service.UpdateUser(ctx, created.ID.String(), UpdateInput{
		Email:     "carlos@example.com",
		FirstName: "Carlos",
		LastName:  "Silva",
	})
	assert.NoError(t, err)
}

func TestUpdateUser_EmailTaken(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.service.Signup(ctx, carlos())
	require.NoError(t, err)
	other := carlos()
	other.Email = "ana@example.com"
	ana, err := f.service.Signup(ctx, other)
	require.NoError(t, err)

	_, err = f.service.UpdateUser(ctx, ana.ID.String(), UpdateInput{
		Email:     "carlos@example.com",
		FirstName: "Ana",
		LastName:  "Souza",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestUpdateUser_NotFoundLeavesStoreUnchanged(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.service.Signup(ctx, carlos())
	require.NoError(t, err)
	before, err := f.records.List(ctx)
	require.NoError(t, err)

	_, err = f.service.UpdateUser(ctx, uuid.NewString(), UpdateInput{
		Email:     "x@example.com",
		FirstName: "X",
		LastName:  "Y",
	})
	assert.ErrorIs(t, err, store.ErrNotFound)

	after, err := f.records.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestUpdateUser_NotFoundWinsOverTakenEmail(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.service.Signup(ctx, carlos())
	require.NoError(t, err)

	_, err = f.service.UpdateUser(ctx, uuid.NewString(), UpdateInput{
		Email:     "carlos@example.com",
		FirstName: "Ghost",
		LastName:  "User",
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NotErrorIs(t, err, ErrEmailTaken)
}

func TestDeleteUser(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	created, err := f.service.Signup(ctx, carlos())
	require.NoError(t, err)

	deleted, err := f.service.DeleteUser(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, created.ID, deleted.ID)

	_, err = f.service.GetUser(ctx, created.ID.String())
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = f.service.DeleteUser(ctx, created.ID.String())
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.Equal(t, []string{queue.UserSignedUp, queue.UserDeleted}, f.publisher.types())
}

func TestListUsers_CreatesMinusDeletes(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	var ids []string
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com", "d@example.com"} {
		in := carlos()
		in.Email = email
		u, err := f.service.Signup(ctx, in)
		require.NoError(t, err)
		ids = append(ids, u.ID.String())
	}
	_, err := f.service.DeleteUser(ctx, ids[1])
	require.NoError(t, err)

	users, err := f.service.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 3)
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	f := newServiceFixture(t)
	f.publisher.err = errors.New("broker unavailable")

	_, err := f.service.Signup(context.Background(), carlos())
	assert.NoError(t, err)
}
