package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type note struct {
	ID   string `json:"id" bson:"id"`
	Body string `json:"body" bson:"body"`
}

func (n note) RecordID() string { return n.ID }

func setBody(body string) Mutator[note] {
	return func(n *note) error {
		n.Body = body
		return nil
	}
}

// testCollectionContract exercises the behaviour every backend must share.
func testCollectionContract(t *testing.T, open func(t *testing.T) Collection[note]) {
	ctx := context.Background()

	t.Run("EmptyList", func(t *testing.T) {
		c := open(t)

		notes, err := c.List(ctx)
		require.NoError(t, err)
		assert.NotNil(t, notes)
		assert.Empty(t, notes)
	})

	t.Run("AppendThenFind", func(t *testing.T) {
		c := open(t)

		created, err := c.Append(ctx, note{ID: "n1", Body: "hello"})
		require.NoError(t, err)
		assert.Equal(t, note{ID: "n1", Body: "hello"}, created)

		found, err := c.FindByID(ctx, "n1")
		require.NoError(t, err)
		assert.Equal(t, created, found)
	})

	t.Run("AppendDuplicateID", func(t *testing.T) {
		c := open(t)

		_, err := c.Append(ctx, note{ID: "n1", Body: "first"})
		require.NoError(t, err)

		_, err = c.Append(ctx, note{ID: "n1", Body: "second"})
		assert.ErrorIs(t, err, ErrDuplicateID)

		notes, err := c.List(ctx)
		require.NoError(t, err)
		require.Len(t, notes, 1)
		assert.Equal(t, "first", notes[0].Body)
	})

	t.Run("FindMissing", func(t *testing.T) {
		c := open(t)

		_, err := c.FindByID(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Update", func(t *testing.T) {
		c := open(t)

		_, err := c.Append(ctx, note{ID: "n1", Body: "hello"})
		require.NoError(t, err)

		updated, err := c.UpdateByID(ctx, "n1", setBody("hello v2"))
		require.NoError(t, err)
		assert.Equal(t, "n1", updated.ID)
		assert.Equal(t, "hello v2", updated.Body)

		found, err := c.FindByID(ctx, "n1")
		require.NoError(t, err)
		assert.Equal(t, "hello v2", found.Body)
	})

	t.Run("UpdateMissingLeavesStoreUnchanged", func(t *testing.T) {
		c := open(t)

		_, err := c.Append(ctx, note{ID: "n1", Body: "hello"})
		require.NoError(t, err)

		called := false
		_, err = c.UpdateByID(ctx, "missing", func(n *note) error {
			called = true
			return nil
		})
		assert.ErrorIs(t, err, ErrNotFound)
		assert.False(t, called)

		notes, err := c.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []note{{ID: "n1", Body: "hello"}}, notes)
	})

	t.Run("UpdateAbortedByMutator", func(t *testing.T) {
		c := open(t)

		_, err := c.Append(ctx, note{ID: "n1", Body: "hello"})
		require.NoError(t, err)

		boom := errors.New("boom")
		_, err = c.UpdateByID(ctx, "n1", func(n *note) error {
			n.Body = "changed"
			return boom
		})
		assert.ErrorIs(t, err, boom)

		found, err := c.FindByID(ctx, "n1")
		require.NoError(t, err)
		assert.Equal(t, "hello", found.Body)
	})

	t.Run("UpdateRejectsIDChange", func(t *testing.T) {
		c := open(t)

		_, err := c.Append(ctx, note{ID: "n1", Body: "hello"})
		require.NoError(t, err)

		_, err = c.UpdateByID(ctx, "n1", func(n *note) error {
			n.ID = "n2"
			return nil
		})
		assert.Error(t, err)

		_, err = c.FindByID(ctx, "n1")
		assert.NoError(t, err)
	})

	t.Run("Delete", func(t *testing.T) {
		c := open(t)

		_, err := c.Append(ctx, note{ID: "n1", Body: "hello"})
		require.NoError(t, err)

		deleted, err := c.DeleteByID(ctx, "n1")
		require.NoError(t, err)
		assert.Equal(t, note{ID: "n1", Body: "hello"}, deleted)

		_, err = c.FindByID(ctx, "n1")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("DeleteMissingLeavesStoreUnchanged", func(t *testing.T) {
		c := open(t)

		_, err := c.Append(ctx, note{ID: "n1", Body: "hello"})
		require.NoError(t, err)

		_, err = c.DeleteByID(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)

		notes, err := c.List(ctx)
		require.NoError(t, err)
		assert.Len(t, notes, 1)
	})

	t.Run("ListAfterCreatesAndDeletes", func(t *testing.T) {
		c := open(t)

		for i := 0; i < 7; i++ {
			_, err := c.Append(ctx, note{ID: fmt.Sprintf("n%d", i), Body: "x"})
			require.NoError(t, err)
		}
		for _, id := range []string{"n1", "n3", "n5"} {
			_, err := c.DeleteByID(ctx, id)
			require.NoError(t, err)
		}

		notes, err := c.List(ctx)
		require.NoError(t, err)
		assert.Len(t, notes, 4)
	})
}

// testConcurrentUpdates checks that racing updates leave one of the submitted
// values, never a mix and never an unreadable store.
func testConcurrentUpdates(t *testing.T, c Collection[note]) {
	ctx := context.Background()

	_, err := c.Append(ctx, note{ID: "n1", Body: "initial"})
	require.NoError(t, err)

	values := []string{"left", "right"}
	var wg sync.WaitGroup
	for _, v := range values {
		wg.Add(1)
		go func(body string) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				_, _ = c.UpdateByID(ctx, "n1", setBody(body))
			}
		}(v)
	}
	wg.Wait()

	found, err := c.FindByID(ctx, "n1")
	require.NoError(t, err)
	assert.Contains(t, values, found.Body)

	notes, err := c.List(ctx)
	require.NoError(t, err)
	assert.Len(t, notes, 1)
}

// testUpdateDeleteRace races an update against a delete of the same record.
// The delete always finds the record; the update either lands or reports
// ErrNotFound, and whatever survives carries the updated body.
func testUpdateDeleteRace(t *testing.T, c Collection[note]) {
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("race-%d", i)
		_, err := c.Append(ctx, note{ID: id, Body: "initial"})
		require.NoError(t, err)

		var updateErr, deleteErr error
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, updateErr = c.UpdateByID(ctx, id, setBody("updated"))
		}()
		go func() {
			defer wg.Done()
			_, deleteErr = c.DeleteByID(ctx, id)
		}()
		wg.Wait()

		require.NoError(t, deleteErr)
		if updateErr != nil {
			require.ErrorIs(t, updateErr, ErrNotFound)
		}

		notes, err := c.List(ctx)
		require.NoError(t, err)
		require.LessOrEqual(t, len(notes), 1)

		found, err := c.FindByID(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		require.NoError(t, err)
		assert.NoError(t, updateErr, "a record survived without a successful update")
		assert.Equal(t, "updated", found.Body)

		_, err = c.DeleteByID(ctx, id)
		require.NoError(t, err)
	}
}
