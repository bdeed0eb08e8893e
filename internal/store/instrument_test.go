package store

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twitter_api/internal/observability"
)

func TestInstrumented_NilMetricsReturnsCollection(t *testing.T) {
	c := newTestFileCollection(t)
	assert.Same(t, c, Instrumented[note]("note", c, nil))
}

func TestInstrumented_CountsOutcomes(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	c := Instrumented[note]("note", newTestFileCollection(t), metrics)
	ctx := context.Background()

	_, err := c.Append(ctx, note{ID: "n1"})
	require.NoError(t, err)
	_, err = c.Append(ctx, note{ID: "n1"})
	require.ErrorIs(t, err, ErrDuplicateID)
	_, err = c.FindByID(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = c.DeleteByID(ctx, "n1")
	require.NoError(t, err)

	ops := metrics.StoreOperationsTotal
	assert.Equal(t, 1.0, testutil.ToFloat64(ops.WithLabelValues("note", "append", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ops.WithLabelValues("note", "append", "duplicate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ops.WithLabelValues("note", "find", "not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ops.WithLabelValues("note", "delete", "ok")))
}
