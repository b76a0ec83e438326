package service

import (
	"assessment_backend/internal/config"
	"assessment_backend/internal/repository"
	"assessment_backend/internal/testutil"
	"assessment_backend/internal/util"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noShuffle(int, func(i, j int)) {}

func newEndlessService(t *testing.T, tests int) (*EndlessService, *MemoryRecentWindow) {
	t.Helper()
	db := testutil.OpenDB(t)
	for i := 0; i < tests; i++ {
		testutil.CreateTest(t, db, true)
	}
	testutil.CreateTest(t, db, false)

	window := NewMemoryRecentWindow(30)
	svc := NewEndlessService(repository.NewTestRepository(db), window,
		config.EndlessConfig{BatchSize: 3, MaxBatchSize: 4, RecentWindow: 30})
	svc.shuffle = noShuffle
	return svc, window
}

func keys(batch []EndlessQuestion) []string {
	out := make([]string, len(batch))
	for i, q := range batch {
		out[i] = q.Key
	}
	return out
}

func TestEndlessService_BatchSizeAndSources(t *testing.T) {
	svc, _ := newEndlessService(t, 2)
	ctx := context.Background()

	batch, err := svc.Batch(ctx, nil, 0, nil)
	require.NoError(t, err)
	assert.Len(t, batch, 3)
	for _, q := range batch {
		assert.Equal(t, EndlessKey(q.TestID, q.QuestionIndex), q.Key)
	}

	batch, err = svc.Batch(ctx, nil, 100, nil)
	require.NoError(t, err)
	assert.Len(t, batch, 4)
}

func TestEndlessService_ExcludesClientKeys(t *testing.T) {
	svc, _ := newEndlessService(t, 1)
	ctx := context.Background()

	first, err := svc.Batch(ctx, nil, 3, nil)
	require.NoError(t, err)

	second, err := svc.Batch(ctx, nil, 2, keys(first))
	require.NoError(t, err)
	require.Len(t, second, 2)
	for _, k := range keys(second) {
		assert.NotContains(t, keys(first), k)
	}

	// only 5 questions exist: excluded keys are reused once the pool runs out
	third, err := svc.Batch(ctx, nil, 4, keys(first))
	require.NoError(t, err)
	assert.Len(t, third, 4)
}

func TestEndlessService_ServerRecentWindow(t *testing.T) {
	svc, window := newEndlessService(t, 2)
	ctx := context.Background()
	uid := uint(3)

	first, err := svc.Batch(ctx, &uid, 4, nil)
	require.NoError(t, err)

	recent, err := window.Recent(ctx, uid)
	require.NoError(t, err)
	assert.ElementsMatch(t, keys(first), recent)

	second, err := svc.Batch(ctx, &uid, 4, nil)
	require.NoError(t, err)
	for _, k := range keys(second) {
		assert.NotContains(t, keys(first), k)
	}
}

func TestEndlessService_EmptyPool(t *testing.T) {
	svc, _ := newEndlessService(t, 0)
	_, err := svc.Batch(context.Background(), nil, 3, nil)
	assert.ErrorIs(t, err, util.ErrNoEndlessQuestions)
}

func TestMemoryRecentWindow_FIFO(t *testing.T) {
	w := NewMemoryRecentWindow(3)
	ctx := context.Background()

	require.NoError(t, w.Push(ctx, 1, "a", "b"))
	require.NoError(t, w.Push(ctx, 1, "c", "d"))

	recent, err := w.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "c", "b"}, recent)

	other, err := w.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, other)
}
