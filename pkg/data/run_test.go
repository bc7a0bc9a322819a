package data

import (
	"context"
	"testing"
	"time"

	"github.com/mchmarny/riskpulse/pkg/loan"
	"github.com/mchmarny/riskpulse/pkg/metrics"
	"github.com/mchmarny/riskpulse/pkg/risk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEvaluations(t *testing.T) []*risk.Evaluation {
	t.Helper()
	list, err := risk.Compare(context.Background(), loan.Generate(150, 42), risk.DefaultOptions(), nil)
	require.NoError(t, err)
	return list
}

func TestNewBatch(t *testing.T) {
	list := testEvaluations(t)
	runs := NewBatch(list)
	require.Len(t, runs, len(list))

	for i, r := range runs {
		assert.NotEmpty(t, r.ID)
		assert.Equal(t, runs[0].BatchID, r.BatchID)
		assert.Equal(t, string(list[i].Options.Stress), r.Stress)
		assert.Equal(t, list[i].Portfolio.Summary.TotalExpectedLoss, r.TotalExpectedLoss)
		assert.Equal(t, list[i].Portfolio.Summary.Distribution, r.Distribution)
	}
	assert.NotEqual(t, runs[0].ID, runs[1].ID)
}

func TestStore_SaveListGet(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	runs := NewBatch(testEvaluations(t))
	for i, r := range runs {
		r.CreatedAt = time.Date(2026, 1, 2, 3, 4, 5, i*1000, time.UTC)
	}
	require.NoError(t, s.SaveRuns(ctx, runs...))

	list, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, len(runs))
	assert.Equal(t, runs[len(runs)-1].ID, list[0].ID, "newest first")

	got, err := s.GetRun(ctx, runs[1].ID)
	require.NoError(t, err)
	assert.Equal(t, runs[1], got)

	list, err = s.ListRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestStore_GetRunNotFound(t *testing.T) {
	s := setupTestStore(t)
	_, err := s.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_SaveRunsDefaults(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	r := &Run{
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
		Family:       "logistic",
		Stress:       "None",
		Band:         string(metrics.Stable),
		Distribution: map[metrics.Bucket]int{metrics.Low: 3},
	}
	require.NoError(t, s.SaveRuns(ctx, r))
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, r.ID, r.BatchID)

	got, err := s.GetRun(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Distribution[metrics.Low])
	assert.Equal(t, 0, got.Distribution[metrics.High])
	assert.True(t, r.CreatedAt.Equal(got.CreatedAt))

	assert.NoError(t, s.SaveRuns(ctx))
}

func TestStore_DuplicateRollsBack(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	r := &Run{ID: "dup", CreatedAt: time.Now(), Distribution: map[metrics.Bucket]int{}}
	other := &Run{ID: "other", CreatedAt: time.Now(), Distribution: map[metrics.Bucket]int{}}
	assert.Error(t, s.SaveRuns(ctx, other, r, r))

	_, err := s.GetRun(ctx, "other")
	assert.ErrorIs(t, err, ErrNotFound)
}
