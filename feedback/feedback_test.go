package feedback

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/moodflix/core"
	"github.com/rushteam/moodflix/store"
)

func newCollector(t *testing.T) (*Collector, *store.MemoryStore) {
	t.Helper()
	kv := store.NewMemoryStore()
	t.Cleanup(func() { _ = kv.Close() })
	c := NewCollector(kv)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	calls := 0
	c.Now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Minute)
	}
	return c, kv
}

func TestCollector_SubmitAndRecent(t *testing.T) {
	c, kv := newCollector(t)
	ctx := context.Background()

	first, err := c.Submit(ctx, Feedback{UserID: "u1", Rating: 4, Comment: "  nice picks ", MovieIDs: []string{"1", "2"},
		Prediction: core.Prediction{Categories: []string{"Comedy"}}})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, first.ID)
	assert.Equal(t, "nice picks", first.Comment)
	assert.False(t, first.CreatedAt.IsZero())
	assert.NotNil(t, first.Prediction.Emotions)

	second, err := c.Submit(ctx, Feedback{Rating: 2})
	require.NoError(t, err)

	_, err = kv.Get(ctx, KeyPrefix+first.ID.String())
	require.NoError(t, err)

	recent, err := c.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, second.ID, recent[0].ID)
	assert.Equal(t, first.ID, recent[1].ID)
	assert.Equal(t, []string{"1", "2"}, recent[1].MovieIDs)

	one, err := c.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, one, 1)

	got, err := c.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Rating)

	_, err = c.Get(ctx, uuid.New())
	assert.True(t, core.IsNotFound(err))

	sum, err := c.Summarize(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Count)
	assert.InDelta(t, 3.0, sum.Average, 1e-12)
	assert.Equal(t, 1, sum.ByScore[4])
}

func TestCollector_Validation(t *testing.T) {
	c, _ := newCollector(t)
	tests := []struct {
		name string
		fb   Feedback
	}{
		{"rating too low", Feedback{Rating: 0}},
		{"rating too high", Feedback{Rating: 6}},
		{"comment too long", Feedback{Rating: 3, Comment: strings.Repeat("x", 501)}},
		{"empty movie id", Feedback{Rating: 3, MovieIDs: []string{"1", ""}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Submit(context.Background(), tt.fb)
			require.Error(t, err)
			assert.True(t, core.IsInvalidInput(err))
		})
	}

	// 500 个多字节字符按字符计数
	_, err := c.Submit(context.Background(), Feedback{Rating: 5, Comment: strings.Repeat("好", 500)})
	assert.NoError(t, err)
}

func TestRatingLabel(t *testing.T) {
	assert.Equal(t, "😟 Not relevant at all", RatingLabel(1))
	assert.Equal(t, "🌟 Perfectly relevant!", RatingLabel(5))
	assert.Empty(t, RatingLabel(0))
}

func TestCollector_RecentEmpty(t *testing.T) {
	c, _ := newCollector(t)
	out, err := c.Recent(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = c.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, out)
}
