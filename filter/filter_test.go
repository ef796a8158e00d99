package filter

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/moodflix/core"
	"github.com/rushteam/moodflix/store"
)

func items(ids ...string) []*core.Item {
	out := make([]*core.Item, len(ids))
	for i, id := range ids {
		out[i] = core.NewItem(id)
	}
	return out
}

func ids(items []*core.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

type errFilter struct{}

func (errFilter) Name() string { return "err" }
func (errFilter) ShouldFilter(context.Context, *core.RecommendContext, *core.Item) (bool, error) {
	return true, errors.New("broken")
}

func TestFilterNode(t *testing.T) {
	n := &FilterNode{Filters: []Filter{errFilter{}, NewBlacklistFilter([]string{"b"}, nil, "")}}
	out, err := n.Process(context.Background(), nil, append(items("a", "b", "c"), nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, ids(out))

	empty := &FilterNode{}
	in := items("x")
	out, err = empty.Process(context.Background(), nil, in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestWatchedFilter(t *testing.T) {
	kv := store.NewMemoryStore()
	defer kv.Close()
	now := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	f := &WatchedFilter{Store: kv, Now: func() time.Time { return now }}

	require.NoError(t, f.MarkWatched(context.Background(), "u1", "a", "b"))
	// 30 天前看过的
	require.NoError(t, kv.HSet(context.Background(), "watched:u1", "c",
		[]byte(strconv.FormatInt(now.Add(-30*24*time.Hour).Unix(), 10))))

	n := &FilterNode{Filters: []Filter{f}}
	rctx := &core.RecommendContext{UserID: "u1"}
	out, err := n.Process(context.Background(), rctx, items("a", "b", "c", "d"))
	require.NoError(t, err)
	assert.Equal(t, []string{"d"}, ids(out))

	f.TimeWindow = 7 * 24 * time.Hour
	out, err = n.Process(context.Background(), rctx, items("a", "b", "c", "d"))
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d"}, ids(out))

	// 其他用户与匿名请求不受影响
	out, err = n.Process(context.Background(), &core.RecommendContext{UserID: "u2"}, items("a", "d"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "d"}, ids(out))
	out, err = n.Process(context.Background(), nil, items("a"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(out))

	drop, err := f.ShouldFilter(context.Background(), rctx, core.NewItem("a"))
	require.NoError(t, err)
	assert.True(t, drop)
}

func TestBlacklistFilter_Store(t *testing.T) {
	kv := store.NewMemoryStore()
	defer kv.Close()
	require.NoError(t, kv.HSet(context.Background(), "blacklist", "c", []byte("1")))

	f := NewBlacklistFilter([]string{"a"}, kv, "blacklist")
	out, err := (&FilterNode{Filters: []Filter{f}}).Process(context.Background(), nil, items("a", "b", "c"))
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(out))
}

func TestExprFilter(t *testing.T) {
	f, err := NewExprFilter(`"Horror" in item.genres && item.year < 1980`)
	require.NoError(t, err)
	assert.Equal(t, "filter.expr", f.Name())

	old := core.NewItem("old")
	old.Genres = "Horror|Sci-Fi"
	old.Year = "1979"
	recent := core.NewItem("recent")
	recent.Genres = "Horror"
	recent.Year = "2017"
	comedy := core.NewItem("comedy")
	comedy.Genres = "Comedy"
	comedy.Year = "1950"

	out, err := (&FilterNode{Filters: []Filter{f}}).Process(context.Background(), nil, []*core.Item{old, recent, comedy})
	require.NoError(t, err)
	assert.Equal(t, []string{"recent", "comedy"}, ids(out))

	_, err = NewExprFilter("item.year <")
	assert.Error(t, err)
}
