package snapshot

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/moodflix/core"
	"github.com/rushteam/moodflix/store"
)

func scored(id string, final float64) *core.Item {
	it := core.NewItem(id)
	it.Name = "Movie " + id
	it.Genres = "Drama"
	it.PutFeature("similarity_score", 0.8)
	it.PutFeature("final_score", final)
	return it
}

func TestCSVSink_Record(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2026, 10, 19, 8, 30, 5, 0, time.UTC)
	sink := &CSVSink{Dir: dir, Now: func() time.Time { return at }}

	require.NoError(t, sink.Record(context.Background(), LabelPostThreshold, []*core.Item{scored("1", 0.9), scored("2", 0.4)}))

	path := sink.Path(LabelPostThreshold, at)
	assert.Contains(t, path, "post_threshold_20261019_083005.csv")

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"movie_id", "movie_name", "year", "genres", "overview", "similarity_score", "final_score"}, rows[0])
	assert.Equal(t, "Movie 1", rows[1][1])
	assert.Equal(t, "0.9", rows[1][6])
}

func TestStoreSink_Record(t *testing.T) {
	kv := store.NewMemoryStore()
	defer kv.Close()
	sink := NewStoreSink(kv, time.Hour)

	require.NoError(t, sink.Record(context.Background(), LabelPreThreshold, []*core.Item{scored("7", 0.5)}))

	keys := kv.Keys("snapshot:pre_threshold:")
	require.Len(t, keys, 1)
	data, err := kv.Get(context.Background(), keys[0])
	require.NoError(t, err)

	var rec Record
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.Equal(t, LabelPreThreshold, rec.Label)
	require.Len(t, rec.Rows, 1)
	assert.Equal(t, "7", rec.Rows[0]["movie_id"])
	assert.InDelta(t, 0.5, rec.Rows[0]["final_score"], 1e-9)
}

func TestAsync_NeverBlocksOrFails(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	var labels []string
	slow := SinkFunc(func(_ context.Context, label string, _ []*core.Item) error {
		<-release
		mu.Lock()
		labels = append(labels, label)
		mu.Unlock()
		return errors.New("disk full")
	})

	a := NewAsync("test", slow, 1)
	// 第一条被 worker 取走阻塞，第二条入队，第三条丢弃；三次调用都立即返回 nil。
	for _, l := range []string{"a", "b", "c"} {
		assert.NoError(t, a.Record(context.Background(), l, nil))
	}
	close(release)
	require.NoError(t, a.Close())

	assert.NoError(t, a.Record(context.Background(), "after-close", nil))
	mu.Lock()
	defer mu.Unlock()
	assert.NotContains(t, labels, "after-close")
	assert.LessOrEqual(t, len(labels), 3)
	assert.Contains(t, labels, "a")
}
