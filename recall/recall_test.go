package recall

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/moodflix/catalog"
	"github.com/rushteam/moodflix/core"
	"github.com/rushteam/moodflix/store"
)

type embedFunc func(ctx context.Context, text string) ([]float64, error)

func (f embedFunc) Embed(ctx context.Context, text string) ([]float64, error) { return f(ctx, text) }

func movie(id, genres string, emb ...float64) *core.Item {
	it := core.NewItem(id)
	it.Name = "movie-" + id
	it.Genres = genres
	it.Embedding = emb
	return it
}

func testCatalog() *catalog.Catalog {
	return catalog.New([]*core.Item{
		movie("a", "Comedy|Romance", 1, 0),
		movie("b", "Action", 0.8, 0.6),
		movie("c", "Drama", 0, 1),
		movie("d", "Horror"),
	})
}

func indexed(t *testing.T, cat *catalog.Catalog) *store.MemoryVectorService {
	t.Helper()
	vs := store.NewMemoryVectorService()
	n, err := store.IndexItems(context.Background(), vs, "movies", cat.Items())
	require.NoError(t, err)
	require.Equal(t, 3, n)
	return vs
}

func ids(items []*core.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestSimilarityRecall(t *testing.T) {
	cat := testCatalog()
	r := &SimilarityRecall{
		Embedder: embedFunc(func(_ context.Context, text string) ([]float64, error) {
			assert.Equal(t, "a love story", text)
			return []float64{1, 0}, nil
		}),
		Vectors:    indexed(t, cat),
		Catalog:    cat,
		Collection: "movies",
	}
	out, err := r.Recall(context.Background(), &core.RecommendContext{Story: "a love story"})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, ids(out))
	assert.InDelta(t, 1.0, out[0].Score, 1e-9)
	assert.InDelta(t, 0.8, out[1].Score, 1e-9)
	sim, ok := out[1].Feature(core.FeatureSimilarity)
	require.True(t, ok)
	assert.InDelta(t, 0.8, sim, 1e-9)
	assert.Equal(t, "similarity", out[0].Labels[LabelRecallSource].Value)

	orig, _ := cat.Get("a")
	assert.Zero(t, orig.Score)
	assert.Empty(t, orig.Labels)
}

func TestSimilarityRecall_TopN(t *testing.T) {
	cat := testCatalog()
	r := &SimilarityRecall{
		Embedder:   embedFunc(func(context.Context, string) ([]float64, error) { return []float64{1, 0}, nil }),
		Vectors:    indexed(t, cat),
		Catalog:    cat,
		Collection: "movies",
		TopN:       1,
	}
	out, err := r.Recall(context.Background(), &core.RecommendContext{Story: "x"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(out))
}

func TestSimilarityRecall_Fallback(t *testing.T) {
	cat := testCatalog()
	failing := embedFunc(func(context.Context, string) ([]float64, error) { return nil, errors.New("ollama down") })
	tests := []struct {
		name string
		r    *SimilarityRecall
		rctx *core.RecommendContext
	}{
		{"embedder error", &SimilarityRecall{Embedder: failing, Vectors: indexed(t, cat), Catalog: cat, Collection: "movies", TopN: 2}, &core.RecommendContext{Story: "x"}},
		{"empty story", &SimilarityRecall{Embedder: failing, Vectors: indexed(t, cat), Catalog: cat, Collection: "movies", TopN: 2}, &core.RecommendContext{}},
		{"nothing above threshold", &SimilarityRecall{
			Embedder: embedFunc(func(context.Context, string) ([]float64, error) { return []float64{-1, 0}, nil }),
			Vectors:  indexed(t, cat), Catalog: cat, Collection: "movies", TopN: 2,
		}, &core.RecommendContext{Story: "x"}},
		{"no embedder", &SimilarityRecall{Catalog: cat, TopN: 2}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tt.r.Recall(context.Background(), tt.rctx)
			require.NoError(t, err)
			require.Len(t, out, 2)
			for _, it := range out {
				assert.Equal(t, FallbackSimilarity, it.Score)
				assert.Equal(t, "fallback", it.Labels[LabelRecallSource].Value)
			}
		})
	}
}

func TestSimilarityRecall_FallbackSeed(t *testing.T) {
	cat := testCatalog()
	r := &SimilarityRecall{Catalog: cat, TopN: 2}
	rctx := &core.RecommendContext{Params: map[string]any{ParamSeed: uint64(7)}}
	a, err := r.Recall(context.Background(), rctx)
	require.NoError(t, err)
	b, err := r.Recall(context.Background(), rctx)
	require.NoError(t, err)
	assert.Equal(t, ids(a), ids(b))
	assert.Equal(t, ids(cat.Sample(2, 7)), ids(a))
}

func TestGenreRecall(t *testing.T) {
	cat := testCatalog()
	r := &GenreRecall{Catalog: cat}

	out, err := r.Recall(context.Background(), &core.RecommendContext{
		Prediction: core.Prediction{Categories: []string{"comedy", "Horror"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "d"}, ids(out))
	assert.Equal(t, "genre", out[0].Labels[LabelRecallSource].Value)

	out, err = r.Recall(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, out, 4)

	limited := &GenreRecall{Catalog: cat, Limit: 2, Seed: 3}
	x, _ := limited.Recall(context.Background(), nil)
	y, _ := limited.Recall(context.Background(), nil)
	assert.Len(t, x, 2)
	assert.Equal(t, ids(x), ids(y))
}

type staticSource struct {
	name  string
	items []*core.Item
	err   error
	delay time.Duration
}

func (s staticSource) Name() string { return s.name }

func (s staticSource) Recall(ctx context.Context, _ *core.RecommendContext) ([]*core.Item, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	out := make([]*core.Item, len(s.items))
	for i, it := range s.items {
		out[i] = recalled(it, s.name, it.Score)
	}
	return out, s.err
}

func scored(id string, score float64) *core.Item {
	it := core.NewItem(id)
	it.Score = score
	return it
}

func TestFanout(t *testing.T) {
	sources := []Source{
		staticSource{name: "similarity", items: []*core.Item{scored("a", 0.9), scored("b", 0.6)}},
		staticSource{name: "genre", items: []*core.Item{scored("b", 0.7), scored("c", 0.5)}},
		staticSource{name: "broken", err: errors.New("boom")},
		staticSource{name: "slow", items: []*core.Item{scored("z", 1)}, delay: time.Second},
	}

	n := &Fanout{Sources: sources, Dedup: true, Timeout: 50 * time.Millisecond, MaxConcurrent: 2}
	out, err := n.Process(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(out))
	assert.Equal(t, "similarity|genre", out[1].Labels[LabelRecallSource].Value)

	n.MergeStrategy = "priority"
	out, err = n.Process(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(out))
	assert.Equal(t, 0.7, out[1].Score)
	assert.Equal(t, "1", out[1].Labels["recall_priority"].Value)

	n.MergeStrategy = "union"
	out, err = n.Process(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Len(t, out, 4)
}

func TestNode(t *testing.T) {
	n := &Node{Source: staticSource{name: "recall.static", items: []*core.Item{scored("a", 0.3)}}, Timeout: time.Second}
	assert.Equal(t, "recall.static", n.Name())
	out, err := n.Process(context.Background(), nil, []*core.Item{scored("ignored", 1)})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(out))
}
