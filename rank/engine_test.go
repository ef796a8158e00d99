package rank

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/moodflix/core"
	"github.com/rushteam/moodflix/pkg/conv"
	"github.com/rushteam/moodflix/snapshot"
)

func movie(id, genres, overview string, meta map[string]string) *core.Item {
	it := core.NewItem(id)
	it.Name = "movie-" + id
	it.Genres = genres
	it.Overview = overview
	for k, v := range meta {
		it.Meta[k] = v
	}
	return it
}

func cand(id, genres string, sim float64) Candidate {
	return Candidate{Item: movie(id, genres, "", nil), Similarity: sim}
}

func ids(scored []ScoredCandidate) []string {
	out := make([]string, len(scored))
	for i, s := range scored {
		out[i] = s.Item.ID
	}
	return out
}

func TestRank_WorkedExample(t *testing.T) {
	cands := []Candidate{
		cand("1", "Action|Thriller", 0.9),
		cand("2", "Romance", 0.4),
	}
	pred := core.Prediction{Categories: []string{"Action"}}

	got, err := Rank(context.Background(), cands, pred, Weights{0.5, 0.3, 0.2}, Config{})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, []string{"1", "2"}, ids(got))
	assert.InDelta(t, 1.0, got[0].CategoryMatch, 1e-12)
	assert.InDelta(t, 0.5, got[0].EmotionMatch, 1e-12)
	assert.InDelta(t, 0.85, got[0].Final, 1e-12)
	assert.InDelta(t, 0.0, got[1].CategoryMatch, 1e-12)
	assert.InDelta(t, 0.3, got[1].Final, 1e-12)
	assert.Nil(t, got[0].Recency)
	assert.Nil(t, got[0].Popularity)
}

func TestRank_ConfigurationError(t *testing.T) {
	tests := []struct {
		name string
		w    Weights
	}{
		{"all zero", Weights{0, 0, 0}},
		{"negative", Weights{1, -0.1, 0}},
		{"nan", Weights{math.NaN(), 1, 1}},
		{"inf", Weights{math.Inf(1), 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Rank(context.Background(), []Candidate{cand("1", "Drama", 0.5)}, core.Prediction{}, tt.w, Config{})
			require.Error(t, err)
			var ce *core.ConfigurationError
			assert.True(t, errors.As(err, &ce))
		})
	}
}

func TestRank_EmptyCandidates(t *testing.T) {
	got, err := Rank(context.Background(), nil, core.Prediction{}, DefaultWeights(), Config{})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got, err = Rank(context.Background(), []Candidate{{Item: nil, Similarity: 1}}, core.Prediction{}, DefaultWeights(), Config{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCategoryMatch(t *testing.T) {
	tests := []struct {
		name      string
		genres    []string
		predicted []string
		want      float64
	}{
		{"no prediction", []string{"Action"}, nil, 0.5},
		{"no prediction and no genres", nil, nil, 0.5},
		{"item without genres", nil, []string{"Action"}, 0},
		{"primary hit only", []string{"Action"}, []string{"Action", "Drama"}, 1.5 / 2.5},
		{"secondary hit only", []string{"Drama"}, []string{"Action", "Drama"}, 1.0 / 2.5},
		{"all hit", []string{"Drama", "Action"}, []string{"Action", "Drama"}, 1},
		{"miss", []string{"Comedy"}, []string{"Action", "Drama", "War"}, 0},
		{"case sensitive", []string{"action"}, []string{"Action"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CategoryMatch(tt.genres, tt.predicted)
			assert.InDelta(t, tt.want, got, 1e-12)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}

func TestEmotionKeywords_Match(t *testing.T) {
	kw := DefaultEmotionKeywords()
	tests := []struct {
		name     string
		text     string
		emotions []string
		want     float64
	}{
		{"no emotions", "funny", nil, 0.5},
		{"unknown emotion", "funny", []string{"Bored"}, 0.5},
		// Happy 有 9 个关键词，max(1, 9/3)=3；命中 funny/fun 两个 -> 2/3
		{"partial", "a funny story", []string{"Happy"}, 2.0 / 3.0},
		{"saturates", "happy joy funny laugh", []string{"Happy"}, 1},
		// Sad 8 个关键词 -> 8/3；无命中 -> 0；与 Happy(1) 平均 -> 0.5
		{"mean over recognized", "happy joy funny laugh", []string{"Happy", "Sad", "Bored"}, 0.5},
		{"no hits", "a documentary about bridges", []string{"Romantic"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := kw.Match(tt.text, tt.emotions)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestRank_EmotionUsesAllTextFieldsCaseInsensitive(t *testing.T) {
	it := movie("1", "Drama", "A GRIEF stricken town", map[string]string{
		"plot":        "Full of Sorrow",
		"description": "",
		"release":     "tragedy", // 不是文本列，不参与匹配
	})
	got, err := Rank(context.Background(), []Candidate{{Item: it, Similarity: 1}},
		core.Prediction{Emotions: []string{"Sad"}}, DefaultWeights(), Config{})
	require.NoError(t, err)
	// 命中 grief + sorrow = 2，Sad 有 8 个关键词 -> 2/(8/3) = 0.75
	assert.InDelta(t, 0.75, got[0].EmotionMatch, 1e-12)
}

func TestRank_CustomKeywordTable(t *testing.T) {
	it := movie("1", "", "robots everywhere", nil)
	cfg := Config{Keywords: EmotionKeywords{"Curious": {"robot"}}}
	got, err := Rank(context.Background(), []Candidate{{Item: it, Similarity: 1}},
		core.Prediction{Emotions: []string{"Curious", "Happy"}}, DefaultWeights(), cfg)
	require.NoError(t, err)
	// Happy 不在自定义表中，只计 Curious
	assert.InDelta(t, 1.0, got[0].EmotionMatch, 1e-12)
}

func fixedNow() time.Time { return time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC) }

func TestRank_MetadataSequentialBlend(t *testing.T) {
	cands := []Candidate{
		{Item: movie("new", "", "", map[string]string{"release_year": "2030", "vote_count": "200"}), Similarity: 1},
		{Item: movie("old", "", "", map[string]string{"release_year": "1980", "vote_count": "50"}), Similarity: 1},
		{Item: movie("bad", "", "", map[string]string{"release_year": "n/a", "vote_count": "lots"}), Similarity: 1},
	}
	got, err := Rank(context.Background(), cands, core.Prediction{}, Weights{1, 0, 0}, Config{Now: fixedNow, MinResults: conv.Ptr(10)})
	require.NoError(t, err)
	require.Len(t, got, 3)

	byID := map[string]ScoredCandidate{}
	for _, s := range got {
		byID[s.Item.ID] = s
	}

	require.NotNil(t, byID["new"].Recency)
	assert.InDelta(t, 1.0, *byID["new"].Recency, 1e-12)
	assert.InDelta(t, 0.0, *byID["old"].Recency, 1e-12)
	assert.InDelta(t, 0.5, *byID["bad"].Recency, 1e-12)

	require.NotNil(t, byID["new"].Popularity)
	assert.InDelta(t, 1.0, *byID["new"].Popularity, 1e-12)
	assert.InDelta(t, 0.25, *byID["old"].Popularity, 1e-12)
	assert.InDelta(t, 0.5, *byID["bad"].Popularity, 1e-12)

	// old: ((1*0.9 + 0*0.1) * 0.9) + 0.25*0.1 = 0.835
	assert.InDelta(t, 0.835, byID["old"].Final, 1e-12)
	// bad: ((1*0.9 + 0.5*0.1) * 0.9) + 0.5*0.1 = 0.905
	assert.InDelta(t, 0.905, byID["bad"].Final, 1e-12)
	assert.Equal(t, []string{"new", "bad", "old"}, ids(got))
}

func TestRank_PopularityFieldOrderAndNonPositiveMax(t *testing.T) {
	cands := []Candidate{
		{Item: movie("a", "", "", map[string]string{"popularity": "0", "vote_average": "9"}), Similarity: 0.5},
		{Item: movie("b", "", "", map[string]string{"popularity": "-3"}), Similarity: 0.5},
	}
	got, err := Rank(context.Background(), cands, core.Prediction{}, DefaultWeights(), Config{})
	require.NoError(t, err)
	for _, s := range got {
		require.NotNil(t, s.Popularity)
		assert.InDelta(t, 0.5, *s.Popularity, 1e-12)
		assert.Nil(t, s.Recency)
	}
}

func TestRank_AdaptiveThreshold(t *testing.T) {
	sims := []float64{0.95, 0.9, 0.85, 0.8, 0.75, 0.7, 0.2, 0.1}
	cands := make([]Candidate, len(sims))
	for i, s := range sims {
		cands[i] = cand(fmt.Sprint(i), "", s)
	}

	// 权重只看相似度 -> final = sim
	got, err := Rank(context.Background(), cands, core.Prediction{}, Weights{1, 0, 0}, Config{MinResults: conv.Ptr(3)})
	require.NoError(t, err)

	finals := make([]float64, len(sims))
	copy(finals, sims)
	threshold := adaptiveThreshold(toScored(finals), DefaultMinScore)
	assert.Greater(t, threshold, 0.3)
	for _, s := range got {
		assert.GreaterOrEqual(t, s.Final, threshold)
	}
	assert.Equal(t, []string{"0", "1", "2", "3", "4", "5"}, ids(got))
}

func toScored(finals []float64) []ScoredCandidate {
	out := make([]ScoredCandidate, len(finals))
	for i, f := range finals {
		out[i].Final = f
	}
	return out
}

func TestRank_FloorGuaranteeKeepsFullSet(t *testing.T) {
	cands := []Candidate{cand("a", "", 0.9), cand("b", "", 0.1), cand("c", "", 0.05)}
	got, err := Rank(context.Background(), cands, core.Prediction{}, Weights{1, 0, 0}, Config{MinResults: conv.Ptr(5)})
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, []string{"a", "b", "c"}, ids(got))

	got, err = Rank(context.Background(), cands, core.Prediction{}, Weights{1, 0, 0}, Config{MinResults: conv.Ptr(1)})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(got))
}

func TestRank_ExplicitZeroFloor(t *testing.T) {
	cands := []Candidate{cand("a", "", 0.1), cand("b", "", 0.2), cand("c", "", 0.25)}

	// μ≈0.183, σ≈0.076 -> 阈值≈0.145，只看 μ-0.5σ
	got, err := Rank(context.Background(), cands, core.Prediction{}, Weights{1, 0, 0},
		Config{MinScore: conv.Ptr(0.0), MinResults: conv.Ptr(1)})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b"}, ids(got))

	// 未设置时下限为 0.3：全部低于阈值，回退为完整集合
	got, err = Rank(context.Background(), cands, core.Prediction{}, Weights{1, 0, 0},
		Config{MinResults: conv.Ptr(1)})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, ids(got))

	// MinResults 为 0 时即使全部被过滤也不回退
	got, err = Rank(context.Background(), cands, core.Prediction{}, Weights{1, 0, 0},
		Config{MinResults: conv.Ptr(0)})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRank_StableTieBreak(t *testing.T) {
	cands := []Candidate{
		cand("low", "", 0.2),
		cand("tie-1", "", 0.6),
		cand("tie-2", "", 0.6),
		cand("high", "", 0.9),
		cand("tie-3", "", 0.6),
	}
	got, err := Rank(context.Background(), cands, core.Prediction{}, Weights{1, 0, 0}, Config{MinResults: conv.Ptr(100)})
	require.NoError(t, err)
	assert.Equal(t, []string{"high", "tie-1", "tie-2", "tie-3", "low"}, ids(got))
}

func TestRank_WeightScalingInvariance(t *testing.T) {
	cands := []Candidate{
		{Item: movie("1", "Action|Thriller", "an intense thrill ride", nil), Similarity: 0.8},
		{Item: movie("2", "Comedy", "funny and cheerful", nil), Similarity: 0.6},
		{Item: movie("3", "", "", nil), Similarity: 0.3},
	}
	pred := core.Prediction{Categories: []string{"Comedy", "Action"}, Emotions: []string{"Happy", "Excited"}}
	base := Weights{0.5, 0.3, 0.2}
	scaled := Weights{5, 3, 2}

	a, err := Rank(context.Background(), cands, pred, base, Config{MinResults: conv.Ptr(10)})
	require.NoError(t, err)
	b, err := Rank(context.Background(), cands, pred, scaled, Config{MinResults: conv.Ptr(10)})
	require.NoError(t, err)

	require.Equal(t, ids(a), ids(b))
	for i := range a {
		assert.InDelta(t, a[i].Final, b[i].Final, 1e-12)
	}
}

func TestRank_ScoresInUnitInterval(t *testing.T) {
	cands := make([]Candidate, 0, 50)
	genres := []string{"Action", "Drama|Romance", "", "Horror|Thriller", "Comedy|Family"}
	overviews := []string{"love and wedding", "fear horror nightmare dread creepy", "", "calm quiet serene", "laugh"}
	for i := 0; i < 50; i++ {
		meta := map[string]string{"release_year": fmt.Sprint(1950 + i*2), "vote_count": fmt.Sprint(i * 13)}
		cands = append(cands, Candidate{
			Item:       movie(fmt.Sprint(i), genres[i%5], overviews[i%5], meta),
			Similarity: float64(i%11) / 10,
		})
	}
	pred := core.Prediction{Categories: []string{"Horror", "Drama"}, Emotions: []string{"Fearful", "Romantic"}}
	for _, w := range []Weights{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {0.5, 0.3, 0.2}, {7, 1, 100}} {
		got, err := Rank(context.Background(), cands, pred, w, Config{Now: fixedNow})
		require.NoError(t, err)
		assert.LessOrEqual(t, len(got), len(cands))
		for i, s := range got {
			for _, v := range []float64{s.CategoryMatch, s.EmotionMatch, *s.Recency, *s.Popularity, s.Final} {
				assert.GreaterOrEqual(t, v, 0.0)
				assert.LessOrEqual(t, v, 1.0)
			}
			if i > 0 {
				assert.GreaterOrEqual(t, got[i-1].Final, s.Final)
			}
		}
	}
}

func TestRank_ParallelMatchesSequential(t *testing.T) {
	cands := make([]Candidate, 0, 40)
	for i := 0; i < 40; i++ {
		cands = append(cands, Candidate{
			Item:       movie(fmt.Sprint(i), []string{"Action", "Drama", "Comedy|Romance"}[i%3], "love funny action", map[string]string{"vote_count": fmt.Sprint(i)}),
			Similarity: float64(i%7) / 7,
		})
	}
	pred := core.Prediction{Categories: []string{"Drama", "Romance"}, Emotions: []string{"Romantic", "Happy"}}

	seq, err := Rank(context.Background(), cands, pred, DefaultWeights(), Config{})
	require.NoError(t, err)
	par, err := Rank(context.Background(), cands, pred, DefaultWeights(), Config{Parallelism: 4})
	require.NoError(t, err)

	require.Equal(t, ids(seq), ids(par))
	for i := range seq {
		assert.Equal(t, seq[i].Final, par[i].Final)
	}
}

func TestRank_CancelledContextSameInBothModes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cands := []Candidate{cand("a", "", 0.4), cand("b", "", 0.9), cand("c", "", 0.7)}

	seq, err := Rank(ctx, cands, core.Prediction{}, DefaultWeights(), DefaultConfig())
	require.NoError(t, err)
	par, err := Rank(ctx, cands, core.Prediction{}, DefaultWeights(), Config{Parallelism: 2})
	require.NoError(t, err)

	require.Len(t, seq, 3)
	assert.Equal(t, ids(seq), ids(par))
	for i := range seq {
		assert.Equal(t, seq[i].Final, par[i].Final)
	}
}

func TestRank_SnapshotHook(t *testing.T) {
	var mu sync.Mutex
	got := map[string]int{}
	sink := snapshot.SinkFunc(func(_ context.Context, label string, items []*core.Item) error {
		mu.Lock()
		defer mu.Unlock()
		got[label] = len(items)
		for _, it := range items {
			if _, ok := it.Feature(FeatureFinal); !ok {
				t.Errorf("snapshot item %s has no final_score", it.ID)
			}
		}
		return errors.New("sink unavailable")
	})

	cands := []Candidate{cand("a", "", 0.9), cand("b", "", 0.8), cand("c", "", 0.1)}
	res, err := Rank(context.Background(), cands, core.Prediction{}, Weights{1, 0, 0}, Config{MinResults: conv.Ptr(1), Snapshot: sink})
	require.NoError(t, err)

	assert.Equal(t, 3, got[snapshot.LabelPreThreshold])
	assert.Equal(t, len(res), got[snapshot.LabelPostThreshold])
}

func TestRank_PanickingSnapshotDoesNotFail(t *testing.T) {
	sink := snapshot.SinkFunc(func(context.Context, string, []*core.Item) error { panic("boom") })
	got, err := Rank(context.Background(), []Candidate{cand("a", "", 0.9)}, core.Prediction{}, DefaultWeights(), Config{Snapshot: sink})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestRank_NaNSimilarityIsNeutral(t *testing.T) {
	got, err := Rank(context.Background(), []Candidate{cand("a", "", math.NaN())}, core.Prediction{}, Weights{1, 0, 0}, Config{})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, got[0].Final, 1e-12)
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	it := movie("a", "Drama", "", nil)
	it.Score = 0.42
	_, err := Rank(context.Background(), []Candidate{{Item: it, Similarity: 0.9}}, core.Prediction{}, DefaultWeights(), Config{})
	require.NoError(t, err)
	assert.Equal(t, 0.42, it.Score)
	assert.Empty(t, it.Features)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg.MinScore)
	require.NotNil(t, cfg.MinResults)
	assert.Equal(t, DefaultMinScore, *cfg.MinScore)
	assert.Equal(t, DefaultMinResults, *cfg.MinResults)
	assert.Equal(t, DefaultFloorYear, cfg.FloorYear)
}

func TestWeights_Normalize(t *testing.T) {
	w, err := Weights{2, 1, 1}.Normalize()
	require.NoError(t, err)
	assert.InDelta(t, 0.5, w.Similarity, 1e-12)
	assert.InDelta(t, 0.25, w.Category, 1e-12)
	assert.InDelta(t, 0.25, w.Emotion, 1e-12)

	_, err = Weights{}.Normalize()
	assert.True(t, core.IsConfigurationError(err))
}
