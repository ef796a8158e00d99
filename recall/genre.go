package recall

import (
	"context"
	"math/rand/v2"
	"strings"

	"github.com/rushteam/moodflix/catalog"
	"github.com/rushteam/moodflix/core"
)

// GenreRecall 按预测类别召回：目录中类别命中任一预测类别（不区分大小写）的电影；
// 没有预测类别时召回整个目录。超过 Limit 时按种子抽样。召回分固定为 0.5。
type GenreRecall struct {
	Catalog *catalog.Catalog
	Limit   int
	Seed    uint64
}

func (r *GenreRecall) Name() string { return "recall.genre" }

func (r *GenreRecall) Recall(_ context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	if r.Catalog == nil {
		return nil, nil
	}
	var wanted []string
	seed := r.Seed
	if rctx != nil {
		for _, g := range rctx.Prediction.Categories {
			wanted = append(wanted, strings.ToLower(g))
		}
		if v, ok := rctx.Param(ParamSeed); ok {
			if s, ok := v.(uint64); ok {
				seed = s
			}
		}
	}

	var matched []*core.Item
	for _, it := range r.Catalog.Items() {
		if len(wanted) == 0 || genresMatch(it.Genres, wanted) {
			matched = append(matched, it)
		}
	}

	limit := r.Limit
	if limit <= 0 {
		limit = DefaultTopN
	}
	if len(matched) > limit {
		rng := rand.New(rand.NewPCG(seed, seed+1))
		rng.Shuffle(len(matched), func(i, j int) { matched[i], matched[j] = matched[j], matched[i] })
		matched = matched[:limit]
	}

	out := make([]*core.Item, len(matched))
	for i, it := range matched {
		out[i] = recalled(it, "genre", FallbackSimilarity)
	}
	return out, nil
}

func genresMatch(genres string, wanted []string) bool {
	lower := strings.ToLower(genres)
	for _, w := range wanted {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
