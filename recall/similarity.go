package recall

import (
	"context"
	"strings"

	"github.com/rushteam/moodflix/catalog"
	"github.com/rushteam/moodflix/core"
	"github.com/rushteam/moodflix/logging"
	"github.com/rushteam/moodflix/model"
)

const (
	DefaultTopN      = 100
	DefaultThreshold = 0.55

	// FallbackSimilarity 是向量检索不可用时抽样候选的相似度。
	FallbackSimilarity = 0.5

	// ParamSeed 请求级随机种子（rctx.Params），控制兜底抽样。
	ParamSeed = "seed"
)

// SimilarityRecall 用故事概要的句向量检索目录中 overview 相似的电影。
//
// 取相似度 >= Threshold 的前 TopN 个；概要为空、向量化失败或检索不到结果时，
// 从目录中按种子抽样 TopN 个，相似度记为 0.5，来源标为 fallback。
type SimilarityRecall struct {
	Embedder   model.Embedder
	Vectors    core.VectorService
	Catalog    *catalog.Catalog
	Collection string
	Metric     string

	TopN      int
	Threshold float64
	Seed      uint64
}

func (r *SimilarityRecall) Name() string { return "recall.similarity" }

func (r *SimilarityRecall) topN() int {
	if r.TopN <= 0 {
		return DefaultTopN
	}
	return r.TopN
}

func (r *SimilarityRecall) threshold() float64 {
	if r.Threshold <= 0 {
		return DefaultThreshold
	}
	return r.Threshold
}

func (r *SimilarityRecall) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	if r.Catalog == nil {
		return nil, nil
	}
	items, err := r.search(ctx, rctx)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("similarity search unavailable, sampling catalog")
	}
	if len(items) > 0 {
		return items, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.fallback(rctx), nil
}

func (r *SimilarityRecall) search(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	if r.Embedder == nil || r.Vectors == nil || rctx == nil || strings.TrimSpace(rctx.Story) == "" {
		return nil, nil
	}
	vec, err := r.Embedder.Embed(ctx, rctx.Story)
	if err != nil {
		return nil, err
	}
	if len(vec) == 0 {
		return nil, nil
	}
	res, err := r.Vectors.Search(ctx, &core.VectorSearchRequest{
		Collection: r.Collection,
		Vector:     vec,
		TopK:       r.topN(),
		Metric:     r.Metric,
		MinScore:   r.threshold(),
	})
	if err != nil {
		return nil, err
	}
	out := make([]*core.Item, 0, len(res.Items))
	for _, hit := range res.Items {
		if hit.Score < r.threshold() {
			continue
		}
		it, ok := r.Catalog.Get(hit.ID)
		if !ok {
			continue
		}
		out = append(out, recalled(it, "similarity", hit.Score))
		if len(out) == r.topN() {
			break
		}
	}
	return out, nil
}

func (r *SimilarityRecall) fallback(rctx *core.RecommendContext) []*core.Item {
	seed := r.Seed
	if rctx != nil {
		if v, ok := rctx.Param(ParamSeed); ok {
			switch s := v.(type) {
			case uint64:
				seed = s
			case int:
				seed = uint64(s)
			case int64:
				seed = uint64(s)
			}
		}
	}
	sample := r.Catalog.Sample(r.topN(), seed)
	out := make([]*core.Item, len(sample))
	for i, it := range sample {
		out[i] = recalled(it, "fallback", FallbackSimilarity)
	}
	return out
}
