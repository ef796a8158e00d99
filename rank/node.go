package rank

import (
	"context"

	"github.com/rushteam/moodflix/core"
	"github.com/rushteam/moodflix/pipeline"
)

// Node 把 Rank 接入 Pipeline：
//   - 相似度取自 feature["similarity_score"]，没有时取 item.Score（召回阶段写入）
//   - 预测取自 rctx.Prediction，rctx 为空时视为没有预测
//   - 写入全部分数特征，item.Score = final_score，label rank_model=mood_blend
type Node struct {
	Weights Weights
	Config  Config
}

func (n *Node) Name() string        { return "rank.mood" }
func (n *Node) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *Node) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	cands := make([]Candidate, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		sim, ok := it.Feature(FeatureSimilarity)
		if !ok {
			sim = it.Score
		}
		cands = append(cands, Candidate{Item: it, Similarity: sim})
	}

	var pred core.Prediction
	if rctx != nil {
		pred = rctx.Prediction
	}
	scored, err := Rank(ctx, cands, pred, n.Weights, n.Config)
	if err != nil {
		return nil, err
	}

	out := make([]*core.Item, len(scored))
	for i, s := range scored {
		it := s.ToItem()
		it.PutLabel("rank_model", core.Label{Value: "mood_blend", Source: "rank"})
		out[i] = it
	}
	return out, nil
}
