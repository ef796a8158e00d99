// Package recall 从目录生成候选集：故事概要向量检索、按类别召回、多路合并。
package recall

import (
	"context"

	"github.com/rushteam/moodflix/core"
)

// Source 表示一个召回源。返回的 item 必须是目录 item 的副本，
// Score 为召回分（相似度），并带 recall_source 标签。
type Source interface {
	Name() string
	Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error)
}

// LabelRecallSource 召回来源标签。
const LabelRecallSource = "recall_source"

func recalled(it *core.Item, source string, score float64) *core.Item {
	out := it.Clone()
	out.Score = score
	out.PutFeature(core.FeatureSimilarity, score)
	out.PutLabel(LabelRecallSource, core.Label{Value: source, Source: "recall"})
	return out
}
