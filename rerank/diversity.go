package rerank

import (
	"context"

	"github.com/rushteam/moodflix/core"
	"github.com/rushteam/moodflix/pipeline"
)

// Diversity 限制同一主类别的电影数量，避免结果全是同一类型。
//
// 主类别默认取 genres 的第一个；设置了 LabelKey 时取该 label 的值。
// 超出上限的电影被移除，Backfill 为 true 时按原顺序补在末尾。
type Diversity struct {
	MaxPerGenre int    // 默认 1
	LabelKey    string // 可选
	Backfill    bool
}

func (n *Diversity) Name() string        { return "rerank.diversity" }
func (n *Diversity) Kind() pipeline.Kind { return pipeline.KindReRank }

func (n *Diversity) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}
	limit := n.MaxPerGenre
	if limit <= 0 {
		limit = 1
	}

	counts := make(map[string]int, 16)
	out := make([]*core.Item, 0, len(items))
	var deferred []*core.Item
	for _, it := range items {
		if it == nil {
			continue
		}
		key := n.groupKey(it)
		if key == "" {
			out = append(out, it)
			continue
		}
		if counts[key] >= limit {
			deferred = append(deferred, it)
			continue
		}
		counts[key]++
		out = append(out, it)
	}
	if n.Backfill {
		out = append(out, deferred...)
	}
	return out, nil
}

func (n *Diversity) groupKey(it *core.Item) string {
	if n.LabelKey != "" {
		if lbl, ok := it.Labels[n.LabelKey]; ok {
			return lbl.Value
		}
		return ""
	}
	if genres := it.GenreList(); len(genres) > 0 {
		return genres[0]
	}
	return ""
}
