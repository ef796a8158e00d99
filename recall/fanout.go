package recall

import (
	"context"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/moodflix/core"
	"github.com/rushteam/moodflix/logging"
	"github.com/rushteam/moodflix/pipeline"
)

// Fanout 是一个 Recall Node：并发执行多个召回源并合并结果。
// 单个召回源出错或超时只记日志，不影响其他召回源。
type Fanout struct {
	Sources       []Source
	Dedup         bool
	Timeout       time.Duration // 每个召回源的超时时间
	MaxConcurrent int           // 最大并发数（0 表示无限制）
	MergeStrategy string        // first / union / priority（优先级按 Sources 顺序）
}

func (n *Fanout) Name() string        { return "recall.fanout" }
func (n *Fanout) Kind() pipeline.Kind { return pipeline.KindRecall }

func (n *Fanout) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	if len(n.Sources) == 0 {
		return nil, nil
	}

	results := make([][]*core.Item, len(n.Sources))
	var eg errgroup.Group
	if n.MaxConcurrent > 0 {
		eg.SetLimit(n.MaxConcurrent)
	}
	for i, src := range n.Sources {
		eg.Go(func() error {
			recallCtx := ctx
			if n.Timeout > 0 {
				var cancel context.CancelFunc
				recallCtx, cancel = context.WithTimeout(ctx, n.Timeout)
				defer cancel()
			}
			items, err := src.Recall(recallCtx, rctx)
			if err != nil {
				logging.Ctx(ctx).Warn().Err(err).Str("source", src.Name()).Msg("recall source failed")
				return nil
			}
			for _, it := range items {
				it.PutLabel("recall_priority", core.Label{Value: strconv.Itoa(i), Source: "recall"})
			}
			results[i] = items
			return nil
		})
	}
	_ = eg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var all []*core.Item
	for _, items := range results {
		all = append(all, items...)
	}

	switch n.MergeStrategy {
	case "priority":
		return n.mergeByPriority(all), nil
	case "union":
		return all, nil
	default:
		return n.mergeFirst(all), nil
	}
}

// mergeFirst 按 ID 去重，保留第一个出现的，并合并后来者的标签。
func (n *Fanout) mergeFirst(all []*core.Item) []*core.Item {
	if !n.Dedup {
		return all
	}
	seen := make(map[string]*core.Item, len(all))
	out := make([]*core.Item, 0, len(all))
	for _, it := range all {
		if it == nil {
			continue
		}
		if old, ok := seen[it.ID]; ok {
			for k, v := range it.Labels {
				old.PutLabel(k, v)
			}
			continue
		}
		seen[it.ID] = it
		out = append(out, it)
	}
	return out
}

// mergeByPriority 相同 ID 保留召回分更高的，分数相同保留优先级高的（Sources 中靠前）。
// 输出顺序为各 ID 首次出现的顺序。
func (n *Fanout) mergeByPriority(all []*core.Item) []*core.Item {
	if !n.Dedup {
		return all
	}
	pos := make(map[string]int, len(all))
	out := make([]*core.Item, 0, len(all))
	for _, it := range all {
		if it == nil {
			continue
		}
		i, ok := pos[it.ID]
		if !ok {
			pos[it.ID] = len(out)
			out = append(out, it)
			continue
		}
		if it.Score > out[i].Score {
			for k, v := range out[i].Labels {
				if k != "recall_priority" {
					it.PutLabel(k, v)
				}
			}
			out[i] = it
		}
	}
	return out
}
