package filter

import (
	"context"

	"github.com/rushteam/moodflix/core"
	"github.com/rushteam/moodflix/logging"
	"github.com/rushteam/moodflix/pipeline"
)

// FilterNode 组合多个过滤器，任一过滤器返回 true 即移除该 item。
// 过滤器出错时记录日志并视为不过滤，不中断请求。
type FilterNode struct {
	Filters []Filter
}

func (n *FilterNode) Name() string        { return "filter.node" }
func (n *FilterNode) Kind() pipeline.Kind { return pipeline.KindFilter }

func (n *FilterNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(n.Filters) == 0 || len(items) == 0 {
		return items, nil
	}

	filters := make([]Filter, 0, len(n.Filters))
	for _, f := range n.Filters {
		p, ok := f.(Preparer)
		if !ok {
			filters = append(filters, f)
			continue
		}
		prepared, err := p.Prepare(ctx, rctx)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("filter", f.Name()).Msg("prepare filter failed, skipped")
			continue
		}
		if prepared != nil {
			filters = append(filters, prepared)
		}
	}

	out := make([]*core.Item, 0, len(items))
	removed := 0
	for _, item := range items {
		if item == nil {
			continue
		}
		drop := false
		for _, f := range filters {
			ok, err := f.ShouldFilter(ctx, rctx, item)
			if err != nil {
				logging.Ctx(ctx).Debug().Err(err).Str("filter", f.Name()).Str("movie_id", item.ID).Msg("filter error, item kept")
				continue
			}
			if ok {
				drop = true
				break
			}
		}
		if drop {
			removed++
			continue
		}
		out = append(out, item)
	}

	if removed > 0 {
		logging.Ctx(ctx).Debug().Int("removed", removed).Int("kept", len(out)).Msg("filtered")
	}
	return out, nil
}
