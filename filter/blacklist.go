package filter

import (
	"context"

	"github.com/rushteam/moodflix/core"
)

// BlacklistFilter 剔除黑名单中的电影（下架、版权到期等）。
// 黑名单来自静态 ItemIDs，以及可选的哈希 Key（field 为 movie_id）。
type BlacklistFilter struct {
	ItemIDs []string
	Store   core.KeyValueStore
	Key     string
}

func NewBlacklistFilter(itemIDs []string, store core.KeyValueStore, key string) *BlacklistFilter {
	return &BlacklistFilter{ItemIDs: itemIDs, Store: store, Key: key}
}

func (f *BlacklistFilter) Name() string { return "filter.blacklist" }

func (f *BlacklistFilter) Prepare(ctx context.Context, _ *core.RecommendContext) (Filter, error) {
	ids := make(map[string]struct{}, len(f.ItemIDs))
	for _, id := range f.ItemIDs {
		ids[id] = struct{}{}
	}
	if f.Store != nil && f.Key != "" {
		entries, err := f.Store.HGetAll(ctx, f.Key)
		if err != nil && !core.IsStoreNotFound(err) {
			return nil, err
		}
		for id := range entries {
			ids[id] = struct{}{}
		}
	}
	return &idSet{name: f.Name(), ids: ids}, nil
}

func (f *BlacklistFilter) ShouldFilter(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error) {
	p, err := f.Prepare(ctx, rctx)
	if err != nil {
		return false, err
	}
	return p.ShouldFilter(ctx, rctx, item)
}
