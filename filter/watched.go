package filter

import (
	"context"
	"strconv"
	"time"

	"github.com/rushteam/moodflix/core"
)

// DefaultWatchedPrefix 已看列表的 key 前缀，实际 key 为 watched:<user_id>。
const DefaultWatchedPrefix = "watched:"

// WatchedFilter 剔除用户已看过（或已经推荐过）的电影。
//
// 已看列表存放在哈希 watched:<user_id> 中，field 为 movie_id，value 为 unix 秒。
// TimeWindow > 0 时只剔除窗口内的记录，窗口外的电影可以再次推荐。
type WatchedFilter struct {
	Store      core.KeyValueStore
	KeyPrefix  string
	TimeWindow time.Duration
	Now        func() time.Time
}

func (f *WatchedFilter) Name() string { return "filter.watched" }

func (f *WatchedFilter) key(userID string) string {
	prefix := f.KeyPrefix
	if prefix == "" {
		prefix = DefaultWatchedPrefix
	}
	return prefix + userID
}

// Prepare 读取一次用户的已看列表。匿名请求不过滤。
func (f *WatchedFilter) Prepare(ctx context.Context, rctx *core.RecommendContext) (Filter, error) {
	if f.Store == nil || rctx == nil || rctx.UserID == "" {
		return nil, nil
	}
	entries, err := f.Store.HGetAll(ctx, f.key(rctx.UserID))
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	cutoff := int64(0)
	if f.TimeWindow > 0 {
		cutoff = now().Add(-f.TimeWindow).Unix()
	}
	ids := make(map[string]struct{}, len(entries))
	for id, raw := range entries {
		if cutoff > 0 {
			ts, err := strconv.ParseInt(string(raw), 10, 64)
			if err == nil && ts < cutoff {
				continue
			}
		}
		ids[id] = struct{}{}
	}
	return &idSet{name: f.Name(), ids: ids}, nil
}

// ShouldFilter 单独使用（不经过 FilterNode）时逐个查询。
func (f *WatchedFilter) ShouldFilter(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error) {
	p, err := f.Prepare(ctx, rctx)
	if err != nil || p == nil {
		return false, err
	}
	return p.ShouldFilter(ctx, rctx, item)
}

// MarkWatched 把电影记入用户的已看列表。
func (f *WatchedFilter) MarkWatched(ctx context.Context, userID string, movieIDs ...string) error {
	if f.Store == nil || userID == "" {
		return nil
	}
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	ts := []byte(strconv.FormatInt(now().Unix(), 10))
	key := f.key(userID)
	for _, id := range movieIDs {
		if err := f.Store.HSet(ctx, key, id, ts); err != nil {
			return err
		}
	}
	return nil
}
