// Package filter 剔除不该推荐的候选：用户看过的、黑名单中的、命中规则表达式的。
package filter

import (
	"context"

	"github.com/rushteam/moodflix/core"
)

// Filter 判断一个 Item 是否应该被过滤掉，返回 true 表示移除。
type Filter interface {
	Name() string
	ShouldFilter(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error)
}

// Preparer 是可选接口：需要按请求预读数据的过滤器（例如读取用户已看列表）
// 实现它，FilterNode 每次 Process 调用一次 Prepare，用返回的 Filter 过滤本次的全部 item。
type Preparer interface {
	Prepare(ctx context.Context, rctx *core.RecommendContext) (Filter, error)
}

// idSet 是按 ID 过滤的请求级过滤器。
type idSet struct {
	name string
	ids  map[string]struct{}
}

func (s *idSet) Name() string { return s.name }

func (s *idSet) ShouldFilter(_ context.Context, _ *core.RecommendContext, item *core.Item) (bool, error) {
	_, ok := s.ids[item.ID]
	return ok, nil
}
