package pipeline

import (
	"context"

	"github.com/rushteam/moodflix/core"
)

// Kind 用于标记 Node 所处阶段，方便按阶段打点与编排。
type Kind string

const (
	KindRecall      Kind = "recall"      // 召回：从目录生成候选集
	KindFilter      Kind = "filter"      // 过滤：剔除看过的、不符合约束的候选
	KindRank        Kind = "rank"        // 排序：心情多因子打分
	KindReRank      Kind = "rerank"      // 重排：多样性、采样、截断
	KindPostProcess Kind = "postprocess" // 后处理
)

// Node 是 Pipeline 的最小可扩展单元，统一为 "输入 items -> 输出 items"。
// Node 不应修改输入 item，需要写分数时先 Clone。
type Node interface {
	Name() string
	Kind() Kind

	Process(
		ctx context.Context,
		rctx *core.RecommendContext,
		items []*core.Item,
	) ([]*core.Item, error)
}

// NodeFunc 把普通函数包装成 Node，主要用于测试与简单的后处理。
type NodeFunc struct {
	NodeName string
	NodeKind Kind
	Fn       func(ctx context.Context, rctx *core.RecommendContext, items []*core.Item) ([]*core.Item, error)
}

func (f NodeFunc) Name() string { return f.NodeName }
func (f NodeFunc) Kind() Kind   { return f.NodeKind }

func (f NodeFunc) Process(ctx context.Context, rctx *core.RecommendContext, items []*core.Item) ([]*core.Item, error) {
	return f.Fn(ctx, rctx, items)
}
