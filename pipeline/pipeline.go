// Package pipeline 把推荐流程拆成可组合的 Node 链：召回 -> 过滤 -> 排序 -> 重排。
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rushteam/moodflix/core"
)

// Pipeline 按顺序执行 Nodes，上一个 Node 的输出是下一个的输入。
type Pipeline struct {
	Nodes []Node
	Hooks []Hook
}

// Hook 在每个 Node 执行前后被调用，用于日志、指标等横切逻辑。
// Hook 不能改变 items，也不能中断执行。
type Hook interface {
	BeforeNode(ctx context.Context, node Node, in int)
	AfterNode(ctx context.Context, node Node, out int, elapsed time.Duration, err error)
}

// Run 执行 Pipeline。任一 Node 出错时立即返回，错误带上 Node 名称。
func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	cur := items
	for _, node := range p.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, h := range p.Hooks {
			h.BeforeNode(ctx, node, len(cur))
		}
		start := time.Now()
		next, err := node.Process(ctx, rctx, cur)
		elapsed := time.Since(start)
		for _, h := range p.Hooks {
			h.AfterNode(ctx, node, len(next), elapsed, err)
		}
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", node.Name(), err)
		}
		cur = next
	}
	return cur, nil
}
