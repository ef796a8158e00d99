package recall

import (
	"context"
	"time"

	"github.com/rushteam/moodflix/core"
	"github.com/rushteam/moodflix/pipeline"
)

// Node 把单个 Source 接入 Pipeline，忽略输入 items。
type Node struct {
	Source  Source
	Timeout time.Duration
}

func (n *Node) Name() string        { return n.Source.Name() }
func (n *Node) Kind() pipeline.Kind { return pipeline.KindRecall }

func (n *Node) Process(ctx context.Context, rctx *core.RecommendContext, _ []*core.Item) ([]*core.Item, error) {
	if n.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.Timeout)
		defer cancel()
	}
	return n.Source.Recall(ctx, rctx)
}
