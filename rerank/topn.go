// Package rerank 在排序结果上做最终调整：多样性、随机采样、截断。
package rerank

import (
	"context"

	"github.com/rushteam/moodflix/core"
	"github.com/rushteam/moodflix/pipeline"
)

// DefaultTopN 最终推荐条数。
const DefaultTopN = 5

// TopNNode 截取前 N 个，放在重排链的最后。
//
//	pipeline := &pipeline.Pipeline{
//	    Nodes: []pipeline.Node{
//	        &rank.Node{...},
//	        &rerank.Diversity{MaxPerGenre: 2},
//	        &rerank.TopNNode{N: 5},
//	    },
//	}
type TopNNode struct {
	// N <= 0 时使用 DefaultTopN
	N int
}

func (n *TopNNode) Name() string        { return "rerank.topn" }
func (n *TopNNode) Kind() pipeline.Kind { return pipeline.KindReRank }

func (n *TopNNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	limit := n.N
	if limit <= 0 {
		limit = DefaultTopN
	}
	if len(items) <= limit {
		return items, nil
	}
	return items[:limit], nil
}
