package rerank

import (
	"context"
	"math/rand/v2"
	"sort"

	"github.com/rushteam/moodflix/core"
	"github.com/rushteam/moodflix/pipeline"
)

// ParamSeed 请求级随机种子（rctx.Params["seed"]），覆盖 SampleNode.Seed。
const ParamSeed = "seed"

// SampleNode 从排序结果的前 N*Pool 个中随机挑 N 个，被挑中的保持原有排序。
// 同一个种子结果确定，换种子可以让多次请求得到不同的推荐。
type SampleNode struct {
	N    int    // 默认 DefaultTopN
	Pool int    // 候选池倍数，默认 2
	Seed uint64 // 默认种子
}

func (n *SampleNode) Name() string        { return "rerank.sample" }
func (n *SampleNode) Kind() pipeline.Kind { return pipeline.KindReRank }

func (n *SampleNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	want := n.N
	if want <= 0 {
		want = DefaultTopN
	}
	if len(items) <= want {
		return items, nil
	}
	pool := n.Pool
	if pool <= 0 {
		pool = 2
	}
	size := min(len(items), want*pool)

	seed := n.Seed
	if rctx != nil {
		if v, ok := rctx.Param(ParamSeed); ok {
			switch s := v.(type) {
			case uint64:
				seed = s
			case int:
				seed = uint64(s)
			case int64:
				seed = uint64(s)
			}
		}
	}
	rng := rand.New(rand.NewPCG(seed, ^seed))
	picked := rng.Perm(size)[:want]
	sort.Ints(picked)

	out := make([]*core.Item, want)
	for i, idx := range picked {
		out[i] = items[idx]
	}
	return out, nil
}
