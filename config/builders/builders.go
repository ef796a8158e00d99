// Package builders 注册不依赖运行时对象的内置 Node，导入即生效：
//
//	import _ "github.com/rushteam/moodflix/config/builders"
package builders

import (
	"fmt"

	"github.com/rushteam/moodflix/config"
	"github.com/rushteam/moodflix/core"
	"github.com/rushteam/moodflix/filter"
	"github.com/rushteam/moodflix/pipeline"
	"github.com/rushteam/moodflix/pkg/conv"
	"github.com/rushteam/moodflix/rank"
	"github.com/rushteam/moodflix/rerank"
)

func init() {
	config.Register("rank.mood", BuildRankNode)
	config.Register("rerank.topn", BuildTopNNode)
	config.Register("rerank.diversity", BuildDiversityNode)
	config.Register("rerank.sample", BuildSampleNode)
	config.Register("filter.expr", BuildExprFilterNode)
	config.Register("filter.blacklist", BuildBlacklistFilterNode)
}

// BuildRankNode 配置项：weights{similarity,category,emotion}、min_score、min_results、
// parallelism、floor_year、recency_field、popularity_fields、keywords_file。
func BuildRankNode(cfg map[string]any) (pipeline.Node, error) {
	w := rank.DefaultWeights()
	if wm := conv.ConfigGetMap(cfg, "weights"); wm != nil {
		w = rank.Weights{
			Similarity: conv.ConfigGetFloat64(wm, "similarity", 0),
			Category:   conv.ConfigGetFloat64(wm, "category", 0),
			Emotion:    conv.ConfigGetFloat64(wm, "emotion", 0),
		}
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}

	rc := rank.Config{
		MinScore:         conv.ConfigGetFloat64Ptr(cfg, "min_score"),
		MinResults:       conv.ConfigGetIntPtr(cfg, "min_results"),
		Parallelism:      conv.ConfigGetInt(cfg, "parallelism", 0),
		FloorYear:        conv.ConfigGetInt(cfg, "floor_year", 0),
		RecencyField:     conv.ConfigGet(cfg, "recency_field", ""),
		PopularityFields: conv.ConfigGetStrings(cfg, "popularity_fields", nil),
	}
	if rc.MinScore != nil && (*rc.MinScore < 0 || *rc.MinScore > 1) {
		return nil, &core.ConfigurationError{Field: "min_score", Reason: "must be within [0, 1]"}
	}
	if rc.MinResults != nil && *rc.MinResults < 0 {
		return nil, &core.ConfigurationError{Field: "min_results", Reason: "must not be negative"}
	}
	if path := conv.ConfigGet(cfg, "keywords_file", ""); path != "" {
		kw, err := rank.LoadEmotionKeywords(path)
		if err != nil {
			return nil, err
		}
		rc.Keywords = kw
	}
	return &rank.Node{Weights: w, Config: rc}, nil
}

func BuildTopNNode(cfg map[string]any) (pipeline.Node, error) {
	return &rerank.TopNNode{N: conv.ConfigGetInt(cfg, "n", rerank.DefaultTopN)}, nil
}

func BuildDiversityNode(cfg map[string]any) (pipeline.Node, error) {
	return &rerank.Diversity{
		MaxPerGenre: conv.ConfigGetInt(cfg, "max_per_genre", 1),
		LabelKey:    conv.ConfigGet(cfg, "label_key", ""),
		Backfill:    conv.ConfigGet(cfg, "backfill", false),
	}, nil
}

func BuildSampleNode(cfg map[string]any) (pipeline.Node, error) {
	seed := conv.ConfigGetInt(cfg, "seed", 0)
	if seed < 0 {
		return nil, fmt.Errorf("seed must be >= 0, got %d", seed)
	}
	return &rerank.SampleNode{
		N:    conv.ConfigGetInt(cfg, "n", rerank.DefaultTopN),
		Pool: conv.ConfigGetInt(cfg, "pool", 2),
		Seed: uint64(seed),
	}, nil
}

func BuildExprFilterNode(cfg map[string]any) (pipeline.Node, error) {
	expr := conv.ConfigGet(cfg, "expr", "")
	if expr == "" {
		return nil, fmt.Errorf("expr not found")
	}
	f, err := filter.NewExprFilter(expr)
	if err != nil {
		return nil, err
	}
	return &filter.FilterNode{Filters: []filter.Filter{f}}, nil
}

// BuildBlacklistFilterNode 只支持配置里的静态 ID 列表；基于存储的黑名单用 Dependencies。
func BuildBlacklistFilterNode(cfg map[string]any) (pipeline.Node, error) {
	ids := conv.ConfigGetStrings(cfg, "item_ids", nil)
	return &filter.FilterNode{Filters: []filter.Filter{filter.NewBlacklistFilter(ids, nil, "")}}, nil
}
