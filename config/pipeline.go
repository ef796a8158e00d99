package config

import (
	"github.com/rushteam/moodflix/pipeline"
)

// Pipeline 返回推荐流程的拓扑：配置了 PipelineFile 时读取该 YAML，
// 否则为 recall.similarity -> filter.watched -> rank.mood -> rerank.topn|sample。
func (r RecommendConfig) Pipeline() (*pipeline.Config, error) {
	if r.PipelineFile != "" {
		return pipeline.LoadFromYAML(r.PipelineFile)
	}
	return r.DefaultPipeline(), nil
}

// DefaultPipeline 按参数生成默认拓扑。
func (r RecommendConfig) DefaultPipeline() *pipeline.Config {
	cfg := &pipeline.Config{}
	cfg.Pipeline.Name = "mood"

	nodes := []pipeline.NodeConfig{{
		Type: "recall.similarity",
		Config: map[string]any{
			"top_n":     r.TopNSimilarity,
			"threshold": r.SimilarityThreshold,
			"seed":      int(r.Seed),
		},
	}}
	if r.ExcludeWatched {
		nodes = append(nodes, pipeline.NodeConfig{
			Type:   "filter.watched",
			Config: map[string]any{"time_window": r.WatchedWindow.Seconds()},
		})
	}

	rankCfg := map[string]any{
		"weights": map[string]any{
			"similarity": r.Weights.Similarity,
			"category":   r.Weights.Category,
			"emotion":    r.Weights.Emotion,
		},
		"min_score":   r.MinScore,
		"min_results": r.MinResults,
		"parallelism": r.Parallelism,
	}
	if r.KeywordsFile != "" {
		rankCfg["keywords_file"] = r.KeywordsFile
	}
	nodes = append(nodes, pipeline.NodeConfig{Type: "rank.mood", Config: rankCfg})

	if r.Strategy == "sample" {
		nodes = append(nodes, pipeline.NodeConfig{
			Type:   "rerank.sample",
			Config: map[string]any{"n": r.FinalCount, "pool": 2, "seed": int(r.Seed)},
		})
	} else {
		nodes = append(nodes, pipeline.NodeConfig{
			Type:   "rerank.topn",
			Config: map[string]any{"n": r.FinalCount},
		})
	}
	cfg.Pipeline.Nodes = nodes
	return cfg
}
