package config

import (
	"fmt"
	"time"

	"github.com/rushteam/moodflix/catalog"
	"github.com/rushteam/moodflix/core"
	"github.com/rushteam/moodflix/filter"
	"github.com/rushteam/moodflix/model"
	"github.com/rushteam/moodflix/pipeline"
	"github.com/rushteam/moodflix/pkg/conv"
	"github.com/rushteam/moodflix/rank"
	"github.com/rushteam/moodflix/recall"
	"github.com/rushteam/moodflix/snapshot"
)

// Dependencies 是需要运行时对象的 Node 所依赖的组件，在进程启动时构造一次。
type Dependencies struct {
	Catalog    *catalog.Catalog
	Store      core.KeyValueStore
	Embedder   model.Embedder
	Vectors    core.VectorService
	Collection string

	// Snapshot 非空时挂到 rank.mood 上。
	Snapshot snapshot.Sink

	// Watched 非空时 filter.watched 复用它，便于调用方在推荐后写回已看列表。
	Watched *filter.WatchedFilter
}

// Factory 在全局注册表之上追加依赖注入的 Node：
// recall.similarity、recall.genre、recall.fanout、filter.watched，
// 以及带存储的 filter.blacklist（配置了 key 时）。
func (d Dependencies) Factory() *pipeline.NodeFactory {
	f := DefaultFactory()

	f.Register("recall.similarity", func(cfg map[string]any) (pipeline.Node, error) {
		src, err := d.similaritySource(cfg)
		if err != nil {
			return nil, err
		}
		return &recall.Node{Source: src, Timeout: seconds(cfg, "timeout")}, nil
	})
	f.Register("recall.genre", func(cfg map[string]any) (pipeline.Node, error) {
		src, err := d.genreSource(cfg)
		if err != nil {
			return nil, err
		}
		return &recall.Node{Source: src, Timeout: seconds(cfg, "timeout")}, nil
	})
	f.Register("recall.fanout", d.buildFanout)
	f.Register("filter.watched", func(cfg map[string]any) (pipeline.Node, error) {
		w, err := d.watched(cfg)
		if err != nil {
			return nil, err
		}
		return &filter.FilterNode{Filters: []filter.Filter{w}}, nil
	})

	if base, ok := Lookup("filter.blacklist"); ok {
		f.Register("filter.blacklist", func(cfg map[string]any) (pipeline.Node, error) {
			key := conv.ConfigGet(cfg, "key", "")
			if key == "" || d.Store == nil {
				return base(cfg)
			}
			ids := conv.ConfigGetStrings(cfg, "item_ids", nil)
			return &filter.FilterNode{Filters: []filter.Filter{filter.NewBlacklistFilter(ids, d.Store, key)}}, nil
		})
	}
	if base, ok := Lookup("rank.mood"); ok && d.Snapshot != nil {
		f.Register("rank.mood", func(cfg map[string]any) (pipeline.Node, error) {
			node, err := base(cfg)
			if err != nil {
				return nil, err
			}
			if rn, ok := node.(*rank.Node); ok {
				rn.Config.Snapshot = d.Snapshot
			}
			return node, nil
		})
	}
	return f
}

func (d Dependencies) similaritySource(cfg map[string]any) (*recall.SimilarityRecall, error) {
	if d.Catalog == nil {
		return nil, fmt.Errorf("recall.similarity: catalog not configured")
	}
	collection := conv.ConfigGet(cfg, "collection", d.Collection)
	return &recall.SimilarityRecall{
		Embedder:   d.Embedder,
		Vectors:    d.Vectors,
		Catalog:    d.Catalog,
		Collection: collection,
		Metric:     conv.ConfigGet(cfg, "metric", "cosine"),
		TopN:       conv.ConfigGetInt(cfg, "top_n", recall.DefaultTopN),
		Threshold:  conv.ConfigGetFloat64(cfg, "threshold", recall.DefaultThreshold),
		Seed:       uint64(max(conv.ConfigGetInt(cfg, "seed", 0), 0)),
	}, nil
}

func (d Dependencies) genreSource(cfg map[string]any) (*recall.GenreRecall, error) {
	if d.Catalog == nil {
		return nil, fmt.Errorf("recall.genre: catalog not configured")
	}
	return &recall.GenreRecall{
		Catalog: d.Catalog,
		Limit:   conv.ConfigGetInt(cfg, "limit", 0),
		Seed:    uint64(max(conv.ConfigGetInt(cfg, "seed", 0), 0)),
	}, nil
}

// buildFanout 配置项：sources[{type: similarity|genre, ...}]、timeout（秒）、
// max_concurrent、merge_strategy（first/union/priority）。
func (d Dependencies) buildFanout(cfg map[string]any) (pipeline.Node, error) {
	raw, ok := cfg["sources"].([]any)
	if !ok || len(raw) == 0 {
		return nil, fmt.Errorf("sources not found or invalid")
	}
	sources := make([]recall.Source, 0, len(raw))
	for i, sc := range raw {
		m := conv.ConfigGetMap(map[string]any{"s": sc}, "s")
		if m == nil {
			return nil, fmt.Errorf("source #%d: invalid config", i)
		}
		switch typ := conv.ConfigGet(m, "type", ""); typ {
		case "similarity":
			src, err := d.similaritySource(m)
			if err != nil {
				return nil, err
			}
			sources = append(sources, src)
		case "genre":
			src, err := d.genreSource(m)
			if err != nil {
				return nil, err
			}
			sources = append(sources, src)
		default:
			return nil, fmt.Errorf("unknown source type: %q", typ)
		}
	}
	strategy := conv.ConfigGet(cfg, "merge_strategy", "first")
	switch strategy {
	case "first", "union", "priority":
	default:
		return nil, fmt.Errorf("unknown merge strategy: %q", strategy)
	}
	return &recall.Fanout{
		Sources:       sources,
		Dedup:         conv.ConfigGet(cfg, "dedup", true),
		Timeout:       seconds(cfg, "timeout"),
		MaxConcurrent: conv.ConfigGetInt(cfg, "max_concurrent", 0),
		MergeStrategy: strategy,
	}, nil
}

func (d Dependencies) watched(cfg map[string]any) (*filter.WatchedFilter, error) {
	if d.Watched != nil {
		return d.Watched, nil
	}
	if d.Store == nil {
		return nil, fmt.Errorf("filter.watched: store not configured")
	}
	return &filter.WatchedFilter{
		Store:      d.Store,
		KeyPrefix:  conv.ConfigGet(cfg, "key_prefix", filter.DefaultWatchedPrefix),
		TimeWindow: seconds(cfg, "time_window"),
	}, nil
}

func seconds(cfg map[string]any, key string) time.Duration {
	sec := conv.ConfigGetFloat64(cfg, key, 0)
	if sec <= 0 {
		return 0
	}
	return time.Duration(sec * float64(time.Second))
}
