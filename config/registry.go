package config

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/rushteam/moodflix/pipeline"
)

// 无状态的 Node（rank.mood、rerank.*、filter.expr 等）由 config/builders 在 init 中登记，
// 入口处需 import _ "github.com/rushteam/moodflix/config/builders"。
// 需要目录、存储或向量检索的 Node 见 Dependencies.Factory。

type NodeBuilder = pipeline.NodeBuilder

var registry = struct {
	sync.RWMutex
	builders map[string]NodeBuilder
}{builders: map[string]NodeBuilder{}}

// Register 登记 typeName 的构建器，同名覆盖；空名或 nil 忽略。
func Register(typeName string, builder NodeBuilder) {
	if typeName == "" || builder == nil {
		return
	}
	registry.Lock()
	registry.builders[typeName] = builder
	registry.Unlock()
}

func Lookup(typeName string) (NodeBuilder, bool) {
	registry.RLock()
	defer registry.RUnlock()
	b, ok := registry.builders[typeName]
	return b, ok
}

// SupportedTypes 已登记的类型，按名称排序。
func SupportedTypes() []string {
	registry.RLock()
	defer registry.RUnlock()
	return slices.Sorted(maps.Keys(registry.builders))
}

// DefaultFactory 以全局登记表为底构造一个新的 NodeFactory，调用方可以继续往里加类型。
func DefaultFactory() *pipeline.NodeFactory {
	f := pipeline.NewNodeFactory()
	registry.RLock()
	defer registry.RUnlock()
	for name, b := range registry.builders {
		f.Register(name, b)
	}
	return f
}

// ValidatePipelineConfig 在构建前检查节点列表：不能为空，每个节点的类型都要能被 factory 构建。
// factory 为 nil 时对照全局登记表。
func ValidatePipelineConfig(cfg *pipeline.Config, factory *pipeline.NodeFactory) error {
	if cfg == nil {
		return nil
	}
	if len(cfg.Pipeline.Nodes) == 0 {
		return fmt.Errorf("pipeline %q: no nodes configured", cfg.Pipeline.Name)
	}
	var types []string
	if factory != nil {
		types = factory.Types()
	} else {
		types = SupportedTypes()
	}
	for i, nc := range cfg.Pipeline.Nodes {
		switch {
		case nc.Type == "":
			return fmt.Errorf("pipeline %q: node %d has no type", cfg.Pipeline.Name, i)
		case !slices.Contains(types, nc.Type):
			return fmt.Errorf("pipeline %q: node type %q is not registered, known types: %v",
				cfg.Pipeline.Name, nc.Type, types)
		}
	}
	return nil
}
