package pipeline

import (
	"fmt"
	"os"
	"sort"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Config 是 Pipeline 的配置结构（支持 YAML/JSON）：
//
//	pipeline:
//	  name: mood
//	  nodes:
//	    - type: rank.mood
//	      config: {weights: {similarity: 0.5, category: 0.3, emotion: 0.2}}
//	    - type: rerank.topn
//	      config: {n: 5}
type Config struct {
	Pipeline struct {
		Name  string       `yaml:"name" json:"name"`
		Nodes []NodeConfig `yaml:"nodes" json:"nodes"`
	} `yaml:"pipeline" json:"pipeline"`
}

// NodeConfig 是单个 Node 的配置。
type NodeConfig struct {
	Type   string         `yaml:"type" json:"type"`     // rank.mood / rerank.topn / filter.expr 等
	Config map[string]any `yaml:"config" json:"config"` // Node 特定配置
}

// ParseYAML 解析 YAML 格式的 Pipeline 配置。
func ParseYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return &cfg, nil
}

// ParseJSON 解析 JSON 格式的 Pipeline 配置。
func ParseJSON(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return &cfg, nil
}

// LoadFromYAML 从 YAML 文件加载 Pipeline 配置。
func LoadFromYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return ParseYAML(data)
}

// LoadFromJSON 从 JSON 文件加载 Pipeline 配置。
func LoadFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return ParseJSON(data)
}

// BuildPipeline 根据配置构建 Pipeline，hooks 原样挂到结果上。
func (c *Config) BuildPipeline(factory *NodeFactory, hooks ...Hook) (*Pipeline, error) {
	nodes := make([]Node, 0, len(c.Pipeline.Nodes))
	for i, nc := range c.Pipeline.Nodes {
		node, err := factory.Build(nc.Type, nc.Config)
		if err != nil {
			return nil, fmt.Errorf("build node #%d %s: %w", i, nc.Type, err)
		}
		nodes = append(nodes, node)
	}
	return &Pipeline{Nodes: nodes, Hooks: hooks}, nil
}

// NodeBuilder 根据 Node 特定配置构建 Node。
type NodeBuilder func(config map[string]any) (Node, error)

// NodeFactory 按类型名构建 Node。构建器在进程启动时注册，之后只读。
type NodeFactory struct {
	builders map[string]NodeBuilder
}

func NewNodeFactory() *NodeFactory {
	return &NodeFactory{builders: make(map[string]NodeBuilder)}
}

// Register 注册 Node 构建器，同名覆盖。
func (f *NodeFactory) Register(nodeType string, builder NodeBuilder) {
	f.builders[nodeType] = builder
}

// Build 根据类型和配置构建 Node。
func (f *NodeFactory) Build(nodeType string, config map[string]any) (Node, error) {
	builder, ok := f.builders[nodeType]
	if !ok {
		return nil, fmt.Errorf("unknown node type: %s", nodeType)
	}
	if config == nil {
		config = map[string]any{}
	}
	return builder(config)
}

// Types 返回已注册的类型（排序）。
func (f *NodeFactory) Types() []string {
	out := make([]string, 0, len(f.builders))
	for t := range f.builders {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
