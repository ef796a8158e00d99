package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/rushteam/moodflix/core"
	"github.com/rushteam/moodflix/logging"
	"github.com/rushteam/moodflix/model"
	"github.com/rushteam/moodflix/pkg/validate"
	"github.com/rushteam/moodflix/rank"
	"github.com/rushteam/moodflix/store"
)

const (
	// PathEnvVar 指定配置文件路径，未设置时依次查找 DefaultPaths。
	PathEnvVar = "MOODFLIX_CONFIG"
	// EnvPrefix 环境变量前缀：MOODFLIX_RECOMMEND_MIN_SCORE -> recommend.min_score。
	EnvPrefix = "MOODFLIX_"
)

// DefaultPaths 配置文件查找顺序，取第一个存在的。
var DefaultPaths = []string{"moodflix.yaml", "moodflix.yml", "/etc/moodflix/moodflix.yaml"}

// App 是进程配置。优先级：环境变量 > 配置文件 > 默认值。
type App struct {
	Server    ServerConfig       `koanf:"server"`
	Logging   logging.Config     `koanf:"logging"`
	Catalog   CatalogConfig      `koanf:"catalog"`
	Ollama    model.OllamaConfig `koanf:"ollama"`
	Recommend RecommendConfig    `koanf:"recommend"`
	Store     store.Config       `koanf:"store"`
	Snapshot  SnapshotConfig     `koanf:"snapshot"`
}

type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type CatalogConfig struct {
	Path       string `koanf:"path" validate:"required"`
	Collection string `koanf:"collection" validate:"required"`
	// IndexOnStart 启动时把目录中的 overview 向量写入向量索引。
	IndexOnStart bool `koanf:"index_on_start"`
}

// RecommendConfig 推荐流程的参数。PipelineFile 非空时从 YAML 读取拓扑，否则用 DefaultPipeline。
type RecommendConfig struct {
	Weights             rank.Weights `koanf:"weights"`
	MinScore            float64      `koanf:"min_score" validate:"gte=0,lte=1"`
	MinResults          int          `koanf:"min_results" validate:"gte=0"`
	TopNSimilarity      int          `koanf:"top_n_similarity" validate:"gte=1"`
	SimilarityThreshold float64      `koanf:"similarity_threshold" validate:"gte=-1,lte=1"`
	FinalCount          int          `koanf:"final_recommendations" validate:"gte=1,lte=100"`
	Parallelism         int          `koanf:"parallelism" validate:"gte=0"`
	Seed                uint64       `koanf:"seed"`
	// Predictor: ollama 用 LLM 预测标签；rule 按文本提及与情绪分数离线预测。
	Predictor string `koanf:"predictor" validate:"oneof=ollama rule"`
	// Strategy: topn 直接取前 N；sample 从前 2N 中按种子随机取 N。
	Strategy       string        `koanf:"strategy" validate:"oneof=topn sample"`
	ExcludeWatched bool          `koanf:"exclude_watched"`
	WatchedWindow  time.Duration `koanf:"watched_window"`
	KeywordsFile   string        `koanf:"keywords_file"`
	PipelineFile   string        `koanf:"pipeline_file"`
	DegradeOnModel bool          `koanf:"degrade_on_model_error"`
	PredictTimeout time.Duration `koanf:"predict_timeout"`
}

type SnapshotConfig struct {
	Enabled bool          `koanf:"enabled"`
	Dir     string        `koanf:"dir" validate:"required_if=Enabled true Sink csv"`
	Sink    string        `koanf:"sink" validate:"oneof=csv store"`
	TTL     time.Duration `koanf:"ttl"`
	Buffer  int           `koanf:"buffer" validate:"gte=0"`
}

// Default 返回默认配置。
func Default() *App {
	return &App{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    90 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: logging.Config{Level: "info", Format: "json"},
		Catalog: CatalogConfig{Path: "data/movies.csv", Collection: "movies", IndexOnStart: true},
		Ollama:  model.DefaultOllamaConfig(),
		Recommend: RecommendConfig{
			Weights:             rank.DefaultWeights(),
			MinScore:            rank.DefaultMinScore,
			MinResults:          rank.DefaultMinResults,
			TopNSimilarity:      100,
			SimilarityThreshold: 0.55,
			FinalCount:          5,
			Predictor:           "ollama",
			Strategy:            "topn",
			ExcludeWatched:      true,
			DegradeOnModel:      true,
			PredictTimeout:      60 * time.Second,
		},
		Store:    store.Config{Backend: "memory", Redis: store.RedisConfig{Addr: "localhost:6379"}},
		Snapshot: SnapshotConfig{Dir: "snapshots", Sink: "csv", TTL: 24 * time.Hour, Buffer: 16},
	}
}

// Load 依次加载默认值、配置文件与环境变量，并校验结果。
func Load() (*App, error) {
	return LoadFile(findFile())
}

// LoadFile 从指定文件（可为空）加载，环境变量仍然生效。
func LoadFile(path string) (*App, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &App{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 字段校验加上权重校验，失败时返回 *core.ConfigurationError。
func (c *App) Validate() error {
	if err := validate.Struct("config", c); err != nil {
		return &core.ConfigurationError{Field: "config", Reason: err.Error()}
	}
	if err := c.Recommend.Weights.Validate(); err != nil {
		return err
	}
	return nil
}

func findFile() string {
	if p := os.Getenv(PathEnvVar); p != "" {
		return p
	}
	for _, p := range DefaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// nested 列出含下划线的二级节点，其余按第一个下划线切分 section。
var nested = []string{"recommend.weights", "store.redis"}

// envKey 把 MOODFLIX_* 变量名转换为 koanf 路径，返回空串表示忽略该变量。
func envKey(key string) string {
	if key == PathEnvVar {
		return ""
	}
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	section, rest, ok := strings.Cut(key, "_")
	if !ok {
		return key
	}
	path := section + "." + rest
	for _, n := range nested {
		if strings.HasPrefix(path, n+"_") {
			return n + "." + strings.TrimPrefix(path, n+"_")
		}
	}
	return path
}
