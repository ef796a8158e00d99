package rank

import (
	"time"

	"github.com/rushteam/moodflix/pkg/conv"
	"github.com/rushteam/moodflix/snapshot"
)

// Config 控制阈值过滤与可选的元数据修正。未设置的字段在排序时使用默认值；
// MinScore / MinResults 为 nil 表示未设置，显式的 0 按 0 处理。
type Config struct {
	// MinScore 是自适应阈值的下限，默认 0.3。
	MinScore *float64 `koanf:"min_score" yaml:"min_score"`

	// MinResults 是阈值过滤后至少保留的条数，不足时放弃过滤，默认 5。
	MinResults *int `koanf:"min_results" yaml:"min_results"`

	// Parallelism > 1 时按该并发度并行计算各候选的因子分；结果与串行一致。
	Parallelism int `koanf:"parallelism" yaml:"parallelism"`

	// FloorYear 是时效分的起始年份，默认 1990。
	FloorYear int `koanf:"floor_year" yaml:"floor_year"`

	// RecencyField 是年份列名，默认 release_year。
	RecencyField string `koanf:"recency_field" yaml:"recency_field"`

	// PopularityFields 按顺序取第一个存在的列作为热度，默认 vote_count / popularity / vote_average。
	PopularityFields []string `koanf:"popularity_fields" yaml:"popularity_fields"`

	// Keywords 情绪关键词表，为空时使用内置表。
	Keywords EmotionKeywords `koanf:"-" yaml:"-"`

	// Now 用于计算当前年份，测试可注入。
	Now func() time.Time `koanf:"-" yaml:"-"`

	// Snapshot 可选的调试快照，记录阈值过滤前后的打分集合。
	Snapshot snapshot.Sink `koanf:"-" yaml:"-"`
}

const (
	DefaultMinScore   = 0.3
	DefaultMinResults = 5
	DefaultFloorYear  = 1990
)

// DefaultPopularityFields 热度列的候选顺序。
var DefaultPopularityFields = []string{"vote_count", "popularity", "vote_average"}

// DefaultConfig 返回带默认值的配置。
func DefaultConfig() Config {
	return Config{}.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.MinScore == nil {
		c.MinScore = conv.Ptr(DefaultMinScore)
	}
	if c.MinResults == nil {
		c.MinResults = conv.Ptr(DefaultMinResults)
	}
	if c.FloorYear == 0 {
		c.FloorYear = DefaultFloorYear
	}
	if c.RecencyField == "" {
		c.RecencyField = "release_year"
	}
	if len(c.PopularityFields) == 0 {
		c.PopularityFields = DefaultPopularityFields
	}
	if c.Keywords == nil {
		c.Keywords = defaultEmotionKeywords
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}
