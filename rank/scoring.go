package rank

import (
	"math"
	"strconv"
	"strings"

	"github.com/rushteam/moodflix/core"
)

const (
	primaryCategoryWeight   = 1.5
	secondaryCategoryWeight = 1.0

	// NeutralScore 是缺少预测或数据无法解析时的中性分。
	NeutralScore = 0.5
)

// TextFields 是情绪匹配时拼接的文本列，只拼接存在的列。
var TextFields = []string{"overview", "description", "summary", "plot"}

// CategoryMatch 计算电影类别与预测类别的加权匹配度：
// 主类别（predicted[0]）权重 1.5，其余权重 1.0，得分 = 命中权重 / 总权重。
// 没有预测时为 0.5；电影没有类别时为 0。
func CategoryMatch(itemGenres, predicted []string) float64 {
	if len(predicted) == 0 {
		return NeutralScore
	}
	if len(itemGenres) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(itemGenres))
	for _, g := range itemGenres {
		set[g] = struct{}{}
	}
	var matched, total float64
	for i, g := range predicted {
		w := secondaryCategoryWeight
		if i == 0 {
			w = primaryCategoryWeight
		}
		total += w
		if _, ok := set[g]; ok {
			matched += w
		}
	}
	return matched / total
}

// ItemText 拼接 item 的描述类文本并转小写。
func ItemText(it *core.Item) string {
	var b strings.Builder
	for _, f := range TextFields {
		if v, ok := it.Field(f); ok && v != "" {
			b.WriteString(v)
			b.WriteByte(' ')
		}
	}
	return strings.ToLower(b.String())
}

// Match 计算文本与预测情绪的匹配度。
// 单个情绪得分 = min(1, 命中关键词数 / max(1, 关键词数/3))，总分为已识别情绪的平均；
// 没有可识别的情绪时为 0.5。text 需已转小写。
func (k EmotionKeywords) Match(text string, emotions []string) float64 {
	var total float64
	n := 0
	for _, emo := range emotions {
		words, ok := k[emo]
		if !ok || len(words) == 0 {
			continue
		}
		hits := 0
		for _, w := range words {
			if strings.Contains(text, strings.ToLower(w)) {
				hits++
			}
		}
		total += math.Min(1, float64(hits)/math.Max(1, float64(len(words))/3))
		n++
	}
	if n == 0 {
		return NeutralScore
	}
	return total / float64(n)
}

// metadataScorer 计算时效分与热度分。列不存在时对应的分数整体跳过。
type metadataScorer struct {
	recencyField string
	hasRecency   bool
	floorYear    float64
	currentYear  float64

	popularityField string
	maxPopularity   float64
}

func newMetadataScorer(cands []Candidate, cfg Config) *metadataScorer {
	m := &metadataScorer{
		recencyField: cfg.RecencyField,
		floorYear:    float64(cfg.FloorYear),
		currentYear:  float64(cfg.Now().Year()),
	}
	m.hasRecency = anyHasField(cands, cfg.RecencyField)
	for _, f := range cfg.PopularityFields {
		if anyHasField(cands, f) {
			m.popularityField = f
			break
		}
	}
	if m.popularityField != "" {
		m.maxPopularity = math.NaN()
		for _, c := range cands {
			v, ok := parseNumber(c.Item, m.popularityField)
			if !ok {
				continue
			}
			if math.IsNaN(m.maxPopularity) || v > m.maxPopularity {
				m.maxPopularity = v
			}
		}
	}
	return m
}

func anyHasField(cands []Candidate, field string) bool {
	for _, c := range cands {
		if _, ok := c.Item.Field(field); ok {
			return true
		}
	}
	return false
}

func parseNumber(it *core.Item, field string) (float64, bool) {
	raw, ok := it.Field(field)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// recency 把年份线性映射到 [FloorYear, 今年] 并截断到 [0,1]，无法解析时为 0.5。
func (m *metadataScorer) recency(it *core.Item) (float64, bool) {
	if !m.hasRecency {
		return 0, false
	}
	y, ok := parseNumber(it, m.recencyField)
	span := m.currentYear - m.floorYear
	if !ok || span <= 0 {
		return NeutralScore, true
	}
	return clamp01((y - m.floorYear) / span), true
}

// popularity 按候选集内最大值归一化，无法解析或最大值非正时为 0.5。
func (m *metadataScorer) popularity(it *core.Item) (float64, bool) {
	if m.popularityField == "" {
		return 0, false
	}
	v, ok := parseNumber(it, m.popularityField)
	if !ok || math.IsNaN(m.maxPopularity) || m.maxPopularity <= 0 {
		return NeutralScore, true
	}
	return clamp01(v / m.maxPopularity), true
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
