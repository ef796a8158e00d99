// Package rank 实现按心情推荐电影的多因子排序：
//
//	final = sim*w_sim + category*w_cat + emotion*w_emo   (权重归一化)
//	final = final*0.9 + recency*0.1                       (有年份列时)
//	final = final*0.9 + popularity*0.1                    (有热度列时)
//
// 之后按 max(MinScore, μ-0.5σ) 做自适应阈值过滤，结果不足 MinResults 时放弃过滤，
// 最后按 final 稳定降序排列。
package rank

import (
	"context"
	"math"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/moodflix/core"
	"github.com/rushteam/moodflix/logging"
	"github.com/rushteam/moodflix/metrics"
	"github.com/rushteam/moodflix/snapshot"
)

// 元数据修正的混合比例：final*0.9 + modifier*0.1，时效与热度依次各做一次。
const (
	metadataKeep  = 0.9
	metadataBlend = 0.1
)

// Candidate 是相似度召回后的一个候选。
type Candidate struct {
	Item       *core.Item
	Similarity float64
}

// ScoredCandidate 是打完分的候选，保留全部中间分数供展示层做分项解释。
type ScoredCandidate struct {
	Candidate

	CategoryMatch float64
	EmotionMatch  float64
	Recency       *float64 // 没有年份列时为 nil
	Popularity    *float64 // 没有热度列时为 nil
	Final         float64
}

// ToItem 返回带有全部分数特征的 item 副本，Score 为 Final。
func (s ScoredCandidate) ToItem() *core.Item {
	it := s.Item.Clone()
	it.PutFeature(FeatureSimilarity, s.Similarity)
	it.PutFeature(FeatureCategoryMatch, s.CategoryMatch)
	it.PutFeature(FeatureEmotionMatch, s.EmotionMatch)
	if s.Recency != nil {
		it.PutFeature(FeatureRecency, *s.Recency)
	}
	if s.Popularity != nil {
		it.PutFeature(FeaturePopularity, *s.Popularity)
	}
	it.PutFeature(FeatureFinal, s.Final)
	it.Score = s.Final
	return it
}

const (
	FeatureSimilarity    = core.FeatureSimilarity
	FeatureCategoryMatch = "category_match_score"
	FeatureEmotionMatch  = "emotion_match_score"
	FeatureRecency       = "recency_score"
	FeaturePopularity    = "popularity_score"
	FeatureFinal         = "final_score"
)

// Rank 对候选集打分、过滤并排序。
//
// 权重非法时返回 *core.ConfigurationError；候选为空时返回空列表。
// 单个候选的脏数据只会让该因子退化为 0.5，不会让整个调用失败。
// 返回结果长度不超过输入长度，同分时保持输入顺序。
func Rank(ctx context.Context, candidates []Candidate, pred core.Prediction, w Weights, cfg Config) ([]ScoredCandidate, error) {
	nw, err := w.Normalize()
	if err != nil {
		metrics.RecordRank("config_error", false)
		return nil, err
	}
	cands := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Item != nil {
			cands = append(cands, c)
		}
	}
	if len(cands) == 0 {
		metrics.RecordRank("empty", false)
		return []ScoredCandidate{}, nil
	}

	cfg = cfg.withDefaults()
	pred = pred.Normalize()
	meta := newMetadataScorer(cands, cfg)

	scored := make([]ScoredCandidate, len(cands))
	score := func(i int) {
		scored[i] = scoreOne(cands[i], pred, nw, cfg.Keywords, meta)
	}
	if cfg.Parallelism > 1 && len(cands) > 1 {
		// 打分是纯计算，不看 ctx，结果与串行一致
		var g errgroup.Group
		g.SetLimit(cfg.Parallelism)
		for i := range cands {
			g.Go(func() error {
				score(i)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i := range cands {
			score(i)
		}
	}

	record(ctx, cfg.Snapshot, snapshot.LabelPreThreshold, scored)

	threshold := adaptiveThreshold(scored, *cfg.MinScore)
	kept := make([]ScoredCandidate, 0, len(scored))
	for _, s := range scored {
		if s.Final >= threshold {
			kept = append(kept, s)
		}
	}
	fellBack := len(kept) < *cfg.MinResults
	if fellBack {
		kept = append(kept[:0], scored...)
	}
	slices.SortStableFunc(kept, func(a, b ScoredCandidate) int {
		switch {
		case a.Final > b.Final:
			return -1
		case a.Final < b.Final:
			return 1
		default:
			return 0
		}
	})

	record(ctx, cfg.Snapshot, snapshot.LabelPostThreshold, kept)
	metrics.RecordRank("ok", fellBack)
	logging.Ctx(ctx).Debug().
		Int("candidates", len(scored)).
		Int("kept", len(kept)).
		Float64("threshold", threshold).
		Bool("fallback", fellBack).
		Msg("rank done")
	return kept, nil
}

func scoreOne(c Candidate, pred core.Prediction, w Weights, kw EmotionKeywords, meta *metadataScorer) ScoredCandidate {
	sim := c.Similarity
	if math.IsNaN(sim) || math.IsInf(sim, 0) {
		sim = NeutralScore
	}
	s := ScoredCandidate{
		Candidate:     Candidate{Item: c.Item, Similarity: sim},
		CategoryMatch: CategoryMatch(c.Item.GenreList(), pred.Categories),
		EmotionMatch:  kw.Match(ItemText(c.Item), pred.Emotions),
	}
	s.Final = sim*w.Similarity + s.CategoryMatch*w.Category + s.EmotionMatch*w.Emotion
	if v, ok := meta.recency(c.Item); ok {
		s.Recency = &v
		s.Final = s.Final*metadataKeep + v*metadataBlend
	}
	if v, ok := meta.popularity(c.Item); ok {
		s.Popularity = &v
		s.Final = s.Final*metadataKeep + v*metadataBlend
	}
	return s
}

// adaptiveThreshold = max(floor, μ - 0.5σ)，σ 为样本标准差（n-1），不足两个候选时 σ=0。
func adaptiveThreshold(scored []ScoredCandidate, floor float64) float64 {
	n := float64(len(scored))
	var sum float64
	for _, s := range scored {
		sum += s.Final
	}
	mean := sum / n
	var std float64
	if len(scored) > 1 {
		var sq float64
		for _, s := range scored {
			d := s.Final - mean
			sq += d * d
		}
		std = math.Sqrt(sq / (n - 1))
	}
	return math.Max(floor, mean-0.5*std)
}

func record(ctx context.Context, sink snapshot.Sink, label string, scored []ScoredCandidate) {
	if sink == nil {
		return
	}
	items := make([]*core.Item, len(scored))
	for i, s := range scored {
		items[i] = s.ToItem()
	}
	defer func() {
		if r := recover(); r != nil {
			logging.Ctx(ctx).Warn().Interface("panic", r).Str("label", label).Msg("snapshot sink panicked")
		}
	}()
	if err := sink.Record(ctx, label, items); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("label", label).Msg("snapshot failed")
	}
}
