package model

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/rushteam/moodflix/core"
)

// EmotionScorePrefix 标记问卷回答中的情绪分数，例如 "emotion:joy" -> "0.72"。
// 语音/表情识别的结果以这种形式并入 responses，其余回答视为文本。
const EmotionScorePrefix = "emotion:"

// DefaultEmotionThreshold 没有情绪分数时的阈值。
const DefaultEmotionThreshold = 0.3

// SignalGenres 是识别出的情绪信号到电影类别的映射。
var SignalGenres = map[string][]string{
	"excitement": {"Action", "Adventure", "Thriller"},
	"joy":        {"Comedy", "Musical", "Family"},
	"anger":      {"Action", "Crime", "Drama"},
	"calm":       {"Drama", "Romance", "Biography"},
	"sadness":    {"Drama", "Romance"},
	"surprise":   {"Thriller", "Mystery"},
}

// SignalEmotions 是情绪信号到排序情绪词表的映射。
var SignalEmotions = map[string]string{
	"excitement": "Excited",
	"joy":        "Happy",
	"anger":      "Tense",
	"calm":       "Calm",
	"sadness":    "Sad",
	"surprise":   "Excited",
}

// RulePredictor 不依赖 LLM 的离线预测器：
//   - 文本中提到的类别直接采用
//   - 情绪分数高于动态阈值（平均分，截断到 [0.1, 0.5]）的信号按 SignalGenres 映射到类别
//
// 类别顺序：文本提及在前，其次按情绪分数从高到低。
type RulePredictor struct {
	// Genres 文本中可识别的类别，为空时使用 KnownGenres；通常传目录的 Genres()。
	Genres []string
}

func (p *RulePredictor) Predict(_ context.Context, responses map[string]string) (core.Prediction, error) {
	var text []string
	scores := make(map[string]float64)
	keys := make([]string, 0, len(responses))
	for k := range responses {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := responses[k]
		if name, ok := strings.CutPrefix(k, EmotionScorePrefix); ok {
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				scores[strings.ToLower(strings.TrimSpace(name))] = f
			}
			continue
		}
		text = append(text, v)
	}
	return p.PredictSignals(strings.Join(text, " "), scores), nil
}

// PredictSignals 由转写文本与情绪分数给出预测。
func (p *RulePredictor) PredictSignals(transcript string, scores map[string]float64) core.Prediction {
	vocab := p.Genres
	if len(vocab) == 0 {
		vocab = KnownGenres
	}
	genres := ExtractMentions(transcript, vocab)
	emotions := ExtractMentions(transcript, KnownEmotions)

	threshold := EmotionThreshold(scores)
	type signal struct {
		name  string
		score float64
	}
	var active []signal
	for name, s := range scores {
		if s > threshold {
			active = append(active, signal{name, s})
		}
	}
	sort.Slice(active, func(i, j int) bool {
		if active[i].score != active[j].score {
			return active[i].score > active[j].score
		}
		return active[i].name < active[j].name
	})
	for _, s := range active {
		genres = append(genres, SignalGenres[s.name]...)
		if emo, ok := SignalEmotions[s.name]; ok {
			emotions = append(emotions, emo)
		}
	}
	return core.Prediction{Categories: genres, Emotions: emotions}.Normalize()
}

// EmotionThreshold = clamp(平均分, 0.1, 0.5)，没有分数时为 0.3。
func EmotionThreshold(scores map[string]float64) float64 {
	if len(scores) == 0 {
		return DefaultEmotionThreshold
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	mean := sum / float64(len(scores))
	return min(0.5, max(0.1, mean))
}
