package model

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"github.com/rushteam/moodflix/core"
	"github.com/rushteam/moodflix/logging"
)

// OllamaPredictor 让 LLM 根据问卷回答挑选类别与情绪。
//
// 期望模型回答 {"genres": [...], "emotions": [...]}；回答不是 JSON 时，
// 从文本里按已知类别/情绪的提及做抽取，抽不到时分别默认 Drama / Relaxed。
type OllamaPredictor struct {
	Client *OllamaClient
}

func NewOllamaPredictor(client *OllamaClient) *OllamaPredictor {
	return &OllamaPredictor{Client: client}
}

func (p *OllamaPredictor) Predict(ctx context.Context, responses map[string]string) (core.Prediction, error) {
	answer, err := p.Client.Generate(ctx, PredictionPrompt(responses))
	if err != nil {
		return core.Prediction{}, err
	}
	pred, structured := ParsePrediction(answer)
	if !structured {
		logging.Ctx(ctx).Debug().Str("answer", truncate(answer, 200)).Msg("prediction answer is not json, extracted by mention")
	}
	return pred, nil
}

// PredictionPrompt 生成类别/情绪预测的提示词，回答按 key 排序以保证提示词稳定。
func PredictionPrompt(responses map[string]string) string {
	keys := make([]string, 0, len(responses))
	for k := range responses {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("A user answered some questions about the situation they will watch a movie in.\n")
	b.WriteString("Pick the movie genres and the emotions that fit them best.\n\nAnswers:\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s: %s\n", k, responses[k])
	}
	b.WriteString("\nReply with JSON only, in this shape:\n")
	b.WriteString(`{"genres": ["Genre1", "Genre2", "Genre3"], "emotions": ["Emotion1", "Emotion2"]}`)
	b.WriteString("\n\nGenres to choose from: ")
	b.WriteString(strings.Join(KnownGenres, ", "))
	b.WriteString("\nEmotions to choose from: ")
	b.WriteString(strings.Join(KnownEmotions, ", "))
	b.WriteString("\nPut the best matching genre first.\n")
	return b.String()
}

// ParsePrediction 解析模型回答。第二个返回值表示回答是否为结构化 JSON。
func ParsePrediction(answer string) (core.Prediction, bool) {
	if pred, ok := decodePrediction(answer); ok {
		return pred, true
	}
	genres := ExtractMentions(answer, KnownGenres)
	if len(genres) == 0 {
		genres = []string{DefaultGenre}
	}
	emotions := ExtractMentions(answer, KnownEmotions)
	if len(emotions) == 0 {
		emotions = []string{DefaultEmotion}
	}
	return core.Prediction{Categories: genres, Emotions: emotions}.Normalize(), false
}

// decodePrediction 先按整段解析，失败再取第一个 '{' 到最后一个 '}' 之间的内容
// （模型经常在 JSON 外面包一层说明文字或代码块）。
func decodePrediction(answer string) (core.Prediction, bool) {
	candidates := []string{strings.TrimSpace(answer)}
	if i, j := strings.Index(answer, "{"), strings.LastIndex(answer, "}"); i >= 0 && j > i {
		candidates = append(candidates, answer[i:j+1])
	}
	for _, c := range candidates {
		var raw struct {
			Genres   []string `json:"genres"`
			Emotions []string `json:"emotions"`
		}
		if err := json.Unmarshal([]byte(c), &raw); err != nil {
			continue
		}
		if raw.Genres == nil && raw.Emotions == nil {
			continue
		}
		return core.Prediction{Categories: raw.Genres, Emotions: raw.Emotions}.Normalize(), true
	}
	return core.Prediction{}, false
}
