// Package model 封装推荐链路依赖的上游模型：标签预测、故事概要生成、句向量。
//
// 模型在进程启动时构造一次并注入到各组件，不使用全局单例。
package model

import (
	"context"
	"strings"

	"github.com/rushteam/moodflix/core"
)

// LabelPredictor 根据问卷回答预测适合的电影类别与情绪。
// 失败时返回空 Prediction 与错误，调用方按 "没有预测" 降级。
type LabelPredictor interface {
	Predict(ctx context.Context, responses map[string]string) (core.Prediction, error)
}

// StoryWriter 根据场景与心情描述生成一段故事概要，用于向量召回。
type StoryWriter interface {
	WriteStory(ctx context.Context, scene, feelings string) (string, error)
}

// Embedder 把文本编码为句向量。
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// KnownGenres 预测器可选的电影类别。
var KnownGenres = []string{
	"Action", "Adventure", "Animation", "Biography", "Comedy", "Crime",
	"Documentary", "Drama", "Family", "Fantasy", "History", "Horror",
	"Music", "Musical", "Mystery", "Romance", "Sci-Fi", "Sport", "Thriller", "War",
}

// KnownEmotions 预测器可选的情绪，与排序的情绪关键词表一致。
var KnownEmotions = []string{
	"Happy", "Sad", "Excited", "Relaxed", "Tense",
	"Romantic", "Nostalgic", "Inspired", "Fearful", "Calm",
}

const (
	DefaultGenre   = "Drama"
	DefaultEmotion = "Relaxed"
)

// ExtractMentions 按 vocabulary 的顺序返回 text 中提到（不区分大小写的子串）的词。
func ExtractMentions(text string, vocabulary []string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, w := range vocabulary {
		if w != "" && strings.Contains(lower, strings.ToLower(w)) {
			out = append(out, w)
		}
	}
	return out
}
