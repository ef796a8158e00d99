package rank

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// EmotionKeywords 是情绪 -> 关键词列表的查表数据，情绪名大小写敏感（与预测器输出一致），
// 关键词匹配时不区分大小写。构造后不应再修改。
type EmotionKeywords map[string][]string

var defaultEmotionKeywords = EmotionKeywords{
	"Happy":     {"happy", "joy", "uplifting", "comedy", "funny", "humor", "laugh", "cheerful", "fun"},
	"Sad":       {"sad", "tragedy", "drama", "melancholy", "grief", "sorrow", "tear", "heartbreak"},
	"Excited":   {"exciting", "thrill", "adventure", "action", "suspense", "adrenaline", "intense"},
	"Relaxed":   {"calm", "peaceful", "gentle", "soothing", "meditation", "slow-paced", "easy"},
	"Tense":     {"tense", "anxiety", "fear", "horror", "thriller", "paranoia", "stress", "nervous"},
	"Romantic":  {"romance", "love", "relationship", "passion", "date", "attraction", "wedding"},
	"Nostalgic": {"nostalgia", "memory", "childhood", "reminisce", "past", "history", "retro"},
	"Inspired":  {"inspiration", "motivational", "triumph", "success", "achievement", "overcome"},
	"Fearful":   {"fear", "scary", "horror", "terrifying", "creepy", "nightmare", "dread"},
	"Calm":      {"calm", "serene", "peaceful", "tranquil", "relaxed", "gentle", "quiet"},
}

// DefaultEmotionKeywords 返回内置情绪关键词表的副本。
func DefaultEmotionKeywords() EmotionKeywords {
	return defaultEmotionKeywords.clone()
}

func (k EmotionKeywords) clone() EmotionKeywords {
	out := make(EmotionKeywords, len(k))
	for emo, words := range k {
		out[emo] = append([]string(nil), words...)
	}
	return out
}

// Emotions 返回表中所有情绪名（排序）。
func (k EmotionKeywords) Emotions() []string {
	out := make([]string, 0, len(k))
	for emo := range k {
		out = append(out, emo)
	}
	sort.Strings(out)
	return out
}

// ParseEmotionKeywords 从 YAML 读取关键词表，格式：
//
//	Happy: [happy, joy, comedy]
//	Sad: [sad, tragedy]
func ParseEmotionKeywords(r io.Reader) (EmotionKeywords, error) {
	var raw map[string][]string
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse emotion keywords: %w", err)
	}
	out := make(EmotionKeywords, len(raw))
	for emo, words := range raw {
		emo = strings.TrimSpace(emo)
		if emo == "" {
			continue
		}
		list := make([]string, 0, len(words))
		for _, w := range words {
			if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
				list = append(list, w)
			}
		}
		out[emo] = list
	}
	return out, nil
}

// LoadEmotionKeywords 从 YAML 文件读取关键词表。
func LoadEmotionKeywords(path string) (EmotionKeywords, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open emotion keywords: %w", err)
	}
	defer f.Close()
	return ParseEmotionKeywords(f)
}
