package rank

import (
	"math"

	"github.com/rushteam/moodflix/core"
)

// Weights 是三个打分因子的相对权重，不要求和为 1，排序前会归一化。
type Weights struct {
	Similarity float64 `koanf:"similarity" yaml:"similarity" json:"similarity"`
	Category   float64 `koanf:"category" yaml:"category" json:"category"`
	Emotion    float64 `koanf:"emotion" yaml:"emotion" json:"emotion"`
}

// DefaultWeights 相似度 0.5、类别 0.3、情绪 0.2。
func DefaultWeights() Weights {
	return Weights{Similarity: 0.5, Category: 0.3, Emotion: 0.2}
}

// Validate 要求每个权重非负且有限，并且至少一个为正。
func (w Weights) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"weights.similarity", w.Similarity},
		{"weights.category", w.Category},
		{"weights.emotion", w.Emotion},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return &core.ConfigurationError{Field: f.name, Reason: "must be a finite number"}
		}
		if f.v < 0 {
			return &core.ConfigurationError{Field: f.name, Reason: "must not be negative"}
		}
	}
	if w.Similarity+w.Category+w.Emotion <= 0 {
		return &core.ConfigurationError{Field: "weights", Reason: "at least one weight must be positive"}
	}
	return nil
}

// Normalize 校验后返回和为 1 的权重。
func (w Weights) Normalize() (Weights, error) {
	if err := w.Validate(); err != nil {
		return Weights{}, err
	}
	sum := w.Similarity + w.Category + w.Emotion
	return Weights{
		Similarity: w.Similarity / sum,
		Category:   w.Category / sum,
		Emotion:    w.Emotion / sum,
	}, nil
}
