package core

import "strings"

// Prediction 是标签预测器的输出：有序的类别列表（第一个为主类别）与情绪列表。
// 两个列表为空等价于"没有预测"，排序时按中性分处理，而不是报错。
type Prediction struct {
	Categories []string `json:"genres"`
	Emotions   []string `json:"emotions"`
}

// Empty 表示类别与情绪都没有预测结果。
func (p Prediction) Empty() bool {
	return len(p.Categories) == 0 && len(p.Emotions) == 0
}

// Normalize 去掉空白项与重复项（保留首次出现的顺序），并保证两个切片都不为 nil。
func (p Prediction) Normalize() Prediction {
	return Prediction{
		Categories: dedupe(p.Categories),
		Emotions:   dedupe(p.Emotions),
	}
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
