package core

import "strings"

// Label 是推荐链路中的一等公民：可解释、可追踪、可透传。
// Value 与 Source 的语义由业务自定义，这里只提供标准化的合并规则。
type Label struct {
	Value  string `json:"value"`
	Source string `json:"source"` // recall / filter / rank / rerank ...
}

// MergeLabel 合并同名 Label：
//   - Value 以 '|' 累积，已出现过的值不重复追加
//   - Source 以 ',' 累积，同样去重
func MergeLabel(existing, incoming Label) Label {
	if existing.Value == "" {
		return incoming
	}
	if incoming.Value == "" {
		return existing
	}
	return Label{
		Value:  appendUnique(existing.Value, incoming.Value, "|"),
		Source: appendUnique(existing.Source, incoming.Source, ","),
	}
}

func appendUnique(list, v, sep string) string {
	if v == "" {
		return list
	}
	if list == "" {
		return v
	}
	for _, p := range strings.Split(list, sep) {
		if p == v {
			return list
		}
	}
	return list + sep + v
}
