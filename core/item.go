package core

import "strings"

// GenreSeparator 是目录中类别字符串的分隔符，例如 "Action|Thriller"。
const GenreSeparator = "|"

// FeatureSimilarity 是召回阶段写入的故事概要相似度特征，排序阶段读取。
const FeatureSimilarity = "similarity_score"

// Item 是推荐链路中的统一承载结构：一部电影，以及它在链路中累积的分数、特征和标签。
//
// 目录字段（Name/Year/Genres/Overview/Meta/Embedding）在目录加载后只读；
// Score/Features/Labels 由各 Node 写入。Node 之间传递的是 Clone 后的副本，
// 不会回写目录。
type Item struct {
	ID       string
	Name     string
	Year     string
	Genres   string
	Overview string

	// Meta 保存目录中的其他列（description / summary / plot / release_year / vote_count ...）。
	Meta map[string]string

	// Embedding 是 overview 的句向量，可以为空。
	Embedding []float64

	Score    float64
	Features map[string]float64
	Labels   map[string]Label
}

func NewItem(id string) *Item {
	return &Item{
		ID:       id,
		Meta:     make(map[string]string),
		Features: make(map[string]float64),
		Labels:   make(map[string]Label),
	}
}

// Clone 复制可变部分（Score/Features/Labels）；目录字段只读，直接共享。
func (it *Item) Clone() *Item {
	out := *it
	out.Features = make(map[string]float64, len(it.Features))
	for k, v := range it.Features {
		out.Features[k] = v
	}
	out.Labels = make(map[string]Label, len(it.Labels))
	for k, v := range it.Labels {
		out.Labels[k] = v
	}
	return &out
}

// GenreList 按分隔符解析类别字符串，去掉空白项。
func (it *Item) GenreList() []string {
	return ParseGenres(it.Genres)
}

// Field 按列名读取字段，内置列优先，其余从 Meta 读取。
func (it *Item) Field(name string) (string, bool) {
	switch name {
	case "movie_id":
		return it.ID, true
	case "movie_name":
		return it.Name, true
	case "year":
		return it.Year, true
	case "genres":
		return it.Genres, true
	case "overview":
		return it.Overview, true
	}
	if it.Meta == nil {
		return "", false
	}
	v, ok := it.Meta[name]
	return v, ok
}

// PutFeature 写入一个数值特征。
func (it *Item) PutFeature(key string, v float64) {
	if it.Features == nil {
		it.Features = make(map[string]float64)
	}
	it.Features[key] = v
}

// Feature 读取数值特征。
func (it *Item) Feature(key string) (float64, bool) {
	if it.Features == nil {
		return 0, false
	}
	v, ok := it.Features[key]
	return v, ok
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// ParseGenres 把 "Action|Thriller" 解析为 ["Action", "Thriller"]。
func ParseGenres(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, GenreSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
