// Package moodflix 根据用户当下的心情推荐电影。
//
// 一次推荐的链路：
//   - 标签预测：问卷回答与表情 -> 类别 + 情绪（model.LabelPredictor）
//   - 故事概要：场景与心情描述 -> 50 词左右的故事（model.StoryWriter）
//   - 召回：故事概要句向量在目录中检索相似电影（recall）
//   - 过滤：剔除看过的电影（filter）
//   - 排序：相似度、类别匹配、情绪关键词匹配加权，再用年份与热度微调（rank）
//   - 重排：截断或按种子采样（rerank）
//
// 各阶段都是 pipeline.Node，可以用 YAML 配置拓扑（config）。
package moodflix

import (
	"github.com/rushteam/moodflix/core"
	"github.com/rushteam/moodflix/pipeline"
)

// 轻量 facade：便于直接 import "moodflix" 使用核心抽象。
type (
	Pipeline   = pipeline.Pipeline
	Node       = pipeline.Node
	Kind       = pipeline.Kind
	Item       = core.Item
	Prediction = core.Prediction
)

const (
	KindRecall      = pipeline.KindRecall
	KindFilter      = pipeline.KindFilter
	KindRank        = pipeline.KindRank
	KindReRank      = pipeline.KindReRank
	KindPostProcess = pipeline.KindPostProcess
)
