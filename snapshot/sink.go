// Package snapshot 把某一阶段的打分集合导出为带标签、带时间戳的快照，用于调试排序。
//
// 快照是 fire-and-forget 的：排序链路不等待写入，也不因写入失败而失败。
// 同步实现（CSVSink / StoreSink）通常包在 Async 里使用。
package snapshot

import (
	"context"

	"github.com/rushteam/moodflix/core"
)

const (
	LabelPreThreshold  = "pre_threshold"
	LabelPostThreshold = "post_threshold"
)

// Sink 记录一个带标签的打分集合。
type Sink interface {
	Record(ctx context.Context, label string, items []*core.Item) error
}

// SinkFunc 让普通函数实现 Sink。
type SinkFunc func(ctx context.Context, label string, items []*core.Item) error

func (f SinkFunc) Record(ctx context.Context, label string, items []*core.Item) error {
	return f(ctx, label, items)
}

// ScoreColumns 是快照中按固定顺序输出的分数列，只输出至少一个 item 带有的列。
var ScoreColumns = []string{
	"similarity_score",
	"category_match_score",
	"emotion_match_score",
	"recency_score",
	"popularity_score",
	"final_score",
}

func presentScoreColumns(items []*core.Item) []string {
	out := make([]string, 0, len(ScoreColumns))
	for _, col := range ScoreColumns {
		for _, it := range items {
			if _, ok := it.Feature(col); ok {
				out = append(out, col)
				break
			}
		}
	}
	return out
}
