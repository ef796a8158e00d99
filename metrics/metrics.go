// Package metrics 定义推荐链路的 Prometheus 指标。
//
// 指标分类：
//   - Pipeline：各 Node 耗时、输入/输出条数、错误数
//   - Rank：排序调用次数、阈值回退次数、配置错误次数
//   - Snapshot：调试快照写入与丢弃
//   - Upstream：模型服务调用结果
//   - Recommend / Feedback：请求级结果
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NodeDuration 记录每个 Node 的处理耗时。
	NodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "moodflix_pipeline_node_duration_seconds",
			Help:    "Duration of pipeline node processing in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"node", "kind"},
	)

	// NodeItems 记录 Node 处理后的输出条数。
	NodeItems = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "moodflix_pipeline_node_items",
			Help:    "Number of items emitted by a pipeline node",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 1000},
		},
		[]string{"node", "kind"},
	)

	// NodeErrorsTotal 记录 Node 返回错误的次数。
	NodeErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moodflix_pipeline_node_errors_total",
			Help: "Total number of pipeline node errors",
		},
		[]string{"node", "kind"},
	)

	// RankCallsTotal 按结果统计排序调用：ok / empty / config_error。
	RankCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moodflix_rank_calls_total",
			Help: "Total number of ranking calls by outcome",
		},
		[]string{"outcome"},
	)

	// RankThresholdFallbackTotal 统计因结果过少而放弃阈值过滤的次数。
	RankThresholdFallbackTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "moodflix_rank_threshold_fallback_total",
			Help: "Total number of ranking calls that kept the unfiltered set",
		},
	)

	// SnapshotsTotal 按结果统计快照：written / dropped / failed。
	SnapshotsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moodflix_snapshots_total",
			Help: "Total number of debug snapshots by outcome",
		},
		[]string{"sink", "outcome"},
	)

	// UpstreamCallsTotal 统计模型服务调用：ok / error / breaker_open。
	UpstreamCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moodflix_upstream_calls_total",
			Help: "Total number of upstream model calls by service and outcome",
		},
		[]string{"service", "outcome"},
	)

	// RecommendationsTotal 按结果统计推荐请求：ok / degraded / error。
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moodflix_recommendations_total",
			Help: "Total number of recommendation requests by outcome",
		},
		[]string{"outcome"},
	)

	// FeedbackRatings 记录用户评分分布。
	FeedbackRatings = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "moodflix_feedback_rating",
			Help:    "Distribution of submitted feedback ratings",
			Buckets: []float64{1, 2, 3, 4, 5},
		},
	)
)

// RecordRank 记录一次排序调用。
func RecordRank(outcome string, fellBack bool) {
	RankCallsTotal.WithLabelValues(outcome).Inc()
	if fellBack {
		RankThresholdFallbackTotal.Inc()
	}
}

// RecordSnapshot 记录一次快照结果。
func RecordSnapshot(sink, outcome string) {
	SnapshotsTotal.WithLabelValues(sink, outcome).Inc()
}

// RecordUpstream 记录一次模型服务调用结果。
func RecordUpstream(service, outcome string) {
	UpstreamCallsTotal.WithLabelValues(service, outcome).Inc()
}

// RecordRecommendation 记录一次推荐请求结果。
func RecordRecommendation(outcome string) {
	RecommendationsTotal.WithLabelValues(outcome).Inc()
}

// RecordFeedback 记录一次评分。
func RecordFeedback(rating int) {
	FeedbackRatings.Observe(float64(rating))
}
