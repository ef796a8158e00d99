package pipeline

import (
	"context"
	"time"

	"github.com/rushteam/moodflix/logging"
	"github.com/rushteam/moodflix/metrics"
)

// LoggingHook 以 debug 级别记录每个 Node 的输入输出条数与耗时，出错时记 error。
type LoggingHook struct{}

func (LoggingHook) BeforeNode(ctx context.Context, node Node, in int) {
	logging.Ctx(ctx).Debug().
		Str("node", node.Name()).
		Str("kind", string(node.Kind())).
		Int("in", in).
		Msg("node start")
}

func (LoggingHook) AfterNode(ctx context.Context, node Node, out int, elapsed time.Duration, err error) {
	l := logging.Ctx(ctx)
	if err != nil {
		l.Error().Err(err).
			Str("node", node.Name()).
			Dur("elapsed", elapsed).
			Msg("node failed")
		return
	}
	l.Debug().
		Str("node", node.Name()).
		Str("kind", string(node.Kind())).
		Int("out", out).
		Dur("elapsed", elapsed).
		Msg("node done")
}

// MetricsHook 上报 Node 耗时、输出条数与错误数。
type MetricsHook struct{}

func (MetricsHook) BeforeNode(context.Context, Node, int) {}

func (MetricsHook) AfterNode(_ context.Context, node Node, out int, elapsed time.Duration, err error) {
	name, kind := node.Name(), string(node.Kind())
	metrics.NodeDuration.WithLabelValues(name, kind).Observe(elapsed.Seconds())
	if err != nil {
		metrics.NodeErrorsTotal.WithLabelValues(name, kind).Inc()
		return
	}
	metrics.NodeItems.WithLabelValues(name, kind).Observe(float64(out))
}

// DefaultHooks 日志 + 指标。
func DefaultHooks() []Hook {
	return []Hook{LoggingHook{}, MetricsHook{}}
}
