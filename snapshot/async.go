package snapshot

import (
	"context"
	"sync"

	"github.com/rushteam/moodflix/core"
	"github.com/rushteam/moodflix/logging"
	"github.com/rushteam/moodflix/metrics"
)

type job struct {
	ctx   context.Context
	label string
	items []*core.Item
}

// Async 把任意 Sink 包装成非阻塞写入：Record 只入队，由后台 goroutine 写出。
// 队列满时直接丢弃；写入错误只记日志。
type Async struct {
	Name string

	sink   Sink
	ch     chan job
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// NewAsync 启动后台写入 goroutine。buffer <= 0 时使用 64。
func NewAsync(name string, sink Sink, buffer int) *Async {
	if buffer <= 0 {
		buffer = 64
	}
	a := &Async{Name: name, sink: sink, ch: make(chan job, buffer)}
	a.wg.Add(1)
	go a.loop()
	return a
}

func (a *Async) loop() {
	defer a.wg.Done()
	for j := range a.ch {
		if err := a.sink.Record(j.ctx, j.label, j.items); err != nil {
			metrics.RecordSnapshot(a.Name, "failed")
			logging.Ctx(j.ctx).Warn().Err(err).Str("sink", a.Name).Str("label", j.label).Msg("snapshot write failed")
			continue
		}
		metrics.RecordSnapshot(a.Name, "written")
	}
}

// Record 入队后立即返回，永远不返回错误。
func (a *Async) Record(ctx context.Context, label string, items []*core.Item) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		metrics.RecordSnapshot(a.Name, "dropped")
		return nil
	}
	select {
	case a.ch <- job{ctx: context.WithoutCancel(ctx), label: label, items: items}:
	default:
		metrics.RecordSnapshot(a.Name, "dropped")
	}
	return nil
}

// Close 停止接收新快照，并等待已入队的快照写完。
func (a *Async) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.ch)
	a.mu.Unlock()
	a.wg.Wait()
	return nil
}
