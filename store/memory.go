package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rushteam/moodflix/core"
)

// MemoryStore 是内存实现的 KeyValueStore，用于测试/开发/单机部署。
// 支持 TTL，但进程重启后数据丢失。
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]*entry
	zsets  map[string]map[string]float64
	hashes map[string]map[string][]byte
	clean  *time.Ticker
	done   chan struct{}
	once   sync.Once
}

type entry struct {
	value  []byte
	expire time.Time // 零值表示永不过期
}

func (e *entry) expired(now time.Time) bool {
	return !e.expire.IsZero() && now.After(e.expire)
}

func NewMemoryStore() *MemoryStore {
	ms := &MemoryStore{
		data:   make(map[string]*entry),
		zsets:  make(map[string]map[string]float64),
		hashes: make(map[string]map[string][]byte),
		clean:  time.NewTicker(10 * time.Second),
		done:   make(chan struct{}),
	}
	go ms.cleanup()
	return ms
}

var _ core.KeyValueStore = (*MemoryStore)(nil)

func (m *MemoryStore) Name() string { return "memory" }

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.data[key]
	if !ok || e.expired(time.Now()) {
		return nil, core.ErrStoreNotFound
	}
	return e.value, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := &entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expire = time.Now().Add(ttl)
	}
	m.data[key] = e
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	delete(m.zsets, key)
	delete(m.hashes, key)
	return nil
}

func (m *MemoryStore) BatchGet(_ context.Context, keys []string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string][]byte, len(keys))
	now := time.Now()
	for _, k := range keys {
		e, ok := m.data[k]
		if !ok || e.expired(now) {
			continue
		}
		result[k] = e.value
	}
	return result, nil
}

// Keys 返回带指定前缀且未过期的 key（按字典序），仅内存实现提供，用于调试与测试。
func (m *MemoryStore) Keys(prefix string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	out := make([]string, 0)
	for k, e := range m.data {
		if strings.HasPrefix(k, prefix) && !e.expired(now) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func (m *MemoryStore) Close() error {
	m.once.Do(func() {
		m.clean.Stop()
		close(m.done)
	})
	return nil
}

func (m *MemoryStore) cleanup() {
	for {
		select {
		case <-m.done:
			return
		case <-m.clean.C:
			m.mu.Lock()
			now := time.Now()
			for k, e := range m.data {
				if e.expired(now) {
					delete(m.data, k)
				}
			}
			m.mu.Unlock()
		}
	}
}

func (m *MemoryStore) ZAdd(_ context.Context, key string, score float64, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.zsets[key] == nil {
		m.zsets[key] = make(map[string]float64)
	}
	m.zsets[key][member] = score
	return nil
}

// ZRevRange 与 Redis ZREVRANGE 语义一致：分数降序，同分按成员字典序降序。
func (m *MemoryStore) ZRevRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	zset := m.zsets[key]
	if len(zset) == 0 {
		return []string{}, nil
	}

	type pair struct {
		member string
		score  float64
	}
	pairs := make([]pair, 0, len(zset))
	for mem, s := range zset {
		pairs = append(pairs, pair{member: mem, score: s})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].score != pairs[j].score {
			return pairs[i].score > pairs[j].score
		}
		return pairs[i].member > pairs[j].member
	})

	n := int64(len(pairs))
	if start < 0 {
		start = 0
	}
	if stop < 0 || stop >= n {
		stop = n - 1
	}
	if start > stop {
		return []string{}, nil
	}
	out := make([]string, 0, stop-start+1)
	for i := start; i <= stop; i++ {
		out = append(out, pairs[i].member)
	}
	return out, nil
}

func (m *MemoryStore) HGet(_ context.Context, key, field string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.hashes[key][field]
	if !ok {
		return nil, core.ErrStoreNotFound
	}
	return v, nil
}

func (m *MemoryStore) HSet(_ context.Context, key, field string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.hashes[key] == nil {
		m.hashes[key] = make(map[string][]byte)
	}
	m.hashes[key][field] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStore) HGetAll(_ context.Context, key string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string][]byte, len(m.hashes[key]))
	for f, v := range m.hashes[key] {
		out[f] = v
	}
	return out, nil
}
