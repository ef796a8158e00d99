// Package store 提供 core.Store / core.KeyValueStore 与 core.VectorIndex 的实现。
//
// 接口定义在 core 包：
//
//	var kv core.KeyValueStore = store.NewMemoryStore()
//	var kv core.KeyValueStore = store.NewRedisStore(store.RedisConfig{Addr: "localhost:6379"})
//	var vs core.VectorIndex  = store.NewMemoryVectorService()
package store

import (
	"context"
	"fmt"

	"github.com/rushteam/moodflix/core"
)

// Config 选择存储后端。
type Config struct {
	// Backend: memory 或 redis
	Backend string      `koanf:"backend" validate:"omitempty,oneof=memory redis"`
	Redis   RedisConfig `koanf:"redis"`
}

// Open 按配置创建 KeyValueStore，redis 后端会先 Ping 一次。
func Open(ctx context.Context, cfg Config) (core.KeyValueStore, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		rs := NewRedisStore(cfg.Redis)
		if err := rs.Ping(ctx); err != nil {
			_ = rs.Close()
			return nil, core.WrapDomainError(core.ModuleStore, core.ErrorCodeUnavailable, "store: redis unavailable", err)
		}
		return rs, nil
	default:
		return nil, fmt.Errorf("store: unknown backend %q", cfg.Backend)
	}
}
