package core

import (
	"context"
	"time"
)

// Store 是存储的领域接口，由 store 包实现（MemoryStore / RedisStore）。
//
// 使用场景：
//   - 反馈存储：用户对推荐结果的评分
//   - 调试快照：排序前后的打分集合
//   - 已看列表：过滤阶段剔除用户看过的电影
type Store interface {
	// Name 返回存储后端名称（用于日志/监控）
	Name() string

	Get(ctx context.Context, key string) ([]byte, error)

	// Set 写入单个 key-value，ttl <= 0 表示永不过期
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	Delete(ctx context.Context, key string) error

	// BatchGet 批量读取，不存在的 key 不出现在结果中
	BatchGet(ctx context.Context, keys []string) (map[string][]byte, error)

	Close() error
}

// KeyValueStore 在 Store 基础上增加有序集合与哈希表操作。
type KeyValueStore interface {
	Store

	// ZAdd 向有序集合添加成员
	ZAdd(ctx context.Context, key string, score float64, member string) error

	// ZRevRange 按分数降序返回 [start, stop] 区间的成员，stop < 0 表示到末尾
	ZRevRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	HGet(ctx context.Context, key, field string) ([]byte, error)
	HSet(ctx context.Context, key, field string, value []byte) error
	HGetAll(ctx context.Context, key string) (map[string][]byte, error)
}

var (
	// ErrStoreNotFound 表示 key 不存在
	ErrStoreNotFound = NewDomainError(ModuleStore, ErrorCodeNotFound, "store: key not found")

	// ErrStoreNotSupported 表示操作不支持
	ErrStoreNotSupported = NewDomainError(ModuleStore, ErrorCodeNotSupported, "store: operation not supported")
)

// IsStoreNotFound 检查错误是否为 key 不存在
func IsStoreNotFound(err error) bool {
	de := GetDomainError(err)
	return de != nil && de.Module == ModuleStore && de.Code == ErrorCodeNotFound
}
