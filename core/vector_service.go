package core

import "context"

// VectorService 是向量检索服务的领域接口，召回阶段用它按故事概要向量检索相似电影。
type VectorService interface {
	Search(ctx context.Context, req *VectorSearchRequest) (*VectorSearchResult, error)
	Close() error
}

// VectorIndex 在 VectorService 基础上提供建集合与写入，用于进程启动时索引目录。
type VectorIndex interface {
	VectorService

	CreateCollection(ctx context.Context, name string, dimension int, metric string) error
	Insert(ctx context.Context, collection string, ids []string, vectors [][]float64) error
}

// VectorSearchRequest 向量搜索请求
type VectorSearchRequest struct {
	Collection string
	Vector     []float64
	TopK       int

	// Metric 距离度量方式：cosine / euclidean / inner_product，为空时使用集合默认值
	Metric string

	// MinScore 低于该分数的结果被丢弃，0 表示不过滤
	MinScore float64
}

// VectorSearchItem 单个向量搜索结果项
type VectorSearchItem struct {
	ID    string
	Score float64
}

// VectorSearchResult 向量搜索结果，按 Score 降序
type VectorSearchResult struct {
	Items []VectorSearchItem
}

// ValidateVectorMetric 验证距离度量类型
func ValidateVectorMetric(metric string) bool {
	switch metric {
	case "cosine", "euclidean", "inner_product":
		return true
	default:
		return false
	}
}
