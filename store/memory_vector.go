package store

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/rushteam/moodflix/core"
)

// MemoryVectorService 是内存实现的向量检索服务，对目录中每部电影的 overview 向量做暴力检索。
// 目录规模在几万条以内时足够快；线程安全。
type MemoryVectorService struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

type collection struct {
	dimension int
	metric    string
	ids       []string // 插入顺序，保证同分时结果稳定
	vectors   map[string][]float64
}

func NewMemoryVectorService() *MemoryVectorService {
	return &MemoryVectorService{collections: make(map[string]*collection)}
}

var _ core.VectorIndex = (*MemoryVectorService)(nil)

func (m *MemoryVectorService) Name() string { return "memory_vector" }

func (m *MemoryVectorService) CreateCollection(_ context.Context, name string, dimension int, metric string) error {
	if name == "" {
		return core.NewDomainError(core.ModuleVector, core.ErrorCodeInvalidInput, "collection name is required")
	}
	if dimension <= 0 {
		return core.NewDomainError(core.ModuleVector, core.ErrorCodeInvalidInput, "dimension must be greater than 0")
	}
	if !core.ValidateVectorMetric(metric) {
		metric = "cosine"
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.collections[name]; exists {
		return core.NewDomainError(core.ModuleVector, core.ErrorCodeInvalidInput, "collection already exists: "+name)
	}
	m.collections[name] = &collection{
		dimension: dimension,
		metric:    metric,
		vectors:   make(map[string][]float64),
	}
	return nil
}

func (m *MemoryVectorService) Insert(_ context.Context, name string, ids []string, vectors [][]float64) error {
	if len(ids) != len(vectors) {
		return core.NewDomainError(core.ModuleVector, core.ErrorCodeInvalidInput, "vectors and ids length mismatch")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	col, ok := m.collections[name]
	if !ok {
		return core.NewDomainError(core.ModuleVector, core.ErrorCodeNotFound, "collection not found: "+name)
	}
	for i, v := range vectors {
		if len(v) != col.dimension {
			return core.NewDomainError(core.ModuleVector, core.ErrorCodeInvalidInput, "vector dimension mismatch for id "+ids[i])
		}
	}
	for i, v := range vectors {
		if _, exists := col.vectors[ids[i]]; !exists {
			col.ids = append(col.ids, ids[i])
		}
		col.vectors[ids[i]] = v
	}
	return nil
}

// Search 计算查询向量与集合中所有向量的相似度，过滤 MinScore 后按分数降序取 TopK。
func (m *MemoryVectorService) Search(_ context.Context, req *core.VectorSearchRequest) (*core.VectorSearchResult, error) {
	if req == nil {
		return nil, core.NewDomainError(core.ModuleVector, core.ErrorCodeInvalidInput, "vector search request is nil")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	col, ok := m.collections[req.Collection]
	if !ok {
		return &core.VectorSearchResult{Items: []core.VectorSearchItem{}}, nil
	}
	if len(req.Vector) != col.dimension {
		return nil, core.NewDomainError(core.ModuleVector, core.ErrorCodeInvalidInput, "vector dimension mismatch")
	}

	topK := req.TopK
	if topK <= 0 {
		topK = 10
	}
	metric := req.Metric
	if metric == "" {
		metric = col.metric
	}

	items := make([]core.VectorSearchItem, 0, len(col.ids))
	for _, id := range col.ids {
		score := similarity(metric, req.Vector, col.vectors[id])
		if score < req.MinScore {
			continue
		}
		items = append(items, core.VectorSearchItem{ID: id, Score: score})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})
	if len(items) > topK {
		items = items[:topK]
	}
	return &core.VectorSearchResult{Items: items}, nil
}

func (m *MemoryVectorService) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections = make(map[string]*collection)
	return nil
}

// IndexItems 为带 Embedding 的 item 建集合并写入，返回写入条数。
// 维度取第一个带向量的 item，维度不一致的 item 被跳过。
func IndexItems(ctx context.Context, idx core.VectorIndex, name string, items []*core.Item) (int, error) {
	dim := 0
	ids := make([]string, 0, len(items))
	vecs := make([][]float64, 0, len(items))
	for _, it := range items {
		if it == nil || len(it.Embedding) == 0 {
			continue
		}
		if dim == 0 {
			dim = len(it.Embedding)
		}
		if len(it.Embedding) != dim {
			continue
		}
		ids = append(ids, it.ID)
		vecs = append(vecs, it.Embedding)
	}
	if dim == 0 {
		return 0, nil
	}
	if err := idx.CreateCollection(ctx, name, dim, "cosine"); err != nil {
		return 0, err
	}
	if err := idx.Insert(ctx, name, ids, vecs); err != nil {
		return 0, err
	}
	return len(ids), nil
}

func similarity(metric string, a, b []float64) float64 {
	switch metric {
	case "euclidean":
		return 1.0 / (1.0 + euclideanDistance(a, b))
	case "inner_product":
		return innerProduct(a, b)
	default:
		return cosineSimilarity(a, b)
	}
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func euclideanDistance(a, b []float64) float64 {
	if len(a) != len(b) {
		return math.MaxFloat64
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

func innerProduct(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
