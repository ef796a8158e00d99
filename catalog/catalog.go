// Package catalog 加载电影目录（带表头的 CSV），进程启动时加载一次，之后只读。
//
// 必需列：movie_id, movie_name, year, genres, overview
// 可选列：overview_embedding（JSON 数组），其余列原样放进 Item.Meta。
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"github.com/rushteam/moodflix/core"
	"github.com/rushteam/moodflix/logging"
)

const (
	ColumnID        = "movie_id"
	ColumnName      = "movie_name"
	ColumnYear      = "year"
	ColumnGenres    = "genres"
	ColumnOverview  = "overview"
	ColumnEmbedding = "overview_embedding"
)

// RequiredColumns 目录必须包含的列。
var RequiredColumns = []string{ColumnID, ColumnName, ColumnYear, ColumnGenres, ColumnOverview}

// Catalog 是只读的电影目录，可被多个请求并发读取。
// 返回的 *core.Item 与目录共享，调用方需要修改时先 Clone。
type Catalog struct {
	items  []*core.Item
	byID   map[string]*core.Item
	genres []string
}

// New 由已构造好的 items 建立目录，重复 ID 保留第一个。
func New(items []*core.Item) *Catalog {
	c := &Catalog{
		items: make([]*core.Item, 0, len(items)),
		byID:  make(map[string]*core.Item, len(items)),
	}
	seen := make(map[string]struct{})
	for _, it := range items {
		if it == nil || it.ID == "" {
			continue
		}
		if _, dup := c.byID[it.ID]; dup {
			logging.Warn().Str("movie_id", it.ID).Msg("duplicate movie_id in catalog, keeping first")
			continue
		}
		c.items = append(c.items, it)
		c.byID[it.ID] = it
		for _, g := range it.GenreList() {
			if _, ok := seen[g]; !ok {
				seen[g] = struct{}{}
				c.genres = append(c.genres, g)
			}
		}
	}
	sort.Strings(c.genres)
	return c
}

// Load 从 CSV 文件加载目录。
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleCatalog, core.ErrorCodeNotFound, "open catalog "+path, err)
	}
	defer f.Close()
	c, err := Read(f)
	if err != nil {
		return nil, err
	}
	logging.Info().Str("path", path).Int("items", c.Len()).Int("genres", len(c.genres)).Msg("catalog loaded")
	return c, nil
}

// Read 从 CSV 流读取目录。缺少必需列时返回 INVALID_INPUT；
// 单行的列数不对或向量解析失败只记日志，不影响整体加载。
func Read(r io.Reader) (*Catalog, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, core.NewDomainError(core.ModuleCatalog, core.ErrorCodeInvalidInput, "catalog is empty")
		}
		return nil, core.WrapDomainError(core.ModuleCatalog, core.ErrorCodeInvalidInput, "read catalog header", err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		header[i] = h
		index[h] = i
	}
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, core.NewDomainError(core.ModuleCatalog, core.ErrorCodeInvalidInput,
			"catalog missing required columns: "+strings.Join(missing, ", "))
	}

	var items []*core.Item
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, core.WrapDomainError(core.ModuleCatalog, core.ErrorCodeInvalidInput,
				fmt.Sprintf("read catalog line %d", line), err)
		}
		if len(row) != len(header) {
			logging.Warn().Int("line", line).Int("fields", len(row)).Int("want", len(header)).Msg("skip malformed catalog row")
			continue
		}
		it, ok := parseRow(header, row, line)
		if ok {
			items = append(items, it)
		}
	}
	return New(items), nil
}

func parseRow(header, row []string, line int) (*core.Item, bool) {
	var it *core.Item
	meta := make(map[string]string, len(header))
	var embedding []float64
	for i, col := range header {
		v := row[i]
		switch col {
		case ColumnID:
			it = core.NewItem(strings.TrimSpace(v))
		case ColumnEmbedding:
			if strings.TrimSpace(v) == "" {
				continue
			}
			if err := json.Unmarshal([]byte(v), &embedding); err != nil {
				logging.Warn().Err(err).Int("line", line).Msg("bad overview_embedding, item kept without vector")
				embedding = nil
			}
		default:
			meta[col] = v
		}
	}
	if it == nil || it.ID == "" {
		logging.Warn().Int("line", line).Msg("skip catalog row without movie_id")
		return nil, false
	}
	it.Name = meta[ColumnName]
	it.Year = strings.TrimSpace(meta[ColumnYear])
	it.Genres = meta[ColumnGenres]
	it.Overview = meta[ColumnOverview]
	for _, col := range RequiredColumns {
		delete(meta, col)
	}
	it.Meta = meta
	it.Embedding = embedding
	return it, true
}

// Items 返回目录中全部电影，按文件顺序。
func (c *Catalog) Items() []*core.Item {
	return append([]*core.Item(nil), c.items...)
}

// Get 按 movie_id 查找。
func (c *Catalog) Get(id string) (*core.Item, bool) {
	it, ok := c.byID[id]
	return it, ok
}

// Len 目录大小。
func (c *Catalog) Len() int { return len(c.items) }

// Genres 目录中出现过的全部类别（排序去重）。
func (c *Catalog) Genres() []string {
	return append([]string(nil), c.genres...)
}

// Embedded 返回带向量的电影。
func (c *Catalog) Embedded() []*core.Item {
	out := make([]*core.Item, 0, len(c.items))
	for _, it := range c.items {
		if len(it.Embedding) > 0 {
			out = append(out, it)
		}
	}
	return out
}

// Sample 以 seed 确定性地随机抽取 n 部电影；n 不小于目录大小时返回全部（文件顺序）。
func (c *Catalog) Sample(n int, seed uint64) []*core.Item {
	if n <= 0 {
		return nil
	}
	if n >= len(c.items) {
		return c.Items()
	}
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	perm := r.Perm(len(c.items))
	out := make([]*core.Item, n)
	for i := 0; i < n; i++ {
		out[i] = c.items[perm[i]]
	}
	return out
}
