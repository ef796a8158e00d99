package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/rushteam/moodflix/core"
)

// Record 是 StoreSink 写入的快照结构。
type Record struct {
	ID        string           `json:"id"`
	Label     string           `json:"label"`
	CreatedAt time.Time        `json:"created_at"`
	Rows      []map[string]any `json:"rows"`
}

// StoreSink 把快照以 JSON 写入 core.Store，key 为 <Prefix><label>:<uuid>。
type StoreSink struct {
	Store  core.Store
	Prefix string
	TTL    time.Duration
	Now    func() time.Time
}

func NewStoreSink(store core.Store, ttl time.Duration) *StoreSink {
	return &StoreSink{Store: store, Prefix: "snapshot:", TTL: ttl, Now: time.Now}
}

func (s *StoreSink) Record(ctx context.Context, label string, items []*core.Item) error {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	rec := Record{
		ID:        uuid.NewString(),
		Label:     label,
		CreatedAt: now().UTC(),
		Rows:      make([]map[string]any, 0, len(items)),
	}
	scoreCols := presentScoreColumns(items)
	for _, it := range items {
		row := map[string]any{
			"movie_id":   it.ID,
			"movie_name": it.Name,
			"year":       it.Year,
			"genres":     it.Genres,
		}
		for _, col := range scoreCols {
			if v, ok := it.Feature(col); ok {
				row[col] = v
			}
		}
		rec.Rows = append(rec.Rows, row)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	key := s.Prefix + label + ":" + rec.ID
	if err := s.Store.Set(ctx, key, data, s.TTL); err != nil {
		return fmt.Errorf("store snapshot %s: %w", key, err)
	}
	return nil
}
