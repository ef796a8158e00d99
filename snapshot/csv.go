package snapshot

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rushteam/moodflix/core"
)

// TimestampLayout 是快照文件名中的时间格式。
const TimestampLayout = "20060102_150405"

// BaseColumns 是 CSV 快照固定输出的目录列。
var BaseColumns = []string{"movie_id", "movie_name", "year", "genres", "overview"}

// CSVSink 把快照写成 <Dir>/<label>_<timestamp>.csv。
type CSVSink struct {
	Dir string
	Now func() time.Time
}

func NewCSVSink(dir string) *CSVSink {
	return &CSVSink{Dir: dir, Now: time.Now}
}

// Path 返回给定标签与时间对应的文件路径。
func (s *CSVSink) Path(label string, at time.Time) string {
	return filepath.Join(s.Dir, fmt.Sprintf("%s_%s.csv", label, at.Format(TimestampLayout)))
}

func (s *CSVSink) Record(_ context.Context, label string, items []*core.Item) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	f, err := os.Create(s.Path(label, now()))
	if err != nil {
		return fmt.Errorf("create snapshot file: %w", err)
	}
	defer f.Close()

	scoreCols := presentScoreColumns(items)
	w := csv.NewWriter(f)
	header := append(append([]string{}, BaseColumns...), scoreCols...)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, it := range items {
		row := make([]string, 0, len(header))
		for _, col := range BaseColumns {
			v, _ := it.Field(col)
			row = append(row, v)
		}
		for _, col := range scoreCols {
			v, ok := it.Feature(col)
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, strconv.FormatFloat(v, 'f', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return f.Close()
}
