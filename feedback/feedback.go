// Package feedback 收集用户对推荐结果的评分（1-5）与评论。
package feedback

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/rushteam/moodflix/core"
	"github.com/rushteam/moodflix/logging"
	"github.com/rushteam/moodflix/metrics"
	"github.com/rushteam/moodflix/pkg/validate"
)

const (
	MinRating        = 1
	MaxRating        = 5
	MaxCommentLength = 500

	// KeyPrefix 单条反馈的 key 前缀，RatingsKey 按提交时间排序的反馈 ID 有序集合。
	KeyPrefix  = "feedback:"
	RatingsKey = "feedback:ratings"
)

var ratingLabels = map[int]string{
	1: "😟 Not relevant at all",
	2: "😕 Somewhat relevant",
	3: "😊 Relevant enough",
	4: "😃 Very relevant",
	5: "🌟 Perfectly relevant!",
}

// RatingLabel 返回评分对应的展示文案，超出范围时返回空串。
func RatingLabel(rating int) string {
	return ratingLabels[rating]
}

// Feedback 是一条反馈。
type Feedback struct {
	ID         uuid.UUID       `json:"id"`
	UserID     string          `json:"user_id,omitempty" validate:"max=128"`
	Rating     int             `json:"rating" validate:"min=1,max=5"`
	Comment    string          `json:"comment,omitempty" validate:"max=500"`
	MovieIDs   []string        `json:"movie_ids,omitempty" validate:"max=100,dive,required"`
	Prediction core.Prediction `json:"prediction"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Summary 是最近若干条反馈的汇总。
type Summary struct {
	Count   int         `json:"count"`
	Average float64     `json:"average"`
	ByScore map[int]int `json:"by_score"`
}

// Collector 把反馈写入 KeyValueStore。
type Collector struct {
	Store core.KeyValueStore
	TTL   time.Duration // <= 0 表示永久保存
	Now   func() time.Time
}

func NewCollector(store core.KeyValueStore) *Collector {
	return &Collector{Store: store, Now: time.Now}
}

// Submit 校验并保存反馈，补齐 ID 与 CreatedAt 后返回保存的副本。
func (c *Collector) Submit(ctx context.Context, fb Feedback) (Feedback, error) {
	fb.Comment = strings.TrimSpace(fb.Comment)
	if err := validate.Struct(core.ModuleFeedback, &fb); err != nil {
		return Feedback{}, err
	}
	if fb.ID == uuid.Nil {
		fb.ID = uuid.New()
	}
	if fb.CreatedAt.IsZero() {
		now := time.Now
		if c.Now != nil {
			now = c.Now
		}
		fb.CreatedAt = now().UTC()
	}
	fb.Prediction = fb.Prediction.Normalize()

	data, err := json.Marshal(fb)
	if err != nil {
		return Feedback{}, fmt.Errorf("marshal feedback: %w", err)
	}
	id := fb.ID.String()
	if err := c.Store.Set(ctx, KeyPrefix+id, data, c.TTL); err != nil {
		return Feedback{}, fmt.Errorf("save feedback %s: %w", id, err)
	}
	if err := c.Store.ZAdd(ctx, RatingsKey, float64(fb.CreatedAt.UnixMilli()), id); err != nil {
		return Feedback{}, fmt.Errorf("index feedback %s: %w", id, err)
	}
	metrics.RecordFeedback(fb.Rating)
	logging.Ctx(ctx).Info().
		Str("feedback_id", id).
		Int("rating", fb.Rating).
		Int("movies", len(fb.MovieIDs)).
		Msg("feedback received")
	return fb, nil
}

// Get 读取单条反馈，不存在时返回 NOT_FOUND。
func (c *Collector) Get(ctx context.Context, id uuid.UUID) (Feedback, error) {
	data, err := c.Store.Get(ctx, KeyPrefix+id.String())
	if err != nil {
		if core.IsStoreNotFound(err) {
			return Feedback{}, core.NewDomainError(core.ModuleFeedback, core.ErrorCodeNotFound, "feedback not found: "+id.String())
		}
		return Feedback{}, err
	}
	var fb Feedback
	if err := json.Unmarshal(data, &fb); err != nil {
		return Feedback{}, fmt.Errorf("decode feedback %s: %w", id, err)
	}
	return fb, nil
}

// Recent 按提交时间倒序返回最近 n 条。已过期的反馈被跳过。
func (c *Collector) Recent(ctx context.Context, n int) ([]Feedback, error) {
	if n <= 0 {
		return []Feedback{}, nil
	}
	ids, err := c.Store.ZRevRange(ctx, RatingsKey, 0, int64(n-1))
	if err != nil {
		if core.IsStoreNotFound(err) {
			return []Feedback{}, nil
		}
		return nil, err
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = KeyPrefix + id
	}
	values, err := c.Store.BatchGet(ctx, keys)
	if err != nil {
		return nil, err
	}
	out := make([]Feedback, 0, len(ids))
	for _, key := range keys {
		data, ok := values[key]
		if !ok {
			continue
		}
		var fb Feedback
		if err := json.Unmarshal(data, &fb); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("skip undecodable feedback")
			continue
		}
		out = append(out, fb)
	}
	return out, nil
}

// Summarize 汇总最近 n 条反馈的评分分布。
func (c *Collector) Summarize(ctx context.Context, n int) (Summary, error) {
	recent, err := c.Recent(ctx, n)
	if err != nil {
		return Summary{}, err
	}
	s := Summary{ByScore: make(map[int]int, MaxRating)}
	var sum int
	for _, fb := range recent {
		s.Count++
		s.ByScore[fb.Rating]++
		sum += fb.Rating
	}
	if s.Count > 0 {
		s.Average = float64(sum) / float64(s.Count)
	}
	return s, nil
}
