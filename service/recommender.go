// Package service 把标签预测、故事生成与推荐 Pipeline 串成一次完整的推荐请求。
package service

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/moodflix/core"
	"github.com/rushteam/moodflix/filter"
	"github.com/rushteam/moodflix/logging"
	"github.com/rushteam/moodflix/metrics"
	"github.com/rushteam/moodflix/model"
	"github.com/rushteam/moodflix/pipeline"
	"github.com/rushteam/moodflix/recall"
)

// 问卷中参与故事生成的两个回答，以及追加表情后写入的 key。
const (
	ResponseScene    = "scene_visualization"
	ResponseFeelings = "mood_description"
	ResponseEmojis   = "selected_emojis"
)

// Emoji 是用户选择的一个表情。
type Emoji struct {
	Symbol string `json:"emoji"`
	Name   string `json:"name"`
}

// FormatEmojis 输出 "😊 (smiling face), 😢 (crying face)"。
func FormatEmojis(emojis []Emoji) string {
	parts := make([]string, 0, len(emojis))
	for _, e := range emojis {
		if e.Symbol == "" {
			continue
		}
		parts = append(parts, e.Symbol+" ("+e.Name+")")
	}
	return strings.Join(parts, ", ")
}

// Request 是一次推荐请求。
type Request struct {
	UserID    string
	Responses map[string]string
	Emojis    []Emoji
	// Seed 非空时覆盖兜底抽样与 rerank.sample 的种子。
	Seed *uint64
}

// Result 是一次推荐的结果。Degraded 表示预测或故事生成失败后按降级路径完成。
type Result struct {
	Items      []*core.Item
	Prediction core.Prediction
	Story      string
	Degraded   bool
}

// Options 控制上游失败时的行为。
type Options struct {
	// PredictTimeout 预测与故事生成的超时，<= 0 不限制。
	PredictTimeout time.Duration
	// Strict 为 true 时标签预测失败直接返回错误，否则按没有预测继续。
	Strict bool
}

// Recommender 编排一次推荐：预测标签与生成故事并行执行，然后运行 Pipeline。
// 推荐出的电影会写入用户的已看列表，下次请求不再出现。
type Recommender struct {
	Predictor model.LabelPredictor
	Writer    model.StoryWriter // 可选，为空时召回走兜底抽样
	Pipeline  *pipeline.Pipeline
	Watched   *filter.WatchedFilter // 可选
	Options   Options
}

func (r *Recommender) Recommend(ctx context.Context, req Request) (*Result, error) {
	responses := make(map[string]string, len(req.Responses)+1)
	for k, v := range req.Responses {
		responses[k] = v
	}
	if s := FormatEmojis(req.Emojis); s != "" {
		responses[ResponseEmojis] = s
	}
	if len(responses) == 0 {
		metrics.RecordRecommendation("error")
		return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeInvalidInput, "responses and emojis are both empty")
	}

	res := &Result{Prediction: core.Prediction{}.Normalize()}
	if err := r.understand(ctx, responses, res); err != nil {
		metrics.RecordRecommendation("error")
		return nil, err
	}

	rctx := &core.RecommendContext{
		UserID:     req.UserID,
		Scene:      responses[ResponseScene],
		Responses:  responses,
		Prediction: res.Prediction,
		Story:      res.Story,
		Params:     map[string]any{},
	}
	if req.Seed != nil {
		rctx.Params[recall.ParamSeed] = *req.Seed
	}

	items, err := r.Pipeline.Run(ctx, rctx, nil)
	if err != nil {
		metrics.RecordRecommendation("error")
		return nil, err
	}
	if items == nil {
		items = []*core.Item{}
	}
	res.Items = items

	if r.Watched != nil && req.UserID != "" && len(items) > 0 {
		ids := make([]string, len(items))
		for i, it := range items {
			ids[i] = it.ID
		}
		if err := r.Watched.MarkWatched(ctx, req.UserID, ids...); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("user_id", req.UserID).Msg("mark watched failed")
		}
	}

	outcome := "ok"
	if res.Degraded {
		outcome = "degraded"
	}
	metrics.RecordRecommendation(outcome)
	logging.Ctx(ctx).Info().
		Strs("genres", res.Prediction.Categories).
		Strs("emotions", res.Prediction.Emotions).
		Int("items", len(items)).
		Bool("degraded", res.Degraded).
		Msg("recommended")
	return res, nil
}

// understand 并行执行标签预测与故事生成。
func (r *Recommender) understand(ctx context.Context, responses map[string]string, res *Result) error {
	if r.Options.PredictTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Options.PredictTimeout)
		defer cancel()
	}

	var (
		pred     core.Prediction
		predErr  error
		story    string
		storyErr error
	)
	var eg errgroup.Group
	eg.Go(func() error {
		if r.Predictor == nil {
			return nil
		}
		pred, predErr = r.Predictor.Predict(ctx, responses)
		return nil
	})
	eg.Go(func() error {
		if r.Writer == nil {
			return nil
		}
		scene, feelings := responses[ResponseScene], responses[ResponseFeelings]
		if strings.TrimSpace(scene) == "" && strings.TrimSpace(feelings) == "" {
			return nil
		}
		story, storyErr = r.Writer.WriteStory(ctx, scene, feelings)
		return nil
	})
	_ = eg.Wait()

	log := logging.Ctx(ctx)
	if predErr != nil {
		if r.Options.Strict || core.IsConfigurationError(predErr) {
			return predErr
		}
		log.Warn().Err(predErr).Msg("label prediction failed, continue without prediction")
		res.Degraded = true
		pred = core.Prediction{}.Normalize()
	}
	if storyErr != nil {
		log.Warn().Err(storyErr).Msg("story generation failed, recall falls back to sampling")
		res.Degraded = true
		story = ""
	}
	res.Prediction = pred.Normalize()
	res.Story = story
	return nil
}
