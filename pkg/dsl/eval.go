// Package dsl 基于 CEL (Common Expression Language) 对 item 求值布尔表达式，
// 用于配置化的过滤规则。
//
// 可用变量：
//   - item.id / item.name / item.year(int) / item.genres(list) / item.overview
//   - item.score / item.features["final_score"] / item.meta["vote_count"]
//   - label.<key>：item 标签的 value，判断存在用 has(label.key)
//   - rctx.user_id / rctx.scene / rctx.params / rctx.genres / rctx.emotions
//
// 示例：
//   - `"Horror" in item.genres`
//   - `item.year < 1980 && item.score < 0.5`
//   - `has(label.recall_source) && label.recall_source == "fallback"`
//   - `item.genres.exists(g, g in rctx.genres)`
package dsl

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/moodflix/core"
)

var (
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("item", cel.DynType),
			cel.Variable("label", cel.DynType),
			cel.Variable("rctx", cel.DynType),
		)
	})
	return celEnv, celEnvErr
}

// Program 是编译好的表达式，并发安全，可对任意多个 item 求值。
type Program struct {
	expr string
	prg  cel.Program
}

// Compile 编译表达式，语法错误在这里返回。
func Compile(expr string) (*Program, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("empty expression")
	}
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile %q: %w", expr, issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", expr, err)
	}
	return &Program{expr: expr, prg: prg}, nil
}

// String 返回表达式原文。
func (p *Program) String() string { return p.expr }

// Eval 对单个 item 求值。访问不存在的 key 或结果不是 bool 时返回错误。
func (p *Program) Eval(item *core.Item, rctx *core.RecommendContext) (bool, error) {
	out, _, err := p.prg.Eval(buildInput(item, rctx))
	if err != nil {
		return false, fmt.Errorf("eval %q: %w", p.expr, err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("eval %q: expression must return bool, got %T", p.expr, out.Value())
	}
	return result, nil
}

func buildInput(it *core.Item, rctx *core.RecommendContext) map[string]any {
	labels := make(map[string]any, len(it.Labels))
	for k, v := range it.Labels {
		labels[k] = v.Value
	}
	features := make(map[string]any, len(it.Features))
	for k, v := range it.Features {
		features[k] = v
	}
	meta := make(map[string]any, len(it.Meta))
	for k, v := range it.Meta {
		meta[k] = v
	}
	genres := make([]any, 0, 4)
	for _, g := range it.GenreList() {
		genres = append(genres, g)
	}
	year, _ := strconv.ParseInt(strings.TrimSpace(it.Year), 10, 64)

	item := map[string]any{
		"id":       it.ID,
		"name":     it.Name,
		"year":     year,
		"genres":   genres,
		"overview": it.Overview,
		"score":    it.Score,
		"features": features,
		"meta":     meta,
	}

	rc := map[string]any{
		"user_id":  "",
		"scene":    "",
		"params":   map[string]any{},
		"genres":   []any{},
		"emotions": []any{},
	}
	if rctx != nil {
		rc["user_id"] = rctx.UserID
		rc["scene"] = rctx.Scene
		if rctx.Params != nil {
			rc["params"] = rctx.Params
		}
		rc["genres"] = toAnySlice(rctx.Prediction.Categories)
		rc["emotions"] = toAnySlice(rctx.Prediction.Emotions)
	}

	return map[string]any{
		"item":  item,
		"label": labels,
		"rctx":  rc,
	}
}

func toAnySlice(s []string) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}
