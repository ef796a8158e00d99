package filter

import (
	"context"

	"github.com/rushteam/moodflix/core"
	"github.com/rushteam/moodflix/pkg/dsl"
)

// ExprFilter 用 CEL 表达式过滤，表达式为 true 时移除，例如
//
//	"Horror" in item.genres && item.year < 1970
//
// 表达式在构造时编译一次。
type ExprFilter struct {
	prg *dsl.Program
}

func NewExprFilter(expr string) (*ExprFilter, error) {
	prg, err := dsl.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &ExprFilter{prg: prg}, nil
}

func (f *ExprFilter) Name() string { return "filter.expr" }

// Expr 返回表达式原文。
func (f *ExprFilter) Expr() string { return f.prg.String() }

func (f *ExprFilter) ShouldFilter(_ context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error) {
	return f.prg.Eval(item, rctx)
}
