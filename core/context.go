package core

// RecommendContext 承载用户/场景/预测信息，贯穿整个 Pipeline 透传。
type RecommendContext struct {
	UserID string
	Scene  string

	// Responses 是问卷回答（key 为问题，value 为回答），也是标签预测器的输入。
	Responses map[string]string

	// Prediction 由标签预测器写入，排序阶段读取。
	Prediction Prediction

	// Story 是根据场景与心情生成的故事概要，召回阶段用它做向量检索。
	Story string

	// Labels 是请求级标签，可驱动整个 Pipeline 行为。
	Labels map[string]Label

	// Params 请求级参数，例如 seed、top_n。
	Params map[string]any
}

// PutLabel 写入请求级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取请求级 Label。
func (rctx *RecommendContext) GetLabel(key string) (Label, bool) {
	if rctx.Labels == nil {
		return Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}

// Param 读取请求参数。
func (rctx *RecommendContext) Param(key string) (any, bool) {
	if rctx == nil || rctx.Params == nil {
		return nil, false
	}
	v, ok := rctx.Params[key]
	return v, ok
}
