package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/rushteam/moodflix/core"
	"github.com/rushteam/moodflix/logging"
)

// Response 是所有接口的统一返回结构。
type Response struct {
	Status    string    `json:"status"`
	Data      any       `json:"data,omitempty"`
	Error     *APIError `json:"error,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeJSON(w, r, status, &Response{
		Status:    "ok",
		Data:      data,
		RequestID: logging.RequestID(r.Context()),
		Timestamp: time.Now().UTC(),
	})
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, r, status, &Response{
		Status:    "error",
		Error:     &APIError{Code: code, Message: message},
		RequestID: logging.RequestID(r.Context()),
		Timestamp: time.Now().UTC(),
	})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, resp *Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("marshal response failed")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// respondDomainError 把错误映射为 HTTP 状态码：
// 配置错误与输入错误 400，不存在 404，上游不可用 503，其余 500。
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var ce *core.ConfigurationError
	switch {
	case errors.As(err, &ce):
		respondError(w, r, http.StatusBadRequest, "CONFIGURATION_ERROR", ce.Error())
	case core.IsInvalidInput(err):
		respondError(w, r, http.StatusBadRequest, core.ErrorCodeInvalidInput, err.Error())
	case core.IsNotFound(err):
		respondError(w, r, http.StatusNotFound, core.ErrorCodeNotFound, err.Error())
	case core.IsUnavailable(err):
		logging.Ctx(r.Context()).Warn().Err(err).Msg("upstream unavailable")
		respondError(w, r, http.StatusServiceUnavailable, core.ErrorCodeUnavailable, "upstream unavailable")
	default:
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		respondError(w, r, http.StatusInternalServerError, core.ErrorCodeInternalError, "internal error")
	}
}

// decodeJSON 读取并解析请求体，拒绝未知字段。
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		respondError(w, r, http.StatusBadRequest, core.ErrorCodeInvalidInput, "invalid request body: "+err.Error())
		return false
	}
	return true
}
