// Package server 是推荐服务的 HTTP 接口（chi）。
//
//	POST /v1/recommendations  问卷回答 + 表情 -> 推荐结果
//	POST /v1/feedback         提交评分
//	GET  /v1/feedback         最近的评分与汇总
//	GET  /v1/genres           目录中的类别与可选情绪
//	GET  /healthz             存活检查
//	GET  /metrics             Prometheus 指标
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rushteam/moodflix/catalog"
	"github.com/rushteam/moodflix/feedback"
	"github.com/rushteam/moodflix/logging"
	"github.com/rushteam/moodflix/service"
)

// HeaderRequestID 请求 ID 头，客户端没带时由服务端生成。
const HeaderRequestID = "X-Request-ID"

// maxBodyBytes 请求体上限。
const maxBodyBytes = 1 << 20

// Server 持有处理请求所需的组件，全部在启动时构造。
type Server struct {
	Recommender *service.Recommender
	Feedback    *feedback.Collector
	Catalog     *catalog.Catalog
}

// Handler 返回挂好中间件与路由的 http.Handler。
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(chimiddleware.RealIP)
	r.Use(accessLog)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", s.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/recommendations", s.recommend)
		r.Post("/feedback", s.submitFeedback)
		r.Get("/feedback", s.recentFeedback)
		r.Get("/genres", s.genres)
	})
	return r
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logging.Ctx(r.Context()).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	})
}
