package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/rushteam/moodflix/core"
	"github.com/rushteam/moodflix/feedback"
	"github.com/rushteam/moodflix/model"
	"github.com/rushteam/moodflix/pkg/validate"
	"github.com/rushteam/moodflix/rank"
	"github.com/rushteam/moodflix/service"
)

// RecommendRequest 是 POST /v1/recommendations 的请求体。
type RecommendRequest struct {
	UserID    string            `json:"user_id" validate:"max=128"`
	Responses map[string]string `json:"responses" validate:"max=32,dive,keys,max=64,endkeys,max=2000"`
	Emojis    []service.Emoji   `json:"emojis" validate:"max=20"`
	Seed      *uint64           `json:"seed,omitempty"`
}

// Movie 是返回给客户端的一部推荐电影，Scores 为各打分因子。
type Movie struct {
	ID       string             `json:"movie_id"`
	Name     string             `json:"movie_name"`
	Year     string             `json:"year,omitempty"`
	Genres   []string           `json:"genres"`
	Overview string             `json:"overview,omitempty"`
	Score    float64            `json:"final_score"`
	Scores   map[string]float64 `json:"scores"`
}

// RecommendResponse 是推荐结果。
type RecommendResponse struct {
	Prediction core.Prediction `json:"prediction"`
	Story      string          `json:"story,omitempty"`
	Degraded   bool            `json:"degraded"`
	Movies     []Movie         `json:"movies"`
}

// FeedbackResponse 附带评分文案。
type FeedbackResponse struct {
	feedback.Feedback
	RatingLabel string `json:"rating_label"`
}

var scoreFeatures = []string{
	rank.FeatureSimilarity,
	rank.FeatureCategoryMatch,
	rank.FeatureEmotionMatch,
	rank.FeatureRecency,
	rank.FeaturePopularity,
}

func toMovie(it *core.Item) Movie {
	m := Movie{
		ID:       it.ID,
		Name:     it.Name,
		Year:     it.Year,
		Genres:   it.GenreList(),
		Overview: it.Overview,
		Score:    it.Score,
		Scores:   make(map[string]float64, len(scoreFeatures)),
	}
	if m.Genres == nil {
		m.Genres = []string{}
	}
	for _, f := range scoreFeatures {
		if v, ok := it.Feature(f); ok {
			m.Scores[f] = v
		}
	}
	return m
}

func (s *Server) recommend(w http.ResponseWriter, r *http.Request) {
	var req RecommendRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validate.Struct("server", &req); err != nil {
		respondDomainError(w, r, err)
		return
	}
	res, err := s.Recommender.Recommend(r.Context(), service.Request{
		UserID:    req.UserID,
		Responses: req.Responses,
		Emojis:    req.Emojis,
		Seed:      req.Seed,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	out := RecommendResponse{
		Prediction: res.Prediction,
		Story:      res.Story,
		Degraded:   res.Degraded,
		Movies:     make([]Movie, len(res.Items)),
	}
	for i, it := range res.Items {
		out.Movies[i] = toMovie(it)
	}
	respondJSON(w, r, http.StatusOK, out)
}

func (s *Server) submitFeedback(w http.ResponseWriter, r *http.Request) {
	if s.Feedback == nil {
		respondError(w, r, http.StatusNotImplemented, core.ErrorCodeNotSupported, "feedback is disabled")
		return
	}
	var fb feedback.Feedback
	if !decodeJSON(w, r, &fb) {
		return
	}
	fb.ID, fb.CreatedAt = uuid.Nil, time.Time{}
	saved, err := s.Feedback.Submit(r.Context(), fb)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, FeedbackResponse{Feedback: saved, RatingLabel: feedback.RatingLabel(saved.Rating)})
}

func (s *Server) recentFeedback(w http.ResponseWriter, r *http.Request) {
	if s.Feedback == nil {
		respondError(w, r, http.StatusNotImplemented, core.ErrorCodeNotSupported, "feedback is disabled")
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			respondError(w, r, http.StatusBadRequest, core.ErrorCodeInvalidInput, "limit must be between 1 and 500")
			return
		}
		limit = n
	}
	recent, err := s.Feedback.Recent(r.Context(), limit)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	summary, err := s.Feedback.Summarize(r.Context(), limit)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]any{"items": recent, "summary": summary})
}

func (s *Server) genres(w http.ResponseWriter, r *http.Request) {
	genres := []string{}
	if s.Catalog != nil {
		genres = s.Catalog.Genres()
	}
	respondJSON(w, r, http.StatusOK, map[string]any{
		"genres":   genres,
		"emotions": model.KnownEmotions,
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	movies := 0
	if s.Catalog != nil {
		movies = s.Catalog.Len()
	}
	respondJSON(w, r, http.StatusOK, map[string]any{"status": "ok", "movies": movies})
}
