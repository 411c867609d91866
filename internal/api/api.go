package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ametel/vidrank/internal/feedback"
	"github.com/ametel/vidrank/internal/rerank"
	"github.com/ametel/vidrank/internal/suggest"
	"github.com/ametel/vidrank/internal/youtube"
)

const maxBodySize = 1 << 20 // 1MB

// FeedbackRecorder records a like/dislike action; best-effort by contract.
type FeedbackRecorder interface {
	Record(ctx context.Context, action feedback.Action, videoTitle, videoID string) bool
}

// Suggester expands a query into candidate search terms.
type Suggester interface {
	Suggest(ctx context.Context, userInput string) (suggest.Result, error)
}

// VideoReranker orders candidates by preference.
type VideoReranker interface {
	Rerank(ctx context.Context, candidates []rerank.Candidate) ([]rerank.Candidate, error)
}

// TermRecommender derives the best next search term from history.
type TermRecommender interface {
	RecommendedTerm(ctx context.Context) string
}

// VideoSearcher finds candidate videos for a term.
type VideoSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]youtube.Video, error)
}

// Deps holds everything the HTTP layer needs.
type Deps struct {
	Recorder    FeedbackRecorder
	Suggester   Suggester
	Reranker    VideoReranker
	Recommender TermRecommender
	Videos      VideoSearcher
	Token       string
}

// NewHandler builds the API router. All /v1 routes require bearer auth;
// /health does not.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/feedback", handleFeedback(deps))
		r.Post("/suggestions", handleSuggestions(deps))
		r.Post("/rerank", handleRerank(deps))
		r.Get("/recommendation", handleRecommendation(deps))
		r.Post("/search", handleSearch(deps))
	})

	return r
}

type feedbackRequest struct {
	Action  string `json:"action"`
	Title   string `json:"title"`
	VideoID string `json:"videoId"`
}

func handleFeedback(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req feedbackRequest
		if !decodeBody(w, r, &req) {
			return
		}

		recorded := deps.Recorder.Record(r.Context(), feedback.Action(req.Action), req.Title, req.VideoID)
		writeJSON(w, http.StatusOK, map[string]bool{"recorded": recorded})
	}
}

type suggestionsRequest struct {
	Query string `json:"query"`
}

func handleSuggestions(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req suggestionsRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Query == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "query is required")
			return
		}

		result, err := deps.Suggester.Suggest(r.Context(), req.Query)
		if err != nil {
			slog.Error("suggestions failed", "error", err)
			httpError(w, http.StatusBadGateway, "api_error", "suggestion failed")
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

type rerankRequest struct {
	Candidates []rerank.Candidate `json:"candidates"`
}

func handleRerank(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req rerankRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if len(req.Candidates) == 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "candidates are required")
			return
		}

		ranked, err := deps.Reranker.Rerank(r.Context(), req.Candidates)
		if err != nil {
			slog.Error("rerank failed", "error", err)
			httpError(w, http.StatusBadGateway, "api_error", "rerank failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"candidates": ranked})
	}
}

func handleRecommendation(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		term := deps.Recommender.RecommendedTerm(r.Context())
		writeJSON(w, http.StatusOK, map[string]string{"term": term})
	}
}

type searchRequest struct {
	Query string `json:"query"`
}

type searchResponse struct {
	Term      string          `json:"term"`
	Sentiment string          `json:"sentiment"`
	Context   string          `json:"context"`
	Videos    []youtube.Video `json:"videos"`
}

// handleSearch runs the full pipeline: suggest terms for the query, search
// YouTube for the best one, then rerank the hits against history.
func handleSearch(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Query == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "query is required")
			return
		}

		result, err := deps.Suggester.Suggest(r.Context(), req.Query)
		if err != nil {
			slog.Error("search: suggestion failed", "error", err)
			httpError(w, http.StatusBadGateway, "api_error", "search failed")
			return
		}

		best, ok := result.BestTerm()
		if !ok {
			httpError(w, http.StatusBadGateway, "api_error", "no search terms produced")
			return
		}

		videos, err := deps.Videos.Search(r.Context(), best.Term, 10)
		if err != nil {
			slog.Error("search: video lookup failed", "term", best.Term, "error", err)
			httpError(w, http.StatusBadGateway, "api_error", "search failed")
			return
		}

		if len(videos) > 0 {
			candidates := make([]rerank.Candidate, len(videos))
			for i, v := range videos {
				candidates[i] = rerank.Candidate{Title: v.Title, Description: v.Description, VideoID: v.VideoID}
			}
			ranked, err := deps.Reranker.Rerank(r.Context(), candidates)
			if err != nil {
				// Reranking is an enhancement here; fall back to search order.
				slog.Warn("search: rerank failed, using search order", "error", err)
			} else {
				videos = make([]youtube.Video, len(ranked))
				for i, c := range ranked {
					videos[i] = youtube.Video{Title: c.Title, Description: c.Description, VideoID: c.VideoID}
				}
			}
		}

		writeJSON(w, http.StatusOK, searchResponse{
			Term:      best.Term,
			Sentiment: result.Sentiment,
			Context:   result.Context,
			Videos:    videos,
		})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
