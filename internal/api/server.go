// Package api exposes run history, feedback, search, and a manual run
// trigger over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/avelinab/notodon/internal/feed"
	"github.com/avelinab/notodon/internal/pipeline"
	"github.com/avelinab/notodon/internal/store"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Runner executes one workflow run. *pipeline.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context) (*pipeline.Summary, error)
}

// Feed is the Mastodon surface the API needs. *feed.Client satisfies it.
type Feed interface {
	Search(ctx context.Context, keyword string, limit int) ([]feed.Entry, error)
	Reply(ctx context.Context, text, inReplyToID string) (feed.Entry, error)
}

// Server wires the HTTP handlers to their collaborators.
type Server struct {
	store   *store.Store
	runner  Runner
	feed    Feed
	keyword string
	log     *zap.Logger
	mux     *http.ServeMux
}

// NewServer creates the API server. keyword is the default search term for
// GET /api/search when the request omits q.
func NewServer(st *store.Store, runner Runner, fd Feed, keyword string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		store:   st,
		runner:  runner,
		feed:    fd,
		keyword: keyword,
		log:     log,
		mux:     http.NewServeMux(),
	}

	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /api/runs", s.handleRuns)
	s.mux.HandleFunc("GET /api/feedback", s.handleListFeedback)
	s.mux.HandleFunc("POST /api/feedback", s.handleAddFeedback)
	s.mux.HandleFunc("GET /api/search", s.handleSearch)
	s.mux.HandleFunc("POST /api/run", s.handleRun)
	s.mux.HandleFunc("POST /api/posts/{id}/reply", s.handleReply)

	return s
}

// Handler returns the routed handler wrapped with request logging.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.RecentRuns(r.Context(), listLimit(r))
	if err != nil {
		s.serverError(w, "list runs", err)
		return
	}

	out := make([]runJSON, 0, len(runs))
	for _, run := range runs {
		out = append(out, toRunJSON(run))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListFeedback(w http.ResponseWriter, r *http.Request) {
	all, err := s.store.RecentFeedback(r.Context(), listLimit(r))
	if err != nil {
		s.serverError(w, "list feedback", err)
		return
	}

	out := make([]feedbackJSON, 0, len(all))
	for _, fb := range all {
		out = append(out, feedbackJSON{
			ID:        fb.ID,
			PostText:  fb.PostText,
			Reason:    fb.Reason,
			CreatedAt: fb.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAddFeedback(w http.ResponseWriter, r *http.Request) {
	var in struct {
		PostText string `json:"post_text"`
		Reason   string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(in.Reason) == "" {
		writeError(w, http.StatusBadRequest, "reason is required")
		return
	}

	if err := s.store.AddFeedback(r.Context(), in.PostText, in.Reason, time.Now()); err != nil {
		s.serverError(w, "add feedback", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "stored"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	keyword := r.URL.Query().Get("q")
	if keyword == "" {
		keyword = s.keyword
	}

	entries, err := s.feed.Search(r.Context(), keyword, listLimit(r))
	if err != nil {
		if errors.Is(err, feed.ErrSearchUnavailable) {
			writeError(w, http.StatusBadGateway, "feed search unavailable")
			return
		}
		s.serverError(w, "search", err)
		return
	}

	out := make([]entryJSON, 0, len(entries))
	for _, entry := range entries {
		out = append(out, toEntryJSON(entry))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	summary, err := s.runner.Run(r.Context())
	if err != nil {
		var stepErr *pipeline.StepError
		if errors.As(err, &stepErr) {
			writeJSON(w, http.StatusBadGateway, map[string]string{
				"state": "failed",
				"step":  string(stepErr.Step),
				"error": stepErr.Err.Error(),
			})
			return
		}
		s.serverError(w, "run", err)
		return
	}

	results := make([]entryJSON, 0, len(summary.Results))
	for _, entry := range summary.Results {
		results = append(results, toEntryJSON(entry))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"state":   "done",
		"run_id":  summary.RunID,
		"entry":   toEntryJSON(summary.Entry),
		"results": results,
	})
}

func (s *Server) handleReply(w http.ResponseWriter, r *http.Request) {
	inReplyTo := r.PathValue("id")

	var in struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(in.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	entry, err := s.feed.Reply(r.Context(), in.Text, inReplyTo)
	if err != nil {
		switch {
		case errors.Is(err, feed.ErrRejected):
			writeError(w, http.StatusUnprocessableEntity, "reply rejected")
		case errors.Is(err, feed.ErrUnavailable):
			writeError(w, http.StatusBadGateway, "feed unavailable")
		default:
			s.serverError(w, "reply", err)
		}
		return
	}
	writeJSON(w, http.StatusCreated, toEntryJSON(entry))
}

func (s *Server) serverError(w http.ResponseWriter, op string, err error) {
	s.log.Error(op, zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

type runJSON struct {
	ID         string `json:"id"`
	Source     string `json:"source"`
	DocumentID string `json:"document_id"`
	State      string `json:"state"`
	FailedStep string `json:"failed_step,omitempty"`
	Error      string `json:"error,omitempty"`
	EntryID    string `json:"entry_id,omitempty"`
	EntryURL   string `json:"entry_url,omitempty"`
	PostText   string `json:"post_text,omitempty"`
	Attempts   int    `json:"attempts"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at,omitempty"`
}

func toRunJSON(run store.Run) runJSON {
	out := runJSON{
		ID:         run.ID,
		Source:     run.Source,
		DocumentID: run.DocumentID,
		State:      run.State,
		FailedStep: run.FailedStep,
		Error:      run.Error,
		EntryID:    run.EntryID,
		EntryURL:   run.EntryURL,
		PostText:   run.PostText,
		Attempts:   run.Attempts,
		StartedAt:  run.StartedAt.UTC().Format(time.RFC3339),
	}
	if !run.FinishedAt.IsZero() {
		out.FinishedAt = run.FinishedAt.UTC().Format(time.RFC3339)
	}
	return out
}

type feedbackJSON struct {
	ID        int64  `json:"id"`
	PostText  string `json:"post_text"`
	Reason    string `json:"reason"`
	CreatedAt string `json:"created_at"`
}

type entryJSON struct {
	ID        string `json:"id"`
	Author    string `json:"author,omitempty"`
	Text      string `json:"text"`
	URL       string `json:"url,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

func toEntryJSON(entry feed.Entry) entryJSON {
	out := entryJSON{
		ID:     entry.ID,
		Author: entry.Author,
		Text:   entry.Text,
		URL:    entry.URL,
	}
	if !entry.CreatedAt.IsZero() {
		out.CreatedAt = entry.CreatedAt.UTC().Format(time.RFC3339)
	}
	return out
}

func listLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return defaultListLimit
	}
	if n > maxListLimit {
		return maxListLimit
	}
	return n
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
