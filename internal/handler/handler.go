package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"readquest/internal/content"
	"readquest/internal/evaluate"
	"readquest/internal/i18n"
	"readquest/internal/model"
	"readquest/internal/progress"
	"readquest/internal/speech"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	content *content.Store
	tracker *progress.Tracker
	speech  *speech.Client // nil disables audio endpoints
	config  model.ServerConfig

	// The tracker assumes a single caller; requests are serialized here.
	mu sync.Mutex
}

// New creates a new Handler.
func New(c *content.Store, t *progress.Tracker, s *speech.Client, cfg model.ServerConfig) *Handler {
	return &Handler{content: c, tracker: t, speech: s, config: cfg}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/api/grades", h.handleGrades)
	r.Get("/api/passages", h.handlePassages)
	r.Get("/api/passages/{passageID}", h.handlePassage)
	r.Get("/api/passages/{passageID}/audio", h.handleAudio)
	r.Post("/api/passages/{passageID}/answers", h.handleSubmit)
	r.Get("/api/progress", h.handleOverallStats)
	r.Get("/api/progress/sessions", h.handleRecentSessions)
	r.Get("/api/progress/grades/{grade}", h.handleGradeStats)
	r.Get("/api/progress/trend", h.handleTrend)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

type gradeInfo struct {
	Grade model.Grade `json:"grade"`
	model.GradeLevel
	PassagesRead int `json:"passages_read"`
}

func (h *Handler) handleGrades(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	byGrade := h.tracker.OverallStats().PassagesByGrade
	h.mu.Unlock()

	grades := make([]gradeInfo, 0, len(model.Grades))
	for _, g := range model.Grades {
		grades = append(grades, gradeInfo{
			Grade:        g,
			GradeLevel:   model.GradeLevels[g],
			PassagesRead: byGrade[g],
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"title":  i18n.T(r.Context(), "SelectGrade"),
		"grades": grades,
	})
}

func (h *Handler) handlePassages(w http.ResponseWriter, r *http.Request) {
	grade, ok := model.ParseGrade(r.URL.Query().Get("grade"))
	if !ok {
		http.Error(w, "unknown grade", http.StatusBadRequest)
		return
	}
	passages, err := h.content.ListPassagesByGrade(grade)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if passages == nil {
		passages = []model.Passage{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"title":    i18n.T(r.Context(), "SelectPassage"),
		"grade":    grade,
		"passages": passages,
	})
}

func (h *Handler) handlePassage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "passageID")
	passage, err := h.content.GetPassage(id)
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "passage not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	questions, err := h.content.QuestionsForPassage(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"passage":   passage,
		"questions": questions,
	})
}

func (h *Handler) handleAudio(w http.ResponseWriter, r *http.Request) {
	if h.speech == nil {
		http.Error(w, "speech synthesis is not configured", http.StatusServiceUnavailable)
		return
	}
	passage, err := h.content.GetPassage(chi.URLParam(r, "passageID"))
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "passage not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	path, err := h.speech.Synthesize(r.Context(), passage.Content)
	if err != nil {
		slog.Error("speech synthesis failed", "passage", passage.ID, "error", err)
		http.Error(w, "speech synthesis failed", http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	http.ServeFile(w, r, path)
}

// submitRequest carries one submitted option key per question id.
type submitRequest struct {
	Answers map[string]string `json:"answers"`
}

type submitResponse struct {
	Results          []model.EvaluationResult `json:"results"`
	Summary          model.PerformanceSummary `json:"summary"`
	PerformanceLevel string                   `json:"performance_level"`
	Recommendations  []string                 `json:"recommendations"`
	Session          model.Session            `json:"session"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "passageID")
	passage, err := h.content.GetPassage(id)
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "passage not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	questions, err := h.content.QuestionsForPassage(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if len(questions) == 0 {
		http.Error(w, "passage has no questions", http.StatusBadRequest)
		return
	}

	// Unanswered questions score as incorrect, same as an invalid key.
	results := make([]model.EvaluationResult, 0, len(questions))
	for _, q := range questions {
		results = append(results, evaluate.Answer(q, req.Answers[q.ID]))
	}
	summary := evaluate.Summarize(results)

	h.mu.Lock()
	session, err := h.tracker.RecordSession(passage.Grade, passage.ID, passage.Title, results)
	h.mu.Unlock()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	slog.Info("session recorded",
		"passage", passage.ID,
		"grade", passage.Grade,
		"correct", summary.CorrectAnswers,
		"total", summary.TotalQuestions,
	)

	writeJSON(w, http.StatusOK, submitResponse{
		Results:          results,
		Summary:          summary,
		PerformanceLevel: evaluate.PerformanceLevel(summary.Accuracy),
		Recommendations:  evaluate.Recommendations(summary.ByType),
		Session:          session,
	})
}

func (h *Handler) handleOverallStats(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	stats := h.tracker.OverallStats()
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"title": i18n.T(r.Context(), "OverallStats"),
		"stats": stats,
	})
}

func (h *Handler) handleRecentSessions(w http.ResponseWriter, r *http.Request) {
	limit := 5
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	h.mu.Lock()
	sessions := h.tracker.RecentSessions(limit)
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"title":    i18n.T(r.Context(), "RecentSessions"),
		"sessions": sessions,
	})
}

func (h *Handler) handleGradeStats(w http.ResponseWriter, r *http.Request) {
	grade, ok := model.ParseGrade(chi.URLParam(r, "grade"))
	if !ok {
		http.Error(w, "unknown grade", http.StatusBadRequest)
		return
	}
	h.mu.Lock()
	stats := h.tracker.GradePerformance(grade)
	h.mu.Unlock()
	if stats == nil {
		http.Error(w, "no sessions for this grade", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"grade": grade,
		"stats": stats,
	})
}

func (h *Handler) handleTrend(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	trend := h.tracker.ImprovementTrend()
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"title": i18n.T(r.Context(), "Trend"),
		"trend": trend,
	})
}
