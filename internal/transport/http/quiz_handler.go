package http

import (
	"net/http"
	"strconv"
	"strings"

	"competiquest/internal/app"
	"competiquest/internal/auth"
	"competiquest/internal/domain"
	"github.com/gorilla/mux"
)

type quizHandler struct {
	attempts *app.AttemptService
}

type startRequest struct {
	TopicID       string            `json:"topicId"`
	QuestionCount int               `json:"questionCount"`
	Difficulty    domain.Difficulty `json:"difficulty"`
	Subjects      []string          `json:"subjects"`
}

type generateRequest struct {
	Topic             string `json:"topic"`
	NumberOfQuestions int    `json:"numberOfQuestions"`
	Level             string `json:"level"`
}

type submitRequest struct {
	AttemptID string          `json:"quizAttemptId"`
	Answers   []domain.Answer `json:"answers"`
}

func (h *quizHandler) start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, _ := auth.PrincipalFrom(r.Context())
	started, err := h.attempts.Start(r.Context(), p, app.StartRequest{
		TopicID:       req.TopicID,
		QuestionCount: req.QuestionCount,
		Difficulty:    req.Difficulty,
		Subjects:      req.Subjects,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, started)
}

func (h *quizHandler) generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, _ := auth.PrincipalFrom(r.Context())
	started, err := h.attempts.StartGenerated(r.Context(), p, app.GenerateRequest{
		Topic:             req.Topic,
		NumberOfQuestions: req.NumberOfQuestions,
		Level:             req.Level,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, started)
}

func (h *quizHandler) submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.AttemptID) == "" {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: "quizAttemptId is required"})
		return
	}
	p, _ := auth.PrincipalFrom(r.Context())
	report, err := h.attempts.Submit(r.Context(), p, req.AttemptID, req.Answers)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *quizHandler) get(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFrom(r.Context())
	detail, err := h.attempts.Get(r.Context(), p, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *quizHandler) delete(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFrom(r.Context())
	if err := h.attempts.Delete(r.Context(), p, mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Quiz attempt deleted"})
}

func (h *quizHandler) history(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFrom(r.Context())
	page, pageSize := pagination(r)
	out, err := h.attempts.History(r.Context(), p, targetUser(r, p), page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *quizHandler) listAttempts(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFrom(r.Context())
	page, pageSize := pagination(r)
	q := r.URL.Query()
	out, err := h.attempts.ListAttempts(r.Context(), p, domain.AttemptFilter{
		UserID:  q.Get("userId"),
		TopicID: q.Get("topicId"),
	}, page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *quizHandler) stats(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFrom(r.Context())
	out, err := h.attempts.Stats(r.Context(), p, targetUser(r, p))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *quizHandler) leaderboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	out, err := h.attempts.Leaderboard(r.Context(), limit, q.Get("topicId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// targetUser resolves the {userId} path segment; "me" names the caller.
func targetUser(r *http.Request, p domain.Principal) string {
	id := mux.Vars(r)["userId"]
	if id == "me" {
		return p.UserID
	}
	return id
}

func pagination(r *http.Request) (int, int) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("pageSize"))
	if pageSize == 0 {
		pageSize, _ = strconv.Atoi(q.Get("limit"))
	}
	return page, pageSize
}
