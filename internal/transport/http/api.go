package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"cabao-quiz-service/internal/domain"
	"cabao-quiz-service/internal/logger"
)

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("encode response: %v", err)
	}
}

func writeData(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, apiResponse{Success: false, Error: msg})
}

func (a *API) Health(w http.ResponseWriter, _ *http.Request) {
	writeData(w, map[string]string{"status": "ok"})
}

type rankingResponse struct {
	Entries   []domain.RankingEntry `json:"entries"`
	UpdatedAt time.Time             `json:"updatedAt"`
}

// Ranking serves the cached board. Phones are never exposed here.
func (a *API) Ranking(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, updatedAt := a.Board.Latest()
	if updatedAt.IsZero() {
		entries = a.Board.Refresh(r.Context())
		_, updatedAt = a.Board.Latest()
	} else {
		a.Board.RequestRefresh()
	}
	writeData(w, rankingResponse{Entries: publicEntries(entries, limit), UpdatedAt: updatedAt})
}

func publicEntries(entries []domain.RankingEntry, limit int) []domain.RankingEntry {
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]domain.RankingEntry, len(entries))
	for i, e := range entries {
		e.Phone = ""
		out[i] = e
	}
	return out
}

func (a *API) Subscribers(w http.ResponseWriter, r *http.Request) {
	subs := a.Remote.FetchAllSubscribers(r.Context())
	if subs == nil {
		subs = []domain.Subscriber{}
	}
	writeData(w, subs)
}

func (a *API) QuestionStats(w http.ResponseWriter, _ *http.Request) {
	writeData(w, a.Catalog.Stats())
}
