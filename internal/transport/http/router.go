package http

import (
	"net/http"

	"cabao-quiz-service/internal/app"
	"github.com/gorilla/mux"
)

// API bundles the read-only REST endpoints.
type API struct {
	Auth    *app.Authenticator
	Remote  *app.Remote
	Catalog *app.Catalog
	Board   *app.RankingBoard
}

// NewRouter mounts the REST API and the game websocket.
func NewRouter(api *API, ws *WSHandler) *mux.Router {
	r := mux.NewRouter()
	r.Use(LoggerMiddleware)

	r.HandleFunc("/healthz", api.Health).Methods(http.MethodGet)
	r.HandleFunc("/api/ranking", api.Ranking).Methods(http.MethodGet)
	r.HandleFunc("/api/questions/stats", api.QuestionStats).Methods(http.MethodGet)

	admin := r.PathPrefix("/api/admin").Subrouter()
	admin.Use(api.RequireAdmin)
	admin.HandleFunc("/subscribers", api.Subscribers).Methods(http.MethodGet)

	r.HandleFunc("/ws", ws.ServeWS)
	return r
}
