package http

import (
	"net/http"

	"competiquest/internal/app"
	"competiquest/internal/auth"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	Attempts       *app.AttemptService
	Users          *app.UserService
	Feed           *app.LeaderboardFeed
	Tokens         *auth.Tokens
	CookieName     string
	SecureCookie   bool
	AllowedOrigins []string
}

// NewRouter wires every REST route, the leaderboard websocket and CORS.
// Without configured origins no cross-origin access is granted.
func NewRouter(d Deps) http.Handler {
	mw := auth.NewMiddleware(d.Tokens, d.CookieName, writeError)
	ah := &authHandler{users: d.Users, tokens: d.Tokens, cookieName: mw.CookieName(), secure: d.SecureCookie}
	qh := &quizHandler{attempts: d.Attempts}
	ws := NewWSHandler(d.Attempts, d.Feed, d.AllowedOrigins)

	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/ws/leaderboard", ws.ServeWS).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/register", ah.register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", ah.login).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", ah.logout).Methods(http.MethodPost)
	api.HandleFunc("/quiz/leaderboard", qh.leaderboard).Methods(http.MethodGet)

	protected := api.NewRoute().Subrouter()
	protected.Use(mw.Require)
	protected.HandleFunc("/users/me", ah.me).Methods(http.MethodGet)
	protected.HandleFunc("/quiz/start", qh.start).Methods(http.MethodPost)
	protected.HandleFunc("/quiz/generate", qh.generate).Methods(http.MethodPost)
	protected.HandleFunc("/quiz/submit", qh.submit).Methods(http.MethodPost)
	protected.Handle("/quiz/attempts", mw.RequireAdmin(http.HandlerFunc(qh.listAttempts))).Methods(http.MethodGet)
	protected.HandleFunc("/quiz/attempts/{id}", qh.get).Methods(http.MethodGet)
	protected.HandleFunc("/quiz/attempts/{id}", qh.delete).Methods(http.MethodDelete)
	protected.HandleFunc("/quiz/history/{userId}", qh.history).Methods(http.MethodGet)
	protected.HandleFunc("/quiz/stats/{userId}", qh.stats).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorPayload{Message: "route not found"})
	})

	if len(d.AllowedOrigins) == 0 {
		return r
	}
	// credentials are only shared with named origins, never with a wildcard
	credentials := true
	for _, o := range d.AllowedOrigins {
		if o == "*" {
			credentials = false
		}
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: credentials,
	})
	return c.Handler(r)
}
