package http

import (
	"net/http"
	"time"

	"elearning-quiz/internal/app"
	"elearning-quiz/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
)

// Gateway holds what the HTTP surface needs to serve players.
type Gateway struct {
	Users     UserDirectory
	Questions app.QuestionSource
	// Scores returns the sink a player's final score is saved through.
	Scores func(p Player) app.ScoreSink
	// Flags returns the quiz-in-progress flag of a player.
	Flags          func(p Player) app.SessionFlagStore
	Controller     []app.Option
	AllowedOrigins []string
	Log            logrus.FieldLogger
}

// FlagKey is where a player's quiz-in-progress flag lives in a shared store.
func FlagKey(user domain.User) string {
	return "user:" + itoa(user.ID) + ":" + domain.QuizInProgressKey
}

// NewRouter mounts the gateway routes.
func NewRouter(g Gateway) http.Handler {
	if g.Log == nil {
		g.Log = logrus.StandardLogger()
	}
	origins := g.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	quiz := NewWSHandler(g)
	r.Group(func(pr chi.Router) {
		pr.Use(RequireUser(g.Users, g.Log))

		pr.Get("/ws/quiz", quiz.ServeWS)

		// The REST part of the gateway sits behind request timeouts; the websocket does not.
		pr.Group(func(ar chi.Router) {
			ar.Use(middleware.Timeout(30 * time.Second))
			ar.Get("/api/menu", MenuHandler())
			ar.Get("/api/scoreboard", ScoreboardHandler(g.Users))
			ar.Post("/api/navigation", NavigationHandler(g.Flags, false))
			ar.Post("/api/navigation/confirm", NavigationHandler(g.Flags, true))
			ar.With(RequireAdmin).Get("/api/admin/users", AdminUsersHandler(g.Users))
		})
	})
	return r
}
