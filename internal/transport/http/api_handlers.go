package http

import (
	"net/http"
	"strconv"

	"elearning-quiz/internal/app"
	"github.com/goccy/go-json"
)

type navigationRequest struct {
	Path string `json:"path"`
}

// MenuHandler lists the navigation entries of the caller.
func MenuHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _ := PlayerFromContext(r.Context())
		writeJSON(w, http.StatusOK, app.Menu(p.Identity()))
	}
}

// ScoreboardHandler ranks the players by their saved score.
func ScoreboardHandler(users UserDirectory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _ := PlayerFromContext(r.Context())
		list, err := users.Users(r.Context(), p.Token)
		if err != nil {
			writeError(w, statusOf(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, app.Scoreboard(list))
	}
}

// NavigationHandler applies the route guards and the quiz-in-progress guard to a move to path.
// With confirm set, a running quiz is abandoned instead of holding the move back.
func NavigationHandler(flags func(Player) app.SessionFlagStore, confirm bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req navigationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
			writeError(w, http.StatusBadRequest, "invalid navigation request")
			return
		}
		p, _ := PlayerFromContext(r.Context())

		if req.Path != app.PathLogout {
			if target, ok := app.Authorize(req.Path, p.Identity()); !ok {
				writeJSON(w, http.StatusOK, app.NavigationDecision{Path: target})
				return
			}
		}

		guard := app.NewNavigationGuard(flags(p))
		decide := guard.Request
		if confirm {
			decide = guard.Confirm
		}
		decision, err := decide(r.Context(), req.Path)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, decision)
	}
}

// AdminUsersHandler lists every user for the admin pages.
func AdminUsersHandler(users UserDirectory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _ := PlayerFromContext(r.Context())
		list, err := users.Users(r.Context(), p.Token)
		if err != nil {
			writeError(w, statusOf(err), err.Error())
			return
		}
		for i := range list {
			list[i].Password = ""
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
