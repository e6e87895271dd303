package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"elearning-quiz/internal/auth"
	"elearning-quiz/internal/domain"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// UserDirectory resolves forwarded tokens against the e-learning API.
type UserDirectory interface {
	Authenticate(ctx context.Context, token string) (domain.User, error)
	Users(ctx context.Context, token string) ([]domain.User, error)
}

// Player is the authenticated caller of a gateway request.
type Player struct {
	User  domain.User
	Token string
}

func (p Player) Identity() domain.Identity {
	return domain.Identity{
		Subject:       strconv.FormatInt(p.User.ID, 10),
		Role:          p.User.Role,
		Authenticated: true,
	}
}

type ctxKey struct{}

var ctxKeyPlayer = ctxKey{}

func WithPlayer(ctx context.Context, p Player) context.Context {
	return context.WithValue(ctx, ctxKeyPlayer, p)
}

func PlayerFromContext(ctx context.Context) (Player, bool) {
	p, ok := ctx.Value(ctxKeyPlayer).(Player)
	return p, ok
}

// RequireUser resolves the bearer token (header, or ?token= for browser websockets) to a user.
func RequireUser(users UserDirectory, log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "missing bearer")
				return
			}
			if expired(token) {
				writeError(w, http.StatusUnauthorized, "token expired")
				return
			}
			user, err := users.Authenticate(r.Context(), token)
			if err != nil {
				status := statusOf(err)
				if status >= http.StatusInternalServerError {
					log.WithError(err).Warn("failed to resolve user")
				}
				writeError(w, status, "bad token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPlayer(r.Context(), Player{User: user, Token: token})))
		})
	}
}

// RequireAdmin lets only ADMIN users through. It must run after RequireUser.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PlayerFromContext(r.Context())
		if !ok || !p.User.IsAdmin() {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

func expired(token string) bool {
	claims, err := auth.ParseClaims(token)
	if err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	return err == nil && exp != nil && !exp.Time.After(time.Now())
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidQuestion), errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

type errorPayload struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorPayload{Message: message})
}
