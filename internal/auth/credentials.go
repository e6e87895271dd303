package auth

import (
	"context"
	"time"

	"elearning-quiz/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

const (
	tokenKey = "token"
	roleKey  = "role"
)

// Store is the local key-value storage credentials are kept in.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Claims is the part of the API token the client looks at. The API signs and verifies it;
// the client only reads it to know who is logged in and until when.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// ParseClaims decodes a token without verifying its signature.
func ParseClaims(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, errors.Wrap(err, "parse token")
	}
	return claims, nil
}

// Credentials keeps the token and role of the logged-in user.
type Credentials struct {
	store Store
	now   func() time.Time
}

func NewCredentials(store Store) *Credentials {
	return &Credentials{store: store, now: time.Now}
}

// Save stores what a successful login returned.
func (c *Credentials) Save(ctx context.Context, session domain.Session) error {
	if session.Token == "" {
		return errors.Wrap(domain.ErrNotAuthenticated, "login returned no token")
	}
	if err := c.store.Set(ctx, tokenKey, session.Token); err != nil {
		return err
	}
	return c.store.Set(ctx, roleKey, session.Role)
}

// Token returns the stored token, or domain.ErrNotAuthenticated if there is none or it expired.
func (c *Credentials) Token(ctx context.Context) (string, error) {
	token, ok, err := c.store.Get(ctx, tokenKey)
	if err != nil {
		return "", err
	}
	if !ok || token == "" {
		return "", domain.ErrNotAuthenticated
	}
	if c.expired(token) {
		return "", errors.Wrap(domain.ErrNotAuthenticated, "token expired")
	}
	return token, nil
}

// Identity describes the logged-in user for route guards.
func (c *Credentials) Identity(ctx context.Context) (domain.Identity, error) {
	token, err := c.Token(ctx)
	if errors.Is(err, domain.ErrNotAuthenticated) {
		return domain.Identity{}, nil
	}
	if err != nil {
		return domain.Identity{}, err
	}
	role, _, err := c.store.Get(ctx, roleKey)
	if err != nil {
		return domain.Identity{}, err
	}

	who := domain.Identity{Authenticated: true, Role: role}
	if claims, err := ParseClaims(token); err == nil {
		who.Subject, _ = claims.GetSubject()
		if who.Role == "" {
			who.Role = claims.Role
		}
	}
	return who, nil
}

func (c *Credentials) IsAuthenticated(ctx context.Context) bool {
	_, err := c.Token(ctx)
	return err == nil
}

func (c *Credentials) IsAdmin(ctx context.Context) bool {
	who, err := c.Identity(ctx)
	return err == nil && who.IsAdmin()
}

func (c *Credentials) IsUser(ctx context.Context) bool {
	who, err := c.Identity(ctx)
	return err == nil && who.IsUser()
}

// Logout forgets the token and role along with any quiz-in-progress flag.
func (c *Credentials) Logout(ctx context.Context) error {
	for _, key := range []string{tokenKey, roleKey, domain.QuizInProgressKey} {
		if err := c.store.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// expired reports whether a JWT carries an exp in the past. Opaque tokens never expire here.
func (c *Credentials) expired(token string) bool {
	claims, err := ParseClaims(token)
	if err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.Time.After(c.now())
}
