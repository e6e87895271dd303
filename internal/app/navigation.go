package app

import (
	"context"
	"strings"

	"elearning-quiz/internal/domain"
	"github.com/pkg/errors"
)

// Access is the level of authentication a route needs.
type Access int

const (
	AccessPublic Access = iota
	AccessAuthenticated
	AccessAdmin
)

const (
	PathHome        = "/home"
	PathLogin       = "/login"
	PathRegister    = "/register"
	PathQuestions   = "/questions"
	PathScoreboard  = "/scoreboard"
	PathProfile     = "/profile"
	PathEditProfile = "/edit-profile"
	PathAdmin       = "/admin"
	PathManageUsers = "/manage-users"
	PathManageQuiz  = "/manage-quiz"
	PathLogout      = "/logout"
)

var routeAccess = map[string]Access{
	PathHome:        AccessPublic,
	PathLogin:       AccessPublic,
	PathRegister:    AccessPublic,
	PathQuestions:   AccessAuthenticated,
	PathScoreboard:  AccessAuthenticated,
	PathProfile:     AccessAuthenticated,
	PathEditProfile: AccessAuthenticated,
	PathAdmin:       AccessAdmin,
	PathManageUsers: AccessAdmin,
	PathManageQuiz:  AccessAdmin,
}

// Authorize resolves where a request for path ends up for the given identity.
// Unknown paths land on the home page; denied ones on the login page.
func Authorize(path string, who domain.Identity) (string, bool) {
	access, ok := routeAccess[strings.TrimRight(path, "/")]
	if !ok {
		return PathHome, false
	}
	switch access {
	case AccessAuthenticated:
		if !who.Authenticated {
			return PathLogin, false
		}
	case AccessAdmin:
		if !who.IsAdmin() {
			return PathLogin, false
		}
	}
	return path, true
}

// Menu lists the navigation entries shown to an identity, in display order.
func Menu(who domain.Identity) []string {
	menu := []string{PathHome}
	if who.IsUser() {
		menu = append(menu, PathProfile)
	}
	if who.IsAdmin() {
		menu = append(menu, PathAdmin)
	}
	if who.Authenticated && !who.IsAdmin() {
		menu = append(menu, PathQuestions)
	}
	if who.IsUser() {
		menu = append(menu, PathScoreboard)
	}
	if !who.Authenticated {
		return append(menu, PathLogin, PathRegister)
	}
	return append(menu, PathLogout)
}

// NavigationDecision is the outcome of a navigation request.
type NavigationDecision struct {
	Path                 string `json:"path"`
	Allowed              bool   `json:"allowed"`
	ConfirmationRequired bool   `json:"confirmationRequired"`
}

// NavigationGuard holds navigation back while a quiz is in progress, until the player confirms
// that they want to leave and lose the running score.
type NavigationGuard struct {
	flag SessionFlagStore
}

func NewNavigationGuard(flag SessionFlagStore) *NavigationGuard {
	return &NavigationGuard{flag: flag}
}

// Request asks to move to path (PathLogout included).
func (g *NavigationGuard) Request(ctx context.Context, path string) (NavigationDecision, error) {
	inProgress, err := g.flag.Get(ctx)
	if err != nil {
		return NavigationDecision{}, errors.Wrap(err, "read session flag")
	}
	if inProgress {
		return NavigationDecision{Path: path, ConfirmationRequired: true}, nil
	}
	return NavigationDecision{Path: path, Allowed: true}, nil
}

// Confirm abandons the running quiz and lets navigation to path proceed.
func (g *NavigationGuard) Confirm(ctx context.Context, path string) (NavigationDecision, error) {
	if err := g.flag.Set(ctx, false); err != nil {
		return NavigationDecision{}, errors.Wrap(err, "clear session flag")
	}
	return NavigationDecision{Path: path, Allowed: true}, nil
}

// Guard is Request that reports a pending confirmation as domain.ErrQuizInProgress.
func (g *NavigationGuard) Guard(ctx context.Context, path string) error {
	decision, err := g.Request(ctx, path)
	if err != nil {
		return err
	}
	if decision.ConfirmationRequired {
		return errors.Wrapf(domain.ErrQuizInProgress, "leaving for %s", path)
	}
	return nil
}
