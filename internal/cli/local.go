package cli

import (
	"context"

	"elearning-quiz/internal/app"
	"elearning-quiz/internal/auth"
	"elearning-quiz/internal/domain"
	"elearning-quiz/internal/infra/api"
	"elearning-quiz/internal/infra/sqlite"
	"github.com/pkg/errors"
)

// local bundles the on-disk storage of the terminal client with an API client that
// authenticates as the stored user.
type local struct {
	store *sqlite.KVStore
	creds *auth.Credentials
	flag  *app.SessionFlag
	api   *api.Client
}

func (e *env) openLocal(ctx context.Context) (*local, error) {
	store, err := sqlite.Open(ctx, e.cfg.Storage.Path)
	if err != nil {
		return nil, err
	}
	creds := auth.NewCredentials(store)
	return &local{
		store: store,
		creds: creds,
		flag:  app.NewSessionFlag(store, ""),
		api:   api.NewClient(e.cfg.API.BaseURL, e.cfg.APITimeout(), creds),
	}, nil
}

func (l *local) Close() error {
	return l.store.Close()
}

// require applies the route guard of path to the stored identity.
func (l *local) require(ctx context.Context, path string) error {
	who, err := l.creds.Identity(ctx)
	if err != nil {
		return err
	}
	if _, ok := app.Authorize(path, who); ok {
		return nil
	}
	if !who.Authenticated {
		return errors.Wrap(domain.ErrNotAuthenticated, "please log in first")
	}
	return errors.Wrapf(domain.ErrForbidden, "%s is for admins only", path)
}

// withLocal opens the local storage for the duration of fn.
func (e *env) withLocal(ctx context.Context, fn func(l *local) error) error {
	l, err := e.openLocal(ctx)
	if err != nil {
		return err
	}
	defer l.Close()
	return fn(l)
}
