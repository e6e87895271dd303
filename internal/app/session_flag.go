package app

import (
	"context"

	"elearning-quiz/internal/domain"
	"github.com/pkg/errors"
)

// KeyValueStore is the small persistent map the client keeps its local state in
// (memory, sqlite file or Redis).
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// SessionFlag stores the quiz-in-progress flag under a key of a KeyValueStore.
// Clearing the flag removes the key, so a missing key reads as false.
type SessionFlag struct {
	store KeyValueStore
	key   string
}

func NewSessionFlag(store KeyValueStore, key string) *SessionFlag {
	if key == "" {
		key = domain.QuizInProgressKey
	}
	return &SessionFlag{store: store, key: key}
}

func (f *SessionFlag) Set(ctx context.Context, inProgress bool) error {
	if inProgress {
		return errors.Wrapf(f.store.Set(ctx, f.key, "true"), "set %s", f.key)
	}
	return errors.Wrapf(f.store.Delete(ctx, f.key), "clear %s", f.key)
}

func (f *SessionFlag) Get(ctx context.Context) (bool, error) {
	value, ok, err := f.store.Get(ctx, f.key)
	if err != nil {
		return false, errors.Wrapf(err, "get %s", f.key)
	}
	return ok && value == "true", nil
}
