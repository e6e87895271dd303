package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"elearning-quiz/internal/domain"
	"elearning-quiz/internal/infra/memory"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestQuestionCacheCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	logger, _ := test.NewNullLogger()

	source := &countingSource{QuestionSource: memory.NewStaticQuestionSource(sampleQuestions())}
	cache := NewQuestionCache(client, source, "elearning:", time.Minute, logger)

	if _, err := cache.FetchQuestions(context.Background()); err != nil {
		t.Fatalf("fetch questions: %v", err)
	}
	if source.count() != 1 {
		t.Fatalf("expected source called once, got %d", source.count())
	}
	if !mr.Exists("elearning:questions") {
		t.Fatalf("expected question list stored in redis")
	}

	// A second cache instance (another gateway) hits redis, not the source.
	other := NewQuestionCache(client, source, "elearning:", time.Minute, logger)
	questions, err := other.FetchQuestions(context.Background())
	if err != nil {
		t.Fatalf("fetch questions 2: %v", err)
	}
	if source.count() != 1 {
		t.Fatalf("expected cache hit, source calls=%d", source.count())
	}
	if len(questions) != 1 || !questions[0].Options[1].Correct {
		t.Fatalf("unexpected cached questions %+v", questions)
	}

	if err := cache.Invalidate(context.Background()); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = cache.FetchQuestions(context.Background())
	if source.count() != 2 {
		t.Fatalf("expected reload after invalidate, got %d", source.count())
	}
}

type countingSource struct {
	memory.QuestionSource
	mu    sync.Mutex
	calls int
}

func (s *countingSource) FetchQuestions(ctx context.Context) ([]domain.Question, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.QuestionSource.FetchQuestions(ctx)
}

func (s *countingSource) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:   1,
			Text: "What is 2 + 2?",
			Options: []domain.Option{
				{Label: "3"},
				{Label: "4", Correct: true},
				{Label: "5"},
				{Label: "22"},
			},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
