package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"elearning-quiz/internal/domain"
)

func TestQuestionCacheCaches(t *testing.T) {
	source := &countingSource{QuestionSource: NewStaticQuestionSource(sampleQuestions())}
	cache := NewQuestionCache(source, time.Minute)

	if _, err := cache.FetchQuestions(context.Background()); err != nil {
		t.Fatalf("fetch questions: %v", err)
	}
	if source.count() != 1 {
		t.Fatalf("expected source once, got %d", source.count())
	}

	questions, err := cache.FetchQuestions(context.Background())
	if err != nil {
		t.Fatalf("fetch questions 2: %v", err)
	}
	if source.count() != 1 {
		t.Fatalf("expected cache hit, source calls %d", source.count())
	}
	if len(questions) != 1 || questions[0].Text != "What is 2 + 2?" {
		t.Fatalf("unexpected questions %+v", questions)
	}
}

func TestQuestionCacheExpiresAndInvalidates(t *testing.T) {
	source := &countingSource{QuestionSource: NewStaticQuestionSource(sampleQuestions())}
	cache := NewQuestionCache(source, time.Minute)
	now := time.Now()
	cache.clock = func() time.Time { return now }

	_, _ = cache.FetchQuestions(context.Background())
	now = now.Add(2 * time.Minute)
	_, _ = cache.FetchQuestions(context.Background())
	if source.count() != 2 {
		t.Fatalf("expected reload after expiry, got %d calls", source.count())
	}

	cache.Invalidate()
	_, _ = cache.FetchQuestions(context.Background())
	if source.count() != 3 {
		t.Fatalf("expected reload after invalidate, got %d calls", source.count())
	}
}

func TestQuestionCacheDoesNotKeepFailures(t *testing.T) {
	source := &countingSource{QuestionSource: NewStaticQuestionSource(nil)}
	cache := NewQuestionCache(source, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := cache.FetchQuestions(context.Background()); err != domain.ErrNoQuestions {
			t.Fatalf("expected no questions error, got %v", err)
		}
	}
	if source.count() != 2 {
		t.Fatalf("expected failures not cached, got %d calls", source.count())
	}
}

type countingSource struct {
	QuestionSource
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
