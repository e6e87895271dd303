package app

import (
	"context"

	"elearning-quiz/internal/domain"
	"github.com/pkg/errors"
)

// QuestionStore is the admin surface of the quiz question API.
type QuestionStore interface {
	ListQuestions(ctx context.Context) ([]domain.QuestionRecord, error)
	AddQuestion(ctx context.Context, rec domain.QuestionRecord) (domain.QuestionRecord, error)
	UpdateQuestion(ctx context.Context, id int64, rec domain.QuestionRecord) (domain.QuestionRecord, error)
	DeleteQuestion(ctx context.Context, id int64) error
}

// QuestionAdmin validates questions before they reach the API.
type QuestionAdmin struct {
	store QuestionStore
}

func NewQuestionAdmin(store QuestionStore) *QuestionAdmin {
	return &QuestionAdmin{store: store}
}

func (a *QuestionAdmin) List(ctx context.Context) ([]domain.Question, error) {
	records, err := a.store.ListQuestions(ctx)
	if err != nil {
		return nil, err
	}
	questions := make([]domain.Question, 0, len(records))
	for _, rec := range records {
		questions = append(questions, rec.ToQuestion())
	}
	return questions, nil
}

func (a *QuestionAdmin) Add(ctx context.Context, q domain.Question) (domain.Question, error) {
	if err := q.Validate(); err != nil {
		return domain.Question{}, err
	}
	saved, err := a.store.AddQuestion(ctx, domain.RecordFromQuestion(q))
	if err != nil {
		return domain.Question{}, errors.Wrap(err, "add question")
	}
	return saved.ToQuestion(), nil
}

func (a *QuestionAdmin) Update(ctx context.Context, id int64, q domain.Question) (domain.Question, error) {
	if id <= 0 {
		return domain.Question{}, errors.Wrapf(domain.ErrInvalidQuestion, "question id %d", id)
	}
	if err := q.Validate(); err != nil {
		return domain.Question{}, err
	}
	q.ID = id
	saved, err := a.store.UpdateQuestion(ctx, id, domain.RecordFromQuestion(q))
	if err != nil {
		return domain.Question{}, errors.Wrapf(err, "update question %d", id)
	}
	return saved.ToQuestion(), nil
}

func (a *QuestionAdmin) Delete(ctx context.Context, id int64) error {
	return errors.Wrapf(a.store.DeleteQuestion(ctx, id), "delete question %d", id)
}
