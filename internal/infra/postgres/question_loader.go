package postgres

import (
	"context"

	"elearning-quiz/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/pkg/errors"
)

// QuestionLoader reads the offline question bank from Postgres.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) FetchQuestions(ctx context.Context) ([]domain.Question, error) {
	records, err := l.ListQuestions(ctx)
	if err != nil {
		return nil, err
	}
	questions := make([]domain.Question, 0, len(records))
	for _, rec := range records {
		questions = append(questions, rec.ToQuestion())
	}
	return questions, nil
}

func (l *QuestionLoader) ListQuestions(ctx context.Context) ([]domain.QuestionRecord, error) {
	rows, err := l.pool.Query(ctx, `SELECT id, question_text, option1, option2, option3, option4, correct_answer
		FROM quiz_questions ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "query quiz questions")
	}
	defer rows.Close()

	var records []domain.QuestionRecord
	for rows.Next() {
		var rec domain.QuestionRecord
		if err := rows.Scan(&rec.ID, &rec.QuestionText,
			&rec.AnswerOption1, &rec.AnswerOption2, &rec.AnswerOption3, &rec.AnswerOption4,
			&rec.CorrectAnswer); err != nil {
			return nil, errors.Wrap(err, "scan quiz question")
		}
		records = append(records, rec)
	}
	return records, errors.Wrap(rows.Err(), "iterate quiz questions")
}

func (l *QuestionLoader) AddQuestion(ctx context.Context, rec domain.QuestionRecord) (domain.QuestionRecord, error) {
	err := l.pool.QueryRow(ctx, `INSERT INTO quiz_questions
		(question_text, option1, option2, option3, option4, correct_answer)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		rec.QuestionText, rec.AnswerOption1, rec.AnswerOption2, rec.AnswerOption3, rec.AnswerOption4,
		rec.CorrectAnswer).Scan(&rec.ID)
	if err != nil {
		return domain.QuestionRecord{}, errors.Wrap(err, "insert quiz question")
	}
	return rec, nil
}

func (l *QuestionLoader) UpdateQuestion(ctx context.Context, id int64, rec domain.QuestionRecord) (domain.QuestionRecord, error) {
	tag, err := l.pool.Exec(ctx, `UPDATE quiz_questions SET question_text=$2, option1=$3, option2=$4,
		option3=$5, option4=$6, correct_answer=$7 WHERE id=$1`,
		id, rec.QuestionText, rec.AnswerOption1, rec.AnswerOption2, rec.AnswerOption3, rec.AnswerOption4,
		rec.CorrectAnswer)
	if err != nil {
		return domain.QuestionRecord{}, errors.Wrapf(err, "update quiz question %d", id)
	}
	if tag.RowsAffected() == 0 {
		return domain.QuestionRecord{}, errors.Wrapf(domain.ErrNotFound, "quiz question %d", id)
	}
	rec.ID = id
	return rec, nil
}

func (l *QuestionLoader) DeleteQuestion(ctx context.Context, id int64) error {
	tag, err := l.pool.Exec(ctx, `DELETE FROM quiz_questions WHERE id=$1`, id)
	if err != nil {
		return errors.Wrapf(err, "delete quiz question %d", id)
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(domain.ErrNotFound, "quiz question %d", id)
	}
	return nil
}

// Sync upserts records keyed by their API id in a single transaction.
func (l *QuestionLoader) Sync(ctx context.Context, records []domain.QuestionRecord) (int, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "begin sync")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(`INSERT INTO quiz_questions
			(id, question_text, option1, option2, option3, option4, correct_answer)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET question_text=EXCLUDED.question_text,
				option1=EXCLUDED.option1, option2=EXCLUDED.option2, option3=EXCLUDED.option3,
				option4=EXCLUDED.option4, correct_answer=EXCLUDED.correct_answer`,
			rec.ID, rec.QuestionText, rec.AnswerOption1, rec.AnswerOption2, rec.AnswerOption3,
			rec.AnswerOption4, rec.CorrectAnswer)
	}
	results := tx.SendBatch(ctx, batch)
	for i := range records {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return 0, errors.Wrapf(err, "upsert quiz question %d", records[i].ID)
		}
	}
	if err := results.Close(); err != nil {
		return 0, errors.Wrap(err, "close sync batch")
	}
	// keep the identity sequence ahead of synced ids
	if _, err := tx.Exec(ctx, `SELECT setval(pg_get_serial_sequence('quiz_questions', 'id'),
		GREATEST((SELECT COALESCE(MAX(id), 0) FROM quiz_questions), 1))`); err != nil {
		return 0, errors.Wrap(err, "advance id sequence")
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, errors.Wrap(err, "commit sync")
	}
	return len(records), nil
}
