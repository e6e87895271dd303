package domain

import (
	"strings"

	"github.com/pkg/errors"
)

const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"

	// OptionsPerQuestion is fixed by the quiz API.
	OptionsPerQuestion = 4
)

// Option represents a possible answer for a question.
type Option struct {
	Label   string `json:"label"`
	Correct bool   `json:"correct"`
}

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID      int64    `json:"id"`
	Text    string   `json:"text"`
	Options []Option `json:"options"`
}

// Validate checks the shape the API expects: four labelled options, one of them correct.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return errors.Wrap(ErrInvalidQuestion, "question text is empty")
	}
	if len(q.Options) != OptionsPerQuestion {
		return errors.Wrapf(ErrInvalidQuestion, "expected %d options, got %d", OptionsPerQuestion, len(q.Options))
	}
	correct := 0
	for i, opt := range q.Options {
		if strings.TrimSpace(opt.Label) == "" {
			return errors.Wrapf(ErrInvalidQuestion, "option %d is empty", i+1)
		}
		if opt.Correct {
			correct++
		}
	}
	if correct != 1 {
		return errors.Wrapf(ErrInvalidQuestion, "expected exactly one correct option, got %d", correct)
	}
	return nil
}

// CorrectAnswer returns the 1-based index of the correct option, or 0 if none is marked.
func (q Question) CorrectAnswer() int {
	for i, opt := range q.Options {
		if opt.Correct {
			return i + 1
		}
	}
	return 0
}

// QuestionRecord is the flat shape quiz questions travel in over the API and in the question bank.
type QuestionRecord struct {
	ID            int64  `json:"id,omitempty"`
	QuestionText  string `json:"questionText"`
	AnswerOption1 string `json:"answerOption1"`
	AnswerOption2 string `json:"answerOption2"`
	AnswerOption3 string `json:"answerOption3"`
	AnswerOption4 string `json:"answerOption4"`
	CorrectAnswer int    `json:"correctAnswer"`
}

func (r QuestionRecord) ToQuestion() Question {
	labels := [OptionsPerQuestion]string{r.AnswerOption1, r.AnswerOption2, r.AnswerOption3, r.AnswerOption4}
	options := make([]Option, 0, OptionsPerQuestion)
	for i, label := range labels {
		options = append(options, Option{Label: label, Correct: r.CorrectAnswer == i+1})
	}
	return Question{ID: r.ID, Text: r.QuestionText, Options: options}
}

func RecordFromQuestion(q Question) QuestionRecord {
	rec := QuestionRecord{ID: q.ID, QuestionText: q.Text, CorrectAnswer: q.CorrectAnswer()}
	labels := []*string{&rec.AnswerOption1, &rec.AnswerOption2, &rec.AnswerOption3, &rec.AnswerOption4}
	for i := range q.Options {
		if i >= len(labels) {
			break
		}
		*labels[i] = q.Options[i].Label
	}
	return rec
}

// User is the account view returned by the API.
type User struct {
	ID       int64  `json:"id,omitempty"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
	Role     string `json:"role,omitempty"`
	Score    *int   `json:"userScore,omitempty"`
}

// ScoreValue returns the user's score, treating a missing score as zero.
func (u User) ScoreValue() int {
	if u.Score == nil {
		return 0
	}
	return *u.Score
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// LoginRequest carries the credentials for /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is what a successful login yields.
type Session struct {
	Token          string `json:"token"`
	Role           string `json:"role"`
	ExpirationTime string `json:"expirationTime,omitempty"`
}

// ScoreboardEntry is one row of the public scoreboard.
type ScoreboardEntry struct {
	Rank  int    `json:"rank"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}
