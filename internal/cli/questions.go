package cli

import (
	"context"
	"fmt"

	"elearning-quiz/internal/app"
	"elearning-quiz/internal/domain"
	pgloader "elearning-quiz/internal/infra/postgres"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// NewQuestionsCmd manages quiz questions on the API, or with --bank on the Postgres question bank.
func NewQuestionsCmd(e *env) *cobra.Command {
	var bank bool
	cmd := &cobra.Command{
		Use:   "questions",
		Short: "Manage quiz questions (admin)",
	}
	cmd.PersistentFlags().BoolVar(&bank, "bank", false, "work on the Postgres question bank instead of the API")

	// withAdmin runs fn against the selected question store once the stored user is known to be an admin.
	withAdmin := func(cmd *cobra.Command, fn func(l *local, admin *app.QuestionAdmin) error) error {
		ctx := cmd.Context()
		return e.withLocal(ctx, func(l *local) error {
			if err := l.require(ctx, app.PathManageQuiz); err != nil {
				return err
			}
			if !bank {
				return fn(l, app.NewQuestionAdmin(l.api))
			}
			pool, err := e.connectBank(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()
			return fn(l, app.NewQuestionAdmin(pgloader.NewQuestionLoader(pool)))
		})
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List questions with their answers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdmin(cmd, func(_ *local, admin *app.QuestionAdmin) error {
				questions, err := admin.List(cmd.Context())
				if err != nil {
					return err
				}
				for _, q := range questions {
					printQuestion(cmd, q)
				}
				return nil
			})
		},
	}

	var input questionInput
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a question",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdmin(cmd, func(_ *local, admin *app.QuestionAdmin) error {
				saved, err := admin.Add(cmd.Context(), input.question())
				if err != nil {
					return err
				}
				printQuestion(cmd, saved)
				return nil
			})
		},
	}
	input.bind(add)

	var edit questionInput
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace a question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withAdmin(cmd, func(_ *local, admin *app.QuestionAdmin) error {
				saved, err := admin.Update(cmd.Context(), id, edit.question())
				if err != nil {
					return err
				}
				printQuestion(cmd, saved)
				return nil
			})
		},
	}
	edit.bind(update)

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withAdmin(cmd, func(_ *local, admin *app.QuestionAdmin) error {
				if err := admin.Delete(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted question %d\n", id)
				return nil
			})
		},
	}

	sync := &cobra.Command{
		Use:   "sync",
		Short: "Copy the API's questions into the Postgres question bank",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return e.withLocal(ctx, func(l *local) error {
				if err := l.require(ctx, app.PathManageQuiz); err != nil {
					return err
				}
				records, err := l.api.ListQuestions(ctx)
				if err != nil {
					return err
				}
				pool, err := e.connectBank(ctx)
				if err != nil {
					return err
				}
				defer pool.Close()
				n, err := pgloader.NewQuestionLoader(pool).Sync(ctx, records)
				if err != nil {
					return err
				}
				e.log.WithField("questions", n).Info("question bank synced")
				fmt.Fprintf(cmd.OutOrStdout(), "Synced %d questions\n", n)
				return nil
			})
		},
	}

	cmd.AddCommand(list, add, update, del, sync)
	return cmd
}

type questionInput struct {
	text    string
	options []string
	correct int
}

func (in *questionInput) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&in.text, "text", "", "question text")
	cmd.Flags().StringArrayVar(&in.options, "option", nil, "answer option, repeated four times in order")
	cmd.Flags().IntVar(&in.correct, "correct", 0, "number (1-4) of the correct option")
	_ = cmd.MarkFlagRequired("text")
	_ = cmd.MarkFlagRequired("option")
	_ = cmd.MarkFlagRequired("correct")
}

func (in *questionInput) question() domain.Question {
	q := domain.Question{Text: in.text}
	for i, label := range in.options {
		q.Options = append(q.Options, domain.Option{Label: label, Correct: i+1 == in.correct})
	}
	return q
}

func printQuestion(cmd *cobra.Command, q domain.Question) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "#%d %s\n", q.ID, q.Text)
	for i, opt := range q.Options {
		mark := " "
		if opt.Correct {
			mark = "*"
		}
		fmt.Fprintf(out, "  %s%d) %s\n", mark, i+1, opt.Label)
	}
}

func (e *env) connectBank(ctx context.Context) (*pgxpool.Pool, error) {
	if e.cfg.Postgres.URL == "" {
		return nil, errors.New("postgres url not configured")
	}
	pool, err := pgxpool.Connect(ctx, e.cfg.Postgres.URL)
	if err != nil {
		return nil, errors.Wrap(err, "connect question bank")
	}
	return pool, nil
}
