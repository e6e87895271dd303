package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"elearning-quiz/internal/app"
	"elearning-quiz/internal/domain"
	"github.com/spf13/cobra"
)

// NewPlayCmd runs a timed quiz in the terminal. Ctrl-C abandons it.
func NewPlayCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Play the timed quiz",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return e.withLocal(ctx, func(l *local) error {
				if err := l.require(ctx, app.PathQuestions); err != nil {
					return err
				}
				ctrl := app.NewController(l.api, l.api, l.flag,
					app.WithQuestionDuration(e.cfg.QuestionDuration()),
					app.WithPoints(e.cfg.Quiz.Points),
					app.WithLogger(e.log),
				)
				return playQuiz(ctx, ctrl, cmd.InOrStdin(), cmd.OutOrStdout())
			})
		},
	}
}

// playQuiz drives ctrl from input lines and renders its state to out until the player quits,
// input ends or ctx is cancelled. It waits for the score to be saved before returning.
func playQuiz(ctx context.Context, ctrl *app.Controller, in io.Reader, out io.Writer) error {
	updates, cancel := ctrl.Subscribe()
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()

	defer func() {
		ctrl.Close()
		ctrl.Wait()
		if err := ctrl.Err(); err != nil {
			fmt.Fprintf(out, "Warning: %v\n", err)
		}
	}()

	if err := ctrl.Start(ctx); err != nil {
		return err
	}

	r := &renderer{out: out, ctrl: ctrl}
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "\nQuiz abandoned.")
			return nil
		case state, ok := <-updates:
			if !ok {
				return nil
			}
			r.render(state)
		case line, ok := <-lines:
			if !ok || line == "q" {
				return nil
			}
			r.handle(ctx, line)
		}
	}
}

type renderer struct {
	out  io.Writer
	ctrl *app.Controller
	last domain.SessionState
	seen bool
}

func (r *renderer) render(state domain.SessionState) {
	changed := !r.seen || state.Generation != r.last.Generation || state.Phase != r.last.Phase
	switch state.Phase {
	case domain.PhaseLoading:
		if changed {
			fmt.Fprintln(r.out, "Loading questions...")
		}
	case domain.PhaseActive:
		if changed || state.QuestionIndex != r.last.QuestionIndex {
			if q, ok := r.ctrl.QuestionAt(state.QuestionIndex); ok {
				fmt.Fprintf(r.out, "\nQuestion %d of %d (score %d)\n%s\n", state.QuestionIndex+1, state.QuestionCount, state.Score, q.Text)
				for i, opt := range q.Options {
					fmt.Fprintf(r.out, "  %d) %s\n", i+1, opt.Label)
				}
			}
		}
		if changed || state.RemainingSeconds%30 == 0 || state.RemainingSeconds <= 10 {
			fmt.Fprintf(r.out, "Time left %s > ", app.FormatClock(state.RemainingSeconds))
		}
	case domain.PhaseFinished:
		if changed {
			if state.RemainingSeconds == 0 {
				fmt.Fprintln(r.out, "\nTime is up!")
			}
			fmt.Fprintf(r.out, "\nQuiz finished. Your score: %d\n(r)estart or (q)uit > ", state.Score)
		}
	case domain.PhaseFailed:
		if changed {
			fmt.Fprintf(r.out, "\nCould not load the quiz: %v\n(r)etry or (q)uit > ", r.ctrl.Err())
		}
	}
	r.last, r.seen = state, true
}

func (r *renderer) handle(ctx context.Context, line string) {
	var err error
	switch r.ctrl.State().Phase {
	case domain.PhaseActive:
		option, convErr := strconv.Atoi(line)
		if convErr != nil {
			fmt.Fprint(r.out, "Pick an option number > ")
			return
		}
		_, err = r.ctrl.SubmitOption(option - 1)
	case domain.PhaseFinished:
		if line == "r" {
			err = r.ctrl.Restart()
		}
	case domain.PhaseFailed:
		if line == "r" {
			err = r.ctrl.Retry(ctx)
		}
	}
	if err != nil {
		fmt.Fprintf(r.out, "%v > ", err)
	}
}
