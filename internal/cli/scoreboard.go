package cli

import (
	"fmt"
	"text/tabwriter"

	"elearning-quiz/internal/app"
	"elearning-quiz/internal/domain"
	"github.com/spf13/cobra"
)

func NewScoreboardCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "scoreboard",
		Short: "Show players ranked by score",
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withLocal(cmd.Context(), func(l *local) error {
				if err := l.require(cmd.Context(), app.PathScoreboard); err != nil {
					return err
				}
				users, err := l.api.ListUsers(cmd.Context())
				if err != nil {
					return err
				}
				printScoreboard(cmd, app.Scoreboard(users))
				return nil
			})
		},
	}
}

func printScoreboard(cmd *cobra.Command, entries []domain.ScoreboardEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No scores yet.")
		return
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tNAME\tSCORE")
	for _, entry := range entries {
		fmt.Fprintf(w, "%d\t%s\t%d\n", entry.Rank, entry.Name, entry.Score)
	}
	w.Flush()
}
