package cli

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"elearning-quiz/internal/app"
	"elearning-quiz/internal/domain"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func NewProfileCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit the logged-in profile",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the logged-in profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withLocal(cmd.Context(), func(l *local) error {
				if err := l.require(cmd.Context(), app.PathProfile); err != nil {
					return err
				}
				user, err := l.api.LoggedInUser(cmd.Context())
				if err != nil {
					return err
				}
				printUser(cmd, user)
				return nil
			})
		},
	}

	var update domain.User
	edit := &cobra.Command{
		Use:   "update",
		Short: "Update name, email or password",
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withLocal(cmd.Context(), func(l *local) error {
				if err := l.require(cmd.Context(), app.PathEditProfile); err != nil {
					return err
				}
				current, err := l.api.LoggedInUser(cmd.Context())
				if err != nil {
					return err
				}
				if update.Name != "" {
					current.Name = update.Name
				}
				if update.Email != "" {
					current.Email = update.Email
				}
				current.Password = update.Password
				saved, err := l.api.UpdateProfile(cmd.Context(), current)
				if err != nil {
					return err
				}
				printUser(cmd, saved)
				return nil
			})
		},
	}
	edit.Flags().StringVar(&update.Name, "name", "", "new display name")
	edit.Flags().StringVar(&update.Email, "email", "", "new email")
	edit.Flags().StringVar(&update.Password, "password", "", "new password")

	cmd.AddCommand(show, edit)
	return cmd
}

func NewUsersCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage users (admin)",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List all users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withLocal(cmd.Context(), func(l *local) error {
				if err := l.require(cmd.Context(), app.PathManageUsers); err != nil {
					return err
				}
				users, err := l.api.ListUsers(cmd.Context())
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE\tSCORE")
				for _, u := range users {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\n", u.ID, u.Name, u.Email, u.Role, u.ScoreValue())
				}
				return w.Flush()
			})
		},
	}

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return e.withLocal(cmd.Context(), func(l *local) error {
				if err := l.require(cmd.Context(), app.PathManageUsers); err != nil {
					return err
				}
				user, err := l.api.GetUser(cmd.Context(), id)
				if err != nil {
					return err
				}
				printUser(cmd, user)
				return nil
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return e.withLocal(cmd.Context(), func(l *local) error {
				if err := l.require(cmd.Context(), app.PathManageUsers); err != nil {
					return err
				}
				if err := l.api.DeleteUser(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted user %d\n", id)
				return nil
			})
		},
	}

	cmd.AddCommand(list, get, del)
	return cmd
}

func printUser(cmd *cobra.Command, u domain.User) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:    %d\nName:  %s\nEmail: %s\nRole:  %s\n", u.ID, u.Name, u.Email, u.Role)
	if !u.IsAdmin() {
		fmt.Fprintf(out, "Score: %d\n", u.ScoreValue())
	}
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Errorf("invalid id %q", raw)
	}
	return id, nil
}
