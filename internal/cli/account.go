package cli

import (
	"fmt"

	"elearning-quiz/internal/app"
	"elearning-quiz/internal/domain"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func NewLoginCmd(e *env) *cobra.Command {
	var login domain.LoginRequest
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withLocal(cmd.Context(), func(l *local) error {
				session, err := l.api.Login(cmd.Context(), login)
				if err != nil {
					return errors.Wrap(err, "login")
				}
				if err := l.creds.Save(cmd.Context(), session); err != nil {
					return err
				}
				e.log.WithField("role", session.Role).Info("logged in")
				fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", login.Email, session.Role)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&login.Email, "email", "", "account email")
	cmd.Flags().StringVar(&login.Password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func NewRegisterCmd(e *env) *cobra.Command {
	var user domain.User
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if user.Role != domain.RoleUser && user.Role != domain.RoleAdmin {
				return errors.Errorf("role must be %s or %s", domain.RoleUser, domain.RoleAdmin)
			}
			return e.withLocal(cmd.Context(), func(l *local) error {
				msg, err := l.api.Register(cmd.Context(), user)
				if err != nil {
					return errors.Wrap(err, "register")
				}
				fmt.Fprintln(cmd.OutOrStdout(), msg)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&user.Name, "name", "", "display name")
	cmd.Flags().StringVar(&user.Email, "email", "", "account email")
	cmd.Flags().StringVar(&user.Password, "password", "", "account password")
	cmd.Flags().StringVar(&user.Role, "role", domain.RoleUser, "USER or ADMIN")
	for _, name := range []string{"name", "email", "password"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

// NewLogoutCmd forgets the stored session. A quiz left in progress holds logout back until
// --force confirms abandoning it.
func NewLogoutCmd(e *env) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return e.withLocal(ctx, func(l *local) error {
				guard := app.NewNavigationGuard(l.flag)
				decision, err := guard.Request(ctx, app.PathLogout)
				if err != nil {
					return err
				}
				if decision.ConfirmationRequired {
					if !force {
						return errors.Wrap(domain.ErrQuizInProgress, "rerun with --force to abandon it")
					}
					if _, err := guard.Confirm(ctx, app.PathLogout); err != nil {
						return err
					}
				}
				if err := l.creds.Logout(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "abandon a quiz in progress")
	return cmd
}

func NewMenuCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Show the pages available to the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withLocal(cmd.Context(), func(l *local) error {
				who, err := l.creds.Identity(cmd.Context())
				if err != nil {
					return err
				}
				for _, path := range app.Menu(who) {
					fmt.Fprintln(cmd.OutOrStdout(), path)
				}
				return nil
			})
		},
	}
}
