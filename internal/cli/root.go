package cli

import (
	"os"

	"elearning-quiz/internal/config"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	port       string
	configPath string
)

// Execute runs the CLI.
func Execute() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("failed to load .env")
	}
	return newRootCmd().Execute()
}

// env is what every subcommand gets once the root command has loaded the configuration.
type env struct {
	cfg config.Config
	log *logrus.Logger
}

func newRootCmd() *cobra.Command {
	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}

	e := &env{log: logrus.StandardLogger()}
	cmd := &cobra.Command{
		Use:           "elearning-quiz",
		Short:         "Timed quiz client and gateway for the e-learning API",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Server.Port = port
			}
			e.cfg = cfg
			e.log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
			if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
				e.log.SetLevel(level)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&port, "port", "", "port to listen on (overrides config and PORT)")
	cmd.PersistentFlags().StringVar(&configPath, "config", envConfig, "path to YAML config")
	cmd.AddCommand(
		NewStartCmd(e),
		NewMigrateCmd(e),
		NewLoginCmd(e),
		NewRegisterCmd(e),
		NewLogoutCmd(e),
		NewMenuCmd(e),
		NewPlayCmd(e),
		NewScoreboardCmd(e),
		NewProfileCmd(e),
		NewUsersCmd(e),
		NewQuestionsCmd(e),
	)
	return cmd
}
