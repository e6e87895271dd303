package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"elearning-quiz/internal/app"
	"elearning-quiz/internal/config"
	"elearning-quiz/internal/infra/api"
	"elearning-quiz/internal/infra/memory"
	pgloader "elearning-quiz/internal/infra/postgres"
	rediscache "elearning-quiz/internal/infra/redis"
	transport "elearning-quiz/internal/transport/http"
	"github.com/hashicorp/go-multierror"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the quiz gateway.
func NewStartCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), e)
		},
	}
}

// resources are the connections the gateway closes on shutdown.
type resources struct {
	redis *redis.Client
	pool  *pgxpool.Pool
}

func (r *resources) Close() error {
	var result *multierror.Error
	if r.redis != nil {
		result = multierror.Append(result, errors.Wrap(r.redis.Close(), "close redis"))
	}
	if r.pool != nil {
		r.pool.Close()
	}
	return result.ErrorOrNil()
}

func runServer(ctx context.Context, e *env) error {
	cfg, log := e.cfg, e.log
	res := &resources{}
	defer func() {
		if err := res.Close(); err != nil {
			log.WithError(err).Warn("failed to release resources")
		}
	}()

	client := api.NewClient(cfg.API.BaseURL, cfg.APITimeout(), api.ContextToken{})

	var store app.KeyValueStore = memory.NewKVStore()
	if cfg.Redis.Addr != "" {
		res.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := res.redis.Ping(ctx).Err(); err != nil {
			return errors.Wrap(err, "ping redis")
		}
		store = rediscache.NewKVStore(res.redis, cfg.Redis.Prefix, cfg.RedisTTL())
	}

	var source app.QuestionSource = client
	if cfg.Quiz.Source == config.SourcePostgres {
		if err := runMigrations(ctx, cfg, log); err != nil {
			return err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return errors.Wrap(err, "connect question bank")
		}
		res.pool = pool
		source = pgloader.NewQuestionLoader(pool)
	}

	var questions app.QuestionSource
	if res.redis != nil {
		questions = rediscache.NewQuestionCache(res.redis, source, cfg.Redis.Prefix, cfg.CacheTTL(), log)
	} else {
		questions = memory.NewQuestionCache(source, cfg.CacheTTL())
	}

	handler := transport.NewRouter(transport.Gateway{
		Users:     client,
		Questions: questions,
		Scores: func(p transport.Player) app.ScoreSink {
			return client.WithToken(p.Token)
		},
		Flags: func(p transport.Player) app.SessionFlagStore {
			return app.NewSessionFlag(store, transport.FlagKey(p.User))
		},
		Controller: []app.Option{
			app.WithQuestionDuration(cfg.QuestionDuration()),
			app.WithPoints(cfg.Quiz.Points),
		},
		Log: log,
	})

	server := &http.Server{
		Addr:        ":" + cfg.Server.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{"port": cfg.Server.Port, "source": cfg.Quiz.Source}).Info("starting quiz gateway")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down gateway...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down gateway...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
