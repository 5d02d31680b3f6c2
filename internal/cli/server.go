package cli

import (
	"context"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"trivia-quiz/internal/app"
	"trivia-quiz/internal/config"
	"trivia-quiz/internal/domain"
	"trivia-quiz/internal/infra/memory"
	"trivia-quiz/internal/infra/opentdb"
	pgledger "trivia-quiz/internal/infra/postgres"
	infraredis "trivia-quiz/internal/infra/redis"
	"trivia-quiz/internal/infra/sqlite"
	transport "trivia-quiz/internal/transport/http"
)

const timeout = 10 * time.Second

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags(), f)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg, f.verbose, f.profile)
		},
	}
}

func runServer(ctx context.Context, cfg config.Config, verbose, profile bool) error {
	logger := log.Default()
	if verbose {
		logger.Printf("START: trivia v%s", releaseVersion)
	}

	questions, err := newQuestionSource(cfg)
	if err != nil {
		return err
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return err
		}
	}

	roundTTL := config.TTLDuration(cfg.Rounds.TTL, time.Hour)
	var rounds app.RoundStore
	if redisClient != nil {
		rounds = infraredis.NewRoundStore(redisClient, roundTTL)
	} else {
		rounds = memory.NewRoundStore(roundTTL)
	}

	scores, closeLedger, err := openLedger(ctx, cfg, redisClient)
	if err != nil {
		return err
	}
	defer closeLedger()

	shuffler, err := app.NewShuffler(cfg.Trivia.Shuffle)
	if err != nil {
		return err
	}

	service := app.NewTriviaService(questions, rounds, scores, app.Settings{
		IdentityTTL:  config.TTLDuration(cfg.Identity.TTL, app.DefaultIdentityTTL),
		FetchTimeout: config.TTLDuration(cfg.Trivia.Timeout, 0),
		Shuffler:     shuffler,
		Logger:       logger,
	})

	web, err := transport.NewServer(service, transport.Options{
		Prefix:  cfg.Server.Prefix,
		Secure:  cfg.Scheme() == "https",
		Verbose: verbose,
		Profile: profile,
		Version: releaseVersion,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Bind, cfg.Server.Port),
		Handler:           web.Routes(),
		IdleTimeout:       10 * time.Minute,
		ReadTimeout:       timeout,
		ReadHeaderTimeout: timeout,
		WriteTimeout:      timeout,
	}

	errs := make(chan error, 1)
	go func() {
		if verbose {
			logger.Printf("SERVE: Listening on %s://%s%s/ (ledger: %s)", cfg.Scheme(), srv.Addr, web.Prefix(), cfg.Ledger.Backend)
		}
		var err error
		if cfg.Scheme() == "https" {
			err = srv.ListenAndServeTLS(cfg.Server.TLSCert, cfg.Server.TLSKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Println("shutting down server...")
	case err := <-errs:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)
	service.Wait()
	return err
}

func newQuestionSource(cfg config.Config) (app.QuestionSource, error) {
	if cfg.Trivia.BankFile != "" {
		bank, err := memory.LoadQuestionBank(cfg.Trivia.BankFile)
		if err != nil {
			return nil, err
		}
		return memory.NewStaticQuestionSource(bank, cfg.Trivia.Amount), nil
	}
	httpClient := &http.Client{Timeout: config.TTLDuration(cfg.Trivia.Timeout, 0)}
	return opentdb.NewClient(httpClient, cfg.Trivia.URL, cfg.Trivia.Amount, cfg.Trivia.Type), nil
}

// openLedger builds the configured score ledger. The returned func releases
// whatever connection the backend holds.
func openLedger(ctx context.Context, cfg config.Config, redisClient *redis.Client) (app.ScoreRepository, func(), error) {
	noop := func() {}

	switch cfg.Ledger.Backend {
	case config.BackendMemory:
		return memory.NewScoreRepository(), noop, nil
	case config.BackendRedis:
		if redisClient == nil {
			return nil, noop, domain.ErrInvalidConfig
		}
		return infraredis.NewScoreRepository(redisClient), noop, nil
	case config.BackendPostgres:
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return nil, noop, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, noop, err
		}
		return pgledger.NewScoreRepository(pool), pool.Close, nil
	case config.BackendSQLite:
		repo, err := sqlite.Open(ctx, cfg.Ledger.SQLitePath)
		if err != nil {
			return nil, noop, err
		}
		return repo, func() { closeQuietly(repo) }, nil
	default:
		return nil, noop, domain.ErrUnknownBackend
	}
}

func closeQuietly(c io.Closer) {
	if err := c.Close(); err != nil {
		log.Printf("ERROR: closing ledger: %v", err)
	}
}
