package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"competiquest/internal/app"
	"competiquest/internal/auth"
	"competiquest/internal/config"
	"competiquest/internal/generator"
	"competiquest/internal/infra/memory"
	"competiquest/internal/infra/postgres"
	redisstore "competiquest/internal/infra/redis"
	"competiquest/internal/seed"
	transport "competiquest/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

type backend struct {
	attempts  app.AttemptRepository
	topics    app.TopicRepository
	questions app.QuestionRepository
	users     app.UserRepository
	closers   []func()
}

func (b *backend) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// openBackend picks Postgres when a URL is configured, then Redis, then memory.
// The Redis and memory modes serve the demo catalog from memory; Redis keeps attempts and accounts.
func openBackend(ctx context.Context, cfg config.Config) (*backend, error) {
	b := &backend{}
	switch {
	case cfg.Postgres.URL != "":
		db := postgres.Open(cfg.Postgres.URL)
		b.closers = append(b.closers, func() { _ = db.Close() })
		if err := postgres.Migrate(ctx, db); err != nil {
			b.close()
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			b.close()
			return nil, err
		}
		b.closers = append(b.closers, pool.Close)
		catalog := postgres.NewCatalog(pool)
		b.attempts = postgres.NewAttemptStore(db)
		b.users = postgres.NewUserStore(db)
		b.topics, b.questions = catalog, catalog
		log.Printf("using postgres storage")
	case cfg.Redis.Addr != "":
		client, err := redisstore.Open(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = client.Close() })
		catalog := memory.NewCatalog()
		seed.Load(catalog)
		b.attempts = redisstore.NewAttemptStore(client)
		b.users = redisstore.NewUserStore(client)
		b.topics, b.questions = catalog, catalog
		log.Printf("using redis attempt storage at %s", cfg.Redis.Addr)
	default:
		catalog := memory.NewCatalog()
		seed.Load(catalog)
		b.attempts = memory.NewAttemptStore()
		b.users = memory.NewUserStore()
		b.topics, b.questions = catalog, catalog
		log.Printf("using in-memory storage")
	}
	return b, nil
}

func newGenerator(cfg config.Config) (app.QuizGenerator, error) {
	switch cfg.Generator.Provider {
	case "", "mock":
		return generator.NewMockClient(), nil
	case "anthropic":
		if cfg.Generator.APIKey == "" {
			return nil, fmt.Errorf("generator api key not configured")
		}
		return generator.New(generator.NewAPIClient(cfg.Generator.APIKey, cfg.Generator.Model, cfg.Generator.MaxTokens)), nil
	}
	return nil, fmt.Errorf("unknown generator provider %q", cfg.Generator.Provider)
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("jwt secret not configured")
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	store, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.close()

	gen, err := newGenerator(cfg)
	if err != nil {
		return err
	}
	tokens, err := auth.NewTokens(cfg.Auth.JWTSecret, config.TTLDuration(cfg.Auth.TokenTTL, 0))
	if err != nil {
		return err
	}

	feed := app.NewLeaderboardFeed()
	attempts := app.NewAttemptService(store.attempts, store.topics, store.questions, store.users,
		app.WithGenerator(gen),
		app.WithFeed(feed),
		app.WithQuestionLimits(cfg.Quiz.DefaultQuestions, cfg.Quiz.MaxQuestions),
	)
	users := app.NewUserService(store.users, app.WithAdminEmails(cfg.Auth.AdminEmails...))

	handler := transport.NewRouter(transport.Deps{
		Attempts:       attempts,
		Users:          users,
		Feed:           feed,
		Tokens:         tokens,
		CookieName:     cfg.Auth.CookieName,
		SecureCookie:   cfg.Auth.SecureCookie,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler,
		ReadTimeout:  config.TTLDuration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: config.TTLDuration(cfg.Server.WriteTimeout, 15*time.Second),
	}

	go func() {
		log.Printf("starting competiquest on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
