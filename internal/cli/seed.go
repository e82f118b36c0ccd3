package cli

import (
	"context"
	"fmt"
	"log"

	"competiquest/internal/config"
	"competiquest/internal/infra/postgres"
	"competiquest/internal/seed"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
)

// NewSeedCmd loads the demo topics and questions into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load demo topics and questions into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath)
		},
	}
}

func runSeed(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}
	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	catalog := postgres.NewCatalog(pool)
	for _, t := range seed.Topics() {
		if err := catalog.UpsertTopic(ctx, t); err != nil {
			return fmt.Errorf("seed topic %s: %w", t.ID, err)
		}
	}
	questions := seed.Questions()
	for _, q := range questions {
		if err := catalog.UpsertQuestion(ctx, q); err != nil {
			return fmt.Errorf("seed question %s: %w", q.ID, err)
		}
	}
	log.Printf("seeded %d topics and %d questions", len(seed.Topics()), len(questions))
	return nil
}
