package cli

import (
	"log"

	"evolv/internal/catalog"
	"evolv/internal/config"
	"evolv/internal/infra/postgres"
	"github.com/spf13/cobra"
)

// NewSeedCmd loads the built-in quiz bank and achievement catalog.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the built-in quizzes and achievements into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			db, err := openBun(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			quizzes, achievements := catalog.Quizzes(), catalog.Achievements()
			if err := postgres.Seed(cmd.Context(), db, quizzes, achievements); err != nil {
				return err
			}
			log.Printf("seeded %d quizzes and %d achievements", len(quizzes), len(achievements))
			return nil
		},
	}
}
