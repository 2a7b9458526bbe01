package postgres

import (
	"context"
	"fmt"

	"evolv/internal/domain"
	"github.com/uptrace/bun"
)

type quizModel struct {
	bun.BaseModel `bun:"table:quizzes"`

	ID            int64             `bun:"id,pk"`
	Subject       string            `bun:"subject,notnull"`
	Question      string            `bun:"question,notnull"`
	Options       []string          `bun:"options,type:jsonb,notnull"`
	CorrectAnswer int               `bun:"correct_answer,notnull"`
	Difficulty    int               `bun:"difficulty,notnull"`
	AntiCheat     *domain.AntiCheat `bun:"anti_cheat_flags,type:jsonb"`
}

type achievementModel struct {
	bun.BaseModel `bun:"table:achievements"`

	ID          int64  `bun:"id,pk"`
	Name        string `bun:"name,notnull"`
	Description string `bun:"description,notnull"`
	Icon        string `bun:"icon,notnull"`
	Type        string `bun:"type,notnull"`
	Criteria    string `bun:"criteria,type:jsonb,notnull"`
}

// Seed inserts the quiz bank and achievement catalog, keeping rows that
// already exist, and moves the id sequences past the seeded ids.
func Seed(ctx context.Context, db *bun.DB, quizzes []domain.QuizItem, achievements []domain.Achievement) error {
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if len(quizzes) > 0 {
			rows := make([]quizModel, len(quizzes))
			for i, q := range quizzes {
				rows[i] = quizModel{
					ID:            q.ID,
					Subject:       string(q.Subject),
					Question:      q.Question,
					Options:       q.Options,
					CorrectAnswer: q.CorrectAnswer,
					Difficulty:    q.Difficulty,
					AntiCheat:     q.AntiCheat,
				}
			}
			if _, err := tx.NewInsert().Model(&rows).On("CONFLICT (id) DO NOTHING").Exec(ctx); err != nil {
				return fmt.Errorf("seed quizzes: %w", err)
			}
		}

		if len(achievements) > 0 {
			rows := make([]achievementModel, len(achievements))
			for i, a := range achievements {
				rows[i] = achievementModel{
					ID:          a.ID,
					Name:        a.Name,
					Description: a.Description,
					Icon:        a.Icon,
					Type:        string(a.Type),
					Criteria:    string(a.Criteria),
				}
			}
			if _, err := tx.NewInsert().Model(&rows).On("CONFLICT (id) DO NOTHING").Exec(ctx); err != nil {
				return fmt.Errorf("seed achievements: %w", err)
			}
		}

		for _, table := range []string{"quizzes", "achievements"} {
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf(`SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), COALESCE((SELECT MAX(id) FROM %[1]s), 0) + 1, false)`, table),
			); err != nil {
				return fmt.Errorf("reset %s sequence: %w", table, err)
			}
		}
		return nil
	})
}
