package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"evolv/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const quizColumns = `id, subject, question, options, correct_answer, difficulty, anti_cheat_flags`

// QuizLoader loads quiz items from Postgres.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID int64) (domain.QuizItem, error) {
	item, err := scanQuiz(l.pool.QueryRow(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE id=$1`, quizID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuizItem{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.QuizItem{}, fmt.Errorf("load quiz: %w", err)
	}
	return item, nil
}

func (l *QuizLoader) LoadSubject(ctx context.Context, subject domain.Subject) ([]domain.QuizItem, error) {
	rows, err := l.pool.Query(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE subject=$1 ORDER BY id`, string(subject))
	if err != nil {
		return nil, fmt.Errorf("load subject: %w", err)
	}
	defer rows.Close()

	items := []domain.QuizItem{}
	for rows.Next() {
		item, err := scanQuiz(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanQuiz(row pgx.Row) (domain.QuizItem, error) {
	var (
		item      domain.QuizItem
		subject   string
		options   []byte
		antiCheat []byte
	)
	if err := row.Scan(&item.ID, &subject, &item.Question, &options, &item.CorrectAnswer, &item.Difficulty, &antiCheat); err != nil {
		return domain.QuizItem{}, err
	}
	item.Subject = domain.Subject(subject)
	if err := json.Unmarshal(options, &item.Options); err != nil {
		return domain.QuizItem{}, fmt.Errorf("unmarshal options: %w", err)
	}
	if len(antiCheat) > 0 {
		item.AntiCheat = &domain.AntiCheat{}
		if err := json.Unmarshal(antiCheat, item.AntiCheat); err != nil {
			return domain.QuizItem{}, fmt.Errorf("unmarshal anti-cheat flags: %w", err)
		}
	}
	return item, nil
}
