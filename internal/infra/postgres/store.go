package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"evolv/internal/app"
	"evolv/internal/domain"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// rankLockKey serializes scoring transactions so rank rewrites never interleave.
const rankLockKey int64 = 0x65766f6c76 // "evolv"

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Store is the Postgres implementation of app.Store.
type Store struct {
	queries
	pool *pgxpool.Pool
}

var _ app.Store = (*Store)(nil)

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{queries: queries{q: pool}, pool: pool}
}

// Atomic runs fn in one transaction holding a transaction-scoped advisory lock.
func (s *Store) Atomic(ctx context.Context, fn func(repos app.Repositories) error) error {
	return s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, rankLockKey); err != nil {
			return fmt.Errorf("acquire rank lock: %w", err)
		}
		return fn(queries{q: tx})
	})
}

func (s *Store) ListAchievements(ctx context.Context) ([]domain.Achievement, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, description, icon, type, criteria, created_at FROM achievements ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	defer rows.Close()

	out := []domain.Achievement{}
	for rows.Next() {
		var (
			a        domain.Achievement
			typ      string
			criteria []byte
		)
		if err := rows.Scan(&a.ID, &a.Name, &a.Description, &a.Icon, &typ, &criteria, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan achievement: %w", err)
		}
		a.Type = domain.AchievementType(typ)
		a.Criteria = json.RawMessage(criteria)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) AppendAnalytics(ctx context.Context, rec domain.AnalyticsRecord) (domain.AnalyticsRecord, error) {
	achievements, err := json.Marshal(nonNil(rec.Achievements))
	if err != nil {
		return domain.AnalyticsRecord{}, err
	}
	err = s.pool.QueryRow(ctx, `
		INSERT INTO analytics (user_id, session_id, achievements, play_time, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		rec.UserID, rec.SessionID, string(achievements), rec.PlayTime, rec.CreatedAt,
	).Scan(&rec.ID)
	if err != nil {
		return domain.AnalyticsRecord{}, err
	}
	rec.Achievements = nonNil(rec.Achievements)
	return rec, nil
}

func (s *Store) ListAnalytics(ctx context.Context, userID string) ([]domain.AnalyticsRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, session_id, achievements, play_time, created_at
		FROM analytics WHERE user_id=$1
		ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list analytics: %w", err)
	}
	defer rows.Close()

	out := []domain.AnalyticsRecord{}
	for rows.Next() {
		var (
			rec          domain.AnalyticsRecord
			achievements []byte
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.SessionID, &achievements, &rec.PlayTime, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan analytics: %w", err)
		}
		if err := json.Unmarshal(achievements, &rec.Achievements); err != nil {
			return nil, fmt.Errorf("unmarshal analytics achievements: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// queries implements app.Repositories over a pool or a transaction.
type queries struct {
	q querier
}

const progressColumns = `id, user_id, subject, current_level, total_score, answers_count, achievements, offline_sync, updated_at`

func (r queries) GetProgress(ctx context.Context, userID string, subject domain.Subject) (domain.Progress, bool, error) {
	p, err := scanProgress(r.q.QueryRow(ctx,
		`SELECT `+progressColumns+` FROM learning_progress WHERE user_id=$1 AND subject=$2`, userID, string(subject)))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Progress{}, false, nil
	}
	if err != nil {
		return domain.Progress{}, false, fmt.Errorf("get progress: %w", err)
	}
	return p, true, nil
}

func (r queries) ListProgress(ctx context.Context, userID string) ([]domain.Progress, error) {
	rows, err := r.q.Query(ctx, `SELECT `+progressColumns+` FROM learning_progress WHERE user_id=$1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer rows.Close()

	out := []domain.Progress{}
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r queries) SaveProgress(ctx context.Context, p domain.Progress) (domain.Progress, error) {
	p.Achievements = nonNil(p.Achievements)
	achievements, err := json.Marshal(p.Achievements)
	if err != nil {
		return domain.Progress{}, err
	}
	err = r.q.QueryRow(ctx, `
		INSERT INTO learning_progress (user_id, subject, current_level, total_score, answers_count, achievements, offline_sync, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, subject) DO UPDATE SET
			current_level = EXCLUDED.current_level,
			total_score   = EXCLUDED.total_score,
			answers_count = EXCLUDED.answers_count,
			achievements  = EXCLUDED.achievements,
			offline_sync  = EXCLUDED.offline_sync,
			updated_at    = EXCLUDED.updated_at
		RETURNING id`,
		p.UserID, string(p.Subject), p.CurrentLevel, p.TotalScore, p.AnswersCount, string(achievements), p.OfflineSync, p.UpdatedAt,
	).Scan(&p.ID)
	if err != nil {
		return domain.Progress{}, fmt.Errorf("save progress: %w", err)
	}
	return p, nil
}

func (r queries) CreateProgress(ctx context.Context, p domain.Progress) (domain.Progress, error) {
	p.Achievements = nonNil(p.Achievements)
	achievements, err := json.Marshal(p.Achievements)
	if err != nil {
		return domain.Progress{}, err
	}
	err = r.q.QueryRow(ctx, `
		INSERT INTO learning_progress (user_id, subject, current_level, total_score, answers_count, achievements, offline_sync, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, subject) DO NOTHING
		RETURNING id`,
		p.UserID, string(p.Subject), p.CurrentLevel, p.TotalScore, p.AnswersCount, string(achievements), p.OfflineSync, p.UpdatedAt,
	).Scan(&p.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Progress{}, domain.ErrProgressExists
	}
	if err != nil {
		return domain.Progress{}, fmt.Errorf("create progress: %w", err)
	}
	return p, nil
}

func (r queries) DeleteProgress(ctx context.Context, userID string, subject domain.Subject) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM learning_progress WHERE user_id=$1 AND subject=$2`, userID, string(subject))
	if err != nil {
		return fmt.Errorf("delete progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProgressNotFound
	}
	return nil
}

func (r queries) GetLeaderboardEntry(ctx context.Context, userID string) (domain.LeaderboardEntry, bool, error) {
	var e domain.LeaderboardEntry
	err := r.q.QueryRow(ctx,
		`SELECT user_id, display_name, xp, rank, updated_at FROM leaderboard WHERE user_id=$1`, userID,
	).Scan(&e.UserID, &e.DisplayName, &e.XP, &e.Rank, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.LeaderboardEntry{}, false, nil
	}
	if err != nil {
		return domain.LeaderboardEntry{}, false, fmt.Errorf("get leaderboard entry: %w", err)
	}
	return e, true, nil
}

func (r queries) UpsertLeaderboardXP(ctx context.Context, userID, displayName string, xp int, at time.Time) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO leaderboard (user_id, display_name, xp, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			xp           = EXCLUDED.xp,
			updated_at   = EXCLUDED.updated_at,
			display_name = CASE WHEN EXCLUDED.display_name = '' THEN leaderboard.display_name ELSE EXCLUDED.display_name END`,
		userID, displayName, xp, at)
	return err
}

// RecomputeRanks rewrites every rank in one statement, touching only rows
// whose position changed.
func (r queries) RecomputeRanks(ctx context.Context) error {
	_, err := r.q.Exec(ctx, `
		UPDATE leaderboard l SET rank = ranked.pos
		FROM (SELECT id, ROW_NUMBER() OVER (ORDER BY xp DESC, id ASC) AS pos FROM leaderboard) ranked
		WHERE l.id = ranked.id AND l.rank <> ranked.pos`)
	return err
}

func (r queries) LeaderboardPage(ctx context.Context, limit, offset int) ([]domain.LeaderboardEntry, error) {
	rows, err := r.q.Query(ctx, `
		SELECT user_id, display_name, xp, rank, updated_at FROM leaderboard
		ORDER BY xp DESC, id ASC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("leaderboard page: %w", err)
	}
	defer rows.Close()

	out := []domain.LeaderboardEntry{}
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.DisplayName, &e.XP, &e.Rank, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan leaderboard: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r queries) CountLeaderboard(ctx context.Context) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM leaderboard`).Scan(&n)
	return n, err
}

func (r queries) GetStreak(ctx context.Context, userID string) (domain.Streak, bool, error) {
	s := domain.Streak{UserID: userID}
	err := r.q.QueryRow(ctx,
		`SELECT current_streak, longest_streak, last_active FROM user_streaks WHERE user_id=$1`, userID,
	).Scan(&s.Current, &s.Longest, &s.LastActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return s, false, nil
	}
	if err != nil {
		return domain.Streak{}, false, fmt.Errorf("get streak: %w", err)
	}
	return s, true, nil
}

func (r queries) SaveStreak(ctx context.Context, s domain.Streak) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO user_streaks (user_id, current_streak, longest_streak, last_active)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			current_streak = EXCLUDED.current_streak,
			longest_streak = EXCLUDED.longest_streak,
			last_active    = EXCLUDED.last_active`,
		s.UserID, s.Current, s.Longest, s.LastActive)
	return err
}

func (r queries) ListAwards(ctx context.Context, userID string) ([]domain.Award, error) {
	rows, err := r.q.Query(ctx,
		`SELECT user_id, achievement_id, awarded_at FROM user_achievements WHERE user_id=$1 ORDER BY awarded_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list awards: %w", err)
	}
	defer rows.Close()

	out := []domain.Award{}
	for rows.Next() {
		var a domain.Award
		if err := rows.Scan(&a.UserID, &a.AchievementID, &a.AwardedAt); err != nil {
			return nil, fmt.Errorf("scan award: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r queries) InsertAward(ctx context.Context, award domain.Award) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		INSERT INTO user_achievements (user_id, achievement_id, awarded_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, achievement_id) DO NOTHING`,
		award.UserID, award.AchievementID, award.AwardedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func scanProgress(row pgx.Row) (domain.Progress, error) {
	var (
		p            domain.Progress
		subject      string
		achievements []byte
	)
	if err := row.Scan(&p.ID, &p.UserID, &subject, &p.CurrentLevel, &p.TotalScore, &p.AnswersCount, &achievements, &p.OfflineSync, &p.UpdatedAt); err != nil {
		return domain.Progress{}, err
	}
	p.Subject = domain.Subject(subject)
	if err := json.Unmarshal(achievements, &p.Achievements); err != nil {
		return domain.Progress{}, fmt.Errorf("unmarshal achievements: %w", err)
	}
	p.Achievements = nonNil(p.Achievements)
	return p, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
