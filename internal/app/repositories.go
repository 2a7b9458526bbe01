package app

import (
	"context"
	"time"

	"evolv/internal/domain"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID int64) (domain.QuizItem, error)
	// ListQuizzes returns the subject's items; difficulty 0 means any.
	ListQuizzes(ctx context.Context, subject domain.Subject, difficulty int) ([]domain.QuizItem, error)
}

// SessionRepository abstracts how issued quiz sessions are stored (in-memory, Redis, etc).
type SessionRepository interface {
	Save(ctx context.Context, session domain.QuizSession) error
	Get(ctx context.Context, sessionID string) (domain.QuizSession, error)
	// RecordAttempt increments and returns the attempt count for quizID in the session.
	RecordAttempt(ctx context.Context, sessionID string, quizID int64) (int, error)
}

// ProgressRepository persists per (user, subject) progress rows.
type ProgressRepository interface {
	GetProgress(ctx context.Context, userID string, subject domain.Subject) (domain.Progress, bool, error)
	ListProgress(ctx context.Context, userID string) ([]domain.Progress, error)
	// SaveProgress inserts or updates the (user, subject) row.
	SaveProgress(ctx context.Context, p domain.Progress) (domain.Progress, error)
	// CreateProgress inserts a new row and fails with domain.ErrProgressExists on duplicates.
	CreateProgress(ctx context.Context, p domain.Progress) (domain.Progress, error)
	// DeleteProgress fails with domain.ErrProgressNotFound when no row exists.
	DeleteProgress(ctx context.Context, userID string, subject domain.Subject) error
}

// LeaderboardRepository persists the global leaderboard.
type LeaderboardRepository interface {
	GetLeaderboardEntry(ctx context.Context, userID string) (domain.LeaderboardEntry, bool, error)
	UpsertLeaderboardXP(ctx context.Context, userID, displayName string, xp int, at time.Time) error
	// RecomputeRanks rewrites ranks 1..N by XP descending, ties by insertion order.
	RecomputeRanks(ctx context.Context) error
	LeaderboardPage(ctx context.Context, limit, offset int) ([]domain.LeaderboardEntry, error)
	CountLeaderboard(ctx context.Context) (int, error)
}

// StreakRepository persists daily activity streaks.
type StreakRepository interface {
	GetStreak(ctx context.Context, userID string) (domain.Streak, bool, error)
	SaveStreak(ctx context.Context, s domain.Streak) error
}

// AwardRepository is the achievement ledger.
type AwardRepository interface {
	ListAwards(ctx context.Context, userID string) ([]domain.Award, error)
	// InsertAward reports false when the user already holds the achievement.
	InsertAward(ctx context.Context, award domain.Award) (bool, error)
}

// AchievementCatalog lists achievement definitions ordered by id.
type AchievementCatalog interface {
	ListAchievements(ctx context.Context) ([]domain.Achievement, error)
}

// AnalyticsRepository stores append-only play session records.
type AnalyticsRepository interface {
	AppendAnalytics(ctx context.Context, rec domain.AnalyticsRecord) (domain.AnalyticsRecord, error)
	// ListAnalytics returns the user's records newest first.
	ListAnalytics(ctx context.Context, userID string) ([]domain.AnalyticsRecord, error)
}

// Repositories groups the repositories that take part in an atomic unit.
type Repositories interface {
	ProgressRepository
	LeaderboardRepository
	StreakRepository
	AwardRepository
}

// Store is the persistent backend. Atomic runs fn so that either all of its
// writes become visible or none do, and rank rewrites never interleave.
type Store interface {
	Repositories
	AchievementCatalog
	AnalyticsRepository
	Atomic(ctx context.Context, fn func(repos Repositories) error) error
}
