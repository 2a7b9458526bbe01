package app

import (
	"context"
	"fmt"
	"time"

	"evolv/internal/domain"
)

// AnswerSubmission models the scoring signal from clients. TimeSpent is the
// client-reported seconds spent; within a session it may not exceed the
// session time limit.
type AnswerSubmission struct {
	QuizID         int64
	SelectedAnswer int
	SessionID      string
	TimeSpent      int
}

// AnswerResult summarizes the outcome of a submission for a single user.
type AnswerResult struct {
	Correct       bool   `json:"correct"`
	CorrectAnswer int    `json:"correctAnswer"`
	Explanation   string `json:"explanation"`
	XPEarned      int    `json:"xpEarned"`
	TotalXP       int    `json:"totalXp"`
	CurrentLevel  int    `json:"currentLevel"`
	LeveledUp     bool   `json:"leveledUp"`
}

// LeaderboardPublisher is notified after leaderboard-affecting commits.
type LeaderboardPublisher interface {
	Publish(ctx context.Context)
}

// ScoringService turns answers into XP, levels, streaks and ranks.
type ScoringService struct {
	store     Store
	quizzes   QuizRepository
	sessions  SessionRepository
	publisher LeaderboardPublisher
	grace     time.Duration
	now       func() time.Time
}

func NewScoringService(store Store, quizzes QuizRepository, sessions SessionRepository, publisher LeaderboardPublisher, grace time.Duration) *ScoringService {
	return &ScoringService{
		store:     store,
		quizzes:   quizzes,
		sessions:  sessions,
		publisher: publisher,
		grace:     grace,
		now:       time.Now,
	}
}

// WithClock is test-only for deterministic timestamps.
func (s *ScoringService) WithClock(now func() time.Time) *ScoringService {
	s.now = now
	return s
}

// XPForAnswer is difficulty×10 for a correct answer and difficulty×2 otherwise.
func XPForAnswer(difficulty int, correct bool) int {
	if correct {
		return difficulty * 10
	}
	return difficulty * 2
}

// SubmitAnswer scores an answer and atomically updates progress, streak,
// leaderboard XP and ranks.
func (s *ScoringService) SubmitAnswer(ctx context.Context, caller domain.Caller, sub AnswerSubmission) (AnswerResult, error) {
	if caller.UserID == "" {
		return AnswerResult{}, domain.ErrUnauthorized
	}
	quiz, err := s.quizzes.GetQuiz(ctx, sub.QuizID)
	if err != nil {
		return AnswerResult{}, err
	}

	if sub.SessionID != "" {
		if err := s.checkSession(ctx, caller.UserID, quiz.ID, sub); err != nil {
			return AnswerResult{}, err
		}
	}

	correct := sub.SelectedAnswer == quiz.CorrectAnswer
	xp := XPForAnswer(quiz.Difficulty, correct)
	now := s.now()

	var result AnswerResult
	err = s.store.Atomic(ctx, func(repos Repositories) error {
		progress, ok, err := repos.GetProgress(ctx, caller.UserID, quiz.Subject)
		if err != nil {
			return fmt.Errorf("load progress: %w", err)
		}
		if !ok {
			progress = domain.Progress{
				UserID:       caller.UserID,
				Subject:      quiz.Subject,
				CurrentLevel: 1,
			}
		}

		oldLevel := progress.CurrentLevel
		progress.TotalScore += xp
		progress.CurrentLevel = domain.LevelForScore(progress.TotalScore)
		progress.AnswersCount++
		progress.UpdatedAt = now
		if _, err := repos.SaveProgress(ctx, progress); err != nil {
			return fmt.Errorf("save progress: %w", err)
		}

		streak, _, err := repos.GetStreak(ctx, caller.UserID)
		if err != nil {
			return fmt.Errorf("load streak: %w", err)
		}
		streak.UserID = caller.UserID
		if err := repos.SaveStreak(ctx, AdvanceStreak(streak, now)); err != nil {
			return fmt.Errorf("save streak: %w", err)
		}

		if _, err := syncLeaderboard(ctx, repos, caller, now); err != nil {
			return err
		}

		result = AnswerResult{
			Correct:       correct,
			CorrectAnswer: quiz.CorrectAnswer,
			Explanation:   explain(quiz, correct),
			XPEarned:      xp,
			TotalXP:       progress.TotalScore,
			CurrentLevel:  progress.CurrentLevel,
			LeveledUp:     progress.CurrentLevel > oldLevel,
		}
		return nil
	})
	if err != nil {
		return AnswerResult{}, err
	}

	if s.publisher != nil {
		s.publisher.Publish(ctx)
	}
	return result, nil
}

func (s *ScoringService) checkSession(ctx context.Context, userID string, quizID int64, sub AnswerSubmission) error {
	session, err := s.sessions.Get(ctx, sub.SessionID)
	if err != nil {
		return err
	}
	if session.UserID != userID {
		return domain.ErrSessionNotFound
	}
	if !session.Contains(quizID) {
		return domain.Invalid("QUIZ_NOT_IN_SESSION", "Quiz was not issued in this session")
	}
	limit := time.Duration(session.TimeLimit)*time.Second + s.grace
	if s.now().After(session.StartedAt.Add(limit)) || time.Duration(sub.TimeSpent)*time.Second > limit {
		return domain.Invalid("SESSION_EXPIRED", "Quiz session time limit exceeded")
	}
	attempts, err := s.sessions.RecordAttempt(ctx, sub.SessionID, quizID)
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	if attempts > session.MaxAttempts {
		return domain.Invalid("MAX_ATTEMPTS_EXCEEDED", fmt.Sprintf("Maximum of %d attempts reached for this question", session.MaxAttempts))
	}
	return nil
}

// syncLeaderboard sets the caller's XP to the sum of their subject scores and
// rewrites all ranks. It returns the new XP.
func syncLeaderboard(ctx context.Context, repos Repositories, caller domain.Caller, now time.Time) (int, error) {
	all, err := repos.ListProgress(ctx, caller.UserID)
	if err != nil {
		return 0, fmt.Errorf("list progress: %w", err)
	}
	xp := 0
	for _, p := range all {
		xp += p.TotalScore
	}
	if err := repos.UpsertLeaderboardXP(ctx, caller.UserID, caller.Name, xp, now); err != nil {
		return 0, fmt.Errorf("update leaderboard: %w", err)
	}
	if err := repos.RecomputeRanks(ctx); err != nil {
		return 0, fmt.Errorf("recompute ranks: %w", err)
	}
	return xp, nil
}

// AdvanceStreak applies one activity at now: consecutive days extend the
// streak, same-day activity keeps it, any gap restarts it at 1.
func AdvanceStreak(s domain.Streak, now time.Time) domain.Streak {
	today := day(now)
	switch {
	case s.LastActive.IsZero() || s.Current == 0:
		s.Current = 1
	case day(s.LastActive).Equal(today):
	case day(s.LastActive).AddDate(0, 0, 1).Equal(today):
		s.Current++
	default:
		s.Current = 1
	}
	if s.Current > s.Longest {
		s.Longest = s.Current
	}
	s.LastActive = now
	return s
}

// CurrentStreak is the streak still alive at now; missing a whole day breaks it.
func CurrentStreak(s domain.Streak, now time.Time) int {
	if s.LastActive.IsZero() {
		return 0
	}
	if day(s.LastActive).AddDate(0, 0, 1).Before(day(now)) {
		return 0
	}
	return s.Current
}

func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func explain(quiz domain.QuizItem, correct bool) string {
	answer := fmt.Sprintf("option %d", quiz.CorrectAnswer)
	if quiz.CorrectAnswer >= 0 && quiz.CorrectAnswer < len(quiz.Options) {
		answer = quiz.Options[quiz.CorrectAnswer]
	}
	if correct {
		return fmt.Sprintf("The correct answer is \"%s\". Well done!", answer)
	}
	return fmt.Sprintf("The correct answer is \"%s\". Better luck next time!", answer)
}
