package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"evolv/internal/app"
	"evolv/internal/catalog"
	"evolv/internal/domain"
	"evolv/internal/infra/memory"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 11, 20, 10, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type countingPublisher struct {
	mu    sync.Mutex
	calls int
}

func (p *countingPublisher) Publish(context.Context) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
}

func (p *countingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fixture struct {
	clock        *clock
	store        *memory.Store
	sessions     *memory.SessionStore
	publisher    *countingPublisher
	quizzes      *app.QuizService
	scoring      *app.ScoringService
	achievements *app.AchievementService
	leaderboard  *app.LeaderboardService
	analytics    *app.AnalyticsService
	progress     *app.ProgressService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clock:     newClock(),
		store:     memory.NewStore(catalog.Achievements()),
		sessions:  memory.NewSessionStore(time.Hour),
		publisher: &countingPublisher{},
	}
	repo := quizRepo()
	f.quizzes = app.NewQuizService(repo, f.sessions).WithClock(f.clock.Now)
	f.scoring = app.NewScoringService(f.store, repo, f.sessions, f.publisher, 30*time.Second).WithClock(f.clock.Now)
	f.achievements = app.NewAchievementService(f.store).WithClock(f.clock.Now)
	f.leaderboard = app.NewLeaderboardService(f.store, 10)
	f.analytics = app.NewAnalyticsService(f.store).WithClock(f.clock.Now)
	f.progress = app.NewProgressService(f.store, f.publisher).WithClock(f.clock.Now)
	return f
}

func quizRepo() *memory.QuizRepository {
	return memory.NewQuizRepository(memory.NewStaticQuizLoader(catalog.Quizzes()), time.Minute)
}

// answer submits a correct or incorrect answer to a catalog question.
func (f *fixture) answer(t *testing.T, caller domain.Caller, quizID int64, correct bool) app.AnswerResult {
	t.Helper()
	selected := correctAnswers[quizID]
	if !correct {
		selected = (selected + 1) % 4
	}
	res, err := f.scoring.SubmitAnswer(context.Background(), caller, app.AnswerSubmission{QuizID: quizID, SelectedAnswer: selected})
	if err != nil {
		t.Fatalf("submit answer %d: %v", quizID, err)
	}
	return res
}

var correctAnswers = func() map[int64]int {
	out := make(map[int64]int)
	for _, q := range catalog.Quizzes() {
		out[q.ID] = q.CorrectAnswer
	}
	return out
}()

func expectCode(t *testing.T, err error, code string) {
	t.Helper()
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error %s, got %v", code, err)
	}
	if verr.Code != code {
		t.Fatalf("expected code %s, got %s", code, verr.Code)
	}
}
