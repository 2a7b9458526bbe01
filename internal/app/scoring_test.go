package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"evolv/internal/app"
	"evolv/internal/domain"
)

var (
	alice = domain.Caller{UserID: "u-alice", Name: "Alice"}
	bob   = domain.Caller{UserID: "u-bob", Name: "Bob"}
)

func TestXPForAnswer(t *testing.T) {
	cases := []struct {
		difficulty int
		correct    bool
		want       int
	}{
		{1, true, 10}, {2, true, 20}, {3, true, 30},
		{1, false, 2}, {2, false, 4}, {3, false, 6},
	}
	for _, tc := range cases {
		if got := app.XPForAnswer(tc.difficulty, tc.correct); got != tc.want {
			t.Fatalf("XPForAnswer(%d, %v) = %d, want %d", tc.difficulty, tc.correct, got, tc.want)
		}
	}
}

func TestSubmitAnswerScoresAndExplains(t *testing.T) {
	f := newFixture(t)

	// quiz 1 is coding, difficulty 3, correct option "[1, NaN]".
	res := f.answer(t, alice, 1, true)
	if !res.Correct || res.XPEarned != 30 || res.TotalXP != 30 {
		t.Fatalf("unexpected correct result: %+v", res)
	}
	if res.Explanation != `The correct answer is "[1, NaN]". Well done!` {
		t.Fatalf("unexpected explanation %q", res.Explanation)
	}

	res = f.answer(t, alice, 1, false)
	if res.Correct || res.XPEarned != 6 || res.TotalXP != 36 {
		t.Fatalf("unexpected incorrect result: %+v", res)
	}
	if !strings.HasSuffix(res.Explanation, "Better luck next time!") {
		t.Fatalf("unexpected explanation %q", res.Explanation)
	}
	if res.CorrectAnswer != 1 {
		t.Fatalf("expected correct answer index 1, got %d", res.CorrectAnswer)
	}
}

func TestSubmitAnswerLevelsUp(t *testing.T) {
	f := newFixture(t)

	var res app.AnswerResult
	for i := 0; i < 3; i++ {
		res = f.answer(t, alice, 1, true) // 30 XP each
		if res.LeveledUp {
			t.Fatalf("unexpected level up at %d XP", res.TotalXP)
		}
	}
	res = f.answer(t, alice, 1, true)
	if res.TotalXP != 120 || res.CurrentLevel != 2 || !res.LeveledUp {
		t.Fatalf("expected level up to 2 at 120 XP, got %+v", res)
	}
	res = f.answer(t, alice, 1, true)
	if res.LeveledUp {
		t.Fatalf("level up must only be reported on the crossing answer")
	}
}

func TestSubmitAnswerKeepsSubjectsApart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.answer(t, alice, 1, true)         // coding +30
	res := f.answer(t, alice, 11, true) // vocab +20
	if res.TotalXP != 20 {
		t.Fatalf("expected vocab total 20, got %d", res.TotalXP)
	}

	rows, err := f.store.ListProgress(ctx, alice.UserID)
	if err != nil {
		t.Fatalf("list progress: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected one row per subject, got %d", len(rows))
	}
	for _, p := range rows {
		if p.AnswersCount != 1 {
			t.Fatalf("expected one answer counted for %s, got %d", p.Subject, p.AnswersCount)
		}
	}

	entry, ok, err := f.store.GetLeaderboardEntry(ctx, alice.UserID)
	if err != nil || !ok {
		t.Fatalf("leaderboard entry missing: ok=%v err=%v", ok, err)
	}
	if entry.XP != 50 {
		t.Fatalf("expected leaderboard XP to sum subjects to 50, got %d", entry.XP)
	}
}

func TestSubmitAnswerRanksUsers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.answer(t, alice, 3, true) // 10
	f.answer(t, bob, 1, true)   // 30

	page, err := f.leaderboard.Page(ctx, "", 0, 0, false)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if len(page.Leaderboard) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(page.Leaderboard))
	}
	first, second := page.Leaderboard[0], page.Leaderboard[1]
	if first.UserID != bob.UserID || first.Rank != 1 || second.UserID != alice.UserID || second.Rank != 2 {
		t.Fatalf("unexpected ranking: %+v", page.Leaderboard)
	}
	if first.DisplayName != "Bob" {
		t.Fatalf("expected display name to be stored, got %q", first.DisplayName)
	}
	if f.publisher.count() != 2 {
		t.Fatalf("expected a publish per answer, got %d", f.publisher.count())
	}
}

func TestSubmitAnswerErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.scoring.SubmitAnswer(ctx, alice, app.AnswerSubmission{QuizID: 999}); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
	if _, err := f.scoring.SubmitAnswer(ctx, domain.Caller{}, app.AnswerSubmission{QuizID: 1}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, ok, _ := f.store.GetLeaderboardEntry(ctx, alice.UserID); ok {
		t.Fatalf("failed submissions must not touch the leaderboard")
	}
}

func TestSubmitAnswerAdvancesStreak(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.answer(t, alice, 3, true)
	f.answer(t, alice, 3, true) // same day
	f.clock.Advance(24 * time.Hour)
	f.answer(t, alice, 3, true)

	st, ok, err := f.store.GetStreak(ctx, alice.UserID)
	if err != nil || !ok {
		t.Fatalf("streak missing: ok=%v err=%v", ok, err)
	}
	if st.Current != 2 || st.Longest != 2 {
		t.Fatalf("expected streak 2/2, got %+v", st)
	}

	f.clock.Advance(72 * time.Hour)
	f.answer(t, alice, 3, true)
	st, _, _ = f.store.GetStreak(ctx, alice.UserID)
	if st.Current != 1 || st.Longest != 2 {
		t.Fatalf("expected streak reset to 1 keeping longest 2, got %+v", st)
	}
}

func TestCurrentStreakExpires(t *testing.T) {
	last := time.Date(2024, 11, 20, 23, 0, 0, 0, time.UTC)
	s := domain.Streak{Current: 4, Longest: 4, LastActive: last}

	if got := app.CurrentStreak(s, last.Add(2*time.Hour)); got != 4 {
		t.Fatalf("next day must keep the streak, got %d", got)
	}
	if got := app.CurrentStreak(s, last.Add(49*time.Hour)); got != 0 {
		t.Fatalf("a missed day must break the streak, got %d", got)
	}
	if got := app.CurrentStreak(domain.Streak{}, last); got != 0 {
		t.Fatalf("no activity means no streak, got %d", got)
	}
}

func TestSubmitAnswerSessionChecks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	session, err := f.quizzes.Start(ctx, alice.UserID, app.StartRequest{Subject: domain.SubjectCoding, QuestionCount: 2})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	issued := session.Questions[0].ID
	var foreign int64 = 11 // vocab, never in a coding session

	submit := func(caller domain.Caller, quizID int64) error {
		_, err := f.scoring.SubmitAnswer(ctx, caller, app.AnswerSubmission{QuizID: quizID, SessionID: session.ID})
		return err
	}

	if err := submit(bob, issued); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected another user's session to be hidden, got %v", err)
	}
	expectCode(t, submit(alice, foreign), "QUIZ_NOT_IN_SESSION")

	// A reported time beyond the limit is refused without using an attempt.
	_, err = f.scoring.SubmitAnswer(ctx, alice, app.AnswerSubmission{QuizID: issued, SessionID: session.ID, TimeSpent: session.TimeLimit + 31})
	expectCode(t, err, "SESSION_EXPIRED")
	if _, err := f.scoring.SubmitAnswer(ctx, alice, app.AnswerSubmission{QuizID: issued, SessionID: session.ID, TimeSpent: session.TimeLimit}); err != nil {
		t.Fatalf("time within the limit: %v", err)
	}

	for i := 1; i < session.MaxAttempts; i++ {
		if err := submit(alice, issued); err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}
	expectCode(t, submit(alice, issued), "MAX_ATTEMPTS_EXCEEDED")

	if _, err := f.scoring.SubmitAnswer(ctx, alice, app.AnswerSubmission{QuizID: issued, SessionID: "quiz_session_missing"}); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}

	f.clock.Advance(time.Duration(session.TimeLimit)*time.Second + 31*time.Second)
	expectCode(t, submit(alice, session.Questions[1].ID), "SESSION_EXPIRED")
}
