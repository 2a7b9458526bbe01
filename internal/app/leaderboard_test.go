package app_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"evolv/internal/app"
	"evolv/internal/domain"
	"evolv/internal/infra/memory"
)

func TestLeaderboardPaging(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for i := 1; i <= 5; i++ {
		caller := domain.Caller{UserID: fmt.Sprintf("u%d", i), Name: fmt.Sprintf("User %d", i)}
		if _, err := f.progress.Create(ctx, caller, app.ProgressInput{Subject: domain.SubjectCoding, TotalScore: i * 100}); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	page, err := f.leaderboard.Page(ctx, "u1", 2, 1, true)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if page.Pagination != (app.Pagination{Total: 5, Limit: 2, Offset: 1}) {
		t.Fatalf("unexpected pagination %+v", page.Pagination)
	}
	if len(page.Leaderboard) != 2 || page.Leaderboard[0].UserID != "u4" || page.Leaderboard[0].Rank != 2 {
		t.Fatalf("unexpected page %+v", page.Leaderboard)
	}
	if page.CurrentUser == nil || page.CurrentUser.Rank != 5 || page.CurrentUser.XP != 100 || page.CurrentUser.TotalUsers != 5 {
		t.Fatalf("unexpected current user block %+v", page.CurrentUser)
	}

	page, err = f.leaderboard.Page(ctx, "u4", 2, 1, true)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if page.CurrentUser != nil {
		t.Fatalf("current user block must be omitted when already on the page")
	}

	page, err = f.leaderboard.Page(ctx, "", 500, 0, false)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if page.Pagination.Limit != 100 {
		t.Fatalf("expected limit capped at 100, got %d", page.Pagination.Limit)
	}
}

func TestLeaderboardPageValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.leaderboard.Page(ctx, "", -1, 0, false)
	expectCode(t, err, "INVALID_LIMIT")
	_, err = f.leaderboard.Page(ctx, "", 10, -1, false)
	expectCode(t, err, "INVALID_OFFSET")
}

func TestLeaderboardTiesKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.answer(t, bob, 3, true)
	f.answer(t, alice, 3, true)

	page, err := f.leaderboard.Page(ctx, "", 10, 0, false)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if page.Leaderboard[0].UserID != bob.UserID || page.Leaderboard[1].UserID != alice.UserID {
		t.Fatalf("expected the earlier user to rank first on a tie, got %+v", page.Leaderboard)
	}
	if page.Leaderboard[0].Rank != 1 || page.Leaderboard[1].Rank != 2 {
		t.Fatalf("ranks must be dense and distinct, got %+v", page.Leaderboard)
	}
}

func TestLeaderboardSubscribeReceivesUpdates(t *testing.T) {
	ctx := context.Background()
	store := newFixture(t).store
	leaderboard := app.NewLeaderboardService(store, 3)
	scoring := newScoring(store, leaderboard)

	ch, cancel, err := leaderboard.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	initial := <-ch
	if initial.Total != 0 || len(initial.Entries) != 0 {
		t.Fatalf("expected empty initial snapshot, got %+v", initial)
	}

	if _, err := scoring.SubmitAnswer(ctx, alice, app.AnswerSubmission{QuizID: 3, SelectedAnswer: 1}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	select {
	case snap := <-ch:
		if snap.Total != 1 || len(snap.Entries) != 1 || snap.Entries[0].XP != 10 {
			t.Fatalf("unexpected snapshot %+v", snap)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for leaderboard update")
	}
}

func TestLeaderboardSlowSubscriberGetsLatest(t *testing.T) {
	ctx := context.Background()
	store := newFixture(t).store
	leaderboard := app.NewLeaderboardService(store, 3)
	scoring := newScoring(store, leaderboard)

	ch, cancel, err := leaderboard.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	// Never read while publishing more snapshots than the buffer holds.
	for i := 0; i < 20; i++ {
		if _, err := scoring.SubmitAnswer(ctx, alice, app.AnswerSubmission{QuizID: 3, SelectedAnswer: 1}); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	cancel()

	var last app.LeaderboardSnapshot
	for snap := range ch {
		last = snap
	}
	if len(last.Entries) != 1 || last.Entries[0].XP != 200 {
		t.Fatalf("expected the latest snapshot to survive, got %+v", last)
	}
	cancel() // idempotent
}

func newScoring(store app.Store, publisher app.LeaderboardPublisher) *app.ScoringService {
	return app.NewScoringService(store, quizRepo(), memory.NewSessionStore(time.Hour), publisher, 0)
}
