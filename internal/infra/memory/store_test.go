package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"evolv/internal/app"
	"evolv/internal/domain"
)

func TestStoreRanksByXPThenInsertion(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	err := store.Atomic(ctx, func(repos app.Repositories) error {
		_ = repos.UpsertLeaderboardXP(ctx, "alice", "Alice", 50, at)
		_ = repos.UpsertLeaderboardXP(ctx, "bob", "Bob", 80, at)
		_ = repos.UpsertLeaderboardXP(ctx, "carol", "Carol", 50, at)
		return repos.RecomputeRanks(ctx)
	})
	if err != nil {
		t.Fatalf("atomic: %v", err)
	}

	page, err := store.LeaderboardPage(ctx, 10, 0)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	want := []string{"bob", "alice", "carol"}
	for i, e := range page {
		if e.UserID != want[i] || e.Rank != i+1 {
			t.Fatalf("position %d: expected %s rank %d, got %+v", i, want[i], i+1, e)
		}
	}

	// An empty display name keeps the stored one.
	_ = store.UpsertLeaderboardXP(ctx, "alice", "", 60, at)
	e, _, _ := store.GetLeaderboardEntry(ctx, "alice")
	if e.DisplayName != "Alice" {
		t.Fatalf("expected display name kept, got %q", e.DisplayName)
	}
}

func TestStoreAtomicRollsBack(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)
	boom := errors.New("boom")

	err := store.Atomic(ctx, func(repos app.Repositories) error {
		if _, err := repos.SaveProgress(ctx, domain.Progress{UserID: "u1", Subject: domain.SubjectCoding, TotalScore: 40}); err != nil {
			return err
		}
		_ = repos.UpsertLeaderboardXP(ctx, "u1", "", 40, time.Now())
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, ok, _ := store.GetProgress(ctx, "u1", domain.SubjectCoding); ok {
		t.Fatalf("progress write should have been rolled back")
	}
	if n, _ := store.CountLeaderboard(ctx); n != 0 {
		t.Fatalf("leaderboard write should have been rolled back, count %d", n)
	}
}

func TestStoreProgressConflictsAndDeletes(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)
	p := domain.Progress{UserID: "u1", Subject: domain.SubjectVocab, TotalScore: 10, CurrentLevel: 1}

	created, err := store.CreateProgress(ctx, p)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == 0 {
		t.Fatalf("expected id assigned")
	}
	if _, err := store.CreateProgress(ctx, p); !errors.Is(err, domain.ErrProgressExists) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := store.DeleteProgress(ctx, "u1", domain.SubjectVocab); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.DeleteProgress(ctx, "u1", domain.SubjectVocab); !errors.Is(err, domain.ErrProgressNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStoreAwardsAreUnique(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)
	award := domain.Award{UserID: "u1", AchievementID: 3, AwardedAt: time.Now()}

	if ok, _ := store.InsertAward(ctx, award); !ok {
		t.Fatalf("expected first insert to succeed")
	}
	if ok, _ := store.InsertAward(ctx, award); ok {
		t.Fatalf("expected duplicate insert to be ignored")
	}
	awards, _ := store.ListAwards(ctx, "u1")
	if len(awards) != 1 {
		t.Fatalf("expected one award, got %d", len(awards))
	}
}

func TestStoreAnalyticsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	_, _ = store.AppendAnalytics(ctx, domain.AnalyticsRecord{UserID: "u1", SessionID: "a", CreatedAt: base})
	_, _ = store.AppendAnalytics(ctx, domain.AnalyticsRecord{UserID: "u2", SessionID: "x", CreatedAt: base})
	_, _ = store.AppendAnalytics(ctx, domain.AnalyticsRecord{UserID: "u1", SessionID: "b", CreatedAt: base.Add(time.Hour)})

	recs, err := store.ListAnalytics(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 2 || recs[0].SessionID != "b" || recs[1].SessionID != "a" {
		t.Fatalf("unexpected order: %+v", recs)
	}
}
