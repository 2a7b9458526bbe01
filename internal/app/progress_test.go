package app_test

import (
	"context"
	"errors"
	"testing"

	"evolv/internal/app"
	"evolv/internal/domain"
)

func TestProgressLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.progress.Create(ctx, alice, app.ProgressInput{Subject: domain.SubjectVocab, TotalScore: 230, OfflineSync: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.CurrentLevel != 3 || created.ID == 0 || !created.OfflineSync {
		t.Fatalf("unexpected created row %+v", created)
	}
	if created.Achievements == nil {
		t.Fatalf("achievements must default to an empty list")
	}

	if _, err := f.progress.Create(ctx, alice, app.ProgressInput{Subject: domain.SubjectVocab}); !errors.Is(err, domain.ErrProgressExists) {
		t.Fatalf("expected ErrProgressExists, got %v", err)
	}

	score := 40
	updated, err := f.progress.Update(ctx, alice, domain.SubjectVocab, app.ProgressUpdate{TotalScore: &score, Achievements: []string{"First Quiz"}})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.TotalScore != 40 || updated.CurrentLevel != 1 || updated.ID != created.ID || !updated.OfflineSync {
		t.Fatalf("unexpected updated row %+v", updated)
	}

	rows, err := f.progress.List(ctx, alice.UserID, domain.SubjectVocab)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || len(rows[0].Achievements) != 1 {
		t.Fatalf("unexpected rows %+v", rows)
	}

	entry, _, _ := f.store.GetLeaderboardEntry(ctx, alice.UserID)
	if entry.XP != 40 || entry.Rank != 1 {
		t.Fatalf("expected leaderboard resynced to 40 XP, got %+v", entry)
	}

	if err := f.progress.Delete(ctx, alice, domain.SubjectVocab); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := f.progress.Delete(ctx, alice, domain.SubjectVocab); !errors.Is(err, domain.ErrProgressNotFound) {
		t.Fatalf("expected ErrProgressNotFound, got %v", err)
	}
	entry, _, _ = f.store.GetLeaderboardEntry(ctx, alice.UserID)
	if entry.XP != 0 {
		t.Fatalf("expected leaderboard XP to drop to 0 after delete, got %d", entry.XP)
	}
	if f.publisher.count() != 3 {
		t.Fatalf("expected a publish per committed mutation, got %d", f.publisher.count())
	}
}

func TestProgressUpdateMissing(t *testing.T) {
	f := newFixture(t)
	score := 10
	_, err := f.progress.Update(context.Background(), alice, domain.SubjectFinance, app.ProgressUpdate{TotalScore: &score})
	if !errors.Is(err, domain.ErrProgressNotFound) {
		t.Fatalf("expected ErrProgressNotFound, got %v", err)
	}
	if _, ok, _ := f.store.GetLeaderboardEntry(context.Background(), alice.UserID); ok {
		t.Fatalf("failed update must roll back the leaderboard sync")
	}
}

func TestProgressValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.progress.Create(ctx, alice, app.ProgressInput{})
	expectCode(t, err, "MISSING_SUBJECT")
	_, err = f.progress.Create(ctx, alice, app.ProgressInput{Subject: "art"})
	expectCode(t, err, "INVALID_SUBJECT")
	_, err = f.progress.Create(ctx, alice, app.ProgressInput{Subject: domain.SubjectCoding, TotalScore: -1})
	expectCode(t, err, "INVALID_TOTAL_SCORE")
	_, err = f.progress.List(ctx, alice.UserID, "art")
	expectCode(t, err, "INVALID_SUBJECT")
	if _, err := f.progress.List(ctx, "", ""); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestProgressApplyIncrements(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	offline := true

	first, created, err := f.progress.Apply(ctx, alice, app.ProgressDelta{
		Subject:         domain.SubjectCoding,
		ScoreIncrement:  30,
		NewAchievements: []string{"First Quiz"},
		OfflineSync:     &offline,
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !created || first.TotalScore != 30 || first.CurrentLevel != 1 || !first.OfflineSync {
		t.Fatalf("unexpected first row created=%v %+v", created, first)
	}

	second, created, err := f.progress.Apply(ctx, alice, app.ProgressDelta{
		Subject:         domain.SubjectCoding,
		ScoreIncrement:  80,
		NewAchievements: []string{"First Quiz", "Code Ninja", "Code Ninja"},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if created || second.ID != first.ID || second.TotalScore != 110 || second.CurrentLevel != 2 {
		t.Fatalf("unexpected second row created=%v %+v", created, second)
	}
	if len(second.Achievements) != 2 || second.Achievements[0] != "First Quiz" || second.Achievements[1] != "Code Ninja" {
		t.Fatalf("expected merged achievements without duplicates, got %v", second.Achievements)
	}
	if !second.OfflineSync {
		t.Fatalf("offline flag must be kept when not supplied")
	}

	entry, _, _ := f.store.GetLeaderboardEntry(ctx, alice.UserID)
	if entry.XP != 110 || entry.Rank != 1 {
		t.Fatalf("expected leaderboard resynced to 110 XP, got %+v", entry)
	}

	floored, _, err := f.progress.Apply(ctx, alice, app.ProgressDelta{Subject: domain.SubjectCoding, ScoreIncrement: -500})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if floored.TotalScore != 0 || floored.CurrentLevel != 1 || len(floored.Achievements) != 2 {
		t.Fatalf("unexpected floored row %+v", floored)
	}
	if f.publisher.count() != 3 {
		t.Fatalf("expected a publish per apply, got %d", f.publisher.count())
	}

	_, _, err = f.progress.Apply(ctx, alice, app.ProgressDelta{})
	expectCode(t, err, "MISSING_SUBJECT")
	_, _, err = f.progress.Apply(ctx, alice, app.ProgressDelta{Subject: "art"})
	expectCode(t, err, "INVALID_SUBJECT")
	if _, _, err := f.progress.Apply(ctx, domain.Caller{}, app.ProgressDelta{Subject: domain.SubjectCoding}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
