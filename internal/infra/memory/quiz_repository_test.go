package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"evolv/internal/domain"
)

func TestQuizRepositoryCaches(t *testing.T) {
	loader := &countingLoader{QuizLoader: NewStaticQuizLoader(sampleItems())}
	repo := NewQuizRepository(loader, time.Minute)

	if _, err := repo.GetQuiz(context.Background(), 1); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.GetQuiz(context.Background(), 1); err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestQuizRepositoryFiltersCachedBank(t *testing.T) {
	loader := &countingLoader{QuizLoader: NewStaticQuizLoader(sampleItems())}
	repo := NewQuizRepository(loader, time.Minute)
	ctx := context.Background()

	all, err := repo.ListQuizzes(ctx, domain.SubjectCoding, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 coding items, got %d", len(all))
	}

	hard, err := repo.ListQuizzes(ctx, domain.SubjectCoding, 2)
	if err != nil {
		t.Fatalf("list difficulty: %v", err)
	}
	if len(hard) != 1 || hard[0].ID != 2 {
		t.Fatalf("expected only item 2, got %+v", hard)
	}
	if loader.subjectCalls != 1 {
		t.Fatalf("expected one bank load, got %d", loader.subjectCalls)
	}

	// Mutating a returned slice must not leak into the cache.
	hard[0].Question = "changed"
	again, _ := repo.ListQuizzes(ctx, domain.SubjectCoding, 2)
	if again[0].Question == "changed" {
		t.Fatalf("cached bank was mutated through a returned slice")
	}
}

func TestQuizRepositoryExpires(t *testing.T) {
	loader := &countingLoader{QuizLoader: NewStaticQuizLoader(sampleItems())}
	repo := NewQuizRepository(loader, time.Minute)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	repo.clock = func() time.Time { return now }

	_, _ = repo.GetQuiz(context.Background(), 1)
	now = now.Add(2 * time.Minute)
	_, _ = repo.GetQuiz(context.Background(), 1)
	if loader.calls != 2 {
		t.Fatalf("expected reload after ttl, loader calls %d", loader.calls)
	}
}

func TestStaticQuizLoaderMissing(t *testing.T) {
	loader := NewStaticQuizLoader(sampleItems())
	if _, err := loader.LoadQuiz(context.Background(), 99); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

type countingLoader struct {
	QuizLoader
	calls        int
	subjectCalls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID int64) (domain.QuizItem, error) {
	l.calls++
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

func (l *countingLoader) LoadSubject(ctx context.Context, subject domain.Subject) ([]domain.QuizItem, error) {
	l.subjectCalls++
	return l.QuizLoader.LoadSubject(ctx, subject)
}

func sampleItems() []domain.QuizItem {
	return []domain.QuizItem{
		{ID: 2, Subject: domain.SubjectCoding, Question: "Which keyword declares a constant?", Options: []string{"var", "const"}, CorrectAnswer: 1, Difficulty: 2},
		{ID: 1, Subject: domain.SubjectCoding, Question: "What is 2 + 2?", Options: []string{"3", "4"}, CorrectAnswer: 1, Difficulty: 1},
		{ID: 3, Subject: domain.SubjectVocab, Question: "Synonym of quick?", Options: []string{"fast", "slow"}, CorrectAnswer: 0, Difficulty: 1},
	}
}
