package redis

import (
	"context"
	"testing"
	"time"

	"evolv/internal/domain"
	"evolv/internal/infra/memory"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestQuizRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{QuizLoader: memory.NewStaticQuizLoader(sampleItems())}
	repo := NewQuizRepository(client, loader, time.Minute)

	item, err := repo.GetQuiz(context.Background(), 1)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if item.CorrectAnswer != 1 || len(item.Options) != 2 {
		t.Fatalf("unexpected item %+v", item)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("quiz:item:1") {
		t.Fatalf("expected redis key to be set")
	}

	// Second call should hit cache, loader not incremented.
	_, _ = repo.GetQuiz(context.Background(), 1)
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
}

func TestQuizRepositoryListsSubjectBank(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{QuizLoader: memory.NewStaticQuizLoader(sampleItems())}
	repo := NewQuizRepository(newClient(mr), loader, time.Minute)
	ctx := context.Background()

	items, err := repo.ListQuizzes(ctx, domain.SubjectCoding, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].ID != 2 {
		t.Fatalf("expected item 2 only, got %+v", items)
	}
	all, _ := repo.ListQuizzes(ctx, domain.SubjectCoding, 0)
	if len(all) != 2 {
		t.Fatalf("expected 2 items, got %d", len(all))
	}
	if loader.subjectCalls != 1 {
		t.Fatalf("expected one bank load, got %d", loader.subjectCalls)
	}
	if ttl := mr.TTL("quiz:subject:coding"); ttl < time.Minute {
		t.Fatalf("expected ttl with jitter of at least a minute, got %v", ttl)
	}
}

type countingLoader struct {
	memory.QuizLoader
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
		{ID: 1, Subject: domain.SubjectCoding, Question: "What is 2 + 2?", Options: []string{"3", "4"}, CorrectAnswer: 1, Difficulty: 1},
		{ID: 2, Subject: domain.SubjectCoding, Question: "Which keyword declares a constant?", Options: []string{"var", "const"}, CorrectAnswer: 1, Difficulty: 2,
			AntiCheat: &domain.AntiCheat{Timer: 30, MaxAttempts: 2}},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
