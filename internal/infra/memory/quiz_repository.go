package memory

import (
	"context"
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"time"

	"evolv/internal/domain"
	"golang.org/x/sync/singleflight"
)

// QuizLoader fetches quiz content from a backing store (e.g., Postgres).
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID int64) (domain.QuizItem, error)
	// LoadSubject returns every item of the subject ordered by id.
	LoadSubject(ctx context.Context, subject domain.Subject) ([]domain.QuizItem, error)
}

// QuizRepository caches single items and whole subject banks with TTL to
// avoid repeated DB hits.
type QuizRepository struct {
	loader QuizLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedEntry
}

type cachedEntry struct {
	value     interface{}
	expiresAt time.Time
}

func NewQuizRepository(loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedEntry),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID int64) (domain.QuizItem, error) {
	v, err := r.load(ctx, "quiz:"+strconv.FormatInt(quizID, 10), func() (interface{}, error) {
		return r.loader.LoadQuiz(ctx, quizID)
	})
	if err != nil {
		return domain.QuizItem{}, err
	}
	return v.(domain.QuizItem), nil
}

// ListQuizzes serves the subject bank from cache and filters by difficulty.
// The returned slice is owned by the caller.
func (r *QuizRepository) ListQuizzes(ctx context.Context, subject domain.Subject, difficulty int) ([]domain.QuizItem, error) {
	v, err := r.load(ctx, "subject:"+string(subject), func() (interface{}, error) {
		return r.loader.LoadSubject(ctx, subject)
	})
	if err != nil {
		return nil, err
	}
	bank := v.([]domain.QuizItem)
	out := make([]domain.QuizItem, 0, len(bank))
	for _, item := range bank {
		if difficulty == 0 || item.Difficulty == difficulty {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *QuizRepository) load(ctx context.Context, key string, fill func() (interface{}, error)) (interface{}, error) {
	if v, ok := r.lookup(key); ok {
		return v, nil
	}

	v, err, _ := r.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if v, ok := r.lookup(key); ok {
			return v, nil
		}
		v, err := fill()
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.cache[key] = cachedEntry{value: v, expiresAt: r.clock().Add(r.ttlWithJitter())}
		r.mu.Unlock()
		return v, nil
	})
	return v, err
}

func (r *QuizRepository) lookup(key string) (interface{}, bool) {
	now := r.clock()
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.cache[key]; ok && entry.expiresAt.After(now) {
		return entry.value, true
	}
	return nil, false
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticQuizLoader is a loader backed by an in-memory bank (built-in catalog, tests).
type StaticQuizLoader struct {
	byID      map[int64]domain.QuizItem
	bySubject map[domain.Subject][]domain.QuizItem
}

func NewStaticQuizLoader(items []domain.QuizItem) *StaticQuizLoader {
	l := &StaticQuizLoader{
		byID:      make(map[int64]domain.QuizItem, len(items)),
		bySubject: make(map[domain.Subject][]domain.QuizItem),
	}
	for _, item := range items {
		l.byID[item.ID] = item
		l.bySubject[item.Subject] = append(l.bySubject[item.Subject], item)
	}
	for _, bank := range l.bySubject {
		sort.Slice(bank, func(i, j int) bool { return bank[i].ID < bank[j].ID })
	}
	return l
}

func (l *StaticQuizLoader) LoadQuiz(_ context.Context, quizID int64) (domain.QuizItem, error) {
	if item, ok := l.byID[quizID]; ok {
		return item, nil
	}
	return domain.QuizItem{}, domain.ErrQuizNotFound
}

func (l *StaticQuizLoader) LoadSubject(_ context.Context, subject domain.Subject) ([]domain.QuizItem, error) {
	bank := l.bySubject[subject]
	out := make([]domain.QuizItem, len(bank))
	copy(out, bank)
	return out, nil
}
