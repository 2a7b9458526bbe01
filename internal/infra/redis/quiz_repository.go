package redis

import (
	"context"
	"encoding/json"
	"log"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"evolv/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuizLoader fetches quiz content from a backing store (e.g., Postgres).
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID int64) (domain.QuizItem, error)
	LoadSubject(ctx context.Context, subject domain.Subject) ([]domain.QuizItem, error)
}

// QuizRepository caches quiz items in Redis as JSON and falls back to a loader on cache miss.
// Items are stored as:        SET quiz:item:{id}          {item json}
// Subject banks are stored as: SET quiz:subject:{subject} {[]item json}
type QuizRepository struct {
	client *redis.Client
	loader QuizLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuizRepository(client *redis.Client, loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID int64) (domain.QuizItem, error) {
	var item domain.QuizItem
	err := r.cached(ctx, r.itemKey(quizID), &item, func() (interface{}, error) {
		return r.loader.LoadQuiz(ctx, quizID)
	})
	return item, err
}

func (r *QuizRepository) ListQuizzes(ctx context.Context, subject domain.Subject, difficulty int) ([]domain.QuizItem, error) {
	var bank []domain.QuizItem
	err := r.cached(ctx, r.subjectKey(subject), &bank, func() (interface{}, error) {
		return r.loader.LoadSubject(ctx, subject)
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.QuizItem, 0, len(bank))
	for _, item := range bank {
		if difficulty == 0 || item.Difficulty == difficulty {
			out = append(out, item)
		}
	}
	return out, nil
}

// cached decodes key into dst, filling it through load on a miss. Cache
// write failures are logged; the loaded value is still served.
func (r *QuizRepository) cached(ctx context.Context, key string, dst interface{}, load func() (interface{}, error)) error {
	if raw, err := r.client.Get(ctx, key).Bytes(); err == nil {
		if err := json.Unmarshal(raw, dst); err == nil {
			return nil
		}
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if raw, err := r.client.Get(ctx, key).Bytes(); err == nil {
			return raw, nil
		}
		v, err := load()
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		if err := r.client.Set(ctx, key, raw, r.ttlWithJitter()).Err(); err != nil {
			log.Printf("quiz cache set %s: %v", key, err)
		}
		return raw, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(result.([]byte), dst)
}

func (r *QuizRepository) itemKey(quizID int64) string {
	return "quiz:item:" + strconv.FormatInt(quizID, 10)
}

func (r *QuizRepository) subjectKey(subject domain.Subject) string {
	return "quiz:subject:" + string(subject)
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
