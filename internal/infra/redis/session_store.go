package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"evolv/internal/domain"
	"github.com/redis/go-redis/v9"
)

// SessionStore keeps issued quiz sessions in Redis so any instance can
// check an answer against them.
// Sessions are stored as: SET  quiz:session:{id}          {session json}
// Attempts are stored as: HSET quiz:session:{id}:attempts {quizID} {count}
// Both keys share the session TTL.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

// storedSession carries the owner, which the API view of a session hides.
type storedSession struct {
	domain.QuizSession
	Owner string `json:"owner"`
}

func (s *SessionStore) Save(ctx context.Context, session domain.QuizSession) error {
	raw, err := json.Marshal(storedSession{QuizSession: session, Owner: session.UserID})
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(session.ID), raw, s.ttl)
	pipe.Del(ctx, s.attemptsKey(session.ID))
	_, err = pipe.Exec(ctx)
	return err
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) (domain.QuizSession, error) {
	raw, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.QuizSession{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.QuizSession{}, fmt.Errorf("get session: %w", err)
	}
	var stored storedSession
	if err := json.Unmarshal(raw, &stored); err != nil {
		return domain.QuizSession{}, fmt.Errorf("decode session: %w", err)
	}
	stored.QuizSession.UserID = stored.Owner
	return stored.QuizSession, nil
}

// recordAttempt bumps the per-question counter only while the session key
// lives and copies its remaining TTL onto the counter hash. Returns -1 when
// the session is gone.
var recordAttempt = redis.NewScript(`
local ttl = redis.call("PTTL", KEYS[1])
if ttl == -2 then
	return -1
end
local n = redis.call("HINCRBY", KEYS[2], ARGV[1], 1)
if ttl > 0 then
	redis.call("PEXPIRE", KEYS[2], ttl)
end
return n
`)

func (s *SessionStore) RecordAttempt(ctx context.Context, sessionID string, quizID int64) (int, error) {
	keys := []string{s.key(sessionID), s.attemptsKey(sessionID)}
	n, err := recordAttempt.Run(ctx, s.client, keys, strconv.FormatInt(quizID, 10)).Int64()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, domain.ErrSessionNotFound
	}
	return int(n), nil
}

func (s *SessionStore) key(sessionID string) string {
	return "quiz:session:" + sessionID
}

func (s *SessionStore) attemptsKey(sessionID string) string {
	return s.key(sessionID) + ":attempts"
}
