package app

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"evolv/internal/domain"
	"github.com/google/uuid"
)

const (
	defaultSessionQuestions = 5
	maxSessionQuestions     = 20
	defaultQuestionTimer    = 60
	defaultMaxAttempts      = 3
	defaultListLimit        = 10
	maxListLimit            = 50
)

// StartRequest asks for a new quiz session. Zero Difficulty means any and
// zero QuestionCount selects the default.
type StartRequest struct {
	Subject       domain.Subject
	Difficulty    int
	QuestionCount int
}

// ListRequest pages through a subject's question bank.
type ListRequest struct {
	Subject    domain.Subject
	Difficulty int
	Limit      int
	Offset     int
	Randomize  bool
}

// QuizService issues quiz sessions and lists questions without answers.
type QuizService struct {
	quizzes  QuizRepository
	sessions SessionRepository
	now      func() time.Time
}

func NewQuizService(quizzes QuizRepository, sessions SessionRepository) *QuizService {
	return &QuizService{quizzes: quizzes, sessions: sessions, now: time.Now}
}

// WithClock is test-only for deterministic timestamps.
func (s *QuizService) WithClock(now func() time.Time) *QuizService {
	s.now = now
	return s
}

// Start selects up to 20 random questions for the subject and stores the
// session so answers can be checked against its limits.
func (s *QuizService) Start(ctx context.Context, userID string, req StartRequest) (domain.QuizSession, error) {
	if userID == "" {
		return domain.QuizSession{}, domain.ErrUnauthorized
	}
	if err := validateSubject(req.Subject); err != nil {
		return domain.QuizSession{}, err
	}
	if req.Difficulty != 0 && !domain.ValidDifficulty(req.Difficulty) {
		return domain.QuizSession{}, domain.Invalid("INVALID_DIFFICULTY", "Difficulty must be an integer between 1 and 3")
	}
	if req.QuestionCount < 0 {
		return domain.QuizSession{}, domain.Invalid("INVALID_QUESTION_COUNT", "Question count must be a positive integer")
	}
	count := req.QuestionCount
	if count == 0 {
		count = defaultSessionQuestions
	}
	if count > maxSessionQuestions {
		count = maxSessionQuestions
	}

	items, err := s.quizzes.ListQuizzes(ctx, req.Subject, req.Difficulty)
	if err != nil {
		return domain.QuizSession{}, err
	}
	if len(items) == 0 {
		return domain.QuizSession{}, domain.ErrNoQuestions
	}
	items = shuffled(items)
	if len(items) > count {
		items = items[:count]
	}

	timer, maxAttempts := defaultQuestionTimer, defaultMaxAttempts
	if flags := items[0].AntiCheat; flags != nil {
		if flags.Timer > 0 {
			timer = flags.Timer
		}
		if flags.MaxAttempts > 0 {
			maxAttempts = flags.MaxAttempts
		}
	}

	questions := make([]domain.PublicQuestion, len(items))
	for i, item := range items {
		questions[i] = item.Public()
	}
	session := domain.QuizSession{
		ID:          "quiz_session_" + uuid.NewString(),
		UserID:      userID,
		Subject:     req.Subject,
		Questions:   questions,
		TimeLimit:   timer * len(questions),
		MaxAttempts: maxAttempts,
		StartedAt:   s.now().UTC(),
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return domain.QuizSession{}, fmt.Errorf("save session: %w", err)
	}
	return session, nil
}

// List returns one page of questions and the total number of matches.
func (s *QuizService) List(ctx context.Context, req ListRequest) ([]domain.PublicQuestion, int, error) {
	if err := validateSubject(req.Subject); err != nil {
		return nil, 0, err
	}
	if req.Difficulty != 0 && !domain.ValidDifficulty(req.Difficulty) {
		return nil, 0, domain.Invalid("INVALID_DIFFICULTY", "Invalid difficulty. Must be 1, 2, or 3")
	}
	limit := req.Limit
	if limit == 0 {
		limit = defaultListLimit
	}
	if limit < 0 {
		return nil, 0, domain.Invalid("INVALID_LIMIT", "Limit must be a positive integer")
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if req.Offset < 0 {
		return nil, 0, domain.Invalid("INVALID_OFFSET", "Offset must be a non-negative integer")
	}

	items, err := s.quizzes.ListQuizzes(ctx, req.Subject, req.Difficulty)
	if err != nil {
		return nil, 0, err
	}
	if len(items) == 0 {
		return nil, 0, domain.ErrNoQuestions
	}
	total := len(items)
	if req.Randomize {
		items = shuffled(items)
	}

	page := []domain.PublicQuestion{}
	for i := req.Offset; i < len(items) && len(page) < limit; i++ {
		page = append(page, items[i].Public())
	}
	return page, total, nil
}

func validateSubject(subject domain.Subject) error {
	if subject == "" {
		return domain.Invalid("MISSING_SUBJECT", "Subject is required")
	}
	if !subject.Valid() {
		return domain.Invalid("INVALID_SUBJECT", "Subject must be one of: coding, vocab, finance")
	}
	return nil
}

// shuffled returns a Fisher-Yates shuffled copy; repositories may hand out shared slices.
func shuffled(items []domain.QuizItem) []domain.QuizItem {
	out := make([]domain.QuizItem, len(items))
	copy(out, items)
	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
