package app

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"evolv/internal/domain"
	"golang.org/x/sync/errgroup"
)

// AwardRequest is the signal sent after a quiz round completes.
type AwardRequest struct {
	Subject          domain.Subject
	ScoreIncrement   int
	QuizzesCompleted int
}

// AwardedAchievement is an achievement unlocked by the current evaluation.
type AwardedAchievement struct {
	domain.Achievement
	AwardedAt time.Time `json:"awardedAt"`
}

// AwardResult lists newly unlocked achievements with a user-facing message.
type AwardResult struct {
	NewAchievements []AwardedAchievement `json:"newAchievements"`
	Message         string               `json:"message"`
}

// AchievementView is one catalog entry annotated for a user.
type AchievementView struct {
	ID          int64                  `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Icon        string                 `json:"icon"`
	Type        domain.AchievementType `json:"type"`
	Earned      bool                   `json:"earned"`
	AwardedAt   *time.Time             `json:"awardedAt,omitempty"`
	Progress    *int                   `json:"progress,omitempty"`
}

// AchievementService evaluates criteria and maintains the award ledger.
type AchievementService struct {
	store Store
	now   func() time.Time
}

func NewAchievementService(store Store) *AchievementService {
	return &AchievementService{store: store, now: time.Now}
}

// WithClock is test-only for deterministic timestamps.
func (s *AchievementService) WithClock(now func() time.Time) *AchievementService {
	s.now = now
	return s
}

// Award scans the achievements the user does not hold yet and awards every
// one whose criterion now holds. Malformed criteria are logged and skipped.
func (s *AchievementService) Award(ctx context.Context, userID string, req AwardRequest) (AwardResult, error) {
	if userID == "" {
		return AwardResult{}, domain.ErrUnauthorized
	}
	if req.Subject == "" {
		return AwardResult{}, domain.Invalid("MISSING_REQUIRED_FIELD", "Subject is required")
	}
	if !req.Subject.Valid() {
		return AwardResult{}, domain.Invalid("INVALID_SUBJECT", "Subject must be one of: coding, vocab, finance")
	}
	if req.ScoreIncrement < 0 {
		return AwardResult{}, domain.Invalid("INVALID_SCORE_INCREMENT", "Score increment must be a non-negative integer")
	}
	if req.QuizzesCompleted < 0 {
		return AwardResult{}, domain.Invalid("INVALID_QUIZZES_COMPLETED", "Quizzes completed must be a non-negative integer")
	}

	state, err := s.load(ctx, userID)
	if err != nil {
		return AwardResult{}, err
	}
	ev := state.evaluation(req)

	var candidates []domain.Achievement
	for _, a := range state.catalog {
		if _, held := state.awarded[a.ID]; held {
			continue
		}
		c, err := a.ParseCriterion()
		if err != nil {
			log.Printf("skip achievement: %v", err)
			continue
		}
		if ev.satisfied(c) {
			candidates = append(candidates, a)
		}
	}

	result := AwardResult{NewAchievements: []AwardedAchievement{}}
	if len(candidates) > 0 {
		now := s.now()
		err = s.store.Atomic(ctx, func(repos Repositories) error {
			result.NewAchievements = result.NewAchievements[:0]
			for _, a := range candidates {
				inserted, err := repos.InsertAward(ctx, domain.Award{UserID: userID, AchievementID: a.ID, AwardedAt: now})
				if err != nil {
					return fmt.Errorf("insert award %d: %w", a.ID, err)
				}
				if inserted {
					result.NewAchievements = append(result.NewAchievements, AwardedAchievement{Achievement: a, AwardedAt: now})
				}
			}
			return nil
		})
		if err != nil {
			return AwardResult{}, err
		}
	}
	result.Message = awardMessage(len(result.NewAchievements))
	return result, nil
}

// List returns the catalog annotated with earned state and, for unearned
// entries, a progress percentage. An empty typeFilter lists every type.
func (s *AchievementService) List(ctx context.Context, userID string, typeFilter domain.AchievementType) ([]AchievementView, error) {
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}
	if typeFilter != "" && !typeFilter.Valid() {
		return nil, domain.Invalid("INVALID_TYPE_FILTER", "Invalid achievement type. Must be one of: level, quiz_count, score, milestone, streak")
	}

	state, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	ev := state.evaluation(AwardRequest{QuizzesCompleted: state.answersTotal()})

	views := make([]AchievementView, 0, len(state.catalog))
	for _, a := range state.catalog {
		if typeFilter != "" && a.Type != typeFilter {
			continue
		}
		view := AchievementView{
			ID:          a.ID,
			Name:        a.Name,
			Description: a.Description,
			Icon:        a.Icon,
			Type:        a.Type,
		}
		if award, ok := state.awarded[a.ID]; ok {
			at := award.AwardedAt
			view.Earned = true
			view.AwardedAt = &at
		} else {
			progress := 0
			if c, err := a.ParseCriterion(); err != nil {
				log.Printf("achievement progress: %v", err)
			} else {
				progress = ev.percent(c)
			}
			view.Progress = &progress
		}
		views = append(views, view)
	}

	sort.SliceStable(views, func(i, j int) bool {
		a, b := views[i], views[j]
		if a.Earned != b.Earned {
			return a.Earned
		}
		if a.Earned {
			return a.AwardedAt.After(*b.AwardedAt)
		}
		return *a.Progress > *b.Progress
	})
	return views, nil
}

type achievementState struct {
	catalog  []domain.Achievement
	awarded  map[int64]domain.Award
	progress []domain.Progress
	totalXP  int
	streak   domain.Streak
}

func (s *AchievementService) load(ctx context.Context, userID string) (achievementState, error) {
	var (
		state  achievementState
		awards []domain.Award
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		state.catalog, err = s.store.ListAchievements(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		awards, err = s.store.ListAwards(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		state.progress, err = s.store.ListProgress(gctx, userID)
		return err
	})
	g.Go(func() error {
		entry, _, err := s.store.GetLeaderboardEntry(gctx, userID)
		state.totalXP = entry.XP
		return err
	})
	g.Go(func() error {
		var err error
		state.streak, _, err = s.store.GetStreak(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return achievementState{}, err
	}
	if len(state.catalog) == 0 {
		return achievementState{}, domain.ErrAchievementsNotFound
	}
	state.streak.Current = CurrentStreak(state.streak, s.now())
	state.awarded = make(map[int64]domain.Award, len(awards))
	for _, a := range awards {
		state.awarded[a.AchievementID] = a
	}
	return state, nil
}

func (st achievementState) answersTotal() int {
	n := 0
	for _, p := range st.progress {
		n += p.AnswersCount
	}
	return n
}

func (st achievementState) evaluation(req AwardRequest) evaluation {
	ev := evaluation{
		subject:          req.Subject,
		scoreIncrement:   req.ScoreIncrement,
		quizzesCompleted: req.QuizzesCompleted,
		progress:         make(map[domain.Subject]domain.Progress, len(st.progress)),
		totalXP:          st.totalXP,
		streak:           st.streak.Current,
	}
	for _, p := range st.progress {
		ev.progress[p.Subject] = p
	}
	return ev
}

// evaluation is the user state criteria are checked against.
type evaluation struct {
	subject          domain.Subject
	scoreIncrement   int
	quizzesCompleted int
	progress         map[domain.Subject]domain.Progress
	totalXP          int
	streak           int
}

func (ev evaluation) level(subject domain.Subject) int {
	if p, ok := ev.progress[subject]; ok {
		return p.CurrentLevel
	}
	return 1
}

func (ev evaluation) score(subject domain.Subject) int {
	return ev.progress[subject].TotalScore
}

func (ev evaluation) maxLevel() int {
	best := 1
	for _, p := range ev.progress {
		if p.CurrentLevel > best {
			best = p.CurrentLevel
		}
	}
	return best
}

func (ev evaluation) activeSubjects() int {
	n := 0
	for _, p := range ev.progress {
		if p.TotalScore > 0 {
			n++
		}
	}
	return n
}

func (ev evaluation) satisfied(c domain.Criterion) bool {
	switch c.Type {
	case domain.AchievementLevel:
		if c.Subject != "" {
			return ev.level(c.Subject) >= c.Value
		}
		return ev.level(ev.subject) >= c.Value
	case domain.AchievementQuizCount:
		if c.Subject != "" && c.Subject != ev.subject {
			return false
		}
		return ev.quizzesCompleted >= c.Value
	case domain.AchievementScore:
		if c.Subject != "" {
			return ev.score(c.Subject) >= c.Value
		}
		return ev.totalXP >= c.Value
	case domain.AchievementMilestone:
		switch c.Condition {
		case domain.ConditionMultiSubject:
			return ev.activeSubjects() >= c.Value
		case domain.ConditionFirstQuiz:
			return ev.quizzesCompleted >= 1
		case domain.ConditionPerfectScore:
			// Approximation: a large single-round increment stands in for a perfect round.
			return ev.scoreIncrement >= c.Value
		}
	case domain.AchievementStreak:
		return ev.streak >= c.Value
	}
	return false
}

func (ev evaluation) percent(c domain.Criterion) int {
	switch c.Type {
	case domain.AchievementLevel:
		if c.Subject != "" {
			return percentOf(ev.level(c.Subject), c.Value)
		}
		return percentOf(ev.maxLevel(), c.Value)
	case domain.AchievementQuizCount:
		if c.Subject != "" {
			return percentOf(ev.progress[c.Subject].AnswersCount, c.Value)
		}
		return percentOf(ev.quizzesCompleted, c.Value)
	case domain.AchievementScore:
		if c.Subject != "" {
			return percentOf(ev.score(c.Subject), c.Value)
		}
		return percentOf(ev.totalXP, c.Value)
	case domain.AchievementMilestone:
		switch c.Condition {
		case domain.ConditionMultiSubject:
			return percentOf(ev.activeSubjects(), c.Value)
		case domain.ConditionFirstQuiz:
			return percentOf(ev.quizzesCompleted, 1)
		}
	case domain.AchievementStreak:
		return percentOf(ev.streak, c.Value)
	}
	return 0
}

func awardMessage(n int) string {
	switch {
	case n == 0:
		return "No new achievements earned this time. Keep learning!"
	case n == 1:
		return "Congratulations! You earned 1 new achievement!"
	default:
		return fmt.Sprintf("Congratulations! You earned %d new achievements!", n)
	}
}
