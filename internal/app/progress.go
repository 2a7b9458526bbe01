package app

import (
	"context"
	"time"

	"evolv/internal/domain"
)

// ProgressInput creates a progress row. Level is derived from TotalScore.
type ProgressInput struct {
	Subject      domain.Subject
	TotalScore   int
	Achievements []string
	OfflineSync  bool
}

// ProgressUpdate changes the non-nil fields of an existing row.
type ProgressUpdate struct {
	TotalScore   *int
	Achievements []string
	OfflineSync  *bool
}

// ProgressDelta is an incremental change: the score moves by ScoreIncrement
// and NewAchievements are merged into the stored list.
type ProgressDelta struct {
	Subject         domain.Subject
	ScoreIncrement  int
	NewAchievements []string
	OfflineSync     *bool
}

// ProgressService is CRUD over per-subject progress that keeps the
// leaderboard in step with every change.
type ProgressService struct {
	store     Store
	publisher LeaderboardPublisher
	now       func() time.Time
}

func NewProgressService(store Store, publisher LeaderboardPublisher) *ProgressService {
	return &ProgressService{store: store, publisher: publisher, now: time.Now}
}

// WithClock is test-only for deterministic timestamps.
func (s *ProgressService) WithClock(now func() time.Time) *ProgressService {
	s.now = now
	return s
}

// List returns the caller's rows, optionally limited to one subject.
func (s *ProgressService) List(ctx context.Context, userID string, subject domain.Subject) ([]domain.Progress, error) {
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}
	if subject != "" && !subject.Valid() {
		return nil, domain.Invalid("INVALID_SUBJECT", "Invalid subject. Must be one of: coding, vocab, finance")
	}
	rows, err := s.store.ListProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	if subject == "" {
		return rows, nil
	}
	out := []domain.Progress{}
	for _, p := range rows {
		if p.Subject == subject {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *ProgressService) Create(ctx context.Context, caller domain.Caller, in ProgressInput) (domain.Progress, error) {
	if caller.UserID == "" {
		return domain.Progress{}, domain.ErrUnauthorized
	}
	if err := validateProgressSubject(in.Subject); err != nil {
		return domain.Progress{}, err
	}
	if in.TotalScore < 0 {
		return domain.Progress{}, domain.Invalid("INVALID_TOTAL_SCORE", "Total score must be a non-negative integer")
	}
	achievements := in.Achievements
	if achievements == nil {
		achievements = []string{}
	}
	now := s.now()

	var created domain.Progress
	err := s.mutate(ctx, caller, now, func(repos Repositories) error {
		var err error
		created, err = repos.CreateProgress(ctx, domain.Progress{
			UserID:       caller.UserID,
			Subject:      in.Subject,
			CurrentLevel: domain.LevelForScore(in.TotalScore),
			TotalScore:   in.TotalScore,
			Achievements: achievements,
			OfflineSync:  in.OfflineSync,
			UpdatedAt:    now,
		})
		return err
	})
	return created, err
}

func (s *ProgressService) Update(ctx context.Context, caller domain.Caller, subject domain.Subject, upd ProgressUpdate) (domain.Progress, error) {
	if caller.UserID == "" {
		return domain.Progress{}, domain.ErrUnauthorized
	}
	if err := validateProgressSubject(subject); err != nil {
		return domain.Progress{}, err
	}
	if upd.TotalScore != nil && *upd.TotalScore < 0 {
		return domain.Progress{}, domain.Invalid("INVALID_TOTAL_SCORE", "Total score must be a non-negative integer")
	}
	now := s.now()

	var updated domain.Progress
	err := s.mutate(ctx, caller, now, func(repos Repositories) error {
		p, ok, err := repos.GetProgress(ctx, caller.UserID, subject)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrProgressNotFound
		}
		if upd.TotalScore != nil {
			p.TotalScore = *upd.TotalScore
			p.CurrentLevel = domain.LevelForScore(p.TotalScore)
		}
		if upd.Achievements != nil {
			p.Achievements = upd.Achievements
		}
		if upd.OfflineSync != nil {
			p.OfflineSync = *upd.OfflineSync
		}
		p.UpdatedAt = now
		updated, err = repos.SaveProgress(ctx, p)
		return err
	})
	return updated, err
}

// Apply adds d to the caller's row for d.Subject, creating the row when
// absent. The score never drops below zero and the level follows the score.
// created reports whether a new row was written.
func (s *ProgressService) Apply(ctx context.Context, caller domain.Caller, d ProgressDelta) (p domain.Progress, created bool, err error) {
	if caller.UserID == "" {
		return domain.Progress{}, false, domain.ErrUnauthorized
	}
	if err := validateProgressSubject(d.Subject); err != nil {
		return domain.Progress{}, false, err
	}
	now := s.now()

	err = s.mutate(ctx, caller, now, func(repos Repositories) error {
		row, ok, err := repos.GetProgress(ctx, caller.UserID, d.Subject)
		if err != nil {
			return err
		}
		if !ok {
			row = domain.Progress{UserID: caller.UserID, Subject: d.Subject}
		}
		row.TotalScore += d.ScoreIncrement
		if row.TotalScore < 0 {
			row.TotalScore = 0
		}
		row.CurrentLevel = domain.LevelForScore(row.TotalScore)
		row.Achievements = mergeAchievements(row.Achievements, d.NewAchievements)
		if d.OfflineSync != nil {
			row.OfflineSync = *d.OfflineSync
		}
		row.UpdatedAt = now
		p, err = repos.SaveProgress(ctx, row)
		created = !ok
		return err
	})
	if err != nil {
		return domain.Progress{}, false, err
	}
	return p, created, nil
}

func (s *ProgressService) Delete(ctx context.Context, caller domain.Caller, subject domain.Subject) error {
	if caller.UserID == "" {
		return domain.ErrUnauthorized
	}
	if err := validateProgressSubject(subject); err != nil {
		return err
	}
	return s.mutate(ctx, caller, s.now(), func(repos Repositories) error {
		return repos.DeleteProgress(ctx, caller.UserID, subject)
	})
}

// mutate runs fn and the leaderboard resync in one atomic unit, then
// notifies live subscribers.
func (s *ProgressService) mutate(ctx context.Context, caller domain.Caller, now time.Time, fn func(Repositories) error) error {
	err := s.store.Atomic(ctx, func(repos Repositories) error {
		if err := fn(repos); err != nil {
			return err
		}
		_, err := syncLeaderboard(ctx, repos, caller, now)
		return err
	})
	if err != nil {
		return err
	}
	if s.publisher != nil {
		s.publisher.Publish(ctx)
	}
	return nil
}

func validateProgressSubject(subject domain.Subject) error {
	if subject == "" {
		return domain.Invalid("MISSING_SUBJECT", "Subject is required")
	}
	if !subject.Valid() {
		return domain.Invalid("INVALID_SUBJECT", "Invalid subject. Must be one of: coding, vocab, finance")
	}
	return nil
}

// mergeAchievements appends the names in add that have not been seen yet,
// keeping the stored order.
func mergeAchievements(have, add []string) []string {
	out := make([]string, 0, len(have)+len(add))
	seen := make(map[string]struct{}, len(have)+len(add))
	for _, list := range [][]string{have, add} {
		for _, name := range list {
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}
