package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"evolv/internal/app"
	"evolv/internal/domain"
)

// Store is an in-memory implementation of app.Store. Atomic works on a copy
// of the state that replaces the live one only when fn succeeds.
type Store struct {
	mu      sync.Mutex
	state   *state
	catalog []domain.Achievement
}

var _ app.Store = (*Store)(nil)

func NewStore(catalog []domain.Achievement) *Store {
	sorted := make([]domain.Achievement, len(catalog))
	copy(sorted, catalog)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	return &Store{state: newState(), catalog: sorted}
}

func (s *Store) Atomic(ctx context.Context, fn func(repos app.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	next := s.state.clone()
	if err := fn(next); err != nil {
		return err
	}
	s.state = next
	return nil
}

func (s *Store) ListAchievements(context.Context) ([]domain.Achievement, error) {
	out := make([]domain.Achievement, len(s.catalog))
	copy(out, s.catalog)
	return out, nil
}

func (s *Store) GetProgress(ctx context.Context, userID string, subject domain.Subject) (domain.Progress, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.GetProgress(ctx, userID, subject)
}

func (s *Store) ListProgress(ctx context.Context, userID string) ([]domain.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ListProgress(ctx, userID)
}

func (s *Store) SaveProgress(ctx context.Context, p domain.Progress) (domain.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SaveProgress(ctx, p)
}

func (s *Store) CreateProgress(ctx context.Context, p domain.Progress) (domain.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CreateProgress(ctx, p)
}

func (s *Store) DeleteProgress(ctx context.Context, userID string, subject domain.Subject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.DeleteProgress(ctx, userID, subject)
}

func (s *Store) GetLeaderboardEntry(ctx context.Context, userID string) (domain.LeaderboardEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.GetLeaderboardEntry(ctx, userID)
}

func (s *Store) UpsertLeaderboardXP(ctx context.Context, userID, displayName string, xp int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.UpsertLeaderboardXP(ctx, userID, displayName, xp, at)
}

func (s *Store) RecomputeRanks(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.RecomputeRanks(ctx)
}

func (s *Store) LeaderboardPage(ctx context.Context, limit, offset int) ([]domain.LeaderboardEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.LeaderboardPage(ctx, limit, offset)
}

func (s *Store) CountLeaderboard(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CountLeaderboard(ctx)
}

func (s *Store) GetStreak(ctx context.Context, userID string) (domain.Streak, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.GetStreak(ctx, userID)
}

func (s *Store) SaveStreak(ctx context.Context, st domain.Streak) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SaveStreak(ctx, st)
}

func (s *Store) ListAwards(ctx context.Context, userID string) ([]domain.Award, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ListAwards(ctx, userID)
}

func (s *Store) InsertAward(ctx context.Context, award domain.Award) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.InsertAward(ctx, award)
}

func (s *Store) AppendAnalytics(_ context.Context, rec domain.AnalyticsRecord) (domain.AnalyticsRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.analyticsSeq++
	rec.ID = s.state.analyticsSeq
	rec.Achievements = append([]string(nil), rec.Achievements...)
	s.state.analytics = append(s.state.analytics, rec)
	return rec, nil
}

func (s *Store) ListAnalytics(_ context.Context, userID string) ([]domain.AnalyticsRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.AnalyticsRecord{}
	for i := len(s.state.analytics) - 1; i >= 0; i-- {
		if rec := s.state.analytics[i]; rec.UserID == userID {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type progressKey struct {
	userID  string
	subject domain.Subject
}

type leaderboardRow struct {
	entry domain.LeaderboardEntry
	seq   int64 // insertion order, breaks XP ties
}

// state holds the mutable tables. It is not synchronized; Store guards it.
type state struct {
	progress    map[progressKey]domain.Progress
	progressSeq int64

	leaderboard    map[string]leaderboardRow
	leaderboardSeq int64

	streaks map[string]domain.Streak
	awards  map[string][]domain.Award

	analytics    []domain.AnalyticsRecord
	analyticsSeq int64
}

func newState() *state {
	return &state{
		progress:    make(map[progressKey]domain.Progress),
		leaderboard: make(map[string]leaderboardRow),
		streaks:     make(map[string]domain.Streak),
		awards:      make(map[string][]domain.Award),
	}
}

// clone copies everything Atomic may write. Analytics are append-only and
// outside the atomic unit, so the slice is shared.
func (st *state) clone() *state {
	next := &state{
		progress:       make(map[progressKey]domain.Progress, len(st.progress)),
		progressSeq:    st.progressSeq,
		leaderboard:    make(map[string]leaderboardRow, len(st.leaderboard)),
		leaderboardSeq: st.leaderboardSeq,
		streaks:        make(map[string]domain.Streak, len(st.streaks)),
		awards:         make(map[string][]domain.Award, len(st.awards)),
		analytics:      st.analytics,
		analyticsSeq:   st.analyticsSeq,
	}
	for k, v := range st.progress {
		next.progress[k] = v
	}
	for k, v := range st.leaderboard {
		next.leaderboard[k] = v
	}
	for k, v := range st.streaks {
		next.streaks[k] = v
	}
	for k, v := range st.awards {
		next.awards[k] = append([]domain.Award(nil), v...)
	}
	return next
}

func (st *state) GetProgress(_ context.Context, userID string, subject domain.Subject) (domain.Progress, bool, error) {
	p, ok := st.progress[progressKey{userID, subject}]
	return copyProgress(p), ok, nil
}

func (st *state) ListProgress(_ context.Context, userID string) ([]domain.Progress, error) {
	out := []domain.Progress{}
	for k, p := range st.progress {
		if k.userID == userID {
			out = append(out, copyProgress(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (st *state) SaveProgress(_ context.Context, p domain.Progress) (domain.Progress, error) {
	key := progressKey{p.UserID, p.Subject}
	if existing, ok := st.progress[key]; ok {
		p.ID = existing.ID
	} else {
		st.progressSeq++
		p.ID = st.progressSeq
	}
	if p.Achievements == nil {
		p.Achievements = []string{}
	}
	p = copyProgress(p)
	st.progress[key] = p
	return copyProgress(p), nil
}

func (st *state) CreateProgress(ctx context.Context, p domain.Progress) (domain.Progress, error) {
	if _, ok := st.progress[progressKey{p.UserID, p.Subject}]; ok {
		return domain.Progress{}, domain.ErrProgressExists
	}
	return st.SaveProgress(ctx, p)
}

func (st *state) DeleteProgress(_ context.Context, userID string, subject domain.Subject) error {
	key := progressKey{userID, subject}
	if _, ok := st.progress[key]; !ok {
		return domain.ErrProgressNotFound
	}
	delete(st.progress, key)
	return nil
}

func (st *state) GetLeaderboardEntry(_ context.Context, userID string) (domain.LeaderboardEntry, bool, error) {
	row, ok := st.leaderboard[userID]
	return row.entry, ok, nil
}

func (st *state) UpsertLeaderboardXP(_ context.Context, userID, displayName string, xp int, at time.Time) error {
	row, ok := st.leaderboard[userID]
	if !ok {
		st.leaderboardSeq++
		row = leaderboardRow{entry: domain.LeaderboardEntry{UserID: userID}, seq: st.leaderboardSeq}
	}
	if displayName != "" {
		row.entry.DisplayName = displayName
	}
	row.entry.XP = xp
	row.entry.UpdatedAt = at
	st.leaderboard[userID] = row
	return nil
}

func (st *state) RecomputeRanks(context.Context) error {
	rows := st.rankedRows()
	for i, row := range rows {
		row.entry.Rank = i + 1
		st.leaderboard[row.entry.UserID] = row
	}
	return nil
}

func (st *state) LeaderboardPage(_ context.Context, limit, offset int) ([]domain.LeaderboardEntry, error) {
	rows := st.rankedRows()
	out := []domain.LeaderboardEntry{}
	for i := offset; i < len(rows) && len(out) < limit; i++ {
		out = append(out, rows[i].entry)
	}
	return out, nil
}

func (st *state) CountLeaderboard(context.Context) (int, error) {
	return len(st.leaderboard), nil
}

// rankedRows orders rows by XP descending with insertion order breaking ties.
func (st *state) rankedRows() []leaderboardRow {
	rows := make([]leaderboardRow, 0, len(st.leaderboard))
	for _, row := range st.leaderboard {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].entry.XP != rows[j].entry.XP {
			return rows[i].entry.XP > rows[j].entry.XP
		}
		return rows[i].seq < rows[j].seq
	})
	return rows
}

func (st *state) GetStreak(_ context.Context, userID string) (domain.Streak, bool, error) {
	s, ok := st.streaks[userID]
	return s, ok, nil
}

func (st *state) SaveStreak(_ context.Context, s domain.Streak) error {
	st.streaks[s.UserID] = s
	return nil
}

func (st *state) ListAwards(_ context.Context, userID string) ([]domain.Award, error) {
	return append([]domain.Award{}, st.awards[userID]...), nil
}

func (st *state) InsertAward(_ context.Context, award domain.Award) (bool, error) {
	for _, a := range st.awards[award.UserID] {
		if a.AchievementID == award.AchievementID {
			return false, nil
		}
	}
	st.awards[award.UserID] = append(st.awards[award.UserID], award)
	return true, nil
}

func copyProgress(p domain.Progress) domain.Progress {
	if p.Achievements != nil {
		p.Achievements = append([]string{}, p.Achievements...)
	}
	return p
}
