package app

import (
	"context"
	"log"
	"sync"
	"time"

	"evolv/internal/domain"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
	defaultFeedSize         = 10
)

// LeaderboardSnapshot is what live subscribers receive after every change.
type LeaderboardSnapshot struct {
	Entries   []domain.LeaderboardEntry `json:"entries"`
	Total     int                       `json:"total"`
	UpdatedAt time.Time                 `json:"updatedAt"`
}

// Pagination echoes the effective paging parameters.
type Pagination struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// UserRank is the caller's own position when it falls outside the page.
type UserRank struct {
	Rank       int `json:"rank"`
	XP         int `json:"xp"`
	TotalUsers int `json:"totalUsers"`
}

// LeaderboardPage is one page of the ranked leaderboard.
type LeaderboardPage struct {
	Leaderboard []domain.LeaderboardEntry `json:"leaderboard"`
	Pagination  Pagination                `json:"pagination"`
	CurrentUser *UserRank                 `json:"currentUser,omitempty"`
}

// LeaderboardService serves ranked pages and fans out live snapshots.
type LeaderboardService struct {
	repo     LeaderboardRepository
	feed     *feed
	feedSize int
	now      func() time.Time
}

func NewLeaderboardService(repo LeaderboardRepository, feedSize int) *LeaderboardService {
	if feedSize <= 0 {
		feedSize = defaultFeedSize
	}
	return &LeaderboardService{
		repo:     repo,
		feed:     newFeed(),
		feedSize: feedSize,
		now:      time.Now,
	}
}

// Page returns a ranked page. A zero limit selects the default; limits above
// the maximum are capped.
func (s *LeaderboardService) Page(ctx context.Context, userID string, limit, offset int, includeUser bool) (LeaderboardPage, error) {
	if limit == 0 {
		limit = defaultLeaderboardLimit
	}
	if limit < 0 {
		return LeaderboardPage{}, domain.Invalid("INVALID_LIMIT", "Invalid limit parameter. Must be a positive number")
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}
	if offset < 0 {
		return LeaderboardPage{}, domain.Invalid("INVALID_OFFSET", "Invalid offset parameter. Must be a non-negative number")
	}

	total, err := s.repo.CountLeaderboard(ctx)
	if err != nil {
		return LeaderboardPage{}, err
	}
	entries, err := s.repo.LeaderboardPage(ctx, limit, offset)
	if err != nil {
		return LeaderboardPage{}, err
	}

	page := LeaderboardPage{
		Leaderboard: entries,
		Pagination:  Pagination{Total: total, Limit: limit, Offset: offset},
	}
	if !includeUser {
		return page, nil
	}
	for _, e := range entries {
		if e.UserID == userID {
			return page, nil
		}
	}
	own, ok, err := s.repo.GetLeaderboardEntry(ctx, userID)
	if err != nil {
		return LeaderboardPage{}, err
	}
	if ok {
		page.CurrentUser = &UserRank{Rank: own.Rank, XP: own.XP, TotalUsers: total}
	}
	return page, nil
}

// Subscribe returns a channel that receives leaderboard snapshots, starting
// with the current one. The caller must invoke the returned cancel function
// to avoid leaks.
func (s *LeaderboardService) Subscribe(ctx context.Context) (<-chan LeaderboardSnapshot, func(), error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := s.feed.subscribe(snap)
	return ch, cancel, nil
}

// Publish broadcasts the current top of the leaderboard. Failures are logged;
// the mutation that triggered the publish has already committed.
func (s *LeaderboardService) Publish(ctx context.Context) {
	if s.feed.empty() {
		return
	}
	snap, err := s.snapshot(ctx)
	if err != nil {
		log.Printf("leaderboard publish: %v", err)
		return
	}
	s.feed.broadcast(snap)
}

func (s *LeaderboardService) snapshot(ctx context.Context) (LeaderboardSnapshot, error) {
	total, err := s.repo.CountLeaderboard(ctx)
	if err != nil {
		return LeaderboardSnapshot{}, err
	}
	entries, err := s.repo.LeaderboardPage(ctx, s.feedSize, 0)
	if err != nil {
		return LeaderboardSnapshot{}, err
	}
	return LeaderboardSnapshot{Entries: entries, Total: total, UpdatedAt: s.now()}, nil
}

// feed fans snapshots out to subscribers without blocking on slow readers.
type feed struct {
	mu          sync.Mutex
	subscribers map[chan LeaderboardSnapshot]struct{}
}

func newFeed() *feed {
	return &feed{subscribers: make(map[chan LeaderboardSnapshot]struct{})}
}

func (f *feed) empty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers) == 0
}

func (f *feed) subscribe(initial LeaderboardSnapshot) (<-chan LeaderboardSnapshot, func()) {
	ch := make(chan LeaderboardSnapshot, 8)

	f.mu.Lock()
	f.subscribers[ch] = struct{}{}
	ch <- initial
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subscribers[ch]; ok {
			delete(f.subscribers, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

func (f *feed) broadcast(snap LeaderboardSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the oldest queued snapshot; only the latest matters.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}
