package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"evolv/internal/domain"
)

const (
	defaultAnalyticsDays = 30
	recentSessionsLimit  = 10
)

// AnalyticsSummary aggregates play records inside a lookback window.
type AnalyticsSummary struct {
	TotalPlayTime      int                      `json:"totalPlayTime"`
	TotalSessions      int                      `json:"totalSessions"`
	UniqueAchievements []string                 `json:"uniqueAchievements"`
	AverageSessionTime int                      `json:"averageSessionTime"`
	DailyAverage       int                      `json:"dailyAverage"`
	RecentSessions     []domain.AnalyticsRecord `json:"recentSessions"`
}

// AnalyticsService records play sessions and summarizes them.
type AnalyticsService struct {
	repo AnalyticsRepository
	now  func() time.Time
}

func NewAnalyticsService(repo AnalyticsRepository) *AnalyticsService {
	return &AnalyticsService{repo: repo, now: time.Now}
}

// WithClock is test-only for deterministic timestamps.
func (s *AnalyticsService) WithClock(now func() time.Time) *AnalyticsService {
	s.now = now
	return s
}

// Record appends a play session for userID.
func (s *AnalyticsService) Record(ctx context.Context, userID, sessionID string, achievements []string, playTime int) (domain.AnalyticsRecord, error) {
	if userID == "" {
		return domain.AnalyticsRecord{}, domain.ErrUnauthorized
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return domain.AnalyticsRecord{}, domain.Invalid("INVALID_SESSION_ID", "Session ID must be a non-empty string")
	}
	if playTime < 0 {
		return domain.AnalyticsRecord{}, domain.Invalid("INVALID_PLAY_TIME", "Play time must be a non-negative integer")
	}
	if achievements == nil {
		achievements = []string{}
	}
	rec, err := s.repo.AppendAnalytics(ctx, domain.AnalyticsRecord{
		UserID:       userID,
		SessionID:    sessionID,
		Achievements: achievements,
		PlayTime:     playTime,
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		return domain.AnalyticsRecord{}, fmt.Errorf("append analytics: %w", err)
	}
	return rec, nil
}

// Summary aggregates the user's records created within the last days days.
// Zero days selects the default window.
func (s *AnalyticsService) Summary(ctx context.Context, userID string, days int) (AnalyticsSummary, error) {
	if userID == "" {
		return AnalyticsSummary{}, domain.ErrUnauthorized
	}
	if days == 0 {
		days = defaultAnalyticsDays
	}
	if days < 0 {
		return AnalyticsSummary{}, domain.Invalid("INVALID_DAYS_PARAMETER", "Days parameter must be a positive integer")
	}

	records, err := s.repo.ListAnalytics(ctx, userID)
	if err != nil {
		return AnalyticsSummary{}, err
	}
	threshold := s.now().AddDate(0, 0, -days)

	summary := AnalyticsSummary{
		UniqueAchievements: []string{},
		RecentSessions:     []domain.AnalyticsRecord{},
	}
	seen := make(map[string]struct{})
	for _, rec := range records {
		if rec.CreatedAt.Before(threshold) {
			continue
		}
		summary.TotalPlayTime += rec.PlayTime
		summary.TotalSessions++
		for _, a := range rec.Achievements {
			if _, ok := seen[a]; ok {
				continue
			}
			seen[a] = struct{}{}
			summary.UniqueAchievements = append(summary.UniqueAchievements, a)
		}
		if len(summary.RecentSessions) < recentSessionsLimit {
			summary.RecentSessions = append(summary.RecentSessions, rec)
		}
	}
	summary.AverageSessionTime = roundedRatio(summary.TotalPlayTime, summary.TotalSessions)
	summary.DailyAverage = roundedRatio(summary.TotalPlayTime, days)
	return summary, nil
}
