package service

import (
	"context"
	"fmt"

	"admin-dashboard/backend/internal/models"
)

// UserInfo identifies the caller in a stats snapshot.
type UserInfo struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

// DashboardStats is the body of the dashboard stats endpoint and of each
// live-stats websocket frame.
type DashboardStats struct {
	TotalUsers     int64    `json:"total_users"`
	ActiveSessions int      `json:"active_sessions"`
	DailyRequests  int64    `json:"daily_requests"`
	UserInfo       UserInfo `json:"user_info"`
}

// StatsService assembles dashboard stats from the store and live counters.
type StatsService struct {
	users    *UserService
	sessions func() int
	requests func() int64
}

// NewStatsService creates a stats service. sessions reports clients currently
// tracked by the API rate limiter; requests reports API requests in the
// trailing day.
func NewStatsService(users *UserService, sessions func() int, requests func() int64) *StatsService {
	return &StatsService{users: users, sessions: sessions, requests: requests}
}

// Snapshot returns the current stats as seen by user.
func (s *StatsService) Snapshot(ctx context.Context, user *models.User) (*DashboardStats, error) {
	total, err := s.users.CountUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	return &DashboardStats{
		TotalUsers:     total,
		ActiveSessions: s.sessions(),
		DailyRequests:  s.requests(),
		UserInfo:       UserInfo{ID: user.ID, Username: user.Username},
	}, nil
}
