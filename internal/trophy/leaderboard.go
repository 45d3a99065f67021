package trophy

import (
	"context"
	"time"

	"github.com/amongthesloths/trophybot/internal/models"
	"gorm.io/gorm"
)

// LeaderboardEntry is one ranked row of the leaderboard. Rank starts at 1.
type LeaderboardEntry struct {
	Rank   int    `json:"rank"`
	UserID string `json:"user_id"`
	Count  int64  `json:"count"`
}

// Leaderboard ranks users by the number of trophies they hold.
type Leaderboard struct {
	db *gorm.DB
	settings
}

func NewLeaderboard(db *gorm.DB, opts ...Option) *Leaderboard {
	return &Leaderboard{db: db, settings: newSettings("leaderboard", opts)}
}

// GetLeaderboard returns the top limit users by award count. Ties are broken
// by ascending user id. A non-positive limit yields an empty result.
func (b *Leaderboard) GetLeaderboard(ctx context.Context, limit int) (_ []LeaderboardEntry, err error) {
	const op = "get_leaderboard"
	defer observe(op, time.Now(), &err)

	if limit <= 0 {
		return []LeaderboardEntry{}, nil
	}

	var rows []struct {
		UserID     string
		AwardCount int64
	}
	err = b.db.WithContext(ctx).
		Model(&models.Award{}).
		Select("user_id, COUNT(*) AS award_count").
		Group("user_id").
		Order("award_count DESC").
		Order("user_id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		b.logger.Error().Err(err).Int("limit", limit).Msg("failed to fetch leaderboard")
		return nil, storageError(op, err)
	}

	out := make([]LeaderboardEntry, len(rows))
	for i, r := range rows {
		out[i] = LeaderboardEntry{Rank: i + 1, UserID: r.UserID, Count: r.AwardCount}
	}
	b.logger.Debug().Int("entries", len(out)).Msg("fetched leaderboard")
	return out, nil
}
