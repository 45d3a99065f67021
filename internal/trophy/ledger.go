package trophy

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/amongthesloths/trophybot/internal/models"
	"gorm.io/gorm"
)

// Ledger grants and revokes trophies. A user holds a given trophy at most
// once; awarding it again fails with ErrDuplicateAward.
type Ledger struct {
	db *gorm.DB
	settings
}

func NewLedger(db *gorm.DB, opts ...Option) *Ledger {
	return &Ledger{db: db, settings: newSettings("award_ledger", opts)}
}

// AwardTrophy grants trophyID to userID. awardedBy may be empty when the
// granting actor is unknown. The returned award carries its trophy.
//
// The trophy lookup and the insert share one transaction. Two concurrent
// awards of the same pair are arbitrated by the primary key of the awards
// table; a trophy id that does not resolve is rejected by its foreign key.
func (l *Ledger) AwardTrophy(ctx context.Context, userID string, trophyID uint, awardedBy string) (_ *models.Award, err error) {
	const op = "award_trophy"
	defer observe(op, time.Now(), &err)

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, validationError(op, "user id must not be empty")
	}

	var award *models.Award
	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := findTrophy(tx, trophyID)
		if err != nil {
			return err
		}

		a := models.Award{
			UserID:    userID,
			TrophyID:  t.ID,
			AwardedAt: l.now(),
			AwardedBy: optional(awardedBy),
		}
		if err := tx.Create(&a).Error; err != nil {
			return err
		}
		a.Trophy = t
		award = &a
		return nil
	})

	switch {
	case err == nil:
		l.logger.Info().Str("user_id", userID).Uint("trophy_id", trophyID).Str("awarded_by", awardedBy).Msg("trophy awarded")
		return award, nil
	case errors.Is(err, gorm.ErrRecordNotFound), isForeignKeyViolation(err):
		l.logger.Warn().Str("user_id", userID).Uint("trophy_id", trophyID).Msg("award of unknown trophy rejected")
		return nil, notFoundError(op, "trophy %d does not exist", trophyID)
	case isDuplicateKey(err):
		l.logger.Info().Str("user_id", userID).Uint("trophy_id", trophyID).Msg("duplicate award rejected")
		return nil, duplicateError(op, userID, trophyID)
	default:
		l.logger.Error().Err(err).Str("user_id", userID).Uint("trophy_id", trophyID).Msg("failed to award trophy")
		return nil, storageError(op, err)
	}
}

// RemoveTrophy revokes trophyID from userID. It fails with ErrNotFound when
// the user does not hold the trophy.
func (l *Ledger) RemoveTrophy(ctx context.Context, userID string, trophyID uint) (err error) {
	const op = "remove_trophy"
	defer observe(op, time.Now(), &err)

	var affected int64
	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND trophy_id = ?", userID, trophyID).Delete(&models.Award{})
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		l.logger.Error().Err(err).Str("user_id", userID).Uint("trophy_id", trophyID).Msg("failed to remove trophy")
		return storageError(op, err)
	}
	if affected == 0 {
		return notFoundError(op, "user %s does not hold trophy %d", userID, trophyID)
	}

	l.logger.Info().Str("user_id", userID).Uint("trophy_id", trophyID).Msg("trophy removed")
	return nil
}

// GetUserTrophies returns the awards held by userID, most recent first.
// Awards granted at the same instant are ordered by descending trophy id.
func (l *Ledger) GetUserTrophies(ctx context.Context, userID string) (_ []models.Award, err error) {
	const op = "get_user_trophies"
	defer observe(op, time.Now(), &err)

	var out []models.Award
	err = l.db.WithContext(ctx).
		Joins("Trophy").
		Where("awards.user_id = ?", userID).
		Order("awards.awarded_at DESC").
		Order("awards.trophy_id DESC").
		Find(&out).Error
	if err != nil {
		l.logger.Error().Err(err).Str("user_id", userID).Msg("failed to fetch user trophies")
		return nil, storageError(op, err)
	}
	l.logger.Debug().Str("user_id", userID).Int("count", len(out)).Msg("fetched user trophies")
	return out, nil
}

// GetUsersWithTrophy returns every award of trophyID, oldest first and then
// by ascending user id. It fails with ErrNotFound when the trophy does not
// exist, so callers can tell an unknown trophy from one nobody holds.
func (l *Ledger) GetUsersWithTrophy(ctx context.Context, trophyID uint) (_ []models.Award, err error) {
	const op = "get_trophy_holders"
	defer observe(op, time.Now(), &err)

	db := l.db.WithContext(ctx)
	if _, err = findTrophy(db, trophyID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError(op, "trophy %d does not exist", trophyID)
		}
		return nil, storageError(op, err)
	}

	var out []models.Award
	err = db.
		Joins("Trophy").
		Where("awards.trophy_id = ?", trophyID).
		Order("awards.awarded_at ASC").
		Order("awards.user_id ASC").
		Find(&out).Error
	if err != nil {
		l.logger.Error().Err(err).Uint("trophy_id", trophyID).Msg("failed to fetch trophy holders")
		return nil, storageError(op, err)
	}
	l.logger.Debug().Uint("trophy_id", trophyID).Int("count", len(out)).Msg("fetched trophy holders")
	return out, nil
}

// ResetAwards revokes every award of every trophy and returns how many were
// removed. Trophy definitions are kept.
func (l *Ledger) ResetAwards(ctx context.Context) (_ int64, err error) {
	const op = "reset_awards"
	defer observe(op, time.Now(), &err)

	var removed int64
	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Award{})
		removed = res.RowsAffected
		return res.Error
	})
	if err != nil {
		l.logger.Error().Err(err).Msg("failed to reset awards")
		return 0, storageError(op, err)
	}

	l.logger.Warn().Int64("removed", removed).Msg("all awards reset")
	return removed, nil
}

func optional(s string) *string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return &s
}
