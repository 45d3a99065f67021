// Package trophy is the persistence and aggregation layer for trophies and
// the awards that grant them to users.
//
// Store owns trophy definitions, Ledger owns awards, and Leaderboard ranks
// users by the number of awards they hold. Every mutation runs in a single
// transaction; the uniqueness of an award and its reference to a trophy are
// enforced by the database schema, not by checks in this package.
package trophy

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/amongthesloths/trophybot/internal/metrics"
	"github.com/amongthesloths/trophybot/internal/models"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Option configures a Store, Ledger or Leaderboard.
type Option func(*settings)

type settings struct {
	logger zerolog.Logger
	now    func() time.Time
}

// WithLogger sets the logger used for operation logs.
func WithLogger(lg zerolog.Logger) Option {
	return func(s *settings) { s.logger = lg }
}

// WithClock replaces the clock used for CreatedAt and AwardedAt.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

func newSettings(component string, opts []Option) settings {
	s := settings{
		logger: zerolog.Nop(),
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
	for _, opt := range opts {
		opt(&s)
	}
	s.logger = s.logger.With().Str("component", component).Logger()
	return s
}

func observe(op string, started time.Time, err *error) {
	metrics.ObserveOperation(op, Kind(*err), started)
}

// Store creates and reads trophy definitions.
type Store struct {
	db *gorm.DB
	settings
}

func NewStore(db *gorm.DB, opts ...Option) *Store {
	return &Store{db: db, settings: newSettings("trophy_store", opts)}
}

// CreateTrophy persists a new trophy and returns it with its assigned id
// and creation time. The name must not be blank.
func (s *Store) CreateTrophy(ctx context.Context, name, description, emoji, createdBy string) (_ *models.Trophy, err error) {
	const op = "create_trophy"
	defer observe(op, time.Now(), &err)

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationError(op, "trophy name must not be empty")
	}
	description = strings.TrimSpace(description)
	if utf8.RuneCountInString(description) > models.MaxDescriptionLength {
		return nil, validationError(op, "trophy description must be at most %d characters", models.MaxDescriptionLength)
	}

	t := &models.Trophy{
		Name:        name,
		Description: description,
		Emoji:       strings.TrimSpace(emoji),
		CreatedAt:   s.now(),
		CreatedBy:   createdBy,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(t).Error
	})
	if err != nil {
		s.logger.Error().Err(err).Str("name", name).Msg("failed to create trophy")
		return nil, storageError(op, err)
	}

	s.logger.Info().Uint("trophy_id", t.ID).Str("name", t.Name).Str("created_by", createdBy).Msg("trophy created")
	return t, nil
}

// GetTrophyByID returns the trophy with the given id, or an error matching
// ErrNotFound when there is none.
func (s *Store) GetTrophyByID(ctx context.Context, id uint) (_ *models.Trophy, err error) {
	const op = "get_trophy"
	defer observe(op, time.Now(), &err)

	t, err := findTrophy(s.db.WithContext(ctx), id)
	switch {
	case err == nil:
		return t, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		s.logger.Debug().Uint("trophy_id", id).Msg("no trophy found")
		return nil, notFoundError(op, "trophy %d does not exist", id)
	default:
		s.logger.Error().Err(err).Uint("trophy_id", id).Msg("failed to fetch trophy")
		return nil, storageError(op, err)
	}
}

// ListAllTrophies returns every trophy ordered by ascending id, which is
// also creation order.
func (s *Store) ListAllTrophies(ctx context.Context) (_ []models.Trophy, err error) {
	const op = "list_trophies"
	defer observe(op, time.Now(), &err)

	var out []models.Trophy
	if err = s.db.WithContext(ctx).Order("id ASC").Find(&out).Error; err != nil {
		s.logger.Error().Err(err).Msg("failed to list trophies")
		return nil, storageError(op, err)
	}
	s.logger.Debug().Int("count", len(out)).Msg("listed trophies")
	return out, nil
}

// CountTrophies returns the number of trophy definitions.
func (s *Store) CountTrophies(ctx context.Context) (_ int64, err error) {
	const op = "count_trophies"
	defer observe(op, time.Now(), &err)

	var n int64
	if err = s.db.WithContext(ctx).Model(&models.Trophy{}).Count(&n).Error; err != nil {
		return 0, storageError(op, err)
	}
	return n, nil
}

func findTrophy(db *gorm.DB, id uint) (*models.Trophy, error) {
	var t models.Trophy
	if err := db.Where("id = ?", id).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}
