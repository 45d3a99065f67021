package database

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/amongthesloths/trophybot/internal/config"
	"github.com/amongthesloths/trophybot/internal/models"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrBackupUnsupported is returned by Backup for drivers whose backups are
// managed by the database server.
var ErrBackupUnsupported = errors.New("backup is only supported for sqlite")

// Open connects to the configured store and creates the trophies and awards
// tables when they are missing.
func Open(cfg *config.Config, lg zerolog.Logger) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newGormLogger(lg),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if cfg.DatabaseDriver == config.DriverSQLite {
		// one connection serializes writers and keeps :memory: databases whole
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := Migrate(db); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	lg.Info().Str("driver", cfg.DatabaseDriver).Msg("database connection established")
	return db, nil
}

// Migrate creates or updates the trophy tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Trophy{}, &models.Award{}); err != nil {
		return fmt.Errorf("failed to auto migrate: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Backup writes a consistent copy of a sqlite database into dir and returns
// the path of the copy.
func Backup(ctx context.Context, db *gorm.DB, dir string) (string, error) {
	if db.Dialector.Name() != "sqlite" {
		return "", ErrBackupUnsupported
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	name := fmt.Sprintf("trophies-%s.db", time.Now().UTC().Format("20060102-150405.000000000"))
	path := filepath.Join(dir, name)
	if err := db.WithContext(ctx).Exec("VACUUM INTO ?", path).Error; err != nil {
		return "", fmt.Errorf("backup to %s: %w", path, err)
	}
	return path, nil
}

func dialectorFor(cfg *config.Config) (gorm.Dialector, error) {
	switch cfg.DatabaseDriver {
	case config.DriverSQLite:
		return sqlite.Open(SQLiteDSN(cfg.DatabasePath)), nil
	case config.DriverPostgres:
		return postgres.Open(PostgresDSN(cfg)), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
}

// SQLiteDSN enables foreign keys and a busy timeout on every connection.
func SQLiteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on&_busy_timeout=5000"
}

// PostgresDSN builds a connection URL carrying the credential pair and the
// client identifier as application_name.
func PostgresDSN(cfg *config.Config) string {
	q := url.Values{}
	if cfg.DatabaseSSLMode != "" {
		q.Set("sslmode", cfg.DatabaseSSLMode)
	}
	if cfg.DatabaseClientID != "" {
		q.Set("application_name", cfg.DatabaseClientID)
	}

	host := cfg.DatabaseHost
	if cfg.DatabasePort > 0 {
		host += ":" + strconv.Itoa(cfg.DatabasePort)
	}

	u := url.URL{
		Scheme:   "postgres",
		Host:     host,
		Path:     "/" + cfg.DatabaseName,
		RawQuery: q.Encode(),
	}
	if cfg.DatabaseUser != "" {
		u.User = url.UserPassword(cfg.DatabaseUser, cfg.DatabasePassword)
	}
	return u.String()
}

type gormWriter struct {
	lg zerolog.Logger
}

func (w gormWriter) Printf(format string, args ...any) {
	w.lg.Warn().Msgf(format, args...)
}

func newGormLogger(lg zerolog.Logger) logger.Interface {
	return logger.New(gormWriter{lg: lg.With().Str("component", "gorm").Logger()}, logger.Config{
		SlowThreshold:             500 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}
