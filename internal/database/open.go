package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MarcoPoloResearchLab/seoaudit/internal/storage"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	dialectPostgres = "postgres"
	dialectSQLite   = "sqlite"
	sqliteURLPrefix = "sqlite://"

	// sqliteForeignKeys turns on constraint enforcement for every pooled
	// connection; SQLite leaves it off by default.
	sqliteForeignKeys = "_pragma=foreign_keys(1)"
)

var (
	errMissingURL         = errors.New("database url is required")
	errUnsupportedDialect = errors.New("unsupported database url")
)

// Open connects to the database named by url and brings the schema up to date.
// Postgres URLs ("postgres://", "postgresql://" or key=value DSNs) use the
// Postgres driver; "sqlite://<path>", "file:" URIs and *.db paths use SQLite.
// The first connection and the migrations run under ctx, so a deadline on
// ctx bounds an unreachable host.
func Open(ctx context.Context, url string, logger *zap.Logger) (*gorm.DB, error) {
	dialector, dialect, err := dialectorFor(url)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{DisableAutomaticPing: true})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if dialect == dialectSQLite {
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		closeQuietly(db)
		return nil, fmt.Errorf("connect %s database: %w", dialect, err)
	}

	if err := Migrate(db.WithContext(ctx), logger); err != nil {
		closeQuietly(db)
		return nil, err
	}

	if logger != nil {
		logger.Info("database initialized", zap.String("dialect", dialect))
	}
	return db, nil
}

// Migrate creates or updates the tables and applies pending named migrations.
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	models := append(storage.Models(), &migrationRecord{})
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return applyMigrations(db, logger)
}

// Close releases the connection pool behind db.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func closeQuietly(db *gorm.DB) {
	_ = Close(db)
}

func dialectorFor(url string) (gorm.Dialector, string, error) {
	trimmed := strings.TrimSpace(url)
	lower := strings.ToLower(trimmed)
	switch {
	case trimmed == "":
		return nil, "", errMissingURL
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return postgres.Open(trimmed), dialectPostgres, nil
	case strings.HasPrefix(lower, sqliteURLPrefix):
		path := trimmed[len(sqliteURLPrefix):]
		if path == "" {
			return nil, "", fmt.Errorf("%w: sqlite path is empty", errUnsupportedDialect)
		}
		return sqlite.Open(SQLiteDSN(path)), dialectSQLite, nil
	case strings.HasPrefix(lower, "file:"), strings.HasSuffix(lower, ".db"), strings.HasSuffix(lower, ".sqlite"):
		return sqlite.Open(SQLiteDSN(trimmed)), dialectSQLite, nil
	case strings.Contains(lower, "host=") || strings.Contains(lower, "dbname="):
		return postgres.Open(trimmed), dialectPostgres, nil
	default:
		return nil, "", fmt.Errorf("%w: %q", errUnsupportedDialect, redact(trimmed))
	}
}

// SQLiteDSN appends the foreign key pragma to a SQLite path or file: URI.
func SQLiteDSN(path string) string {
	if strings.Contains(path, sqliteForeignKeys) {
		return path
	}
	separator := "?"
	if strings.Contains(path, "?") {
		separator = "&"
	}
	return path + separator + sqliteForeignKeys
}

// redact keeps only the scheme so credentials never reach logs.
func redact(url string) string {
	if index := strings.Index(url, "://"); index > 0 {
		return url[:index] + "://..."
	}
	return "..."
}
