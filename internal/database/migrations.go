package database

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationBackfillLegacyNulls = "2024-02-01_backfill_legacy_nulls"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB, time.Time) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationBackfillLegacyNulls, apply: backfillLegacyNulls},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		appliedAt := time.Now().UTC()
		if err := migration.apply(db, appliedAt); err != nil {
			return err
		}
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt.Unix()}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// backfillLegacyNulls fills columns that earlier schemas left nullable:
// repositories without is_active/last_updated and audits or fix reports whose
// payload column holds SQL NULL instead of a JSON document.
func backfillLegacyNulls(db *gorm.DB, now time.Time) error {
	return db.Transaction(func(tx *gorm.DB) error {
		statements := []struct {
			sql  string
			args []any
		}{
			{sql: "UPDATE repositories SET is_active = ? WHERE is_active IS NULL", args: []any{true}},
			{sql: "UPDATE repositories SET last_updated = ? WHERE last_updated IS NULL", args: []any{now}},
			{sql: "UPDATE audits SET issues = 'null' WHERE issues IS NULL"},
			{sql: "UPDATE ai_fix_reports SET fixes = 'null' WHERE fixes IS NULL"},
		}
		for _, statement := range statements {
			if err := tx.Exec(statement.sql, statement.args...).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
