package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/pressroomhq/pressroom-backend/internal/domain"
)

func AutoMigrateAll(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&domain.Org{},
		&domain.Signal{},
		&domain.Story{},
		&domain.StorySignal{},
		&domain.Content{},
		&domain.Brief{},
		&domain.VoiceProfile{},
		&domain.Setting{},
	); err != nil {
		return fmt.Errorf("auto-migrate failed: %w", err)
	}
	return EnsureIndexes(gdb)
}

// EnsureIndexes creates indexes AutoMigrate cannot express, mainly the
// partial unique indexes that treat NULL org_id as a distinct tenant.
func EnsureIndexes(gdb *gorm.DB) error {
	stmts := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_signal_org_fingerprint
			ON signal (org_id, fingerprint) WHERE org_id IS NOT NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_signal_null_org_fingerprint
			ON signal (fingerprint) WHERE org_id IS NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_setting_org_key
			ON setting (org_id, key) WHERE org_id IS NOT NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_setting_null_org_key
			ON setting (key) WHERE org_id IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_content_status_scheduled
			ON content (status, scheduled_at)`,
		`CREATE INDEX IF NOT EXISTS idx_story_signal_story
			ON story_signal (story_id, sort_order)`,
	}
	for _, stmt := range stmts {
		if err := gdb.Exec(stmt).Error; err != nil {
			return fmt.Errorf("ensure index failed: %w", err)
		}
	}
	return nil
}
