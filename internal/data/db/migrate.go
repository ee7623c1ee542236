package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/videoguard-backend/internal/domain/moderation"
	"github.com/yungbote/videoguard-backend/internal/domain/videos"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&videos.Video{},
		&videos.VideoJobEvent{},
		&moderation.BadWord{},
	)
}

// EnsureVideoIndexes adds the partial indexes the claim and sweep queries rely on. Postgres only.
func EnsureVideoIndexes(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_video_claimable
		ON video (created_at)
		WHERE state IN ('pending', 'error');
	`).Error; err != nil {
		return fmt.Errorf("create idx_video_claimable: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_video_processing_claimed
		ON video (claimed_at)
		WHERE state = 'processing';
	`).Error; err != nil {
		return fmt.Errorf("create idx_video_processing_claimed: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_video_job_event_video_created
		ON video_job_event (video_id, created_at DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_video_job_event_video_created: %w", err)
	}
	return nil
}

func (s *Service) AutoMigrateAll() error {
	s.log.Info("Auto migrating tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if s.driver != DriverPostgres {
		return nil
	}
	if err := EnsureVideoIndexes(s.db); err != nil {
		s.log.Error("Video index migration failed", "error", err)
		return err
	}
	return nil
}
