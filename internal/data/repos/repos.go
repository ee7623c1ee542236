package repos

import (
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/videoguard-backend/internal/data/repos/badwords"
	"github.com/yungbote/videoguard-backend/internal/data/repos/videos"
	"github.com/yungbote/videoguard-backend/internal/pkg/logger"
)

type VideoRepo = videos.VideoRepo
type VideoStats = videos.Stats
type BadWordRepo = badwords.BadWordRepo

func NewVideoRepo(db *gorm.DB, baseLog *logger.Logger) VideoRepo {
	return videos.NewVideoRepo(db, baseLog)
}

func NewBadWordRepo(db *gorm.DB, baseLog *logger.Logger, ttl time.Duration) BadWordRepo {
	return badwords.NewBadWordRepo(db, baseLog, ttl)
}
