package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/videoguard-backend/internal/data/repos"
	"github.com/yungbote/videoguard-backend/internal/pkg/logger"
)

type Repos struct {
	Video   repos.VideoRepo
	BadWord repos.BadWordRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Video:   repos.NewVideoRepo(db, log),
		BadWord: repos.NewBadWordRepo(db, log, 0),
	}
}
