package app

import (
	"gorm.io/gorm"

	"github.com/taskhive/taskhive-backend/internal/platform/logger"
	"github.com/taskhive/taskhive-backend/internal/repos"
)

type Repos struct {
	User      repos.UserRepo
	Profile   repos.ProfileRepo
	UserToken repos.UserTokenRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:      repos.NewUserRepo(db, log),
		Profile:   repos.NewProfileRepo(db, log),
		UserToken: repos.NewUserTokenRepo(db, log),
	}
}
