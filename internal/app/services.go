package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/taskhive/taskhive-backend/internal/platform/logger"
	"github.com/taskhive/taskhive-backend/internal/services"
)

type Services struct {
	Session    services.SessionService
	Profile    services.ProfileService
	Role       services.RoleService
	Completion services.CompletionService
	Guard      services.GuardService
	Nav        services.NavService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")
	session := services.NewSessionService(
		db,
		log,
		reposet.User,
		reposet.Profile,
		reposet.UserToken,
		clients.IdentityBus,
		cfg.JWTSecretKey,
		cfg.AccessTokenTTL,
		cfg.RefreshTokenTTL,
	)
	profile := services.NewProfileService(db, log, reposet.Profile)
	role := services.NewRoleService(log, reposet.Profile, clients.Overrides)
	completion := services.NewCompletionService()
	guard := services.NewGuardService(log, reposet.Profile, role, completion)
	nav, err := services.NewNavService()
	if err != nil {
		return Services{}, fmt.Errorf("init nav service: %w", err)
	}
	return Services{
		Session:    session,
		Profile:    profile,
		Role:       role,
		Completion: completion,
		Guard:      guard,
		Nav:        nav,
	}, nil
}
