package app

import (
	"github.com/taskhive/taskhive-backend/internal/handlers"
	"github.com/taskhive/taskhive-backend/internal/platform/logger"
)

type Handlers struct {
	Auth      *handlers.AuthHandler
	Session   *handlers.SessionHandler
	Profile   *handlers.ProfileHandler
	Admin     *handlers.AdminHandler
	Nav       *handlers.NavHandler
	Dashboard *handlers.DashboardHandler
}

func wireHandlers(log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Auth:      handlers.NewAuthHandler(services.Session),
		Session:   handlers.NewSessionHandler(services.Session, services.Profile, services.Role, services.Completion),
		Profile:   handlers.NewProfileHandler(services.Profile),
		Admin:     handlers.NewAdminHandler(services.Role),
		Nav:       handlers.NewNavHandler(services.Nav, services.Role),
		Dashboard: handlers.NewDashboardHandler(),
	}
}
