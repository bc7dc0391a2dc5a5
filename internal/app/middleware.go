package app

import (
	"github.com/taskhive/taskhive-backend/internal/middleware"
	"github.com/taskhive/taskhive-backend/internal/platform/logger"
)

type Middleware struct {
	Guard *middleware.GuardMiddleware
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Guard: middleware.NewGuardMiddleware(log, services.Session, services.Guard),
	}
}
