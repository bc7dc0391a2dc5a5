package app

import (
	"github.com/gin-gonic/gin"

	"github.com/taskhive/taskhive-backend/internal/server"
)

func wireRouter(handlers Handlers, middleware Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		AuthHandler:      handlers.Auth,
		SessionHandler:   handlers.Session,
		ProfileHandler:   handlers.Profile,
		AdminHandler:     handlers.Admin,
		NavHandler:       handlers.Nav,
		DashboardHandler: handlers.Dashboard,
		Guard:            middleware.Guard,
	})
}
