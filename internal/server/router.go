package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/taskhive/taskhive-backend/internal/handlers"
	"github.com/taskhive/taskhive-backend/internal/middleware"
	"github.com/taskhive/taskhive-backend/internal/platform/envutil"
	"github.com/taskhive/taskhive-backend/internal/routes"
	"github.com/taskhive/taskhive-backend/internal/types"
)

type RouterConfig struct {
	AuthHandler      *handlers.AuthHandler
	SessionHandler   *handlers.SessionHandler
	ProfileHandler   *handlers.ProfileHandler
	AdminHandler     *handlers.AdminHandler
	NavHandler       *handlers.NavHandler
	DashboardHandler *handlers.DashboardHandler
	Guard            *middleware.GuardMiddleware
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(otelgin.Middleware(envutil.String("OTEL_SERVICE_NAME", "taskhive-backend")))

	origins := strings.Split(envutil.String("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173"), ",")
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		ExposeHeaders:    []string{"X-Onboarding-Path"},
		AllowCredentials: true,
	}))

	// Public
	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/auth/register", cfg.AuthHandler.Register)
	router.POST("/auth/login", cfg.AuthHandler.Login)
	// Session probe answers for anonymous callers too, but a presented
	// token must still resolve.
	router.GET("/session", cfg.Guard.Identify(), cfg.SessionHandler.GetSession)

	// Authenticated
	authed := router.Group("/")
	authed.Use(cfg.Guard.RequireAuth())
	authed.POST("/auth/refresh", cfg.AuthHandler.Refresh)
	authed.POST("/auth/logout", cfg.AuthHandler.Logout)
	authed.GET("/nav", cfg.NavHandler.GetNav)
	authed.GET("/profile", cfg.ProfileHandler.GetProfile)
	authed.POST("/profile/roles", cfg.ProfileHandler.AddRole)
	authed.POST("/profile/active-role", cfg.ProfileHandler.SwitchActiveRole)
	authed.POST(routes.OnboardingProviderBasic, cfg.ProfileHandler.SubmitProviderBasicInfo)
	authed.POST(routes.OnboardingProviderVerification, cfg.ProfileHandler.SubmitProviderVerification)
	authed.POST(routes.OnboardingCustomer, cfg.ProfileHandler.SubmitCustomerInterests)

	// Customer surfaces. Posting a task soft-gates on completion: the
	// form renders with a banner instead of bouncing the user away.
	router.GET(routes.PostTask, cfg.Guard.RequireRoleWithPrompt(types.RoleCustomer), cfg.DashboardHandler.PostTask)
	router.GET(routes.CustomerDashboard, cfg.Guard.RequireRole(types.RoleCustomer), cfg.DashboardHandler.Customer)

	// Provider surface.
	router.GET(routes.ProviderDashboard, cfg.Guard.RequireRole(types.RoleProvider), cfg.DashboardHandler.Provider)

	// Admin surfaces: membership re-verified against the role table on
	// every request, denials silent.
	admin := router.Group(routes.AdminDashboard)
	admin.Use(cfg.Guard.RequireAdmin())
	admin.GET("", cfg.DashboardHandler.Admin)
	admin.POST("/view-as", cfg.AdminHandler.ViewAs)
	admin.POST("/view-as/reset", cfg.AdminHandler.ResetView)

	return router
}
