package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskhive/taskhive-backend/internal/middleware"
)

// DashboardHandler serves the guarded landing surfaces. The payloads
// are intentionally thin; the guard chain in front of them is the
// point.
type DashboardHandler struct{}

func NewDashboardHandler() *DashboardHandler {
	return &DashboardHandler{}
}

func (dh *DashboardHandler) Customer(c *gin.Context) {
	c.JSON(http.StatusOK, withPrompt(c, gin.H{"view": "customer_dashboard"}))
}

func (dh *DashboardHandler) Provider(c *gin.Context) {
	c.JSON(http.StatusOK, withPrompt(c, gin.H{"view": "provider_dashboard"}))
}

func (dh *DashboardHandler) Admin(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"view": "admin_dashboard"})
}

func (dh *DashboardHandler) PostTask(c *gin.Context) {
	c.JSON(http.StatusOK, withPrompt(c, gin.H{"view": "post_task"}))
}

// withPrompt attaches the soft-gate onboarding prompt when the guard
// chain granted with one; the client overlays it as a dismissible
// banner above the normal content.
func withPrompt(c *gin.Context, body gin.H) gin.H {
	if prompt, ok := c.Get(middleware.OnboardingPromptKey); ok {
		body["onboarding_prompt"] = prompt
	}
	return body
}

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
