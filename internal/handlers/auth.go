package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskhive/taskhive-backend/internal/services"
	"github.com/taskhive/taskhive-backend/internal/types"
)

type AuthHandler struct {
	sessions services.SessionService
}

func NewAuthHandler(sessions services.SessionService) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

func (ah *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Password  string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	user := types.User{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	}
	if err := ah.sessions.RegisterUser(c.Request.Context(), &user); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (ah *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	accessToken, refreshToken, err := ah.sessions.LoginUser(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"expires_in":    int(ah.sessions.GetAccessTTL().Seconds()),
	})
}

func (ah *AuthHandler) Refresh(c *gin.Context) {
	accessToken, refreshToken, err := ah.sessions.RefreshUser(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"expires_in":    int(ah.sessions.GetAccessTTL().Seconds()),
	})
}

func (ah *AuthHandler) Logout(c *gin.Context) {
	if err := ah.sessions.LogoutUser(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out successfully"})
}

// Session reports who the caller is, under which effective role the UI
// should operate, and whether onboarding is still pending. This is the
// first call every client makes after boot.
type SessionHandler struct {
	sessions   services.SessionService
	profiles   services.ProfileService
	roles      services.RoleService
	completion services.CompletionService
}

func NewSessionHandler(
	sessions services.SessionService,
	profiles services.ProfileService,
	roles services.RoleService,
	completion services.CompletionService,
) *SessionHandler {
	return &SessionHandler{
		sessions:   sessions,
		profiles:   profiles,
		roles:      roles,
		completion: completion,
	}
}

func (sh *SessionHandler) GetSession(c *gin.Context) {
	ctx := c.Request.Context()
	identity, ok := sh.sessions.CurrentIdentity(ctx)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}
	profile, err := sh.profiles.GetForUser(ctx, identity)
	if err != nil {
		// Completion status being unknown must not block the session.
		profile = nil
	}
	effectiveRole, isAdmin := sh.roles.Resolve(ctx, identity, profile)
	completion := sh.completion.Evaluate(profile, effectiveRole)
	c.JSON(http.StatusOK, gin.H{
		"authenticated":     true,
		"user_id":           identity,
		"effective_role":    effectiveRole,
		"is_admin_identity": isAdmin,
		"profile":           profile,
		"completion":        completion,
	})
}
