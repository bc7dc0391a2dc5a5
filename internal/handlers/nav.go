package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskhive/taskhive-backend/internal/services"
)

type NavHandler struct {
	nav   services.NavService
	roles services.RoleService
}

func NewNavHandler(nav services.NavService, roles services.RoleService) *NavHandler {
	return &NavHandler{nav: nav, roles: roles}
}

func (nh *NavHandler) GetNav(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	effectiveRole, isAdmin, err := nh.roles.EffectiveRole(c.Request.Context(), userID)
	if err != nil {
		// Role resolution already fell back to customer; the menu should
		// still render.
		c.JSON(http.StatusOK, gin.H{"effective_role": effectiveRole, "links": nh.nav.BuildNav(effectiveRole, false)})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"effective_role": effectiveRole,
		"links":          nh.nav.BuildNav(effectiveRole, isAdmin),
	})
}
