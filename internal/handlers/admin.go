package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskhive/taskhive-backend/internal/services"
	"github.com/taskhive/taskhive-backend/internal/types"
)

// AdminHandler exposes the view-as override. The routes are behind the
// admin guard, but the service re-checks the identity anyway: the
// override must be impossible to set without the admin role.
type AdminHandler struct {
	roles services.RoleService
}

func NewAdminHandler(roles services.RoleService) *AdminHandler {
	return &AdminHandler{roles: roles}
}

func (ah *AdminHandler) ViewAs(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	var req struct {
		Role string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := ah.roles.SwitchRole(c.Request.Context(), userID, types.Role(req.Role)); err != nil {
		c.JSON(roleErrStatus(err), gin.H{"error": err.Error()})
		return
	}
	effectiveRole, isAdmin, err := ah.roles.EffectiveRole(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve role"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"effective_role": effectiveRole, "is_admin_identity": isAdmin})
}

func (ah *AdminHandler) ResetView(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	if err := ah.roles.ResetRole(c.Request.Context(), userID); err != nil {
		c.JSON(roleErrStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"effective_role": types.RoleAdmin})
}

func roleErrStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrNotAdmin):
		return http.StatusForbidden
	case errors.Is(err, services.ErrInvalidRole):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
