package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/panelbridge/surveylink/internal/config"
	"github.com/panelbridge/surveylink/internal/middleware"
	"github.com/panelbridge/surveylink/internal/services"
	"github.com/panelbridge/surveylink/internal/store"
	"github.com/panelbridge/surveylink/pkg/response"
)

type AuthHandler struct {
	authService *services.AuthService
	ldapEnabled bool
}

func NewAuthHandler(st *store.Store, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		authService: services.NewAuthService(st, &cfg.JWT, &cfg.LDAP),
		ldapEnabled: cfg.LDAP.Enabled,
	}
}

// Login authenticates an admin user
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), &req, c.ClientIP())
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	response.Success(c, resp)
}

// GetAuthConfig returns which auth methods are available
// GET /api/auth/config
func (h *AuthHandler) GetAuthConfig(c *gin.Context) {
	response.Success(c, gin.H{"ldap_enabled": h.ldapEnabled})
}

// GetCurrentUser returns the authenticated user
// GET /api/auth/me
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID := middleware.GetUserID(c)
	user, err := h.authService.GetUser(c.Request.Context(), userID)
	if err != nil {
		response.NotFound(c, "user not found")
		return
	}
	response.Success(c, user)
}

// Logout is a client-side token discard; the server only audits it.
// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	userID := middleware.GetUserID(c)
	services.AuditInfo("auth", "logout", middleware.GetUsername(c)+" logged out", &userID, c.ClientIP(), nil)
	response.Success(c, gin.H{"message": "logged out"})
}

// CreateAdminIfNotExists seeds the default admin on first boot.
func (h *AuthHandler) CreateAdminIfNotExists() error {
	return h.authService.CreateAdminIfNotExists(context.Background())
}
