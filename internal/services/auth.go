package services

import (
	"context"
	"errors"
	"time"

	"github.com/panelbridge/surveylink/internal/config"
	"github.com/panelbridge/surveylink/internal/models"
	"github.com/panelbridge/surveylink/internal/store"
	"github.com/panelbridge/surveylink/internal/utils"
	"github.com/panelbridge/surveylink/pkg/logger"
)

type AuthService struct {
	store       *store.Store
	ldapService *LDAPService
	jwtConfig   *config.JWTConfig
}

func NewAuthService(st *store.Store, jwtCfg *config.JWTConfig, ldapCfg *config.LDAPConfig) *AuthService {
	return &AuthService{
		store:       st,
		ldapService: NewLDAPService(ldapCfg),
		jwtConfig:   jwtCfg,
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	AuthType string `json:"auth_type"` // local, ldap
}

type LoginResponse struct {
	Token    string       `json:"token"`
	User     *models.User `json:"user"`
	ExpireAt time.Time    `json:"expire_at"`
}

// Login authenticates a user and returns a JWT token.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest, clientIP string) (*LoginResponse, error) {
	var (
		user *models.User
		err  error
	)

	if req.AuthType == "" {
		req.AuthType = "local"
	}

	switch req.AuthType {
	case "local":
		user, err = s.localAuth(ctx, req.Username, req.Password)
	case "ldap":
		user, err = s.ldapAuth(ctx, req.Username, req.Password)
	default:
		return nil, errors.New("invalid auth type")
	}
	if err != nil {
		AuditWarning("auth", "login_failed", "login failed for "+req.Username, nil, clientIP, nil)
		return nil, err
	}

	token, err := utils.GenerateToken(user.ID, user.Username, user.Role, s.jwtConfig.ExpireHour)
	if err != nil {
		return nil, err
	}

	AuditInfo("auth", "login", user.Username+" logged in", &user.ID, clientIP, nil)

	return &LoginResponse{
		Token:    token,
		User:     user,
		ExpireAt: time.Now().Add(time.Duration(s.jwtConfig.ExpireHour) * time.Hour),
	}, nil
}

func (s *AuthService) localAuth(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, errors.New("invalid username or password")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, errors.New("user is disabled")
	}
	if !utils.CheckPassword(password, user.Password) {
		return nil, errors.New("invalid username or password")
	}
	return user, nil
}

// ldapAuth authenticates against the directory and provisions a local
// record for the user on first login.
func (s *AuthService) ldapAuth(ctx context.Context, username, password string) (*models.User, error) {
	ldapUser, err := s.ldapService.Authenticate(username, password)
	if err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByUsername(ctx, ldapUser.Username)
	if err == nil {
		if !user.IsActive {
			return nil, errors.New("user is disabled")
		}
		return user, nil
	}
	if !store.IsNotFound(err) {
		return nil, err
	}

	user = &models.User{
		Username: ldapUser.Username,
		Email:    ldapUser.Email,
		Role:     "user",
		Source:   "ldap",
		IsActive: true,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	logger.Infof("[Auth] Provisioned LDAP user %s", user.Username)
	return user, nil
}

func (s *AuthService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.store.GetUser(ctx, id)
}

// CreateAdminIfNotExists seeds the default admin account on first boot.
func (s *AuthService) CreateAdminIfNotExists(ctx context.Context) error {
	count, err := s.store.CountUsers(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := utils.HashPassword("admin123")
	if err != nil {
		return err
	}

	admin := &models.User{
		Username: "admin",
		Password: hash,
		Role:     "admin",
		Source:   "local",
		IsActive: true,
	}
	if err := s.store.CreateUser(ctx, admin); err != nil {
		return err
	}
	logger.Warn().Msg("created default admin account (admin/admin123), change the password")
	return nil
}
