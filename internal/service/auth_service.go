package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-tracker/internal/auth"
	"github.com/spec-kit/helpdesk-tracker/internal/config"
	"github.com/spec-kit/helpdesk-tracker/internal/domain"
	"github.com/spec-kit/helpdesk-tracker/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-tracker/pkg/util"
)

// AuthService coordinates registration and login flows, including the
// backward-compatible fixed-credential handler login.
type AuthService struct {
	users      repository.UserRepository
	sessions   *auth.LegacySessionStore
	tokenMgr   *auth.TokenManager
	bcryptCost int
	legacyUser string
	legacyPass string
}

// AuthDependencies bundles collaborators for the auth service.
type AuthDependencies struct {
	UserRepo     repository.UserRepository
	SessionStore *auth.LegacySessionStore
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		sessions:   deps.SessionStore,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
		legacyUser: cfg.Auth.LegacyHandlerUsername,
		legacyPass: cfg.Auth.LegacyHandlerPassword,
	}
}

// TokenManager exposes the token manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// Register creates a new account.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*domain.User, string, time.Time, error) {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, "", time.Time{}, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Status:       domain.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.ID, nil)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	return user, token, exp, nil
}

// Login authenticates by email and password and issues a token carrying
// the user's role tags.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}

	roles, err := s.users.RolesForUser(ctx, user.ID)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	token, exp, err := s.tokenMgr.GenerateToken(user.ID, roles)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	return user, token, exp, nil
}

// LegacyHandlerLogin is the ad hoc secondary credential path kept for
// backward compatibility. It validates the fixed credentials, makes sure a
// real handler account enrolled in the handler group exists, and opens a
// redis-backed session for it.
func (s *AuthService) LegacyHandlerLogin(ctx context.Context, username, password string) (string, error) {
	if username != s.legacyUser || password != s.legacyPass {
		return "", apperrors.NewUnauthorized("invalid handler credentials")
	}

	user, err := s.ensureLegacyHandlerUser(ctx)
	if err != nil {
		return "", err
	}

	token, err := s.sessions.CreateSession(ctx, user.ID)
	if err != nil {
		return "", apperrors.MapError(err)
	}
	return token, nil
}

func (s *AuthService) ensureLegacyHandlerUser(ctx context.Context) (*domain.User, error) {
	user, err := s.users.GetByName(ctx, s.legacyUser)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	// First legacy login: create the account with an unguessable password
	// so it is only reachable through the session path.
	hash, err := auth.HashPassword(uuid.NewString(), s.bcryptCost)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	user = &domain.User{
		Name:         s.legacyUser,
		Email:        s.legacyUser + "@legacy.local",
		PasswordHash: hash,
		Status:       domain.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.users.AddToRole(ctx, user.ID, domain.RoleHandler); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}
