package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/helpdesk-tracker/internal/domain"
	"github.com/spec-kit/helpdesk-tracker/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-tracker/pkg/util"
)

const actorKey = "auth_actor"

// HandlerSessionHeader carries the legacy handler session token.
const HandlerSessionHeader = "X-Handler-Session"

// AuthMiddleware resolves the acting caller for each request, either from a
// bearer token or from a legacy handler session.
type AuthMiddleware struct {
	tokens   *TokenManager
	users    repository.UserRepository
	sessions *LegacySessionStore
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, users repository.UserRepository, sessions *LegacySessionStore) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users, sessions: sessions}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	if token := c.Get(HandlerSessionHeader); token != "" && m.sessions != nil {
		actor, err := m.resolveLegacy(c, token)
		if err != nil {
			return err
		}
		c.Locals(actorKey, actor)
		return c.Next()
	}

	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	actor, err := m.resolveActor(c, claims.SubjectID, false)
	if err != nil {
		return err
	}

	c.Locals(actorKey, actor)
	return c.Next()
}

func (m *AuthMiddleware) resolveLegacy(c *fiber.Ctx, token string) (*domain.Actor, error) {
	userID, err := m.sessions.Resolve(c.Context(), token)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NewUnauthorized("invalid handler session")
		}
		return nil, apperrors.MapError(err)
	}
	return m.resolveActor(c, userID, true)
}

func (m *AuthMiddleware) resolveActor(c *fiber.Ctx, userID string, legacy bool) (*domain.Actor, error) {
	user, err := m.users.GetByID(c.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("account not found")
		}
		return nil, apperrors.MapError(err)
	}
	roles, err := m.users.RolesForUser(c.Context(), user.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	actor := domain.NewActor(user.ID, roles...)
	actor.LegacySession = legacy
	return actor, nil
}

// ActorFromContext retrieves the authenticated actor.
func ActorFromContext(c *fiber.Ctx) (*domain.Actor, bool) {
	val := c.Locals(actorKey)
	if val == nil {
		return nil, false
	}
	actor, ok := val.(*domain.Actor)
	return actor, ok
}
