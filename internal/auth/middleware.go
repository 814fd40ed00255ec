package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/githubpalak/gas-utility-portal/internal/domain"
	"github.com/githubpalak/gas-utility-portal/internal/repository"
	apperrors "github.com/githubpalak/gas-utility-portal/pkg/util"
)

const (
	identityKey = "auth_identity"
	claimsKey   = "auth_claims"
)

// AuthMiddleware validates bearer tokens and loads the calling identity.
type AuthMiddleware struct {
	tokens     *TokenManager
	identities repository.IdentityRepository
	denylist   Denylist
}

// NewAuthMiddleware constructs middleware. denylist may be nil.
func NewAuthMiddleware(tokens *TokenManager, identities repository.IdentityRepository, denylist Denylist) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, identities: identities, denylist: denylist}
}

// Handle enforces authentication for protected routes. The identity is read
// from the store on every call.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	token, err := BearerToken(c)
	if err != nil {
		return err
	}

	claims, err := m.tokens.ParseToken(token)
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	if m.denylist != nil {
		revoked, err := m.denylist.IsRevoked(c.UserContext(), claims.ID)
		if err != nil {
			return apperrors.NewInternalError(fmt.Errorf("check token revocation: %w", err))
		}
		if revoked {
			return apperrors.NewUnauthorized("token has been revoked")
		}
	}

	identity, err := m.identities.GetByID(c.UserContext(), claims.Subject)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("identity not found")
		}
		return apperrors.MapError(err)
	}

	c.Locals(identityKey, identity)
	c.Locals(claimsKey, claims)
	return c.Next()
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return "", apperrors.NewUnauthorized("missing authorization header")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", apperrors.NewUnauthorized("invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}

// IdentityFromContext retrieves the authenticated identity.
func IdentityFromContext(c *fiber.Ctx) (*domain.Identity, bool) {
	identity, ok := c.Locals(identityKey).(*domain.Identity)
	return identity, ok && identity != nil
}

// ClaimsFromContext retrieves the parsed token claims.
func ClaimsFromContext(c *fiber.Ctx) (*Claims, bool) {
	claims, ok := c.Locals(claimsKey).(*Claims)
	return claims, ok && claims != nil
}
