package auth

import (
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "gamecatalog/pkg/errors"
	"gamecatalog/pkg/response"
)

const CtxClaimsKey = "auth_claims"

// Guards bundles the middlewares route groups use.
type Guards struct {
	// Optional resolves a bearer token when one is sent. A request without a
	// token continues anonymously; a bad token is rejected.
	Optional gin.HandlerFunc
	// Required rejects requests without a valid token.
	Required gin.HandlerFunc
	// Admin must run after Required and rejects non-admin users.
	Admin gin.HandlerFunc
}

func NewGuards(tokens TokenService, repo *Repo) Guards {
	return Guards{
		Optional: OptionalAuth(tokens, repo),
		Required: AuthMiddleware(tokens, repo),
		Admin:    RequireRole(RoleAdmin),
	}
}

func AuthMiddleware(tokens TokenService, repo *Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c)
		if !ok {
			response.Error(c, apperrors.Unauthenticated("missing bearer token", nil))
			return
		}
		authenticate(c, tokens, repo, raw)
	}
}

// OptionalAuth attaches claims when a bearer token is present.
func OptionalAuth(tokens TokenService, repo *Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c)
		if !ok {
			return
		}
		authenticate(c, tokens, repo, raw)
	}
}

func authenticate(c *gin.Context, tokens TokenService, repo *Repo, raw string) {
	claims, err := tokens.Parse(raw)
	if err != nil {
		response.Error(c, apperrors.Unauthenticated("invalid token", err))
		return
	}
	if repo != nil {
		current, found, err := repo.GetTokenVersion(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, apperrors.Store("token check failed", err))
			return
		}
		if !found || current != claims.TokenVersion {
			response.Error(c, apperrors.Unauthenticated("invalid token", nil))
			return
		}
	}
	c.Set(CtxClaimsKey, claims)
}

func bearerToken(c *gin.Context) (string, bool) {
	h := c.GetHeader("Authorization")
	if h == "" || !strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(h[len("Bearer "):])
	return raw, raw != ""
}

func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := MustGetClaims(c)
		if claims == nil {
			response.Error(c, apperrors.Unauthenticated("authentication required", nil))
			return
		}
		if claims.Role != role {
			response.Error(c, apperrors.Forbidden("insufficient permissions", nil))
			return
		}
	}
}

func MustGetClaims(c *gin.Context) *Claims {
	v, ok := c.Get(CtxClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}

// UserID returns the authenticated user's id, or "" for anonymous requests.
func UserID(c *gin.Context) string {
	if claims := MustGetClaims(c); claims != nil {
		return claims.UserID
	}
	return ""
}
