package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/huangang/taskboard/internal/domain"
	"github.com/huangang/taskboard/internal/utils"
	"github.com/huangang/taskboard/pkg/logger"
	"github.com/huangang/taskboard/pkg/response"
)

const (
	ContextUserID    = "user_id"
	ContextPrincipal = "principal"
	ContextClaims    = "claims"
)

// PrincipalResolver builds the principal of an authenticated user.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, userID uint) (*domain.Principal, error)
}

// RevocationChecker reports logged-out tokens.
type RevocationChecker interface {
	Revoked(ctx context.Context, tokenID string) (bool, error)
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
// When allowQuery is set, a "token" query parameter is accepted as well,
// since EventSource clients cannot set headers.
func BearerToken(c *gin.Context, allowQuery bool) string {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return strings.TrimSpace(parts[1])
	}
	if allowQuery {
		return c.Query("token")
	}
	return ""
}

// AuthRequired validates the JWT, rejects revoked tokens and stores the
// principal resolved from the identity store in the context.
func AuthRequired(identity PrincipalResolver, tokens RevocationChecker) gin.HandlerFunc {
	return authenticate(identity, tokens, false)
}

// StreamAuthRequired is AuthRequired also accepting ?token=.
func StreamAuthRequired(identity PrincipalResolver, tokens RevocationChecker) gin.HandlerFunc {
	return authenticate(identity, tokens, true)
}

func authenticate(identity PrincipalResolver, tokens RevocationChecker, allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := BearerToken(c, allowQuery)
		if tokenString == "" {
			response.Unauthorized(c, "authorization header required")
			c.Abort()
			return
		}

		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		if tokens != nil {
			revoked, err := tokens.Revoked(ctx, claims.ID)
			if err != nil {
				logger.Error().Err(err).Msg("token revocation check failed")
				response.Error(c, err)
				c.Abort()
				return
			}
			if revoked {
				response.Unauthorized(c, "token has been revoked")
				c.Abort()
				return
			}
		}

		principal, err := identity.ResolvePrincipal(ctx, claims.UserID)
		if err != nil {
			if domain.KindOf(err) == domain.KindNotFound {
				// the account was deleted after the token was issued
				response.Unauthorized(c, "user no longer exists")
			} else {
				logger.Error().Err(err).Uint("user_id", claims.UserID).Msg("failed to resolve principal")
				response.Error(c, err)
			}
			c.Abort()
			return
		}

		c.Set(ContextUserID, principal.ID)
		c.Set(ContextPrincipal, principal)
		c.Set(ContextClaims, claims)
		c.Next()
	}
}

// RequirePermission aborts with 403 unless the principal holds every perm.
func RequirePermission(perms ...domain.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := GetPrincipal(c)
		for _, perm := range perms {
			if !p.Can(perm) {
				response.Forbidden(c, "missing permission: "+string(perm))
				c.Abort()
				return
			}
		}
		c.Next()
	}
}

// GetUserID gets the current user ID from context
func GetUserID(c *gin.Context) uint {
	return c.GetUint(ContextUserID)
}

// GetPrincipal returns the principal stored by AuthRequired, or nil.
func GetPrincipal(c *gin.Context) *domain.Principal {
	if v, ok := c.Get(ContextPrincipal); ok {
		if p, ok := v.(*domain.Principal); ok {
			return p
		}
	}
	return nil
}

// GetClaims returns the parsed token claims, or nil.
func GetClaims(c *gin.Context) *utils.Claims {
	if v, ok := c.Get(ContextClaims); ok {
		if claims, ok := v.(*utils.Claims); ok {
			return claims
		}
	}
	return nil
}
