package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"clubhub/pkg/authz"
	"clubhub/pkg/utils"
)

const (
	ctxUserID = "user_id"
	ctxRole   = "Role"
)

func JWTAuthMiddleware(signer *utils.JWTSigner) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			utils.RespondError(c, http.StatusUnauthorized, "Authorization header missing or invalid")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := signer.ValidateToken(tokenString)
		if err != nil {
			utils.RespondError(c, http.StatusUnauthorized, "Invalid or expired token")
			c.Abort()
			return
		}

		if _, err := uuid.Parse(claims.UserID); err != nil {
			utils.RespondError(c, http.StatusUnauthorized, "Invalid or expired token")
			c.Abort()
			return
		}
		if _, err := authz.ParseRole(claims.Role); err != nil {
			utils.RespondError(c, http.StatusUnauthorized, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

// ActorFromContext returns the identity stored by JWTAuthMiddleware.
func ActorFromContext(c *gin.Context) (authz.Actor, bool) {
	id, err := uuid.Parse(c.GetString(ctxUserID))
	if err != nil {
		return authz.Actor{}, false
	}
	role, err := authz.ParseRole(c.GetString(ctxRole))
	if err != nil {
		return authz.Actor{}, false
	}
	return authz.Actor{ID: id, Role: role}, true
}

// RequireCapability rejects callers whose role lacks any of caps.
func RequireCapability(caps ...authz.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFromContext(c)
		if !ok {
			utils.RespondError(c, http.StatusUnauthorized, "Unauthorized")
			c.Abort()
			return
		}
		for _, cp := range caps {
			if actor.Can(cp) {
				c.Next()
				return
			}
		}
		utils.RespondError(c, http.StatusForbidden, "Forbidden: insufficient permissions")
		c.Abort()
	}
}
