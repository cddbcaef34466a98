package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"allocation-engine/internal/domain"
	"allocation-engine/pkg/response"
)

const (
	identityContextKey = "identity"
	identityUserKey    = "identity_user"

	userIDHeader = "X-User-ID"
	rolesHeader  = "X-User-Roles"
)

// Identity resolves the caller from the gateway-injected headers and makes
// it available to handlers. Session mechanics live upstream; from here on
// identity is an explicit parameter, never ambient state.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(userIDHeader))
		if userID == "" {
			response.Error(c, 401, "UNAUTHENTICATED", "Missing caller identity", "")
			c.Abort()
			return
		}

		var roles []string
		for _, role := range strings.Split(c.GetHeader(rolesHeader), ",") {
			if role = strings.TrimSpace(role); role != "" {
				roles = append(roles, role)
			}
		}

		identity := domain.NewIdentity(userID, roles)
		c.Set(identityContextKey, identity)
		c.Set(identityUserKey, userID)
		c.Next()
	}
}

// IdentityFrom retrieves the caller identity stored by the middleware.
func IdentityFrom(c *gin.Context) domain.Identity {
	if v, ok := c.Get(identityContextKey); ok {
		if identity, ok := v.(domain.Identity); ok {
			return identity
		}
	}
	return domain.Identity{}
}
