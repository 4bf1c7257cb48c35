package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"treasury/internal/treasury"
)

const actorKey = "auth.actor"

// Middleware verifies the bearer token and stores the resulting actor on the
// gin context. Capability checks happen later, in the treasury service.
func Middleware(j JWT) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := bearerToken(c.GetHeader("Authorization"))
		if tok == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "msg": "missing bearer token"})
			return
		}
		claims, err := j.Verify(tok)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "msg": "invalid token"})
			return
		}
		c.Set(actorKey, treasury.Actor{ID: claims.Subject, Role: claims.Role})
		c.Next()
	}
}

// ActorFromContext returns the authenticated actor set by Middleware.
func ActorFromContext(c *gin.Context) (treasury.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return treasury.Actor{}, false
	}
	actor, ok := v.(treasury.Actor)
	return actor, ok
}

func bearerToken(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	parts := strings.SplitN(v, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
