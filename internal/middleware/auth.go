package middleware

import (
	"net/http"
	"strings"

	"warmwall/internal/authz"
	"warmwall/internal/services"

	"github.com/gin-gonic/gin"
)

const (
	ActorKey     = "actor"
	authErrorKey = "auth_error"
)

// LoadUser 解析 Bearer token，成功则把 Actor 放进 context。
// 没有 token 或 token 无效都继续执行，由 AuthRequired 决定是否拦截
func LoadUser(tokens *services.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.Set(authErrorKey, "Invalid token")
			c.Next()
			return
		}

		claims, err := tokens.Verify(strings.TrimSpace(token))
		if err != nil {
			c.Set(authErrorKey, "Invalid token")
			c.Next()
			return
		}
		c.Set(ActorKey, claims.Actor())
		c.Next()
	}
}

// CurrentActor returns the authenticated caller, if any.
func CurrentActor(c *gin.Context) (authz.Actor, bool) {
	v, ok := c.Get(ActorKey)
	if !ok {
		return authz.Actor{}, false
	}
	actor, ok := v.(authz.Actor)
	return actor, ok
}

// ViewerID 未登录时为 0
func ViewerID(c *gin.Context) uint {
	actor, _ := CurrentActor(c)
	return actor.ID
}

// AuthRequired rejects requests without a valid token. onActive, when set, is
// called with the caller's id and must not block.
func AuthRequired(onActive func(userID uint)) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		if !ok {
			msg := "Unauthorized"
			if v, exists := c.Get(authErrorKey); exists {
				msg = v.(string)
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}
		if onActive != nil {
			onActive(actor.ID)
		}
		c.Next()
	}
}

// AdminRequired must run after AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		if !ok || !actor.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}
		c.Next()
	}
}
