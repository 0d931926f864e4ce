package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/fleet-service-api/internal/models"
	appErrors "github.com/noah-isme/fleet-service-api/pkg/errors"
	"github.com/noah-isme/fleet-service-api/pkg/response"
)

// RequireRoles lets the request through only for the listed roles. Lifecycle
// rules are enforced by the services; this gate covers whole endpoints.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[actor.Role]; !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "role "+string(actor.Role)+" cannot access this endpoint"))
			c.Abort()
			return
		}
		c.Next()
	}
}
