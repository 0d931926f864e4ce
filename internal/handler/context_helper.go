package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/fleet-service-api/internal/middleware"
	"github.com/noah-isme/fleet-service-api/internal/models"
	appErrors "github.com/noah-isme/fleet-service-api/pkg/errors"
	"github.com/noah-isme/fleet-service-api/pkg/response"
)

// actorFromContext returns the authenticated actor or writes a 401.
func actorFromContext(c *gin.Context) (models.Actor, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.Actor{}, false
	}
	return actor, true
}

func bindError(err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body")
}

// queryTime parses an optional RFC 3339 query parameter.
func queryTime(c *gin.Context, key string) (time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, key+" must be an RFC 3339 timestamp")
	}
	return t.UTC(), nil
}
