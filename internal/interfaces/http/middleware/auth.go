package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/shared"
	"github.com/opentoworkprojects/bill-sub001/internal/infrastructure/auth"
	"github.com/opentoworkprojects/bill-sub001/internal/infrastructure/logger"
	"github.com/opentoworkprojects/bill-sub001/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Auth context keys
const (
	ActorKey     = "actor"
	BearerPrefix = "Bearer "
)

// TokenValidator verifies a bearer token
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// Auth resolves the bearer token into the calling actor. Requests without a
// valid token are rejected with 401.
func Auth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c, "Missing authorization header", nil)
			return
		}
		if !strings.HasPrefix(header, BearerPrefix) {
			abortUnauthorized(c, "Invalid authorization header format", nil)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
		if token == "" {
			abortUnauthorized(c, "Missing token", nil)
			return
		}

		claims, err := validator.ValidateToken(token)
		if err != nil {
			abortUnauthorized(c, tokenErrorMessage(err), err)
			return
		}

		actor := claims.Actor()
		c.Set(ActorKey, actor)
		ctx := logger.WithScope(c.Request.Context(), logger.Scope{TenantID: actor.TenantID, UserID: actor.UserID})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// GetActor returns the actor resolved by Auth
func GetActor(c *gin.Context) (shared.Actor, bool) {
	v, ok := c.Get(ActorKey)
	if !ok {
		return shared.Actor{}, false
	}
	actor, ok := v.(shared.Actor)
	return actor, ok
}

func tokenErrorMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token has expired"
	case errors.Is(err, auth.ErrTokenNotYetValid):
		return "Token is not yet valid"
	case errors.Is(err, auth.ErrMissingTenantID), errors.Is(err, auth.ErrMissingUserID), errors.Is(err, auth.ErrInvalidRole):
		return "Token does not identify an organization member"
	}
	return "Invalid token"
}

func abortUnauthorized(c *gin.Context, message string, err error) {
	if err != nil {
		logger.L(c.Request.Context()).Warn("Authentication failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(shared.CodeUnauthorized, message, GetRequestID(c)))
}
