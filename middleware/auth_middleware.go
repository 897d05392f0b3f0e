package middleware

import (
	"errors"

	"curation-bff/clients"
	apperrors "curation-bff/common/errors"
	"curation-bff/common/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const CredentialsContextKey = "credentials"

// AuthMiddleware requires a bearer token and makes it available to upstream
// calls through the request context. devToken, when non-empty, stands in for
// a missing token; config validation keeps it out of production.
func AuthMiddleware(devToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := clients.BearerToken(c.Request)
		if !ok && devToken != "" {
			logger.Warn(c, "using development auth token", zap.String("path", c.Request.URL.Path))
			token, ok = devToken, true
		}
		if !ok {
			apperrors.Respond(c, apperrors.Unauthenticated(""))
			return
		}

		creds := clients.CredentialsFromToken(token)
		c.Set(CredentialsContextKey, creds)
		c.Request = c.Request.WithContext(clients.WithCredentials(c.Request.Context(), creds))
		c.Next()
	}
}

func GetCredentials(c *gin.Context) (clients.Credentials, error) {
	val, exists := c.Get(CredentialsContextKey)
	if !exists {
		return clients.Credentials{}, errors.New("credentials not found in context")
	}
	creds, ok := val.(clients.Credentials)
	if !ok || creds.Token == "" {
		return clients.Credentials{}, errors.New("credentials have invalid type in context")
	}
	return creds, nil
}
