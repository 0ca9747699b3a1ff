package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"

	"github.com/pokstore/backend/internal/api/handlers"
	"github.com/pokstore/backend/internal/apperrors"
	"github.com/pokstore/backend/internal/metrics"
	"github.com/pokstore/backend/internal/services"
)

// RequestMetrics records count and latency per route
func RequestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// RequireSession rejects requests without a valid Bearer session. The
// session is stored under handlers.SessionKey and its token travels with the
// request context down to the store.
func RequireSession(auth *services.AuthService, locale language.Tag) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := handlers.BearerToken(c)
		if token == "" {
			handlers.RespondError(c, locale, apperrors.Localized(apperrors.CodeAuth, apperrors.KeyUnauthorized))
			return
		}

		session, err := auth.Validate(token)
		if err != nil {
			handlers.RespondError(c, locale, err)
			return
		}

		c.Set(handlers.SessionKey, session)
		c.Request = c.Request.WithContext(services.WithAccessToken(c.Request.Context(), session.Token))
		c.Next()
	}
}
