package handlers

import (
	"errors"
	"log"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"

	"github.com/pokstore/backend/internal/apperrors"
	"github.com/pokstore/backend/internal/models"
)

// SessionKey is the gin context key holding the authenticated *models.Session
const SessionKey = "session"

// RespondError writes err as {"error": message, "code": code}. The message
// is localized from Accept-Language, falling back to locale.
func RespondError(c *gin.Context, locale language.Tag, err error) {
	printer := apperrors.PrinterFor(c.GetHeader("Accept-Language"), locale)

	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		log.Printf("API: %s %s: %v", c.Request.Method, c.FullPath(), err)
		appErr = apperrors.Wrap(apperrors.CodeUnknown, apperrors.KeyUnexpected, err)
	}

	body := gin.H{
		"error": appErr.UserMessage(printer),
		"code":  appErr.Code,
	}
	if len(appErr.Fields) > 0 {
		body["fields"] = appErr.Fields
	}
	c.AbortWithStatusJSON(appErr.Code.HTTPStatus(), body)
}

// respondBadRequest reports a body that couldn't be decoded
func respondBadRequest(c *gin.Context, locale language.Tag, err error) {
	RespondError(c, locale, apperrors.Wrap(apperrors.CodeValidation, apperrors.KeyInvalidBody, err))
}

// sessionFrom returns the session set by the auth middleware
func sessionFrom(c *gin.Context) *models.Session {
	if v, ok := c.Get(SessionKey); ok {
		if s, ok := v.(*models.Session); ok {
			return s
		}
	}
	return nil
}

// BearerToken extracts the token of an "Authorization: Bearer" header
func BearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}
