package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"

	"github.com/pokstore/backend/internal/apperrors"
	"github.com/pokstore/backend/internal/models"
	"github.com/pokstore/backend/internal/services"
)

type AuthHandler struct {
	auth   *services.AuthService
	locale language.Tag
}

func NewAuthHandler(auth *services.AuthService, locale language.Tag) *AuthHandler {
	return &AuthHandler{auth: auth, locale: locale}
}

func (h *AuthHandler) SignIn(c *gin.Context) {
	var creds models.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		respondBadRequest(c, h.locale, err)
		return
	}

	session, err := h.auth.SignIn(c.Request.Context(), creds)
	if err != nil {
		RespondError(c, h.locale, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *AuthHandler) SignUp(c *gin.Context) {
	var creds models.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		respondBadRequest(c, h.locale, err)
		return
	}

	session, err := h.auth.SignUp(c.Request.Context(), creds)
	if err != nil {
		RespondError(c, h.locale, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (h *AuthHandler) SignOut(c *gin.Context) {
	token := BearerToken(c)
	if token == "" {
		RespondError(c, h.locale, apperrors.Localized(apperrors.CodeAuth, apperrors.KeyUnauthorized))
		return
	}
	if err := h.auth.SignOut(c.Request.Context(), token); err != nil && !apperrors.IsCode(err, apperrors.CodeAuth) {
		RespondError(c, h.locale, err)
		return
	}
	c.Status(http.StatusNoContent)
}
