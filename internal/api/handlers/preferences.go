package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"

	"github.com/pokstore/backend/internal/apperrors"
	"github.com/pokstore/backend/internal/services"
)

type PreferenceHandler struct {
	preferences *services.PreferenceService
	locale      language.Tag
}

func NewPreferenceHandler(preferences *services.PreferenceService, locale language.Tag) *PreferenceHandler {
	return &PreferenceHandler{preferences: preferences, locale: locale}
}

func (h *PreferenceHandler) GetPreferences(c *gin.Context) {
	c.JSON(http.StatusOK, h.preferences.Get())
}

type darkModeRequest struct {
	Enabled *bool `json:"enabled"`
}

// SetDarkMode persists the dark mode flag
func (h *PreferenceHandler) SetDarkMode(c *gin.Context) {
	var req darkModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, h.locale, err)
		return
	}
	if req.Enabled == nil {
		RespondError(c, h.locale, apperrors.Validation(map[string]string{"enabled": "required"}))
		return
	}

	prefs, err := h.preferences.SetDarkMode(*req.Enabled)
	if err != nil {
		RespondError(c, h.locale, err)
		return
	}
	c.JSON(http.StatusOK, prefs)
}
