package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"

	"github.com/pokstore/backend/internal/services"
)

type PriceHandler struct {
	priceWorker *services.PriceWorker
	locale      language.Tag
}

func NewPriceHandler(priceWorker *services.PriceWorker, locale language.Tag) *PriceHandler {
	return &PriceHandler{
		priceWorker: priceWorker,
		locale:      locale,
	}
}

// GetPriceStatus returns the worker state and the eBay quota
func (h *PriceHandler) GetPriceStatus(c *gin.Context) {
	if h.priceWorker == nil {
		c.JSON(http.StatusOK, gin.H{"enabled": false})
		return
	}
	c.JSON(http.StatusOK, h.priceWorker.GetStatus())
}

// RefreshItemPrice looks up the market price of one item right away
func (h *PriceHandler) RefreshItemPrice(c *gin.Context) {
	if h.priceWorker == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "market prices are not configured"})
		return
	}

	result, err := h.priceWorker.RefreshItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, h.locale, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
