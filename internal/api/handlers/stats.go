package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"

	"github.com/pokstore/backend/internal/models"
	"github.com/pokstore/backend/internal/services"
)

type StatsHandler struct {
	inventory       *services.InventoryService
	snapshotService *services.SnapshotService
	locale          language.Tag
}

func NewStatsHandler(inventory *services.InventoryService, snapshot *services.SnapshotService, locale language.Tag) *StatsHandler {
	return &StatsHandler{
		inventory:       inventory,
		snapshotService: snapshot,
		locale:          locale,
	}
}

// GetStats returns every analytics aggregate over the collection
func (h *StatsHandler) GetStats(c *gin.Context) {
	snapshot, err := h.inventory.Analytics(c.Request.Context())
	if err != nil {
		RespondError(c, h.locale, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// GetValueHistory returns the daily value snapshots for a period
func (h *StatsHandler) GetValueHistory(c *gin.Context) {
	period := c.DefaultQuery("period", "month")

	snapshots, err := h.snapshotService.GetHistory(period)
	if err != nil {
		RespondError(c, h.locale, err)
		return
	}

	c.JSON(http.StatusOK, models.ValueHistoryResponse{
		Snapshots: snapshots,
		Period:    period,
	})
}

// TakeSnapshot records today's value right away
func (h *StatsHandler) TakeSnapshot(c *gin.Context) {
	snapshot, err := h.snapshotService.TakeSnapshot(c.Request.Context())
	if err != nil {
		RespondError(c, h.locale, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}
