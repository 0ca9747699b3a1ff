package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"

	"github.com/pokstore/backend/internal/apperrors"
	"github.com/pokstore/backend/internal/models"
	"github.com/pokstore/backend/internal/services"
)

// Maximum size of an imported CSV file
const maxImportSize = 10 << 20

type ItemHandler struct {
	inventory           *services.InventoryService
	imageStorageService *services.ImageStorageService
	locale              language.Tag
}

func NewItemHandler(inventory *services.InventoryService, imageStorage *services.ImageStorageService, locale language.Tag) *ItemHandler {
	return &ItemHandler{
		inventory:           inventory,
		imageStorageService: imageStorage,
		locale:              locale,
	}
}

// viewerKey identifies whose list state a request changes
func viewerKey(c *gin.Context) string {
	if s := sessionFrom(c); s != nil {
		return s.UserID
	}
	return c.ClientIP()
}

// parseViewQuery reads the list parameters. Absent parameters keep the
// remembered state.
func parseViewQuery(c *gin.Context) models.ViewQuery {
	var q models.ViewQuery
	if v, ok := c.GetQuery("search"); ok {
		q.Search = &v
	}
	if v, ok := c.GetQuery("condition"); ok {
		q.Condition = &v
	}
	if v, ok := c.GetQuery("sort"); ok && v != "" {
		key := models.ParseSortKey(v)
		q.Sort = &key
	}
	switch models.SortDirection(strings.ToLower(c.Query("direction"))) {
	case models.SortAsc:
		dir := models.SortAsc
		q.Direction = &dir
	case models.SortDesc:
		dir := models.SortDesc
		q.Direction = &dir
	}
	q.ToggleSort = c.Query("toggle") == "true"
	switch models.ViewMode(c.Query("mode")) {
	case models.ViewModeTable:
		mode := models.ViewModeTable
		q.Mode = &mode
	case models.ViewModeGrid:
		mode := models.ViewModeGrid
		q.Mode = &mode
	}
	if v := c.Query("page"); v != "" {
		if page, err := strconv.Atoi(v); err == nil {
			q.Page = &page
		}
	}
	q.JumpToLast = c.Query("page") == "last"
	return q
}

// ListItems returns one page of the filtered and sorted collection
func (h *ItemHandler) ListItems(c *gin.Context) {
	result, err := h.inventory.Browse(c.Request.Context(), viewerKey(c), parseViewQuery(c))
	if err != nil {
		RespondError(c, h.locale, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ItemHandler) GetItem(c *gin.Context) {
	item, err := h.inventory.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, h.locale, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// CreateItem adds an item and moves the viewer's list to the last page,
// where the new item shows up.
func (h *ItemHandler) CreateItem(c *gin.Context) {
	var req models.ItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, h.locale, err)
		return
	}

	ctx := c.Request.Context()
	item, err := h.inventory.Create(ctx, req)
	if err != nil {
		RespondError(c, h.locale, err)
		return
	}

	resp := gin.H{"item": item}
	if view, err := h.inventory.Browse(ctx, viewerKey(c), models.ViewQuery{JumpToLast: true}); err == nil {
		resp["view"] = view
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *ItemHandler) UpdateItem(c *gin.Context) {
	var patch models.ItemPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondBadRequest(c, h.locale, err)
		return
	}

	item, err := h.inventory.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		RespondError(c, h.locale, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *ItemHandler) DeleteItem(c *gin.Context) {
	if err := h.inventory.Delete(c.Request.Context(), c.Param("id")); err != nil {
		RespondError(c, h.locale, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "item deleted"})
}

type addTagRequest struct {
	Tag string `json:"tag"`
}

func (h *ItemHandler) AddTag(c *gin.Context) {
	var req addTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, h.locale, err)
		return
	}

	item, err := h.inventory.AddTag(c.Request.Context(), c.Param("id"), req.Tag)
	if err != nil {
		RespondError(c, h.locale, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *ItemHandler) RemoveTag(c *gin.Context) {
	item, err := h.inventory.RemoveTag(c.Request.Context(), c.Param("id"), c.Param("tag"))
	if err != nil {
		RespondError(c, h.locale, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// GetPriceHistory returns the chart series and the latest price change
func (h *ItemHandler) GetPriceHistory(c *gin.Context) {
	history, err := h.inventory.PriceHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, h.locale, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// UploadImage stores a photo of the item and points its imageUrl at it
func (h *ItemHandler) UploadImage(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		RespondError(c, h.locale, apperrors.Wrap(apperrors.CodeValidation, apperrors.KeyImageRequired, err))
		return
	}
	if file.Size > services.MaxImageSize {
		RespondError(c, h.locale, services.FileTooLarge("image", services.MaxImageSize))
		return
	}

	f, err := file.Open()
	if err != nil {
		RespondError(c, h.locale, apperrors.Wrap(apperrors.CodeValidation, apperrors.KeyFileUnreadable, err))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, services.MaxImageSize+1))
	if err != nil {
		RespondError(c, h.locale, apperrors.Wrap(apperrors.CodeValidation, apperrors.KeyFileUnreadable, err))
		return
	}

	ctx := c.Request.Context()
	id := c.Param("id")
	if _, err := h.inventory.Get(ctx, id); err != nil {
		RespondError(c, h.locale, err)
		return
	}

	url, err := h.imageStorageService.SaveImage(data)
	if err != nil {
		RespondError(c, h.locale, err)
		return
	}

	item, err := h.inventory.Update(ctx, id, models.ItemPatch{ImageURL: &url})
	if err != nil {
		RespondError(c, h.locale, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// ImportCSV creates an item per valid row of the uploaded file
func (h *ItemHandler) ImportCSV(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		RespondError(c, h.locale, apperrors.Wrap(apperrors.CodeValidation, apperrors.KeyCSVRequired, err))
		return
	}
	if file.Size > maxImportSize {
		RespondError(c, h.locale, services.FileTooLarge("file", maxImportSize))
		return
	}

	f, err := file.Open()
	if err != nil {
		RespondError(c, h.locale, apperrors.Wrap(apperrors.CodeValidation, apperrors.KeyFileUnreadable, err))
		return
	}
	defer f.Close()

	result, err := h.inventory.Import(c.Request.Context(), f)
	if err != nil {
		if result.Imported == 0 {
			RespondError(c, h.locale, err)
			return
		}
		// Some chunks made it in; report them with the failure
		printer := apperrors.PrinterFor(c.GetHeader("Accept-Language"), h.locale)
		msg := err.Error()
		var appErr *apperrors.Error
		if errors.As(err, &appErr) {
			msg = appErr.UserMessage(printer)
		}
		c.JSON(http.StatusMultiStatus, gin.H{"result": result, "error": msg})
		return
	}
	c.JSON(http.StatusOK, result)
}

// ExportCSV downloads the whole collection
func (h *ItemHandler) ExportCSV(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.inventory.Export(c.Request.Context(), &buf); err != nil {
		RespondError(c, h.locale, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+services.ExportFilename+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
