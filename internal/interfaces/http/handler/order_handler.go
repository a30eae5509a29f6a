package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	appmanifest "github.com/manifest/backend/internal/application/manifest"
	"github.com/manifest/backend/internal/domain/manifest"
	"github.com/manifest/backend/internal/domain/shared"
	csvimport "github.com/manifest/backend/internal/infrastructure/import"
	"github.com/manifest/backend/internal/interfaces/http/dto"
	"github.com/manifest/backend/internal/interfaces/http/middleware"
)

// csvFormField is the multipart field holding the uploaded order export
const csvFormField = "file"

// OrderHandler serves the order store: imports, listing and lookups
type OrderHandler struct {
	BaseHandler
	importService *appmanifest.ImportService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(importService *appmanifest.ImportService) *OrderHandler {
	return &OrderHandler{importService: importService}
}

// RegisterRoutes mounts the order routes on rg
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/orders")
	orders.POST("/import", h.Import)
	orders.POST("/import/csv", h.ImportCSV)
	orders.GET("", h.List)
	orders.GET("/:id", h.Get)
}

// Import upserts a JSON list of order rows
//
//	POST /api/v1/orders/import {"rows": [{...}, ...]}
func (h *OrderHandler) Import(c *gin.Context) {
	var req dto.ImportRowsRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Rows == nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "Provide 'rows' as a list of objects")
		return
	}

	result, err := h.importService.ImportRows(c.Request.Context(), req.Rows)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ImportCSV upserts the rows of an uploaded CSV file
//
//	POST /api/v1/orders/import/csv (multipart, field "file")
func (h *OrderHandler) ImportCSV(c *gin.Context) {
	fileHeader, err := c.FormFile(csvFormField)
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidFile, "Upload the order export as multipart field 'file'")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidFile, "Uploaded file could not be read")
		return
	}
	defer file.Close()

	records, err := csvimport.ReadRecords(file)
	if err != nil {
		h.handleCSVError(c, err)
		return
	}

	result, err := h.importService.ImportRecords(c.Request.Context(), records)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

func (h *OrderHandler) handleCSVError(c *gin.Context, err error) {
	var rowErr csvimport.RowError
	switch {
	case errors.As(err, &rowErr):
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidFile, rowErr.Error())
	case errors.Is(err, csvimport.ErrEmptyFile),
		errors.Is(err, csvimport.ErrInvalidEncoding),
		errors.Is(err, csvimport.ErrMissingHeader),
		errors.Is(err, csvimport.ErrNoDataRows):
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidFile, err.Error())
	default:
		h.HandleError(c, err)
	}
}

// List returns stored orders as listing rows, most recent first
//
//	GET /api/v1/orders?page=1&page_size=100&manifest_status=manifested|unset&sort_by=created_at&sort_order=desc
func (h *OrderHandler) List(c *gin.Context) {
	req := dto.ListOrdersRequest{ListRequest: dto.DefaultListRequest()}
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	filter := manifest.OrderFilter{Filter: shared.Filter{
		Page:     req.Page,
		PageSize: req.PageSize,
		OrderBy:  req.SortBy,
		OrderDir: req.SortOrder,
	}}
	switch req.ManifestStatus {
	case "manifested":
		status := manifest.ManifestStatusManifested
		filter.ManifestStatus = &status
	case "unset":
		status := manifest.ManifestStatusUnset
		filter.ManifestStatus = &status
	}

	result, err := h.importService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, result.Items, result.Total, req.Page, req.PageSize)
}

// Get returns the structured view of one order
//
//	GET /api/v1/orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	order, err := h.importService.FindByOrderID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, shared.ErrNotFound) {
		h.NotFound(c, "Order not found")
		return
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}
