package handler

import (
	"github.com/gin-gonic/gin"
	appmanifest "github.com/manifest/backend/internal/application/manifest"
	"github.com/manifest/backend/internal/interfaces/http/dto"
	"github.com/manifest/backend/internal/interfaces/http/middleware"
)

// ManifestHandler builds and submits carrier manifests and acts on the
// shipments they created
type ManifestHandler struct {
	BaseHandler
	manifestService *appmanifest.ManifestService
	actionService   *appmanifest.ShipmentActionService
}

// NewManifestHandler creates a new ManifestHandler
func NewManifestHandler(manifestService *appmanifest.ManifestService, actionService *appmanifest.ShipmentActionService) *ManifestHandler {
	return &ManifestHandler{manifestService: manifestService, actionService: actionService}
}

// RegisterRoutes mounts the manifest routes on rg
func (h *ManifestHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/orders")
	orders.POST("/build-manifest", h.BuildManifest)
	orders.POST("/manifest-from-db", h.ManifestFromDB)
	orders.POST("", h.SubmitRaw)
	orders.POST("/edit", h.EditShipment)
	orders.POST("/cancel", h.CancelShipment)
	orders.GET("/track/:waybill", h.TrackShipment)
}

// BuildManifest previews the carrier payload for the selected orders.
// Nothing is persisted or sent.
//
//	POST /api/v1/orders/build-manifest {"sale_order_numbers": [...]}
func (h *ManifestHandler) BuildManifest(c *gin.Context) {
	var req dto.ManifestSelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.selectionError(c)
		return
	}

	payload, err := h.manifestService.BuildPayload(c.Request.Context(), req.SaleOrderNumbers)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payload)
}

// ManifestFromDB runs the manifest pipeline for the selected orders. A
// replayed Idempotency-Key is rejected with 409.
//
//	POST /api/v1/orders/manifest-from-db {"sale_order_numbers": [...]}
func (h *ManifestHandler) ManifestFromDB(c *gin.Context) {
	var req dto.ManifestSelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.selectionError(c)
		return
	}

	result, err := h.manifestService.Manifest(c.Request.Context(), appmanifest.ManifestRequest{
		SaleOrderNumbers: req.SaleOrderNumbers,
		IdempotencyKey:   c.GetHeader(middleware.IdempotencyKeyHeader),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// SubmitRaw forwards a caller-built carrier payload through the ledger
//
//	POST /api/v1/orders {"shipments": [...], "pickup_location": {...}}
func (h *ManifestHandler) SubmitRaw(c *gin.Context) {
	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil || payload == nil {
		h.ErrorWithCode(c, dto.ErrCodeInvalidJSON, "Request body must be a JSON object")
		return
	}

	result, err := h.manifestService.SubmitRaw(c.Request.Context(), payload, c.GetHeader(middleware.IdempotencyKeyHeader))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// EditShipment forwards updated fields of a manifested shipment
//
//	POST /api/v1/orders/edit {"waybill": "...", ...}
func (h *ManifestHandler) EditShipment(c *gin.Context) {
	var details map[string]any
	if err := c.ShouldBindJSON(&details); err != nil || details == nil {
		h.BadRequest(c, "Request body must be a JSON object naming the 'waybill'")
		return
	}

	result, err := h.actionService.Edit(c.Request.Context(), details)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// CancelShipment cancels a manifested shipment
//
//	POST /api/v1/orders/cancel {"waybill": "..."}
func (h *ManifestHandler) CancelShipment(c *gin.Context) {
	var req dto.CancelShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Provide the shipment 'waybill' to cancel")
		return
	}

	result, err := h.actionService.Cancel(c.Request.Context(), req.Waybill)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// TrackShipment returns the carrier status of a shipment
//
//	GET /api/v1/orders/track/:waybill
func (h *ManifestHandler) TrackShipment(c *gin.Context) {
	result, err := h.actionService.Track(c.Request.Context(), c.Param("waybill"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

func (h *ManifestHandler) selectionError(c *gin.Context) {
	h.ErrorWithCode(c, dto.ErrCodeEmptySelection, "Provide 'sale_order_numbers' as a non-empty list")
}
