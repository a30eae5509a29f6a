package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appmanifest "github.com/manifest/backend/internal/application/manifest"
	"github.com/manifest/backend/internal/domain/shared"
	"github.com/manifest/backend/internal/interfaces/http/dto"
)

// DebugHandler exposes the batch ledger for manual inspection
type DebugHandler struct {
	BaseHandler
	ledgerService   *appmanifest.LedgerQueryService
	pendingBatchAge time.Duration
}

// NewDebugHandler creates a new DebugHandler. Batches pending for longer
// than pendingBatchAge are reported as stuck unless the request overrides it.
func NewDebugHandler(ledgerService *appmanifest.LedgerQueryService, pendingBatchAge time.Duration) *DebugHandler {
	if pendingBatchAge <= 0 {
		pendingBatchAge = appmanifest.DefaultPendingBatchAge
	}
	return &DebugHandler{ledgerService: ledgerService, pendingBatchAge: pendingBatchAge}
}

// RegisterRoutes mounts the debug routes on rg
func (h *DebugHandler) RegisterRoutes(rg *gin.RouterGroup) {
	debug := rg.Group("/debug")
	debug.GET("/last-manifest", h.LastManifest)
	debug.GET("/batch/:id", h.BatchLogs)
	debug.GET("/pending-batches", h.PendingBatches)
}

// LastManifest returns the newest manifest request log, or null
func (h *DebugHandler) LastManifest(c *gin.Context) {
	log, err := h.ledgerService.LastManifestLog(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, log)
}

// BatchLogs returns one batch with its logs in insertion order
func (h *DebugHandler) BatchLogs(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "Batch id must be a UUID")
		return
	}

	result, err := h.ledgerService.BatchLogs(c.Request.Context(), batchID)
	if errors.Is(err, shared.ErrNotFound) {
		h.NotFound(c, "Batch not found")
		return
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// PendingBatches lists batches that never completed
//
//	GET /api/v1/debug/pending-batches?older_than=30m
func (h *DebugHandler) PendingBatches(c *gin.Context) {
	var req dto.PendingBatchesRequest
	_ = c.ShouldBindQuery(&req)

	olderThan := h.pendingBatchAge
	if req.OlderThan != "" {
		d, err := time.ParseDuration(req.OlderThan)
		if err != nil || d < 0 {
			h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "older_than must be a duration such as 30m")
			return
		}
		olderThan = d
	}

	batches, err := h.ledgerService.PendingBatches(c.Request.Context(), olderThan)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"batches": batches, "count": len(batches), "older_than": olderThan.String()})
}
