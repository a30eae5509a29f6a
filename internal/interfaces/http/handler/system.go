package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/manifest/backend/internal/interfaces/http/dto"
)

// ServiceVersion is reported by the health and info endpoints
const ServiceVersion = "1.0.0"

// healthCheckTimeout bounds the database ping
const healthCheckTimeout = 3 * time.Second

// Pinger checks a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler serves health and service information
type SystemHandler struct {
	BaseHandler
	db        Pinger
	dryRun    bool
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(db Pinger, dryRun bool) *SystemHandler {
	return &SystemHandler{
		db:        db,
		dryRun:    dryRun,
		startTime: time.Now(),
	}
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
	DryRun    bool   `json:"dry_run"`
}

// Health reports 200 when the database answers and 503 otherwise
//
//	GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	resp := dto.HealthResponse{
		Status:   "ok",
		Database: "ok",
		DryRun:   h.dryRun,
		Version:  ServiceVersion,
		Uptime:   h.uptime(),
	}
	status := http.StatusOK

	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.Database = err.Error()
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, dto.NewSuccessResponse(resp))
}

// GetSystemInfo returns version and uptime
//
//	GET /api/v1/system/info
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	h.Success(c, SystemInfoResponse{
		Name:      "Manifest Service",
		Version:   ServiceVersion,
		GoVersion: runtime.Version(),
		Uptime:    h.uptime(),
		DryRun:    h.dryRun,
	})
}

// RegisterRoutes mounts the system routes on rg
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/system/info", h.GetSystemInfo)
}

func (h *SystemHandler) uptime() string {
	return time.Since(h.startTime).Round(time.Second).String()
}
