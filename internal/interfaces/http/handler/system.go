package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	appintegration "github.com/crmbridge/gateway/internal/application/integration"
	"github.com/crmbridge/gateway/internal/interfaces/http/dto"
)

// Version is the gateway build version, overridden at link time
var Version = "dev"

// HealthReporter reports the gateway mode and configured systems
type HealthReporter interface {
	Health() appintegration.HealthStatus
}

// SystemHandler handles health and system information endpoints
type SystemHandler struct {
	BaseHandler
	name      string
	health    HealthReporter
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(name string, health HealthReporter) *SystemHandler {
	return &SystemHandler{
		name:      name,
		health:    health,
		startTime: time.Now(),
	}
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name" example:"crm-gateway"`
	Version   string `json:"version" example:"1.0.0"`
	GoVersion string `json:"go_version" example:"go1.25.5"`
	Uptime    string `json:"uptime" example:"1h30m45s"`
}

// HealthResponse is the health payload
type HealthResponse struct {
	appintegration.HealthStatus
	Uptime string `json:"uptime"`
}

// Health godoc
// @ID           health
// @Summary      Gateway health
// @Description  Reports the call mode (dry_run or live) and which remote systems have credentials
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[HealthResponse]
// @Router       /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	resp := HealthResponse{
		HealthStatus: appintegration.HealthStatus{Status: "healthy"},
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
	}
	if h.health != nil {
		resp.HealthStatus = h.health.Health()
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}

// GetSystemInfo godoc
// @ID           getSystemSystemInfo
// @Summary      Get system information
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[SystemInfoResponse]
// @Router       /system/info [get]
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	info := SystemInfoResponse{
		Name:      h.name,
		Version:   Version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(info))
}
