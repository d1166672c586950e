package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tokamak-network/trh-pipeline/internal/logger"
	"github.com/tokamak-network/trh-pipeline/pkg/api/dtos"
	"github.com/tokamak-network/trh-pipeline/pkg/api/servers"
	"go.uber.org/zap"
)

type HealthHandler struct {
	Server *servers.Server
}

// GetHealth godoc
// @Summary      Health check
// @Tags         health
// @Produce      json
// @Success      200  {object}  dtos.HealthResponse
// @Failure      503  {object}  dtos.HealthResponse
// @Router       /health [get]
func (h *HealthHandler) GetHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.Server.DeploymentService.Ping(ctx); err != nil {
		logger.Warn("Health check failed", zap.String("store", h.Server.StoreDriver), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, dtos.HealthResponse{Status: "unavailable", Store: h.Server.StoreDriver})
		return
	}
	c.JSON(http.StatusOK, dtos.HealthResponse{Status: "ok", Store: h.Server.StoreDriver})
}

func NewHealthHandler(server *servers.Server) *HealthHandler {
	return &HealthHandler{
		Server: server,
	}
}
