package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tokamak-network/trh-pipeline/pkg/api/dtos"
	"github.com/tokamak-network/trh-pipeline/pkg/api/servers"
	"github.com/tokamak-network/trh-pipeline/pkg/services"
)

const UserIDHeader = "X-User-Id"

type DeploymentHandler struct {
	DeploymentService *services.DeploymentService
}

// Create godoc
// @Summary      Create a deployment
// @Description  Stores a pending deployment and starts its pipeline in the background
// @Tags         deployments
// @Accept       json
// @Produce      json
// @Param        X-User-Id  header    string                        false  "Owner of the deployment"
// @Param        request    body      dtos.CreateDeploymentRequest  true   "Deployment request"
// @Success      201        {object}  entities.DeploymentEntity
// @Failure      400        {object}  dtos.ErrorResponse
// @Failure      500        {object}  dtos.ErrorResponse
// @Router       /deployments [post]
func (h *DeploymentHandler) Create(c *gin.Context) {
	var request dtos.CreateDeploymentRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var userID *string
	if header := strings.TrimSpace(c.GetHeader(UserIDHeader)); header != "" {
		userID = &header
	}

	deployment, err := h.DeploymentService.CreateDeployment(c.Request.Context(), request, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, deployment)
}

// List godoc
// @Summary      List deployments
// @Description  Newest first, optionally filtered by project
// @Tags         deployments
// @Produce      json
// @Param        projectId  query     string  false  "Project id"
// @Param        limit      query     int     false  "Maximum number of deployments"
// @Success      200        {object}  dtos.DeploymentListResponse
// @Failure      400        {object}  dtos.ErrorResponse
// @Failure      500        {object}  dtos.ErrorResponse
// @Router       /deployments [get]
func (h *DeploymentHandler) List(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = parsed
	}

	deployments, err := h.DeploymentService.ListDeployments(c.Request.Context(), c.Query("projectId"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dtos.DeploymentListResponse{Deployments: deployments})
}

// GetByID godoc
// @Summary      Get a deployment
// @Tags         deployments
// @Produce      json
// @Param        id   path      string  true  "Deployment id"
// @Success      200  {object}  entities.DeploymentEntity
// @Failure      404  {object}  dtos.ErrorResponse
// @Router       /deployments/{id} [get]
func (h *DeploymentHandler) GetByID(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return
	}
	deployment, err := h.DeploymentService.GetDeployment(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, deployment)
}

// GetStatus godoc
// @Summary      Get the status of a deployment
// @Tags         deployments
// @Produce      json
// @Param        id   path      string  true  "Deployment id"
// @Success      200  {object}  dtos.DeploymentStatusResponse
// @Failure      404  {object}  dtos.ErrorResponse
// @Router       /deployments/{id}/status [get]
func (h *DeploymentHandler) GetStatus(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return
	}
	status, err := h.DeploymentService.GetDeploymentStatus(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dtos.DeploymentStatusResponse{Status: status})
}

// Delete godoc
// @Summary      Delete a deployment
// @Description  Administrative removal of a deployment record
// @Tags         deployments
// @Produce      json
// @Param        id   path      string  true  "Deployment id"
// @Success      200  {object}  dtos.MessageResponse
// @Failure      404  {object}  dtos.ErrorResponse
// @Router       /deployments/{id} [delete]
func (h *DeploymentHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return
	}
	if err := h.DeploymentService.DeleteDeployment(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "OK"})
}

func NewDeploymentHandler(server *servers.Server) *DeploymentHandler {
	return &DeploymentHandler{
		DeploymentService: server.DeploymentService,
	}
}
