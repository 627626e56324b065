package handler

import (
	"net/http"

	"restchain/internal/middleware"
	"restchain/internal/service"
	"restchain/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TargetHandler struct {
	targetService service.TargetService
}

func NewTargetHandler(targetService service.TargetService) *TargetHandler {
	return &TargetHandler{targetService: targetService}
}

func (h *TargetHandler) RegisterRoutes(router *gin.RouterGroup) {
	targets := router.Group("/api/targets", middleware.RequireActor())
	{
		targets.POST("", h.CreateTarget)
		targets.GET("/:id", h.ResolveTarget)
		targets.GET("/:id/integrity", h.VerifyIntegrity)
	}
}

// CreateTarget creates a target and its kind-specific payload in one
// transaction.
func (h *TargetHandler) CreateTarget(c *gin.Context) {
	actorID, _ := middleware.ActorID(c)

	var req service.CreateTargetDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	target, err := h.targetService.CreateTarget(c.Request.Context(), actorID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, target))
}

// ResolveTarget returns the kind tag and the payload it points at
func (h *TargetHandler) ResolveTarget(c *gin.Context) {
	targetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid target id"))
		return
	}

	target, err := h.targetService.Resolve(c.Request.Context(), targetID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, target))
}

// VerifyIntegrity checks that exactly one payload variant exists for the target
func (h *TargetHandler) VerifyIntegrity(c *gin.Context) {
	targetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid target id"))
		return
	}

	if err := h.targetService.VerifyIntegrity(c.Request.Context(), targetID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"target_id": targetID, "ok": true}))
}
