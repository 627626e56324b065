package handler

import (
	"net/http"

	"restchain/internal/middleware"
	"restchain/internal/service"
	"restchain/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type DelegationHandler struct {
	delegationService service.DelegationService
}

func NewDelegationHandler(delegationService service.DelegationService) *DelegationHandler {
	return &DelegationHandler{delegationService: delegationService}
}

func (h *DelegationHandler) RegisterRoutes(router *gin.RouterGroup) {
	delegations := router.Group("/api/delegations", middleware.RequireActor())
	{
		delegations.POST("", h.Register)
		delegations.GET("", h.ListByOwner)
	}
}

// Register installs a delegation rule: when a task of the incoming type
// completes, spawn follow-up tasks of the outgoing type from the named
// source collection.
func (h *DelegationHandler) Register(c *gin.Context) {
	actorID, _ := middleware.ActorID(c)

	var req service.RegisterDelegationDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	rule, err := h.delegationService.Register(c.Request.Context(), actorID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, rule))
}

// ListByOwner returns the rules registered for one default actor
func (h *DelegationHandler) ListByOwner(c *gin.Context) {
	ownerID, err := uuid.Parse(c.Query("default_actor_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid default_actor_id"))
		return
	}

	rules, err := h.delegationService.ListByOwner(c.Request.Context(), ownerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rules))
}
