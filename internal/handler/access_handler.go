package handler

import (
	"net/http"

	"restchain/internal/middleware"
	"restchain/internal/model"
	"restchain/internal/service"
	"restchain/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AccessHandler struct {
	accessService service.AccessService
}

func NewAccessHandler(accessService service.AccessService) *AccessHandler {
	return &AccessHandler{accessService: accessService}
}

func (h *AccessHandler) RegisterRoutes(router *gin.RouterGroup) {
	access := router.Group("/api/access", middleware.RequireActor())
	{
		access.POST("/grants", h.Grant)
		access.GET("/grants", h.ListGrants)
		access.DELETE("/grants/:id", h.Revoke)
		access.POST("/position-grants", h.GrantPosition)
		access.GET("/check", h.Check)
	}
}

// Grant issues a personal access level; supplying selected_target_id makes
// it disposable.
func (h *AccessHandler) Grant(c *gin.Context) {
	issuerID, _ := middleware.ActorID(c)

	var req service.GrantAccessDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	grant, err := h.accessService.Grant(c.Request.Context(), issuerID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, grant))
}

// ListGrants returns an actor's personal grants; defaults to the caller
func (h *AccessHandler) ListGrants(c *gin.Context) {
	actorID, _ := middleware.ActorID(c)
	if raw := c.Query("actor_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid actor_id"))
			return
		}
		actorID = parsed
	}

	grants, err := h.accessService.ListGrants(c.Request.Context(), actorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, grants))
}

// Revoke deactivates an active grant
func (h *AccessHandler) Revoke(c *gin.Context) {
	issuerID, _ := middleware.ActorID(c)
	grantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid grant id"))
		return
	}

	if err := h.accessService.Revoke(c.Request.Context(), issuerID, grantID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"revoked": grantID}))
}

// GrantPosition attaches a task type group to an employee position
func (h *AccessHandler) GrantPosition(c *gin.Context) {
	issuerID, _ := middleware.ActorID(c)

	var req service.GrantPositionAccessDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	grant, err := h.accessService.GrantPosition(c.Request.Context(), issuerID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, grant))
}

// Check reports whether the caller would be allowed a role on a task type,
// without consuming anything.
func (h *AccessHandler) Check(c *gin.Context) {
	actorID, _ := middleware.ActorID(c)

	taskTypeID, err := uuid.Parse(c.Query("task_type_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid task_type_id"))
		return
	}
	role := c.Query("role")
	if !model.ValidAccessRole(role) {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid role"))
		return
	}
	var targetID *uuid.UUID
	if raw := c.Query("target_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid target_id"))
			return
		}
		targetID = &parsed
	}

	allowed, err := h.accessService.HasAccess(c.Request.Context(), actorID, taskTypeID, role, targetID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"allowed": allowed}))
}
