package handler

import (
	"net/http"

	"restchain/internal/middleware"
	"restchain/internal/repository"
	"restchain/internal/service"
	"restchain/pkg/pagination"
	"restchain/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	audits := router.Group("/api/audit-logs", middleware.RequireActor())
	{
		audits.GET("", h.ListAuditLogs)
	}
}

// ListAuditLogs returns the audit trail, newest first. Supports
// ?action= and ?actor_id= filters.
func (h *AuditHandler) ListAuditLogs(c *gin.Context) {
	p := pagination.Parse(c)

	var f repository.AuditFilter
	f.Action = c.Query("action")
	if raw := c.Query("actor_id"); raw != "" {
		actorID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid actor_id"))
			return
		}
		f.ActorID = &actorID
	}

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), f, p.Page, p.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Paged(http.StatusOK, logs, total, p.Page, p.Limit))
}
