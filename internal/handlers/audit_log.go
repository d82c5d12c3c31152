package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/panelbridge/surveylink/internal/config"
	"github.com/panelbridge/surveylink/internal/services"
	"github.com/panelbridge/surveylink/internal/store"
	"github.com/panelbridge/surveylink/pkg/response"
)

type AuditLogHandler struct {
	auditService *services.AuditService
}

func NewAuditLogHandler(st *store.Store, cfg *config.Config) *AuditLogHandler {
	return &AuditLogHandler{
		auditService: services.NewAuditService(st, cfg.Audit.RetentionDays),
	}
}

// List returns filtered, paginated audit log entries
// GET /api/audit-logs
func (h *AuditLogHandler) List(c *gin.Context) {
	var req services.AuditListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.auditService.List(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, resp)
}

// Cleanup runs retention cleanup on demand
// POST /api/audit-logs/cleanup
func (h *AuditLogHandler) Cleanup(c *gin.Context) {
	deleted, err := h.auditService.Cleanup(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"deleted": deleted})
}
