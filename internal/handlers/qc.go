package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/panelbridge/surveylink/internal/middleware"
	"github.com/panelbridge/surveylink/internal/services"
	"github.com/panelbridge/surveylink/internal/store"
	"github.com/panelbridge/surveylink/pkg/response"
)

type QCHandler struct {
	qcService *services.QCService
}

func NewQCHandler(st *store.Store) *QCHandler {
	return &QCHandler{qcService: services.NewQCService(st)}
}

// UpdateFlagStatus applies a manual-review decision to a link
// POST /api/qc/update-flag-status
func (h *QCHandler) UpdateFlagStatus(c *gin.Context) {
	var req services.UpdateFlagStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	link, err := h.qcService.UpdateFlagStatus(c.Request.Context(), &req, middleware.GetUsername(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, link)
}
