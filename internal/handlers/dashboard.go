package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/panelbridge/surveylink/internal/services"
	"github.com/panelbridge/surveylink/internal/store"
	"github.com/panelbridge/surveylink/pkg/response"
)

type DashboardHandler struct {
	dashboardService *services.DashboardService
}

func NewDashboardHandler(st *store.Store) *DashboardHandler {
	return &DashboardHandler{dashboardService: services.NewDashboardService(st)}
}

// Stats returns link lifecycle aggregates, optionally scoped to a project
// GET /api/dashboard/stats?project_id=
func (h *DashboardHandler) Stats(c *gin.Context) {
	var query struct {
		ProjectID uint `form:"project_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	stats, err := h.dashboardService.Stats(c.Request.Context(), query.ProjectID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}
