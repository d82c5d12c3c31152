package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/panelbridge/surveylink/internal/config"
	"github.com/panelbridge/surveylink/internal/middleware"
	"github.com/panelbridge/surveylink/internal/services"
	"github.com/panelbridge/surveylink/internal/store"
	"github.com/panelbridge/surveylink/pkg/response"
)

type LinkHandler struct {
	linkService *services.LinkService
	taskQueue   services.TaskQueue
}

func NewLinkHandler(st *store.Store, cfg *config.Config, queue services.TaskQueue) *LinkHandler {
	return &LinkHandler{
		linkService: services.NewLinkService(st, cfg),
		taskQueue:   queue,
	}
}

// Generate runs the batch generation pipeline synchronously and reports
// exactly what was persisted.
// POST /api/links/generate
func (h *LinkHandler) Generate(c *gin.Context) {
	var req services.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.linkService.Generate(c.Request.Context(), &req, middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	if !resp.Success {
		// Partial results are still returned so the caller can reconcile
		// and resubmit only the shortfall.
		c.JSON(http.StatusUnprocessableEntity, response.Response{
			Code:    422,
			Message: resp.Message,
			Data:    resp,
		})
		return
	}

	response.SuccessWithMessage(c, resp.Message, resp)
}

// GenerateAsync enqueues the batch for the background worker and returns
// immediately. With Redis disabled the queue degrades to an in-process
// goroutine.
// POST /api/links/generate-async
func (h *LinkHandler) GenerateAsync(c *gin.Context) {
	var req services.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	task := &services.GenerateTask{
		Request:     req,
		RequestedBy: middleware.GetUserID(c),
	}
	if err := h.taskQueue.Enqueue(task); err != nil {
		response.ServerError(c, "failed to enqueue generation task: "+err.Error())
		return
	}

	response.Success(c, gin.H{
		"queued": true,
		"async":  h.taskQueue.IsAsync(),
	})
}

// SaveBatch persists pre-built link records from a client-side generation
// flow, rejecting the batch only above the failure threshold.
// POST /api/links/save-batch
func (h *LinkHandler) SaveBatch(c *gin.Context) {
	var req services.SaveBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.linkService.SaveBatch(c.Request.Context(), &req, middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	if resp.RatioExceeded {
		c.JSON(http.StatusUnprocessableEntity, response.Response{
			Code:    422,
			Message: resp.Message,
			Data:    resp,
		})
		return
	}

	response.SuccessWithMessage(c, resp.Message, resp)
}

// Flag marks a link FLAGGED, merging flag metadata into the blob.
// POST /api/links/flag
func (h *LinkHandler) Flag(c *gin.Context) {
	var req services.FlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	link, err := h.linkService.Flag(c.Request.Context(), &req, middleware.GetUsername(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, link)
}

// List returns filtered, paginated links
// GET /api/links
func (h *LinkHandler) List(c *gin.Context) {
	var req services.LinkListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.linkService.List(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, resp)
}

// GetByID returns a link by ID
// GET /api/links/:id
func (h *LinkHandler) GetByID(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid link id")
		return
	}

	link, err := h.linkService.GetByID(c.Request.Context(), uint(id))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, link)
}
