package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/panelbridge/surveylink/internal/services"
	"github.com/panelbridge/surveylink/internal/store"
	"github.com/panelbridge/surveylink/pkg/response"
)

// PresurveyHandler serves the respondent-facing endpoints. These are
// public and rate-limited; nothing here requires authentication.
type PresurveyHandler struct {
	presurveyService *services.PresurveyService
}

func NewPresurveyHandler(st *store.Store) *PresurveyHandler {
	return &PresurveyHandler{presurveyService: services.NewPresurveyService(st)}
}

func pathProjectAndUID(c *gin.Context) (uint, string, bool) {
	projectID, err := strconv.ParseUint(c.Param("projectId"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid project id")
		return 0, "", false
	}
	uid := c.Param("uid")
	if uid == "" {
		response.BadRequest(c, "uid is required")
		return 0, "", false
	}
	return uint(projectID), uid, true
}

// respondentCountry reads the geo header set by the edge proxy. An empty
// value means the country is unknown.
func respondentCountry(c *gin.Context) string {
	if country := c.GetHeader("CF-IPCountry"); country != "" {
		return country
	}
	return c.GetHeader("X-Country-Code")
}

// Redirect is the short-link target: validate, mark IN_PROGRESS, and
// send the respondent to the third-party survey.
// GET /s/:projectId/:uid
func (h *PresurveyHandler) Redirect(c *gin.Context) {
	projectID, uid, ok := pathProjectAndUID(c)
	if !ok {
		return
	}

	result, err := h.presurveyService.Start(c.Request.Context(), projectID, uid, respondentCountry(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Redirect(http.StatusFound, result.RedirectURL)
}

// Entry returns the consent items and presurvey questions for the
// entry page.
// GET /survey/:projectId/:uid
func (h *PresurveyHandler) Entry(c *gin.Context) {
	projectID, uid, ok := pathProjectAndUID(c)
	if !ok {
		return
	}

	info, err := h.presurveyService.Entry(c.Request.Context(), projectID, uid)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, info)
}

// Submit evaluates presurvey answers and returns the qualification
// outcome with a redirect target.
// POST /api/presurvey/submit
func (h *PresurveyHandler) Submit(c *gin.Context) {
	var req services.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.presurveyService.Submit(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, resp)
}

// Complete is the completion webhook called by the third-party survey.
// Idempotent for already-completed links.
// GET /api/links/complete?project_id=&uid=
func (h *PresurveyHandler) Complete(c *gin.Context) {
	projectID, err := strconv.ParseUint(c.Query("project_id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid project id")
		return
	}
	uid := c.Query("uid")
	if uid == "" {
		response.BadRequest(c, "uid is required")
		return
	}

	link, err := h.presurveyService.Complete(c.Request.Context(), uint(projectID), uid)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{
		"uid":    link.UID,
		"status": link.Status,
	})
}
