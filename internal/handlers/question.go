package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/panelbridge/surveylink/internal/services"
	"github.com/panelbridge/surveylink/internal/store"
	"github.com/panelbridge/surveylink/pkg/response"
)

type QuestionHandler struct {
	questionService *services.QuestionService
}

func NewQuestionHandler(st *store.Store) *QuestionHandler {
	return &QuestionHandler{questionService: services.NewQuestionService(st)}
}

// ListByProject returns a project's presurvey questions in sort order
// GET /api/projects/:id/questions
func (h *QuestionHandler) ListByProject(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	questions, err := h.questionService.ListByProject(c.Request.Context(), projectID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, questions)
}

// Create adds a presurvey question to a project
// POST /api/projects/:id/questions
func (h *QuestionHandler) Create(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req services.QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	question, err := h.questionService.Create(c.Request.Context(), projectID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, question)
}

// Update modifies a question
// PUT /api/questions/:id
func (h *QuestionHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req services.QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	question, err := h.questionService.Update(c.Request.Context(), id, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, question)
}

// Delete removes a question
// DELETE /api/questions/:id
func (h *QuestionHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.questionService.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"deleted": true})
}
