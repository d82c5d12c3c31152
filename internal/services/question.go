package services

import (
	"context"
	"encoding/json"

	"github.com/panelbridge/surveylink/internal/models"
	"github.com/panelbridge/surveylink/internal/store"
	"github.com/panelbridge/surveylink/pkg/response"
)

type QuestionService struct {
	store *store.Store
}

func NewQuestionService(st *store.Store) *QuestionService {
	return &QuestionService{store: st}
}

type QuestionRequest struct {
	Text              string   `json:"text" binding:"required"`
	Type              string   `json:"type" binding:"omitempty,oneof=single multi text"`
	Options           []string `json:"options"`
	QualifyingAnswers []string `json:"qualifying_answers"`
	SortOrder         int      `json:"sort_order"`
}

func (s *QuestionService) ListByProject(ctx context.Context, projectID uint) ([]models.Question, error) {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		if store.IsNotFound(err) {
			return nil, response.NewNotFound("project not found")
		}
		return nil, err
	}
	return s.store.ListQuestionsByProject(ctx, projectID)
}

func (s *QuestionService) Create(ctx context.Context, projectID uint, req *QuestionRequest) (*models.Question, error) {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		if store.IsNotFound(err) {
			return nil, response.NewNotFound("project not found")
		}
		return nil, err
	}

	q := models.Question{
		ProjectID: projectID,
		Text:      req.Text,
		Type:      req.Type,
		SortOrder: req.SortOrder,
	}
	if q.Type == "" {
		q.Type = "single"
	}
	q.Options = encodeStringList(req.Options)
	q.QualifyingAnswers = encodeStringList(req.QualifyingAnswers)

	if err := s.store.CreateQuestion(ctx, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

func (s *QuestionService) Update(ctx context.Context, id uint, req *QuestionRequest) (*models.Question, error) {
	q, err := s.store.GetQuestion(ctx, id)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, response.NewNotFound("question not found")
		}
		return nil, err
	}

	q.Text = req.Text
	if req.Type != "" {
		q.Type = req.Type
	}
	q.Options = encodeStringList(req.Options)
	q.QualifyingAnswers = encodeStringList(req.QualifyingAnswers)
	q.SortOrder = req.SortOrder

	if err := s.store.UpdateQuestion(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *QuestionService) Delete(ctx context.Context, id uint) error {
	if err := s.store.DeleteQuestion(ctx, id); err != nil {
		if store.IsNotFound(err) {
			return response.NewNotFound("question not found")
		}
		return err
	}
	return nil
}

func encodeStringList(list []string) string {
	if len(list) == 0 {
		return ""
	}
	b, err := json.Marshal(list)
	if err != nil {
		return ""
	}
	return string(b)
}
