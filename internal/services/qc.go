package services

import (
	"context"
	"fmt"
	"time"

	"github.com/panelbridge/surveylink/internal/models"
	"github.com/panelbridge/surveylink/internal/store"
	"github.com/panelbridge/surveylink/pkg/response"
)

// QCService applies manual-review decisions to flagged or disqualified
// links. Status transitions are forward-only everywhere else; the two
// explicit overrides live here.
type QCService struct {
	store *store.Store
}

func NewQCService(st *store.Store) *QCService {
	return &QCService{store: st}
}

type UpdateFlagStatusRequest struct {
	LinkID    uint   `json:"link_id"`
	ProjectID uint   `json:"project_id"`
	UID       string `json:"uid"`
	Decision  string `json:"decision" binding:"required"` // APPROVED or REJECTED
}

// UpdateFlagStatus transitions the manual-review state and, per decision,
// the link status:
//
//	APPROVED: FLAGGED or DISQUALIFIED -> COMPLETED
//	REJECTED: any -> DISQUALIFIED
//
// Review metadata (status, reviewer, time) is merged into the blob without
// touching keys written by generation or flagging.
func (s *QCService) UpdateFlagStatus(ctx context.Context, req *UpdateFlagStatusRequest, reviewer string) (*models.SurveyLink, error) {
	link, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	switch req.Decision {
	case models.ReviewApproved:
		if link.Status != models.StatusFlagged && link.Status != models.StatusDisqualified {
			return nil, response.NewConflict(
				fmt.Sprintf("cannot approve a link in status %s", link.Status))
		}
		link.Status = models.StatusCompleted
	case models.ReviewRejected:
		link.Status = models.StatusDisqualified
	default:
		return nil, response.NewBadRequest("decision must be APPROVED or REJECTED")
	}

	now := time.Now().UTC()
	meta := link.DecodeMetadata()
	meta.ReviewStatus = req.Decision
	meta.ReviewedBy = reviewer
	meta.ReviewedAt = &now
	if req.Decision == models.ReviewApproved {
		meta.CompletedAt = &now
	}
	link.SetMetadata(meta)

	if err := s.store.UpdateSurveyLink(ctx, link); err != nil {
		return nil, err
	}

	AuditInfo("qc", "update_flag_status",
		fmt.Sprintf("link %s reviewed %s by %s", link.UID, req.Decision, reviewer),
		nil, "", map[string]interface{}{"link_id": link.ID})

	return link, nil
}

func (s *QCService) resolve(ctx context.Context, req *UpdateFlagStatusRequest) (*models.SurveyLink, error) {
	var (
		link *models.SurveyLink
		err  error
	)
	switch {
	case req.LinkID != 0:
		link, err = s.store.GetSurveyLink(ctx, req.LinkID)
	case req.ProjectID != 0 && req.UID != "":
		link, err = s.store.GetSurveyLinkByUID(ctx, req.ProjectID, req.UID)
	default:
		return nil, response.NewBadRequest("link_id or project_id+uid is required")
	}
	if err != nil {
		if store.IsNotFound(err) {
			return nil, response.NewNotFound("link not found")
		}
		return nil, err
	}
	return link, nil
}
