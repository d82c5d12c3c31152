package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/panelbridge/surveylink/internal/config"
	"github.com/panelbridge/surveylink/internal/models"
	"github.com/panelbridge/surveylink/internal/store"
	"github.com/panelbridge/surveylink/pkg/response"
)

// LinkService owns the link lifecycle: batch generation, bulk save,
// flagging, and queries. All persistence goes through the store gateway.
type LinkService struct {
	store *store.Store
	cfg   *config.Config
	uids  UIDGenerator
}

func NewLinkService(st *store.Store, cfg *config.Config) *LinkService {
	return &LinkService{
		store: st,
		cfg:   cfg,
		uids:  NewUIDGenerator(),
	}
}

type GenerateRequest struct {
	ProjectID         uint   `json:"project_id" binding:"required"`
	OriginalURL       string `json:"original_url"`
	TestCount         int    `json:"test_count"`
	LiveCount         int    `json:"live_count"`
	Count             int    `json:"count"`     // legacy single-count form
	LinkType          string `json:"link_type"` // used with Count: TEST or LIVE
	VendorIDs         []uint `json:"vendor_ids"`
	GeneratePerVendor *bool  `json:"generate_per_vendor"`
}

// perVendor resolves the distribution mode. Unset defaults to per-vendor
// counts whenever vendors are named, matching how operators request
// batches ("10 test and 500 live to each of v1, v2").
func (r *GenerateRequest) perVendor() bool {
	if r.GeneratePerVendor != nil {
		return *r.GeneratePerVendor
	}
	return len(r.VendorIDs) > 0
}

// normalizeCounts folds the legacy {count, linkType} form into
// test/live counts.
func (r *GenerateRequest) normalizeCounts() error {
	if r.Count > 0 {
		switch models.LinkType(r.LinkType) {
		case models.LinkTypeTest:
			r.TestCount += r.Count
		case models.LinkTypeLive, "":
			r.LiveCount += r.Count
		default:
			return fmt.Errorf("unknown link type %q", r.LinkType)
		}
		r.Count = 0
	}
	return nil
}

type GenerateResponse struct {
	Success  bool                `json:"success"`
	Count    int                 `json:"count"`
	Links    []models.SurveyLink `json:"links"`
	Failed   int                 `json:"failed"`
	Failures []TaskFailure       `json:"failures,omitempty"`
	BatchID  string              `json:"batch_id"`
	Message  string              `json:"message,omitempty"`
}

/// Generate runs the full pipeline: plan the distribution, execute it with
// bounded concurrency, and report exactly what was persisted. Count always
// equals len(Links) equals the number of records created; any shortfall is
// surfaced in Failed and Failures, never hidden.
func (s *LinkService) Generate(ctx context.Context, req *GenerateRequest, userID uint) (*GenerateResponse, error) {
	if err := req.normalizeCounts(); err != nil {
		return nil, response.NewBadRequest(err.Error())
	}

	project, err := s.store.GetProject(ctx, req.ProjectID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, response.NewNotFound("project not found")
		}
		return nil, err
	}

	for _, vendorID := range req.VendorIDs {
		if _, err := s.store.GetVendor(ctx, vendorID); err != nil {
			if store.IsNotFound(err) {
				return nil, response.NewNotFound(fmt.Sprintf("vendor %d not found", vendorID))
			}
			return nil, err
		}
	}

	plan, err := PlanDistribution(req.TestCount, req.LiveCount, req.VendorIDs, req.perVendor())
	if err != nil {
		return nil, response.NewBadRequest(err.Error())
	}

	originalURL := req.OriginalURL
	if originalURL == "" {
		originalURL = project.SurveyURL
	}
	settings := project.DecodeSettings()

	bc := BuildContext{
		ProjectID:     project.ID,
		OriginalURL:   originalURL,
		ShortURLBase:  s.cfg.Links.ShortURLBase,
		SurveyURLBase: s.cfg.Links.SurveyURLBase,
		ConsentGated:  settings.ConsentRequired || settings.PresurveyActive,
		BatchID:       NewBatchID(),
		Method:        "batch",
	}

	orchestrator := NewBatchOrchestrator(s.store, s.uids, s.cfg.Generation)
	result, err := orchestrator.Run(ctx, plan, bc)
	if err != nil {
		return nil, response.NewServerError("link store unreachable: " + err.Error())
	}

	resp := &GenerateResponse{
		Success:  !result.ThresholdExceeded,
		Count:    result.Succeeded,
		Links:    result.Links,
		Failed:   result.Failed,
		Failures: result.Failures,
		BatchID:  result.BatchID,
		Message:  batchMessage(result),
	}

	level := AuditInfo
	if result.Failed > 0 {
		level = AuditWarning
	}
	level("links", "generate",
		fmt.Sprintf("generated %d/%d links for project %d", result.Succeeded, result.Requested, project.ID),
		&userID, "", map[string]interface{}{
			"batch_id":  result.BatchID,
			"requested": result.Requested,
			"failed":    result.Failed,
			"timed_out": result.TimedOut,
		})

	return resp, nil
}

func batchMessage(result *BatchResult) string {
	switch {
	case result.TimedOut:
		return fmt.Sprintf("batch timed out: %d of %d links created before the deadline", result.Succeeded, result.Requested)
	case result.ThresholdExceeded:
		return fmt.Sprintf("batch failed: %d of %d links could not be created (%.0f%% failure rate)", result.Failed, result.Requested, result.FailureRatio()*100)
	case result.Failed > 0:
		return fmt.Sprintf("created %d of %d links; %d failed and can be resubmitted", result.Succeeded, result.Requested, result.Failed)
	default:
		return fmt.Sprintf("created %d links", result.Succeeded)
	}
}

// GenerateSingle creates one link outside the batch pipeline, reusing the
// same builder and store path.
func (s *LinkService) GenerateSingle(ctx context.Context, projectID uint, vendorID *uint, linkType models.LinkType, userID uint) (*models.SurveyLink, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, response.NewNotFound("project not found")
		}
		return nil, err
	}

	settings := project.DecodeSettings()
	bc := BuildContext{
		ProjectID:     project.ID,
		OriginalURL:   project.SurveyURL,
		ShortURLBase:  s.cfg.Links.ShortURLBase,
		SurveyURLBase: s.cfg.Links.SurveyURLBase,
		ConsentGated:  settings.ConsentRequired || settings.PresurveyActive,
		BatchID:       NewBatchID(),
		Method:        "single",
	}

	for attempt := 0; attempt <= s.cfg.Generation.MaxRetries; attempt++ {
		link := BuildLink(bc, s.uids.Generate(), vendorID, linkType)
		err = s.store.CreateSurveyLink(ctx, &link)
		if err == nil {
			AuditInfo("links", "generate_single",
				fmt.Sprintf("created link %s for project %d", link.UID, projectID), &userID, "", nil)
			return &link, nil
		}
		if !store.IsConflict(err) && !store.IsTransient(err) {
			return nil, err
		}
	}
	return nil, err
}

// SaveBatchItem is one pre-built link supplied by a client-side generation
// flow.
type SaveBatchItem struct {
	UID         string          `json:"uid" binding:"required"`
	RespID      string          `json:"resp_id"`
	VendorID    *uint           `json:"vendor_id"`
	LinkType    models.LinkType `json:"link_type"`
	OriginalURL string          `json:"original_url"`
	WrapperURL  string          `json:"wrapper_url"`
	Metadata    json.RawMessage `json:"metadata"`
}

type SaveBatchRequest struct {
	ProjectID uint            `json:"project_id" binding:"required"`
	Links     []SaveBatchItem `json:"links" binding:"required"`
}

type SaveBatchResponse struct {
	Saved    int           `json:"saved"`
	Total    int           `json:"total"`
	Failures []TaskFailure `json:"failures,omitempty"`
	Message  string        `json:"message"`

	// RatioExceeded marks the batch as rejected; the handler maps it to an
	// error status while still returning the per-item accounting.
	RatioExceeded bool `json:"-"`
}

// SaveBatch persists pre-built link records, keeping the caller's uids.
// Retries transient errors; a conflict means that uid already exists and
// is reported as a failure rather than creating a duplicate. The batch is
// rejected only when the failure ratio exceeds the configured threshold.
func (s *LinkService) SaveBatch(ctx context.Context, req *SaveBatchRequest, userID uint) (*SaveBatchResponse, error) {
	if len(req.Links) == 0 {
		return nil, response.NewBadRequest("links are required")
	}

	project, err := s.store.GetProject(ctx, req.ProjectID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, response.NewNotFound("project not found")
		}
		return nil, err
	}

	resp := &SaveBatchResponse{Total: len(req.Links)}

	for _, item := range req.Links {
		link := s.buildFromItem(project, item)

		var saveErr error
		for attempt := 0; attempt <= s.cfg.Generation.MaxRetries; attempt++ {
			saveErr = s.store.CreateSurveyLink(ctx, link)
			if saveErr == nil || !store.IsTransient(saveErr) {
				break
			}
			select {
			case <-ctx.Done():
			case <-time.After(s.cfg.Generation.RetryBaseDelay() * time.Duration(1<<attempt)):
			}
		}

		if saveErr != nil {
			resp.Failures = append(resp.Failures, TaskFailure{
				UID:      item.UID,
				VendorID: item.VendorID,
				LinkType: link.LinkType,
				Kind:     store.KindOf(saveErr),
				Error:    saveErr.Error(),
			})
			continue
		}
		resp.Saved++
	}

	failed := resp.Total - resp.Saved
	ratio := float64(failed) / float64(resp.Total)
	resp.RatioExceeded = ratio > s.cfg.Generation.FailureThreshold

	switch {
	case failed == 0:
		resp.Message = fmt.Sprintf("saved all %d links", resp.Total)
	case resp.RatioExceeded:
		resp.Message = fmt.Sprintf("batch rejected: only %d of %d links saved (%.0f%% failed)", resp.Saved, resp.Total, ratio*100)
	default:
		resp.Message = fmt.Sprintf("saved %d of %d links; %d failed", resp.Saved, resp.Total, failed)
	}

	AuditInfo("links", "save_batch",
		fmt.Sprintf("saved %d/%d links for project %d", resp.Saved, resp.Total, req.ProjectID),
		&userID, "", nil)

	return resp, nil
}

func (s *LinkService) buildFromItem(project *models.Project, item SaveBatchItem) *models.SurveyLink {
	linkType := item.LinkType
	if linkType == "" {
		linkType = models.LinkTypeLive
	}
	respID := item.RespID
	if respID == "" {
		respID = item.UID
	}

	link := &models.SurveyLink{
		ProjectID: project.ID,
		UID:       item.UID,
		RespID:    respID,
		VendorID:  item.VendorID,
		LinkType:  linkType,
		Status:    models.StatusUnused,
	}

	meta := models.LinkMetadata{}
	if len(item.Metadata) > 0 {
		// Client metadata is opaque; keep whatever parses, drop the rest.
		tmp := models.SurveyLink{Metadata: string(item.Metadata)}
		meta = tmp.DecodeMetadata()
	}
	now := time.Now().UTC()
	if meta.OriginalURL == "" {
		meta.OriginalURL = item.OriginalURL
	}
	if meta.OriginalURL == "" {
		meta.OriginalURL = project.SurveyURL
	}
	if meta.WrapperURL == "" {
		meta.WrapperURL = item.WrapperURL
	}
	if meta.GeneratedAt == nil {
		meta.GeneratedAt = &now
	}
	if meta.GenerationMethod == "" {
		meta.GenerationMethod = "import"
	}
	link.SetMetadata(meta)
	return link
}

type FlagRequest struct {
	LinkID    uint   `json:"link_id"`
	ProjectID uint   `json:"project_id"`
	UID       string `json:"uid"`
	Reason    string `json:"reason" binding:"required"`
}

// Flag marks a link FLAGGED and merges flag metadata into the existing
// blob. Keys owned by generation (urls, batch id, provenance) are never
// erased; repeated flagging keeps the most recent reason and timestamp.
func (s *LinkService) Flag(ctx context.Context, req *FlagRequest, flaggedBy string) (*models.SurveyLink, error) {
	link, err := s.resolveLink(ctx, req.LinkID, req.ProjectID, req.UID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	meta := link.DecodeMetadata()
	meta.FlagReason = req.Reason
	meta.FlaggedAt = &now
	meta.ReviewStatus = models.ReviewPending
	link.SetMetadata(meta)
	link.Status = models.StatusFlagged

	if err := s.store.UpdateSurveyLink(ctx, link); err != nil {
		return nil, err
	}

	AuditWarning("links", "flag",
		fmt.Sprintf("link %s flagged: %s", link.UID, req.Reason), nil, "",
		map[string]interface{}{"link_id": link.ID, "flagged_by": flaggedBy})

	return link, nil
}

func (s *LinkService) resolveLink(ctx context.Context, linkID, projectID uint, uid string) (*models.SurveyLink, error) {
	var (
		link *models.SurveyLink
		err  error
	)
	switch {
	case linkID != 0:
		link, err = s.store.GetSurveyLink(ctx, linkID)
	case projectID != 0 && uid != "":
		link, err = s.store.GetSurveyLinkByUID(ctx, projectID, uid)
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

type LinkListRequest struct {
	ProjectID uint   `form:"project_id"`
	VendorID  uint   `form:"vendor_id"`
	Status    string `form:"status"`
	LinkType  string `form:"link_type"`
	BatchID   string `form:"batch_id"`
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size" binding:"max=500"`
}

type LinkListResponse struct {
	Total    int64               `json:"total"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"page_size"`
	Items    []models.SurveyLink `json:"items"`
}

func (s *LinkService) List(ctx context.Context, req *LinkListRequest) (*LinkListResponse, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 50
	}

	items, total, err := s.store.ListSurveyLinks(ctx, store.LinkFilter{
		ProjectID: req.ProjectID,
		VendorID:  req.VendorID,
		Status:    models.LinkStatus(req.Status),
		LinkType:  models.LinkType(req.LinkType),
		BatchID:   req.BatchID,
		Page:      req.Page,
		PageSize:  req.PageSize,
	})
	if err != nil {
		return nil, err
	}

	return &LinkListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    items,
	}, nil
}

func (s *LinkService) GetByID(ctx context.Context, id uint) (*models.SurveyLink, error) {
	link, err := s.store.GetSurveyLink(ctx, id)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, response.NewNotFound("link not found")
		}
		return nil, err
	}
	return link, nil
}
