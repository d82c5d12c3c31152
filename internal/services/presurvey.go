package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/panelbridge/surveylink/internal/models"
	"github.com/panelbridge/surveylink/internal/store"
	"github.com/panelbridge/surveylink/pkg/response"
)

// PresurveyService handles the respondent-facing side of a link's
// lifecycle: entry, qualification, and completion. It consumes the geo
// check as a pure predicate over project settings; scoring heuristics
// live outside this service.
type PresurveyService struct {
	store *store.Store
}

func NewPresurveyService(st *store.Store) *PresurveyService {
	return &PresurveyService{store: st}
}

// EntryInfo is what the consent-gated entry page renders before the
// respondent proceeds.
type EntryInfo struct {
	ProjectID    uint              `json:"project_id"`
	ProjectName  string            `json:"project_name"`
	UID          string            `json:"uid"`
	ConsentItems []string          `json:"consent_items,omitempty"`
	Questions    []models.Question `json:"questions,omitempty"`
	Status       models.LinkStatus `json:"status"`
}

// Entry validates a wrapper uid and returns the consent items and
// presurvey questions for the entry page.
func (s *PresurveyService) Entry(ctx context.Context, projectID uint, uid string) (*EntryInfo, error) {
	link, project, err := s.lookup(ctx, projectID, uid)
	if err != nil {
		return nil, err
	}

	settings := project.DecodeSettings()
	info := &EntryInfo{
		ProjectID:   project.ID,
		ProjectName: project.Name,
		UID:         link.UID,
		Status:      link.Status,
	}
	if settings.ConsentRequired {
		info.ConsentItems = settings.ConsentItems
	}
	if settings.PresurveyActive {
		questions, err := s.store.ListQuestionsByProject(ctx, project.ID)
		if err != nil {
			return nil, err
		}
		info.Questions = questions
	}
	return info, nil
}

// StartResult tells the redirect handler where to send the respondent.
type StartResult struct {
	RedirectURL string
	Link        *models.SurveyLink
}

// Start is the wrapper-redirect operation: a respondent clicked the short
// link. Valid unused links move to IN_PROGRESS and redirect to the
// third-party survey with the uid substituted. Reused links are rejected;
// geo-restricted projects disqualify respondents from other countries.
func (s *PresurveyService) Start(ctx context.Context, projectID uint, uid, country string) (*StartResult, error) {
	link, project, err := s.lookup(ctx, projectID, uid)
	if err != nil {
		return nil, err
	}

	switch link.Status {
	case models.StatusUnused:
		// proceed
	case models.StatusInProgress:
		// Refresh/retry by the same respondent; allow through without a
		// second transition.
		return &StartResult{RedirectURL: s.surveyURL(project, link), Link: link}, nil
	default:
		return nil, response.NewConflict(fmt.Sprintf("link already %s", strings.ToLower(string(link.Status))))
	}

	settings := project.DecodeSettings()
	now := time.Now().UTC()
	meta := link.DecodeMetadata()
	meta.StartedAt = &now
	if country != "" {
		meta.GeoCountry = country
	}

	if !geoAllowed(settings.GeoRestrictions, country) {
		meta.DisqualifyReason = "geo restriction"
		link.SetMetadata(meta)
		link.Status = models.StatusDisqualified
		if err := s.store.UpdateSurveyLink(ctx, link); err != nil {
			return nil, err
		}
		return nil, response.NewForbidden("survey not available in your region")
	}

	link.SetMetadata(meta)
	link.Status = models.StatusInProgress
	if err := s.store.UpdateSurveyLink(ctx, link); err != nil {
		return nil, err
	}

	return &StartResult{RedirectURL: s.surveyURL(project, link), Link: link}, nil
}

// geoAllowed is the pure geo predicate: an empty restriction list allows
// everyone; an unknown country is allowed only when unrestricted.
func geoAllowed(restrictions []string, country string) bool {
	if len(restrictions) == 0 {
		return true
	}
	for _, allowed := range restrictions {
		if strings.EqualFold(allowed, country) {
			return true
		}
	}
	return false
}

// surveyURL substitutes the respondent identifier into the third-party
// survey URL: {uid} placeholders are replaced, otherwise the uid is
// appended as a query parameter.
func (s *PresurveyService) surveyURL(project *models.Project, link *models.SurveyLink) string {
	base := link.DecodeMetadata().OriginalURL
	if base == "" {
		base = project.SurveyURL
	}
	if strings.Contains(base, "{uid}") {
		return strings.ReplaceAll(base, "{uid}", link.UID)
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "uid=" + link.UID
}

type SubmitRequest struct {
	ProjectID uint              `json:"project_id" binding:"required"`
	UID       string            `json:"uid" binding:"required"`
	Answers   map[uint][]string `json:"answers" binding:"required"` // question id -> selected answers
}

type SubmitResponse struct {
	Qualified   bool   `json:"qualified"`
	RedirectURL string `json:"redirect_url,omitempty"`
	Message     string `json:"message,omitempty"`
}

// Submit evaluates presurvey answers. Every question with qualifying
// answers must be matched; failing any disqualifies the link. Qualified
// respondents move to IN_PROGRESS and get the survey redirect.
func (s *PresurveyService) Submit(ctx context.Context, req *SubmitRequest) (*SubmitResponse, error) {
	link, project, err := s.lookup(ctx, req.ProjectID, req.UID)
	if err != nil {
		return nil, err
	}

	if link.Status != models.StatusUnused && link.Status != models.StatusInProgress {
		return nil, response.NewConflict(fmt.Sprintf("link already %s", strings.ToLower(string(link.Status))))
	}

	questions, err := s.store.ListQuestionsByProject(ctx, project.ID)
	if err != nil {
		return nil, err
	}

	failedQuestion := evaluateAnswers(questions, req.Answers)
	now := time.Now().UTC()
	meta := link.DecodeMetadata()

	if failedQuestion != nil {
		meta.DisqualifyReason = fmt.Sprintf("presurvey question %d", failedQuestion.ID)
		link.SetMetadata(meta)
		link.Status = models.StatusDisqualified
		if err := s.store.UpdateSurveyLink(ctx, link); err != nil {
			return nil, err
		}
		settings := project.DecodeSettings()
		return &SubmitResponse{
			Qualified:   false,
			RedirectURL: settings.DisqualifyURL,
			Message:     "thank you, you do not qualify for this survey",
		}, nil
	}

	if link.Status == models.StatusUnused {
		meta.StartedAt = &now
		link.Status = models.StatusInProgress
	}
	link.SetMetadata(meta)
	if err := s.store.UpdateSurveyLink(ctx, link); err != nil {
		return nil, err
	}

	return &SubmitResponse{
		Qualified:   true,
		RedirectURL: s.surveyURL(project, link),
	}, nil
}

// evaluateAnswers returns the first question the answers fail, or nil when
// every qualifying rule is satisfied. Questions without qualifying answers
// accept anything; multi-select questions qualify when any selected answer
// is in the qualifying set.
func evaluateAnswers(questions []models.Question, answers map[uint][]string) *models.Question {
	for i := range questions {
		q := &questions[i]
		qualifying := q.DecodeQualifyingAnswers()
		if len(qualifying) == 0 {
			continue
		}

		given := answers[q.ID]
		if len(given) == 0 {
			return q
		}

		matched := false
		for _, answer := range given {
			for _, ok := range qualifying {
				if strings.EqualFold(answer, ok) {
					matched = true
					break
				}
			}
			if matched {
				break
			}
		}
		if !matched {
			return q
		}
	}
	return nil
}

// Complete is the completion webhook: the third-party survey finished.
// Idempotent: completing a completed link is a no-op success.
func (s *PresurveyService) Complete(ctx context.Context, projectID uint, uid string) (*models.SurveyLink, error) {
	link, _, err := s.lookup(ctx, projectID, uid)
	if err != nil {
		return nil, err
	}

	if link.Status == models.StatusCompleted {
		return link, nil
	}
	if link.Status != models.StatusInProgress && link.Status != models.StatusUnused {
		return nil, response.NewConflict(fmt.Sprintf("link is %s, not in progress", strings.ToLower(string(link.Status))))
	}

	now := time.Now().UTC()
	meta := link.DecodeMetadata()
	meta.CompletedAt = &now
	link.SetMetadata(meta)
	link.Status = models.StatusCompleted

	if err := s.store.UpdateSurveyLink(ctx, link); err != nil {
		return nil, err
	}
	return link, nil
}

func (s *PresurveyService) lookup(ctx context.Context, projectID uint, uid string) (*models.SurveyLink, *models.Project, error) {
	if projectID == 0 || uid == "" {
		return nil, nil, response.NewBadRequest("project id and uid are required")
	}

	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, nil, response.NewNotFound("project not found")
		}
		return nil, nil, err
	}

	link, err := s.store.GetSurveyLinkByUID(ctx, projectID, uid)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, nil, response.NewNotFound("link not found")
		}
		return nil, nil, err
	}
	return link, project, nil
}
