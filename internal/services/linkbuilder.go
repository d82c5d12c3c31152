package services

import (
	"fmt"
	"time"

	"github.com/panelbridge/surveylink/internal/models"
)

// BuildContext carries the per-batch constants needed to assemble link
// records. It is computed once per generation request and shared read-only
// across all tasks of the batch.
type BuildContext struct {
	ProjectID     uint
	OriginalURL   string
	ShortURLBase  string
	SurveyURLBase string
	ConsentGated  bool   // route respondents through the consent/presurvey page
	BatchID       string
	Method        string // batch, single, import
}

// WrapperURL computes the public URL for a uid deterministically from the
// build context. Consent-gated projects get the /survey form so the entry
// page can render consent items before redirecting.
func (bc BuildContext) WrapperURL(uid string) string {
	if bc.ConsentGated {
		return fmt.Sprintf("%s/survey/%d/%s", bc.SurveyURLBase, bc.ProjectID, uid)
	}
	return fmt.Sprintf("%s/%d/%s", bc.ShortURLBase, bc.ProjectID, uid)
}

// BuildLink assembles a complete, unpersisted link record. Pure: no I/O,
// no shared state. RespID mirrors UID.
func BuildLink(bc BuildContext, uid string, vendorID *uint, linkType models.LinkType) models.SurveyLink {
	now := time.Now().UTC()

	link := models.SurveyLink{
		ProjectID: bc.ProjectID,
		UID:       uid,
		RespID:    uid,
		VendorID:  vendorID,
		LinkType:  linkType,
		Status:    models.StatusUnused,
	}
	link.SetMetadata(models.LinkMetadata{
		OriginalURL:      bc.OriginalURL,
		WrapperURL:       bc.WrapperURL(uid),
		BatchID:          bc.BatchID,
		GeneratedAt:      &now,
		GenerationMethod: bc.Method,
	})
	return link
}
