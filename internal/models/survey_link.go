package models

import (
	"encoding/json"
	"time"
)

// LinkType distinguishes vendor-facing live links from internal test links.
type LinkType string

const (
	LinkTypeTest LinkType = "TEST"
	LinkTypeLive LinkType = "LIVE"
)

// LinkStatus is the lifecycle state of one survey link. Transitions move
// forward only, except for explicit QC overrides.
type LinkStatus string

const (
	StatusUnused       LinkStatus = "UNUSED"
	StatusInProgress   LinkStatus = "IN_PROGRESS"
	StatusCompleted    LinkStatus = "COMPLETED"
	StatusDisqualified LinkStatus = "DISQUALIFIED"
	StatusFlagged      LinkStatus = "FLAGGED"
)

// Review states carried in link metadata while a flagged link awaits QC.
const (
	ReviewPending  = "PENDING"
	ReviewApproved = "APPROVED"
	ReviewRejected = "REJECTED"
)

// SurveyLink is the central entity: one uniquely identified wrapper link
// issued to exactly one project and optionally one vendor. UID is unique
// within a project; RespID mirrors it (legacy duplication kept for vendor
// postback compatibility).
type SurveyLink struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	ProjectID uint       `gorm:"not null;uniqueIndex:idx_project_uid,priority:1" json:"project_id"`
	UID       string     `gorm:"size:64;not null;uniqueIndex:idx_project_uid,priority:2" json:"uid"`
	RespID    string     `gorm:"size:64" json:"resp_id"`
	VendorID  *uint      `gorm:"index" json:"vendor_id"`
	LinkType  LinkType   `gorm:"size:10;not null;default:LIVE" json:"link_type"`
	Status    LinkStatus `gorm:"size:20;not null;default:UNUSED;index" json:"status"`
	Metadata  string     `gorm:"type:text" json:"metadata"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (SurveyLink) TableName() string { return "survey_links" }

// LinkMetadata is the typed view of SurveyLink.Metadata. The blob stays
// schemaless at the persistence boundary; unknown keys written by other
// components survive a decode/encode round trip via Extra.
type LinkMetadata struct {
	OriginalURL      string     `json:"originalUrl,omitempty"`
	WrapperURL       string     `json:"wrapperUrl,omitempty"`
	BatchID          string     `json:"batchId,omitempty"`
	GeneratedAt      *time.Time `json:"generatedAt,omitempty"`
	GenerationMethod string     `json:"generationMethod,omitempty"` // batch, single, import
	FlagReason       string     `json:"flagReason,omitempty"`
	FlaggedAt        *time.Time `json:"flaggedAt,omitempty"`
	ReviewStatus     string     `json:"reviewStatus,omitempty"` // PENDING, APPROVED, REJECTED
	ReviewedBy       string     `json:"reviewedBy,omitempty"`
	ReviewedAt       *time.Time `json:"reviewedAt,omitempty"`
	BotScore         *float64   `json:"botScore,omitempty"`
	GeoCountry       string     `json:"geoCountry,omitempty"`
	DisqualifyReason string     `json:"disqualifyReason,omitempty"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
	StartedAt        *time.Time `json:"startedAt,omitempty"`

	// Extra preserves metadata keys this struct does not model.
	Extra map[string]json.RawMessage `json:"-"`
}

// knownMetadataKeys mirrors the json tags above so Extra only carries
// genuinely unknown keys.
var knownMetadataKeys = map[string]bool{
	"originalUrl": true, "wrapperUrl": true, "batchId": true,
	"generatedAt": true, "generationMethod": true, "flagReason": true,
	"flaggedAt": true, "reviewStatus": true, "reviewedBy": true,
	"reviewedAt": true, "botScore": true, "geoCountry": true,
	"disqualifyReason": true, "completedAt": true, "startedAt": true,
}

// DecodeMetadata parses the metadata blob. Malformed or empty metadata
// degrades to the zero value and never surfaces an error to callers.
func (l *SurveyLink) DecodeMetadata() LinkMetadata {
	var m LinkMetadata
	if l.Metadata == "" {
		return m
	}
	if err := json.Unmarshal([]byte(l.Metadata), &m); err != nil {
		return LinkMetadata{}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(l.Metadata), &raw); err == nil {
		for k, v := range raw {
			if !knownMetadataKeys[k] {
				if m.Extra == nil {
					m.Extra = make(map[string]json.RawMessage)
				}
				m.Extra[k] = v
			}
		}
	}
	return m
}

// SetMetadata serializes typed metadata, merging Extra back so keys owned
// by other writers are never dropped.
func (l *SurveyLink) SetMetadata(m LinkMetadata) {
	b, err := json.Marshal(m)
	if err != nil {
		return
	}
	if len(m.Extra) == 0 {
		l.Metadata = string(b)
		return
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(b, &merged); err != nil {
		l.Metadata = string(b)
		return
	}
	for k, v := range m.Extra {
		if _, owned := merged[k]; !owned {
			merged[k] = v
		}
	}
	out, err := json.Marshal(merged)
	if err != nil {
		l.Metadata = string(b)
		return
	}
	l.Metadata = string(out)
}
