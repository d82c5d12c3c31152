package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// Project represents one survey engagement. SurveyURL is the third-party
// survey the wrapper links redirect to; Settings holds the schemaless
// per-project configuration as a JSON string at the persistence boundary.
type Project struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"size:200;not null" json:"name"`
	SurveyURL string         `gorm:"size:1000;not null" json:"survey_url"`
	Settings  string         `gorm:"type:text" json:"settings"`
	CreatedBy uint           `json:"created_by"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Project) TableName() string { return "projects" }

// ProjectSettings is the typed view of Project.Settings.
type ProjectSettings struct {
	GeoRestrictions []string `json:"geoRestrictions,omitempty"` // ISO country codes allowed; empty = no restriction
	ConsentRequired bool     `json:"consentRequired,omitempty"`
	ConsentItems    []string `json:"consentItems,omitempty"`
	CompletionURL   string   `json:"completionUrl,omitempty"`   // vendor-facing redirect after completion
	DisqualifyURL   string   `json:"disqualifyUrl,omitempty"`   // vendor-facing redirect after disqualification
	PresurveyActive bool     `json:"presurveyActive,omitempty"` // gate respondents through the questionnaire
}

// DecodeSettings parses the settings blob. Malformed or empty settings
// degrade to the zero value; readers never see a parse error.
func (p *Project) DecodeSettings() ProjectSettings {
	var s ProjectSettings
	if p.Settings == "" {
		return s
	}
	if err := json.Unmarshal([]byte(p.Settings), &s); err != nil {
		return ProjectSettings{}
	}
	return s
}

// EncodeSettings serializes typed settings back into the blob.
func (p *Project) EncodeSettings(s ProjectSettings) {
	b, err := json.Marshal(s)
	if err != nil {
		return
	}
	p.Settings = string(b)
}
