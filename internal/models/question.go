package models

import (
	"encoding/json"
	"time"
)

// Question is one presurvey qualification question attached to a project.
// Options and QualifyingAnswers are JSON-encoded string arrays.
type Question struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	ProjectID         uint      `gorm:"not null;index" json:"project_id"`
	Text              string    `gorm:"size:1000;not null" json:"text"`
	Type              string    `gorm:"size:20;default:single" json:"type"` // single, multi, text
	Options           string    `gorm:"type:text" json:"options"`
	QualifyingAnswers string    `gorm:"type:text" json:"qualifying_answers"`
	SortOrder         int       `gorm:"default:0" json:"sort_order"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (Question) TableName() string { return "questions" }

// DecodeOptions returns the option list, nil on malformed input.
func (q *Question) DecodeOptions() []string {
	return decodeStringList(q.Options)
}

// DecodeQualifyingAnswers returns the qualifying answer list. An empty
// list means every answer qualifies.
func (q *Question) DecodeQualifyingAnswers() []string {
	return decodeStringList(q.QualifyingAnswers)
}

func decodeStringList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}
