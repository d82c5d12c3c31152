package models

import (
	"encoding/json"
	"time"
)

// Vendor is a traffic source/partner that receives a share of generated links.
type Vendor struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:200;not null" json:"name"`
	Settings  string    `gorm:"type:text" json:"settings"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Vendor) TableName() string { return "vendors" }

// VendorSettings is the typed view of Vendor.Settings.
type VendorSettings struct {
	VendorCode       string `json:"vendorCode,omitempty"`       // short code embedded in redirects
	CompleteRedirect string `json:"completeRedirect,omitempty"` // template, {uid} substituted
	TerminateRedirect string `json:"terminateRedirect,omitempty"`
}

// DecodeSettings parses the settings blob, degrading to the zero value on
// malformed input.
func (v *Vendor) DecodeSettings() VendorSettings {
	var s VendorSettings
	if v.Settings == "" {
		return s
	}
	if err := json.Unmarshal([]byte(v.Settings), &s); err != nil {
		return VendorSettings{}
	}
	return s
}

// EncodeSettings serializes typed settings back into the blob.
func (v *Vendor) EncodeSettings(s VendorSettings) {
	b, err := json.Marshal(s)
	if err != nil {
		return
	}
	v.Settings = string(b)
}

// ProjectVendor joins projects and vendors (many-to-many).
type ProjectVendor struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"not null;uniqueIndex:idx_project_vendor,priority:1" json:"project_id"`
	VendorID  uint      `gorm:"not null;uniqueIndex:idx_project_vendor,priority:2" json:"vendor_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (ProjectVendor) TableName() string { return "project_vendors" }
