package store

import (
	"context"

	"github.com/panelbridge/surveylink/internal/models"
)

func (s *Store) CreateVendor(ctx context.Context, vendor *models.Vendor) error {
	if vendor.Name == "" {
		return validationError("create_vendor", "vendor name is required")
	}
	if err := s.db.WithContext(ctx).Create(vendor).Error; err != nil {
		return classify("create_vendor", err)
	}
	return nil
}

func (s *Store) GetVendor(ctx context.Context, id uint) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := s.db.WithContext(ctx).First(&vendor, id).Error; err != nil {
		return nil, classify("get_vendor", err)
	}
	return &vendor, nil
}

func (s *Store) ListVendors(ctx context.Context) ([]models.Vendor, error) {
	var vendors []models.Vendor
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&vendors).Error; err != nil {
		return nil, classify("list_vendors", err)
	}
	return vendors, nil
}

func (s *Store) UpdateVendor(ctx context.Context, vendor *models.Vendor) error {
	if vendor.ID == 0 {
		return validationError("update_vendor", "vendor id is required")
	}
	if err := s.db.WithContext(ctx).Save(vendor).Error; err != nil {
		return classify("update_vendor", err)
	}
	return nil
}

func (s *Store) DeleteVendor(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.Vendor{}, id)
	if result.Error != nil {
		return classify("delete_vendor", result.Error)
	}
	if result.RowsAffected == 0 {
		return newError(KindNotFound, "delete_vendor", nil)
	}
	return nil
}

// AttachVendor associates a vendor with a project. Attaching twice is a
// conflict.
func (s *Store) AttachVendor(ctx context.Context, projectID, vendorID uint) error {
	pv := models.ProjectVendor{ProjectID: projectID, VendorID: vendorID}
	if err := s.db.WithContext(ctx).Create(&pv).Error; err != nil {
		return classify("attach_vendor", err)
	}
	return nil
}

func (s *Store) DetachVendor(ctx context.Context, projectID, vendorID uint) error {
	result := s.db.WithContext(ctx).
		Where("project_id = ? AND vendor_id = ?", projectID, vendorID).
		Delete(&models.ProjectVendor{})
	if result.Error != nil {
		return classify("detach_vendor", result.Error)
	}
	if result.RowsAffected == 0 {
		return newError(KindNotFound, "detach_vendor", nil)
	}
	return nil
}

// ListVendorsByProject returns the vendors attached to a project.
func (s *Store) ListVendorsByProject(ctx context.Context, projectID uint) ([]models.Vendor, error) {
	var vendors []models.Vendor
	err := s.db.WithContext(ctx).
		Joins("JOIN project_vendors ON project_vendors.vendor_id = vendors.id").
		Where("project_vendors.project_id = ?", projectID).
		Order("vendors.name ASC").
		Find(&vendors).Error
	if err != nil {
		return nil, classify("list_vendors_by_project", err)
	}
	return vendors, nil
}

// DeleteProjectVendorsByProject removes all vendor associations for a
// project. Used only by cascading project deletion.
func (s *Store) DeleteProjectVendorsByProject(ctx context.Context, projectID uint) error {
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Delete(&models.ProjectVendor{}).Error
	if err != nil {
		return classify("delete_project_vendors_by_project", err)
	}
	return nil
}
