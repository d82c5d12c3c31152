package services

import (
	"context"
	"fmt"

	"github.com/panelbridge/surveylink/internal/models"
	"github.com/panelbridge/surveylink/internal/store"
	"github.com/panelbridge/surveylink/pkg/response"
)

type VendorService struct {
	store *store.Store
}

func NewVendorService(st *store.Store) *VendorService {
	return &VendorService{store: st}
}

type CreateVendorRequest struct {
	Name     string                 `json:"name" binding:"required"`
	Settings *models.VendorSettings `json:"settings"`
}

type UpdateVendorRequest struct {
	Name     string                 `json:"name"`
	Settings *models.VendorSettings `json:"settings"`
}

func (s *VendorService) List(ctx context.Context) ([]models.Vendor, error) {
	return s.store.ListVendors(ctx)
}

func (s *VendorService) ListByProject(ctx context.Context, projectID uint) ([]models.Vendor, error) {
	return s.store.ListVendorsByProject(ctx, projectID)
}

func (s *VendorService) GetByID(ctx context.Context, id uint) (*models.Vendor, error) {
	vendor, err := s.store.GetVendor(ctx, id)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, response.NewNotFound("vendor not found")
		}
		return nil, err
	}
	return vendor, nil
}

func (s *VendorService) Create(ctx context.Context, req *CreateVendorRequest, userID uint) (*models.Vendor, error) {
	vendor := models.Vendor{Name: req.Name}
	if req.Settings != nil {
		vendor.EncodeSettings(*req.Settings)
	}

	if err := s.store.CreateVendor(ctx, &vendor); err != nil {
		return nil, err
	}

	AuditInfo("vendors", "create",
		fmt.Sprintf("vendor %q created", vendor.Name), &userID, "", nil)
	return &vendor, nil
}

func (s *VendorService) Update(ctx context.Context, id uint, req *UpdateVendorRequest) (*models.Vendor, error) {
	vendor, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		vendor.Name = req.Name
	}
	if req.Settings != nil {
		vendor.EncodeSettings(*req.Settings)
	}

	if err := s.store.UpdateVendor(ctx, vendor); err != nil {
		return nil, err
	}
	return vendor, nil
}

func (s *VendorService) Delete(ctx context.Context, id uint) error {
	if err := s.store.DeleteVendor(ctx, id); err != nil {
		if store.IsNotFound(err) {
			return response.NewNotFound("vendor not found")
		}
		return err
	}
	return nil
}

// Attach associates a vendor with a project; attaching twice is reported
// as a conflict.
func (s *VendorService) Attach(ctx context.Context, projectID, vendorID uint) error {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		if store.IsNotFound(err) {
			return response.NewNotFound("project not found")
		}
		return err
	}
	if _, err := s.store.GetVendor(ctx, vendorID); err != nil {
		if store.IsNotFound(err) {
			return response.NewNotFound("vendor not found")
		}
		return err
	}

	if err := s.store.AttachVendor(ctx, projectID, vendorID); err != nil {
		if store.IsConflict(err) {
			return response.NewConflict("vendor already attached to project")
		}
		return err
	}
	return nil
}

func (s *VendorService) Detach(ctx context.Context, projectID, vendorID uint) error {
	if err := s.store.DetachVendor(ctx, projectID, vendorID); err != nil {
		if store.IsNotFound(err) {
			return response.NewNotFound("vendor is not attached to project")
		}
		return err
	}
	return nil
}
