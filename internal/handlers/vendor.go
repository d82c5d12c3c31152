package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/panelbridge/surveylink/internal/middleware"
	"github.com/panelbridge/surveylink/internal/services"
	"github.com/panelbridge/surveylink/internal/store"
	"github.com/panelbridge/surveylink/pkg/response"
)

type VendorHandler struct {
	vendorService *services.VendorService
}

func NewVendorHandler(st *store.Store) *VendorHandler {
	return &VendorHandler{vendorService: services.NewVendorService(st)}
}

// List returns all vendors, or vendors attached to a project when
// project_id is given
// GET /api/vendors
func (h *VendorHandler) List(c *gin.Context) {
	var query struct {
		ProjectID uint `form:"project_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	var (
		vendors interface{}
		err     error
	)
	if query.ProjectID != 0 {
		vendors, err = h.vendorService.ListByProject(c.Request.Context(), query.ProjectID)
	} else {
		vendors, err = h.vendorService.List(c.Request.Context())
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, vendors)
}

// GetByID returns a vendor by ID
// GET /api/vendors/:id
func (h *VendorHandler) GetByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	vendor, err := h.vendorService.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, vendor)
}

// Create creates a vendor
// POST /api/vendors
func (h *VendorHandler) Create(c *gin.Context) {
	var req services.CreateVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	vendor, err := h.vendorService.Create(c.Request.Context(), &req, middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, vendor)
}

// Update updates vendor fields
// PUT /api/vendors/:id
func (h *VendorHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req services.UpdateVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	vendor, err := h.vendorService.Update(c.Request.Context(), id, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, vendor)
}

// Delete removes a vendor
// DELETE /api/vendors/:id
func (h *VendorHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.vendorService.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"deleted": true})
}

// Attach links a vendor to a project
// POST /api/projects/:id/vendors/:vendorId
func (h *VendorHandler) Attach(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	vendorID, ok := pathID(c, "vendorId")
	if !ok {
		return
	}

	if err := h.vendorService.Attach(c.Request.Context(), projectID, vendorID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"attached": true})
}

// Detach removes a vendor from a project
// DELETE /api/projects/:id/vendors/:vendorId
func (h *VendorHandler) Detach(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	vendorID, ok := pathID(c, "vendorId")
	if !ok {
		return
	}

	if err := h.vendorService.Detach(c.Request.Context(), projectID, vendorID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"detached": true})
}
