package handler

import (
	"net/http"

	"accessportal/internal/middleware"
	"accessportal/internal/service"
	"accessportal/internal/workflow"
	"accessportal/pkg/pagination"
	"accessportal/pkg/response"

	"github.com/gin-gonic/gin"
)

type ApplicationHandler struct {
	applicationService service.ApplicationService
}

func NewApplicationHandler(applicationService service.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{applicationService: applicationService}
}

func (h *ApplicationHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyRole := middleware.RequireRole(workflow.RoleApplicant, workflow.RoleInstitutionalRep, workflow.RoleDACMember, workflow.RoleAdmin)
	reviewers := middleware.RequireRole(workflow.RoleInstitutionalRep, workflow.RoleDACMember, workflow.RoleAdmin)

	apps := router.Group("/api/applications")
	{
		apps.GET("", anyRole, h.ListApplications)
		apps.POST("", middleware.RequireRole(workflow.RoleApplicant), h.CreateApplication)
		apps.GET("/:id", anyRole, h.GetApplication)
		apps.GET("/:id/permissions", anyRole, h.GetPermissions)
		apps.PUT("/:id/contents", middleware.RequireRole(workflow.RoleApplicant), h.UpdateContents)
		apps.POST("/:id/submit", middleware.RequireRole(workflow.RoleApplicant), h.Submit)
		apps.POST("/:id/review", reviewers, h.Review)
	}
}

// CreateApplication opens a new draft application for the calling applicant
// @Summary      Create application
// @Tags         applications
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      service.CreateApplicationRequest  true  "Target DAC"
// @Success      201      {object}  response.Response{data=service.ApplicationResponse}
// @Router       /api/applications [post]
func (h *ApplicationHandler) CreateApplication(c *gin.Context) {
	var req service.CreateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	result, err := h.applicationService.Create(c.Request.Context(), currentActor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// ListApplications returns applications visible to the caller, optionally filtered by state
func (h *ApplicationHandler) ListApplications(c *gin.Context) {
	params := pagination.Parse(c)

	filter := service.ListApplicationsFilter{
		State: c.Query("state"),
		DACID: c.Query("dac_id"),
		Page:  params.Page,
		Limit: params.Limit,
	}

	apps, total, err := h.applicationService.List(c.Request.Context(), currentActor(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": http.StatusOK,
		"data":   apps,
		"total":  total,
		"page":   params.Page,
		"limit":  params.Limit,
	})
}

// GetApplication returns a single application with its contents
func (h *ApplicationHandler) GetApplication(c *gin.Context) {
	result, err := h.applicationService.Get(c.Request.Context(), currentActor(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// GetPermissions returns the per-section edit flags and signature rights for
// the caller. Clients must re-fetch after every transition.
func (h *ApplicationHandler) GetPermissions(c *gin.Context) {
	editMode := c.Query("edit_mode") == "true"

	result, err := h.applicationService.Permissions(c.Request.Context(), currentActor(c), c.Param("id"), editMode)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// UpdateContents applies section field edits, guarded by the editability rules
func (h *ApplicationHandler) UpdateContents(c *gin.Context) {
	var req service.UpdateContentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	result, err := h.applicationService.UpdateContents(c.Request.Context(), currentActor(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// Submit moves the application into review, or back into review after a
// revision cycle
func (h *ApplicationHandler) Submit(c *gin.Context) {
	result, err := h.applicationService.Submit(c.Request.Context(), currentActor(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// Review records a reviewer decision (approve, request_revisions, reject,
// revoke, close)
func (h *ApplicationHandler) Review(c *gin.Context) {
	var req service.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	result, err := h.applicationService.Review(c.Request.Context(), currentActor(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
