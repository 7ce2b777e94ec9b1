package handler

import (
	"net/http"

	"accessportal/internal/middleware"
	"accessportal/internal/service"
	"accessportal/internal/workflow"
	"accessportal/pkg/response"

	"github.com/gin-gonic/gin"
)

type RevisionHandler struct {
	revisionService service.RevisionService
}

func NewRevisionHandler(revisionService service.RevisionService) *RevisionHandler {
	return &RevisionHandler{revisionService: revisionService}
}

func (h *RevisionHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyRole := middleware.RequireRole(workflow.RoleApplicant, workflow.RoleInstitutionalRep, workflow.RoleDACMember, workflow.RoleAdmin)
	reviewers := middleware.RequireRole(workflow.RoleInstitutionalRep, workflow.RoleDACMember, workflow.RoleAdmin)

	revisions := router.Group("/api/applications/:id/revisions")
	{
		revisions.GET("", anyRole, h.ListRevisions)
		revisions.GET("/latest", anyRole, h.LatestRevision)
		revisions.PUT("/:revisionID/sections/:section", reviewers, h.MarkSection)
	}
}

// ListRevisions returns every revision cycle of the application, newest first
func (h *RevisionHandler) ListRevisions(c *gin.Context) {
	result, err := h.revisionService.List(c.Request.Context(), currentActor(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// LatestRevision returns the most recent cycle, resolved or not
func (h *RevisionHandler) LatestRevision(c *gin.Context) {
	result, err := h.revisionService.Latest(c.Request.Context(), currentActor(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// MarkSection records one section's review outcome inside the active cycle
func (h *RevisionHandler) MarkSection(c *gin.Context) {
	var req service.MarkSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	result, err := h.revisionService.MarkSection(
		c.Request.Context(),
		currentActor(c),
		c.Param("id"),
		c.Param("revisionID"),
		c.Param("section"),
		req,
	)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
