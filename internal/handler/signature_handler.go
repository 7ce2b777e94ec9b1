package handler

import (
	"net/http"

	"accessportal/internal/middleware"
	"accessportal/internal/service"
	"accessportal/internal/workflow"
	"accessportal/pkg/response"

	"github.com/gin-gonic/gin"
)

type SignatureHandler struct {
	signatureService service.SignatureService
}

func NewSignatureHandler(signatureService service.SignatureService) *SignatureHandler {
	return &SignatureHandler{signatureService: signatureService}
}

func (h *SignatureHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyRole := middleware.RequireRole(workflow.RoleApplicant, workflow.RoleInstitutionalRep, workflow.RoleDACMember, workflow.RoleAdmin)
	signers := middleware.RequireRole(workflow.RoleApplicant, workflow.RoleInstitutionalRep)

	apps := router.Group("/api/applications/:id")
	{
		apps.PUT("/signature", signers, h.SaveSignature)
		apps.GET("/signatures", anyRole, h.GetSignatures)
	}
}

// SaveSignature creates or replaces the caller's signature on the application
func (h *SignatureHandler) SaveSignature(c *gin.Context) {
	var req service.SaveSignatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	result, err := h.signatureService.Save(c.Request.Context(), currentActor(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// GetSignatures returns which roles have signed and when. Image data stays
// out of the listing payload.
func (h *SignatureHandler) GetSignatures(c *gin.Context) {
	result, err := h.signatureService.Get(c.Request.Context(), currentActor(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
