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

type LedgerHandler struct {
	ledgerService service.LedgerService
}

func NewLedgerHandler(ledgerService service.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerService: ledgerService}
}

func (h *LedgerHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/applications/:id/ledger")
	group.Use(middleware.RequireRole(workflow.RoleApplicant, workflow.RoleInstitutionalRep, workflow.RoleDACMember, workflow.RoleAdmin))
	{
		group.GET("", h.ListLedger)
	}
}

// ListLedger retrieves the application's transition history
// @Summary      Get action ledger
// @Description  Retrieves the append-only list of accepted transitions for an application
// @Tags         ledger
// @Security     BearerAuth
// @Produce      json
// @Param        id     path      string  true   "Application ID"
// @Param        page   query     int     false  "Page number (default 1)"
// @Param        limit  query     int     false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Router       /api/applications/{id}/ledger [get]
func (h *LedgerHandler) ListLedger(c *gin.Context) {
	params := pagination.Parse(c)

	entries, total, err := h.ledgerService.List(c.Request.Context(), currentActor(c), c.Param("id"), params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"entries": entries,
		"total":   total,
		"page":    params.Page,
		"limit":   params.Limit,
	}))
}
