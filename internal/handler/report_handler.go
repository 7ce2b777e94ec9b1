package handler

import (
	"net/http"
	"time"

	"accessportal/internal/middleware"
	"accessportal/internal/service"
	"accessportal/internal/workflow"
	"accessportal/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reportService service.ReportService
}

func NewReportHandler(reportService service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

func (h *ReportHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/reports")
	group.Use(middleware.RequireRole(workflow.RoleDACMember, workflow.RoleAdmin))
	{
		group.GET("/overview", h.GetOverview)
	}
}

// GetOverview returns workflow throughput metrics over a date range.
// Defaults to the last 90 days.
func (h *ReportHandler) GetOverview(c *gin.Context) {
	endDate := time.Now()
	startDate := endDate.AddDate(0, 0, -90)

	if v := c.Query("start_date"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid start_date, expected YYYY-MM-DD"))
			return
		}
		startDate = parsed
	}
	if v := c.Query("end_date"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid end_date, expected YYYY-MM-DD"))
			return
		}
		endDate = parsed.Add(24*time.Hour - time.Second)
	}

	result, err := h.reportService.Overview(c.Request.Context(), startDate, endDate)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
