package service

import (
	"context"
	"time"

	"accessportal/internal/model"
	"accessportal/internal/workflow"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ReportOverviewResponse struct {
	TimeRangeStartDate  time.Time        `json:"time_range_start_date"`
	TimeRangeEndDate    time.Time        `json:"time_range_end_date"`
	ApplicationsByState map[string]int64 `json:"applications_by_state"`
	SubmittedCount      int64            `json:"submitted_count"`
	ApprovedCount       int64            `json:"approved_count"`
	RejectedCount       int64            `json:"rejected_count"`
	RevisionCycleCount  int64            `json:"revision_cycle_count"`
	// Average days from first submission to approval across the range.
	AvgApprovalDays decimal.Decimal `json:"avg_approval_days"`
}

type ReportService interface {
	Overview(ctx context.Context, startDate, endDate time.Time) (ReportOverviewResponse, error)
}

type reportService struct {
	db *gorm.DB
}

func NewReportService(db *gorm.DB) ReportService {
	return &reportService{db: db}
}

// Overview aggregates workflow throughput over the time range: per-state
// counts, decision volumes, and the average approval turnaround.
func (s *reportService) Overview(ctx context.Context, startDate, endDate time.Time) (ReportOverviewResponse, error) {
	response := ReportOverviewResponse{
		TimeRangeStartDate:  startDate,
		TimeRangeEndDate:    endDate,
		ApplicationsByState: make(map[string]int64),
	}

	// Current state distribution
	var stateCounts []struct {
		State string
		Count int64
	}
	if err := s.db.WithContext(ctx).Model(&model.Application{}).
		Select("state, COUNT(*) as count").
		Where("created_at >= ? AND created_at <= ?", startDate, endDate).
		Group("state").
		Scan(&stateCounts).Error; err != nil {
		return response, err
	}
	for _, state := range workflow.States {
		response.ApplicationsByState[string(state)] = 0
	}
	for _, row := range stateCounts {
		response.ApplicationsByState[row.State] = row.Count
	}

	// Decision volumes from the ledger
	var actionCounts []struct {
		Action string
		Count  int64
	}
	if err := s.db.WithContext(ctx).Model(&model.ActionLog{}).
		Select("action, COUNT(*) as count").
		Where("created_at >= ? AND created_at <= ?", startDate, endDate).
		Group("action").
		Scan(&actionCounts).Error; err != nil {
		return response, err
	}
	for _, row := range actionCounts {
		switch row.Action {
		case model.ActionSubmit, model.ActionResubmit:
			response.SubmittedCount += row.Count
		case model.ActionDACApprove:
			response.ApprovedCount += row.Count
		case model.ActionReject:
			response.RejectedCount += row.Count
		case model.ActionRepRevisionRequest, model.ActionDACRevisionRequest:
			response.RevisionCycleCount += row.Count
		}
	}

	// Average approval turnaround in days
	var turnaround struct {
		AvgSeconds float64
	}
	s.db.WithContext(ctx).Model(&model.Application{}).
		Select("AVG(EXTRACT(EPOCH FROM (approved_at - created_at))) as avg_seconds").
		Where("approved_at IS NOT NULL AND approved_at >= ? AND approved_at <= ?", startDate, endDate).
		Scan(&turnaround)

	response.AvgApprovalDays = decimal.NewFromFloat(turnaround.AvgSeconds).
		Div(decimal.NewFromInt(86400)).
		Round(2)

	return response, nil
}
