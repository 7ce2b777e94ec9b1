package service

import (
	"context"
	"fmt"
	"time"

	"accessportal/internal/repository"
	"accessportal/internal/workflow"

	"github.com/google/uuid"
)

type LedgerEntryResponse struct {
	ID                string  `json:"id"`
	ApplicationID     string  `json:"application_id"`
	ActorID           string  `json:"actor_id"`
	ActorName         string  `json:"actor_name"`
	Action            string  `json:"action"`
	StateBefore       string  `json:"state_before"`
	StateAfter        string  `json:"state_after"`
	RevisionRequestID *string `json:"revision_request_id"`
	CreatedAt         string  `json:"created_at"`
}

type LedgerService interface {
	List(ctx context.Context, actor Actor, applicationID string, page, limit int) ([]LedgerEntryResponse, int64, error)
}

type ledgerService struct {
	apps   repository.ApplicationRepository
	ledger repository.LedgerRepository
}

// NewLedgerService creates a new LedgerService instance
func NewLedgerService(apps repository.ApplicationRepository, ledger repository.LedgerRepository) LedgerService {
	return &ledgerService{apps: apps, ledger: ledger}
}

// List retrieves the application's transition history in the order the
// transitions were accepted.
func (s *ledgerService) List(ctx context.Context, actor Actor, applicationID string, page, limit int) ([]LedgerEntryResponse, int64, error) {
	appID, err := uuid.Parse(applicationID)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: invalid application id", ErrInvalidInput)
	}

	app, err := s.apps.GetByID(ctx, appID)
	if err != nil {
		return nil, 0, err
	}
	if !canView(actor, app) {
		return nil, 0, workflow.ErrForbidden
	}

	entries, total, err := s.ledger.ListFor(ctx, appID, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list ledger entries: %w", err)
	}

	result := make([]LedgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp := LedgerEntryResponse{
			ID:            e.ID.String(),
			ApplicationID: e.ApplicationID.String(),
			ActorName:     e.ActorName,
			Action:        e.Action,
			StateBefore:   string(e.StateBefore),
			StateAfter:    string(e.StateAfter),
			CreatedAt:     e.CreatedAt.Format(time.RFC3339),
		}
		if e.ActorID != nil {
			resp.ActorID = e.ActorID.String()
		}
		if e.Actor != nil && resp.ActorName == "" {
			resp.ActorName = e.Actor.Username
		}
		if e.RevisionRequestID != nil {
			id := e.RevisionRequestID.String()
			resp.RevisionRequestID = &id
		}
		result = append(result, resp)
	}

	return result, total, nil
}
