package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"accessportal/internal/model"
	"accessportal/internal/repository"
	"accessportal/internal/workflow"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type MarkSectionRequest struct {
	Approved bool    `json:"approved"`
	Notes    *string `json:"notes"`
}

type RevisionSectionResponse struct {
	Section  string  `json:"section"`
	Approved bool    `json:"approved"`
	Notes    *string `json:"notes"`
}

type RevisionResponse struct {
	ID            string                    `json:"id"`
	ApplicationID string                    `json:"application_id"`
	Comments      string                    `json:"comments"`
	Resolved      bool                      `json:"resolved"`
	Sections      []RevisionSectionResponse `json:"sections"`
	CreatedAt     string                    `json:"created_at"`
}

// --- Interface ---

type RevisionService interface {
	// MarkSection upserts one section's flag/notes inside the identified
	// cycle. The id must be the application's current active cycle.
	MarkSection(ctx context.Context, actor Actor, applicationID, revisionID, section string, req MarkSectionRequest) (RevisionResponse, error)
	Latest(ctx context.Context, actor Actor, applicationID string) (RevisionResponse, error)
	List(ctx context.Context, actor Actor, applicationID string) ([]RevisionResponse, error)
}

type revisionService struct {
	apps      repository.ApplicationRepository
	revisions repository.RevisionRepository
	tx        repository.TransactionManager
}

func NewRevisionService(apps repository.ApplicationRepository, revisions repository.RevisionRepository, tx repository.TransactionManager) RevisionService {
	return &revisionService{apps: apps, revisions: revisions, tx: tx}
}

// --- Implementation ---

func (s *revisionService) MarkSection(ctx context.Context, actor Actor, applicationID, revisionID, section string, req MarkSectionRequest) (RevisionResponse, error) {
	appID, err := uuid.Parse(applicationID)
	if err != nil {
		return RevisionResponse{}, fmt.Errorf("%w: invalid application id", ErrInvalidInput)
	}
	revID, err := uuid.Parse(revisionID)
	if err != nil {
		return RevisionResponse{}, fmt.Errorf("%w: invalid revision id", ErrInvalidInput)
	}
	sec := workflow.Section(section)
	if !workflow.IsValidSection(sec) {
		return RevisionResponse{}, fmt.Errorf("%w: unknown section %q", ErrInvalidInput, section)
	}
	if actor.Role != workflow.RoleInstitutionalRep && actor.Role != workflow.RoleDACMember && actor.Role != workflow.RoleAdmin {
		return RevisionResponse{}, workflow.ErrForbidden
	}

	var result *model.RevisionRequest
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		active, err := s.revisions.Active(txCtx, appID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return workflow.ErrNotFound
		}
		if err != nil {
			return err
		}
		// A stale cycle id (superseded by resubmission) must not be
		// writable.
		if active.ID != revID {
			return workflow.ErrNotFound
		}

		row := &model.RevisionSection{
			RevisionRequestID: active.ID,
			Section:           sec,
			Approved:          req.Approved,
			Notes:             req.Notes,
		}
		if err := s.revisions.UpsertSection(txCtx, row); err != nil {
			return fmt.Errorf("failed to mark section: %w", err)
		}

		result, err = s.revisions.Active(txCtx, appID)
		return err
	})
	if err != nil {
		return RevisionResponse{}, err
	}

	return toRevisionResponse(result), nil
}

func (s *revisionService) Latest(ctx context.Context, actor Actor, applicationID string) (RevisionResponse, error) {
	appID, err := uuid.Parse(applicationID)
	if err != nil {
		return RevisionResponse{}, fmt.Errorf("%w: invalid application id", ErrInvalidInput)
	}
	if err := s.checkAccess(ctx, actor, appID); err != nil {
		return RevisionResponse{}, err
	}

	rev, err := s.revisions.Latest(ctx, appID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return RevisionResponse{}, workflow.ErrNotFound
	}
	if err != nil {
		return RevisionResponse{}, err
	}

	return toRevisionResponse(rev), nil
}

func (s *revisionService) List(ctx context.Context, actor Actor, applicationID string) ([]RevisionResponse, error) {
	appID, err := uuid.Parse(applicationID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid application id", ErrInvalidInput)
	}
	if err := s.checkAccess(ctx, actor, appID); err != nil {
		return nil, err
	}

	revs, err := s.revisions.ListFor(ctx, appID)
	if err != nil {
		return nil, fmt.Errorf("failed to list revision cycles: %w", err)
	}

	result := make([]RevisionResponse, 0, len(revs))
	for i := range revs {
		result = append(result, toRevisionResponse(&revs[i]))
	}
	return result, nil
}

func (s *revisionService) checkAccess(ctx context.Context, actor Actor, appID uuid.UUID) error {
	app, err := s.apps.GetByID(ctx, appID)
	if err != nil {
		return err
	}
	if !canView(actor, app) {
		return workflow.ErrForbidden
	}
	return nil
}

func toRevisionResponse(rev *model.RevisionRequest) RevisionResponse {
	resp := RevisionResponse{
		ID:            rev.ID.String(),
		ApplicationID: rev.ApplicationID.String(),
		Comments:      rev.Comments,
		Resolved:      rev.Resolved,
		CreatedAt:     rev.CreatedAt.Format(time.RFC3339),
	}
	for _, s := range rev.Sections {
		resp.Sections = append(resp.Sections, RevisionSectionResponse{
			Section:  string(s.Section),
			Approved: s.Approved,
			Notes:    s.Notes,
		})
	}
	return resp
}
