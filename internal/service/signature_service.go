package service

import (
	"context"
	"fmt"
	"time"

	"accessportal/internal/model"
	"accessportal/internal/repository"
	"accessportal/internal/workflow"

	"github.com/google/uuid"
)

// --- DTOs ---

type SaveSignatureRequest struct {
	ImageData string `json:"image_data" binding:"required"` // base64 image
	EditMode  bool   `json:"edit_mode"`
}

type SignatureResponse struct {
	Role     string `json:"role"`
	SignedAt string `json:"signed_at"`
}

// --- Interface ---

type SignatureService interface {
	// Save creates or replaces the acting role's signature, subject to the
	// signature rule table for the application's current state.
	Save(ctx context.Context, actor Actor, applicationID string, req SaveSignatureRequest) (SignatureResponse, error)
	Get(ctx context.Context, actor Actor, applicationID string) ([]SignatureResponse, error)
}

type signatureService struct {
	apps       repository.ApplicationRepository
	revisions  repository.RevisionRepository
	signatures repository.SignatureRepository
	tx         repository.TransactionManager
}

func NewSignatureService(
	apps repository.ApplicationRepository,
	revisions repository.RevisionRepository,
	signatures repository.SignatureRepository,
	tx repository.TransactionManager,
) SignatureService {
	return &signatureService{apps: apps, revisions: revisions, signatures: signatures, tx: tx}
}

// --- Implementation ---

func (s *signatureService) Save(ctx context.Context, actor Actor, applicationID string, req SaveSignatureRequest) (SignatureResponse, error) {
	appID, err := uuid.Parse(applicationID)
	if err != nil {
		return SignatureResponse{}, fmt.Errorf("%w: invalid application id", ErrInvalidInput)
	}
	if actor.Role != workflow.RoleApplicant && actor.Role != workflow.RoleInstitutionalRep {
		return SignatureResponse{}, workflow.ErrForbidden
	}

	var saved *model.Signature
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		app, err := s.apps.GetForUpdate(txCtx, appID)
		if err != nil {
			return err
		}
		if actor.Role == workflow.RoleApplicant && app.UserID != actor.ID {
			return workflow.ErrForbidden
		}

		sigs, err := s.signatures.For(txCtx, app.ID)
		if err != nil {
			return err
		}
		sigSet := workflow.SignatureSet{Loaded: true}
		for _, sig := range sigs {
			switch sig.Role {
			case workflow.RoleApplicant:
				sigSet.ApplicantSigned = sig.ImageData != ""
			case workflow.RoleInstitutionalRep:
				sigSet.InstitutionalSigned = sig.ImageData != ""
			}
		}

		var snap workflow.RevisionSnapshot
		if workflow.InRevision(app.State) {
			if active, activeErr := s.revisions.Active(txCtx, app.ID); activeErr == nil {
				snap = active.Snapshot()
			}
		}

		rights := workflow.ResolveSignatureRights(workflow.SignatureInput{
			Role:           actor.Role,
			State:          app.State,
			EditMode:       req.EditMode && app.State == workflow.StateDraft,
			Signatures:     sigSet,
			ActiveRevision: snap,
		})
		if !rights.CanSign {
			return workflow.ErrForbidden
		}

		saved = &model.Signature{
			ApplicationID: app.ID,
			Role:          actor.Role,
			ImageData:     req.ImageData,
			SignedAt:      time.Now(),
		}
		if err := s.signatures.Upsert(txCtx, saved); err != nil {
			return fmt.Errorf("failed to save signature: %w", err)
		}
		return nil
	})
	if err != nil {
		return SignatureResponse{}, err
	}

	return SignatureResponse{
		Role:     string(saved.Role),
		SignedAt: saved.SignedAt.Format(time.RFC3339),
	}, nil
}

func (s *signatureService) Get(ctx context.Context, actor Actor, applicationID string) ([]SignatureResponse, error) {
	appID, err := uuid.Parse(applicationID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid application id", ErrInvalidInput)
	}

	app, err := s.apps.GetByID(ctx, appID)
	if err != nil {
		return nil, err
	}
	if !canView(actor, app) {
		return nil, workflow.ErrForbidden
	}

	sigs, err := s.signatures.For(ctx, appID)
	if err != nil {
		return nil, fmt.Errorf("failed to load signatures: %w", err)
	}

	result := make([]SignatureResponse, 0, len(sigs))
	for _, sig := range sigs {
		result = append(result, SignatureResponse{
			Role:     string(sig.Role),
			SignedAt: sig.SignedAt.Format(time.RFC3339),
		})
	}
	return result, nil
}
