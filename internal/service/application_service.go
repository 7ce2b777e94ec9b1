package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"accessportal/internal/model"
	"accessportal/internal/repository"
	"accessportal/internal/workflow"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrInvalidInput marks a request the caller can fix (bad ids, unknown
// fields, unknown decisions). Handlers map it to 400.
var ErrInvalidInput = errors.New("invalid input")

// Actor is the authenticated caller attempting an action.
type Actor struct {
	ID   uuid.UUID
	Name string
	Role workflow.Role
}

// Broadcaster publishes accepted ledger entries to interested listeners
// (the websocket hub; e-mail dispatch subscribes downstream).
type Broadcaster interface {
	Publish(message []byte)
}

// LedgerEvent is the JSON payload broadcast for every accepted transition.
type LedgerEvent struct {
	ApplicationID     string  `json:"application_id"`
	Action            string  `json:"action"`
	StateBefore       string  `json:"state_before"`
	StateAfter        string  `json:"state_after"`
	ActorName         string  `json:"actor_name"`
	RevisionRequestID *string `json:"revision_request_id,omitempty"`
	CreatedAt         string  `json:"created_at"`
}

// Review decisions accepted by the review endpoint.
const (
	DecisionApprove          = "approve"
	DecisionRequestRevisions = "request_revisions"
	DecisionReject           = "reject"
	DecisionRevoke           = "revoke"
	DecisionClose            = "close"
)

// --- DTOs ---

type CreateApplicationRequest struct {
	DACID string `json:"dac_id" binding:"required"`
}

type UpdateContentsRequest struct {
	EditMode bool                   `json:"edit_mode"`
	Fields   map[string]interface{} `json:"fields" binding:"required"`
}

type ReviewRequest struct {
	Decision string `json:"decision" binding:"required"`
	Comments string `json:"comments"`
}

type ApplicationResponse struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	ApplicantName string          `json:"applicant_name,omitempty"`
	DACID         string          `json:"dac_id"`
	State         string          `json:"state"`
	Contents      json.RawMessage `json:"contents"`
	ApprovedAt    *string         `json:"approved_at"`
	ExpiresAt     *string         `json:"expires_at"`
	CreatedAt     string          `json:"created_at"`
	UpdatedAt     string          `json:"updated_at"`
}

// PermissionsResponse tells the UI which controls to enable right now. It
// must be re-fetched after every transition.
type PermissionsResponse struct {
	State     string                   `json:"state"`
	EditMode  bool                     `json:"edit_mode"`
	Sections  map[string]bool          `json:"sections"`
	Signature workflow.SignatureRights `json:"signature"`
}

type ListApplicationsFilter struct {
	State string
	DACID string
	Page  int
	Limit int
}

// --- Interface ---

type ApplicationService interface {
	Create(ctx context.Context, actor Actor, req CreateApplicationRequest) (ApplicationResponse, error)
	Get(ctx context.Context, actor Actor, id string) (ApplicationResponse, error)
	List(ctx context.Context, actor Actor, filter ListApplicationsFilter) ([]ApplicationResponse, int64, error)
	UpdateContents(ctx context.Context, actor Actor, id string, req UpdateContentsRequest) (ApplicationResponse, error)
	Submit(ctx context.Context, actor Actor, id string) (ApplicationResponse, error)
	Review(ctx context.Context, actor Actor, id string, req ReviewRequest) (ApplicationResponse, error)
	Permissions(ctx context.Context, actor Actor, id string, editMode bool) (PermissionsResponse, error)
}

type applicationService struct {
	apps       repository.ApplicationRepository
	revisions  repository.RevisionRepository
	ledger     repository.LedgerRepository
	signatures repository.SignatureRepository
	tx         repository.TransactionManager
	hub        Broadcaster
	grantTTL   time.Duration // access grant lifetime stamped on DAC approval
}

func NewApplicationService(
	apps repository.ApplicationRepository,
	revisions repository.RevisionRepository,
	ledger repository.LedgerRepository,
	signatures repository.SignatureRepository,
	tx repository.TransactionManager,
	hub Broadcaster,
	grantTTL time.Duration,
) ApplicationService {
	return &applicationService{
		apps:       apps,
		revisions:  revisions,
		ledger:     ledger,
		signatures: signatures,
		tx:         tx,
		hub:        hub,
		grantTTL:   grantTTL,
	}
}

// --- Implementation ---

func (s *applicationService) Create(ctx context.Context, actor Actor, req CreateApplicationRequest) (ApplicationResponse, error) {
	if actor.Role != workflow.RoleApplicant {
		return ApplicationResponse{}, workflow.ErrForbidden
	}

	app := &model.Application{
		UserID:   actor.ID,
		DACID:    req.DACID,
		State:    workflow.StateDraft,
		Contents: "{}",
	}
	if err := s.apps.Create(ctx, app); err != nil {
		return ApplicationResponse{}, fmt.Errorf("failed to create application: %w", err)
	}

	return toApplicationResponse(app), nil
}

func (s *applicationService) Get(ctx context.Context, actor Actor, id string) (ApplicationResponse, error) {
	appID, err := uuid.Parse(id)
	if err != nil {
		return ApplicationResponse{}, fmt.Errorf("%w: invalid application id", ErrInvalidInput)
	}

	app, err := s.apps.GetByID(ctx, appID)
	if err != nil {
		return ApplicationResponse{}, err
	}
	if !canView(actor, app) {
		return ApplicationResponse{}, workflow.ErrForbidden
	}

	return toApplicationResponse(app), nil
}

func (s *applicationService) List(ctx context.Context, actor Actor, filter ListApplicationsFilter) ([]ApplicationResponse, int64, error) {
	repoFilter := repository.ApplicationFilter{
		State: workflow.State(filter.State),
		DACID: filter.DACID,
		Page:  filter.Page,
		Limit: filter.Limit,
	}
	// Applicants only ever see their own applications.
	if actor.Role == workflow.RoleApplicant {
		userID := actor.ID
		repoFilter.UserID = &userID
	}

	apps, total, err := s.apps.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list applications: %w", err)
	}

	result := make([]ApplicationResponse, 0, len(apps))
	for i := range apps {
		result = append(result, toApplicationResponse(&apps[i]))
	}
	return result, total, nil
}

func (s *applicationService) UpdateContents(ctx context.Context, actor Actor, id string, req UpdateContentsRequest) (ApplicationResponse, error) {
	appID, err := uuid.Parse(id)
	if err != nil {
		return ApplicationResponse{}, fmt.Errorf("%w: invalid application id", ErrInvalidInput)
	}

	var updated *model.Application
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		app, err := s.apps.GetForUpdate(txCtx, appID)
		if err != nil {
			return err
		}
		if app.UserID != actor.ID || actor.Role != workflow.RoleApplicant {
			return workflow.ErrForbidden
		}

		// Edit mode is only legitimate while the application is in DRAFT;
		// outside of it the caller's flag is ignored.
		editMode := req.EditMode && app.State == workflow.StateDraft

		snap, _, err := s.activeSnapshot(txCtx, app)
		if err != nil {
			return err
		}

		patch := make(map[workflow.Section]map[string]interface{})
		for field, value := range req.Fields {
			section, ok := workflow.SectionForField(field)
			if !ok {
				return fmt.Errorf("%w: unknown field %q", ErrInvalidInput, field)
			}
			if !workflow.CanEdit(snap, section, editMode) {
				return workflow.ErrForbidden
			}
			if patch[section] == nil {
				patch[section] = make(map[string]interface{})
			}
			patch[section][field] = value
		}

		merged, err := mergeContents(app.Contents, patch)
		if err != nil {
			return fmt.Errorf("failed to merge contents: %w", err)
		}
		app.Contents = merged

		if err := s.apps.Save(txCtx, app); err != nil {
			return fmt.Errorf("failed to save application: %w", err)
		}
		updated = app
		return nil
	})
	if err != nil {
		return ApplicationResponse{}, err
	}

	return toApplicationResponse(updated), nil
}

func (s *applicationService) Submit(ctx context.Context, actor Actor, id string) (ApplicationResponse, error) {
	appID, err := uuid.Parse(id)
	if err != nil {
		return ApplicationResponse{}, fmt.Errorf("%w: invalid application id", ErrInvalidInput)
	}

	var (
		updated *model.Application
		entry   *model.ActionLog
	)
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		app, err := s.apps.GetForUpdate(txCtx, appID)
		if err != nil {
			return err
		}
		if app.UserID != actor.ID || actor.Role != workflow.RoleApplicant {
			return workflow.ErrForbidden
		}

		var target workflow.State
		action := model.ActionSubmit
		switch app.State {
		case workflow.StateDraft:
			target = workflow.StateRepReview
		case workflow.StateRepRevisionRequested:
			target = workflow.StateRepReview
			action = model.ActionResubmit
		case workflow.StateDACRevisionsRequested:
			target = workflow.StateDACReview
			action = model.ActionResubmit
		default:
			return workflow.ErrInvalidTransition
		}
		if !workflow.CanTransition(app.State, target) {
			return workflow.ErrInvalidTransition
		}

		sigSet, err := s.signatureSet(txCtx, app.ID)
		if err != nil {
			return err
		}
		snap, active, err := s.activeSnapshot(txCtx, app)
		if err != nil {
			return err
		}

		rights := workflow.ResolveSignatureRights(workflow.SignatureInput{
			Role:           actor.Role,
			State:          app.State,
			EditMode:       app.State == workflow.StateDraft,
			Signatures:     sigSet,
			ActiveRevision: snap,
		})
		if !rights.CanSubmit {
			return workflow.ErrForbidden
		}

		before := app.State
		app.State = target
		if err := s.apps.Save(txCtx, app); err != nil {
			return fmt.Errorf("failed to save application: %w", err)
		}

		// Resubmission supersedes the active cycle; it stays readable for
		// audit but no longer drives editability.
		var revID *uuid.UUID
		if active != nil {
			if err := s.revisions.Resolve(txCtx, active.ID); err != nil {
				return fmt.Errorf("failed to resolve revision cycle: %w", err)
			}
			resolvedID := active.ID
			revID = &resolvedID
		}

		entry = s.newEntry(app.ID, actor, action, before, app.State, revID)
		if err := s.ledger.Append(txCtx, entry); err != nil {
			return fmt.Errorf("failed to append ledger entry: %w", err)
		}
		updated = app
		return nil
	})
	if err != nil {
		return ApplicationResponse{}, err
	}

	s.publish(entry)
	return toApplicationResponse(updated), nil
}

func (s *applicationService) Review(ctx context.Context, actor Actor, id string, req ReviewRequest) (ApplicationResponse, error) {
	appID, err := uuid.Parse(id)
	if err != nil {
		return ApplicationResponse{}, fmt.Errorf("%w: invalid application id", ErrInvalidInput)
	}
	switch req.Decision {
	case DecisionApprove, DecisionRequestRevisions, DecisionReject, DecisionRevoke, DecisionClose:
	default:
		return ApplicationResponse{}, fmt.Errorf("%w: unknown decision %q", ErrInvalidInput, req.Decision)
	}

	var (
		updated *model.Application
		entry   *model.ActionLog
	)
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		app, err := s.apps.GetForUpdate(txCtx, appID)
		if err != nil {
			return err
		}

		target, action, requiredRole, ok := resolveDecision(app.State, req.Decision)
		if !ok {
			return workflow.ErrInvalidTransition
		}
		if !workflow.CanTransition(app.State, target) {
			return workflow.ErrInvalidTransition
		}
		if actor.Role != requiredRole && actor.Role != workflow.RoleAdmin {
			return workflow.ErrForbidden
		}

		// Forwarding to the DAC requires the representative's signature,
		// per the signature rule table for INSTITUTIONAL_REP_REVIEW.
		if app.State == workflow.StateRepReview && req.Decision == DecisionApprove {
			sigSet, err := s.signatureSet(txCtx, app.ID)
			if err != nil {
				return err
			}
			rights := workflow.ResolveSignatureRights(workflow.SignatureInput{
				Role:       workflow.RoleInstitutionalRep,
				State:      app.State,
				Signatures: sigSet,
			})
			if !rights.CanSubmit {
				return workflow.ErrForbidden
			}
		}

		before := app.State
		app.State = target
		if target == workflow.StateApproved {
			now := time.Now()
			expires := now.Add(s.grantTTL)
			app.ApprovedAt = &now
			app.ExpiresAt = &expires
		}
		if err := s.apps.Save(txCtx, app); err != nil {
			return fmt.Errorf("failed to save application: %w", err)
		}

		var revID *uuid.UUID
		if workflow.InRevision(target) {
			rev, err := s.openRevisionCycle(txCtx, app.ID, req.Comments)
			if err != nil {
				return err
			}
			revID = &rev.ID
		}

		entry = s.newEntry(app.ID, actor, action, before, app.State, revID)
		if err := s.ledger.Append(txCtx, entry); err != nil {
			return fmt.Errorf("failed to append ledger entry: %w", err)
		}
		updated = app
		return nil
	})
	if err != nil {
		return ApplicationResponse{}, err
	}

	s.publish(entry)
	return toApplicationResponse(updated), nil
}

func (s *applicationService) Permissions(ctx context.Context, actor Actor, id string, editMode bool) (PermissionsResponse, error) {
	appID, err := uuid.Parse(id)
	if err != nil {
		return PermissionsResponse{}, fmt.Errorf("%w: invalid application id", ErrInvalidInput)
	}

	app, err := s.apps.GetByID(ctx, appID)
	if err != nil {
		return PermissionsResponse{}, err
	}
	if !canView(actor, app) {
		return PermissionsResponse{}, workflow.ErrForbidden
	}

	effEditMode := editMode && app.State == workflow.StateDraft &&
		actor.Role == workflow.RoleApplicant && app.UserID == actor.ID

	snap, _, err := s.activeSnapshot(ctx, app)
	if err != nil {
		return PermissionsResponse{}, err
	}

	// Body edits belong to the owning applicant; reviewers get read-only
	// sections and, where the table says so, signature rights.
	owner := actor.Role == workflow.RoleApplicant && app.UserID == actor.ID
	sections := make(map[string]bool, len(workflow.Sections))
	for _, section := range workflow.Sections {
		sections[string(section)] = owner && workflow.CanEdit(snap, section, effEditMode)
	}

	sigSet, err := s.signatureSet(ctx, app.ID)
	if err != nil {
		return PermissionsResponse{}, err
	}
	rights := workflow.ResolveSignatureRights(workflow.SignatureInput{
		Role:           actor.Role,
		State:          app.State,
		EditMode:       effEditMode,
		Signatures:     sigSet,
		ActiveRevision: snap,
	})

	return PermissionsResponse{
		State:     string(app.State),
		EditMode:  effEditMode,
		Sections:  sections,
		Signature: rights,
	}, nil
}

// --- Helpers ---

// resolveDecision maps (current state, decision) to the transition it
// implies and the role entitled to make it.
func resolveDecision(state workflow.State, decision string) (workflow.State, string, workflow.Role, bool) {
	switch state {
	case workflow.StateRepReview:
		switch decision {
		case DecisionApprove:
			return workflow.StateDACReview, model.ActionRepApprove, workflow.RoleInstitutionalRep, true
		case DecisionRequestRevisions:
			return workflow.StateRepRevisionRequested, model.ActionRepRevisionRequest, workflow.RoleInstitutionalRep, true
		case DecisionReject:
			return workflow.StateRejected, model.ActionReject, workflow.RoleInstitutionalRep, true
		}
	case workflow.StateDACReview:
		switch decision {
		case DecisionApprove:
			return workflow.StateApproved, model.ActionDACApprove, workflow.RoleDACMember, true
		case DecisionRequestRevisions:
			return workflow.StateDACRevisionsRequested, model.ActionDACRevisionRequest, workflow.RoleDACMember, true
		case DecisionReject:
			return workflow.StateRejected, model.ActionReject, workflow.RoleDACMember, true
		}
	case workflow.StateApproved:
		switch decision {
		case DecisionRevoke:
			return workflow.StateRevoked, model.ActionRevoke, workflow.RoleDACMember, true
		case DecisionClose:
			return workflow.StateClosed, model.ActionClose, workflow.RoleDACMember, true
		}
	}
	return "", "", "", false
}

// openRevisionCycle creates a fresh cycle with every section flagged as
// needing changes until the reviewer explicitly accepts it.
func (s *applicationService) openRevisionCycle(ctx context.Context, applicationID uuid.UUID, comments string) (*model.RevisionRequest, error) {
	rev := &model.RevisionRequest{
		ApplicationID: applicationID,
		Comments:      comments,
	}
	for _, section := range workflow.Sections {
		rev.Sections = append(rev.Sections, model.RevisionSection{
			Section:  section,
			Approved: false,
		})
	}
	if err := s.revisions.Create(ctx, rev); err != nil {
		return nil, fmt.Errorf("failed to open revision cycle: %w", err)
	}
	return rev, nil
}

// activeSnapshot loads the active cycle when the state makes one
// meaningful. Outside revision states the snapshot is nil so editability
// fails closed regardless of stale cycles.
func (s *applicationService) activeSnapshot(ctx context.Context, app *model.Application) (workflow.RevisionSnapshot, *model.RevisionRequest, error) {
	if !workflow.InRevision(app.State) {
		return nil, nil, nil
	}
	rev, err := s.revisions.Active(ctx, app.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return rev.Snapshot(), rev, nil
}

func (s *applicationService) signatureSet(ctx context.Context, applicationID uuid.UUID) (workflow.SignatureSet, error) {
	sigs, err := s.signatures.For(ctx, applicationID)
	if err != nil {
		return workflow.SignatureSet{}, fmt.Errorf("failed to load signatures: %w", err)
	}
	set := workflow.SignatureSet{Loaded: true}
	for _, sig := range sigs {
		switch sig.Role {
		case workflow.RoleApplicant:
			set.ApplicantSigned = sig.ImageData != ""
		case workflow.RoleInstitutionalRep:
			set.InstitutionalSigned = sig.ImageData != ""
		}
	}
	return set, nil
}

func (s *applicationService) newEntry(applicationID uuid.UUID, actor Actor, action string, before, after workflow.State, revisionID *uuid.UUID) *model.ActionLog {
	actorID := actor.ID
	return &model.ActionLog{
		ApplicationID:     applicationID,
		ActorID:           &actorID,
		ActorName:         actor.Name,
		Action:            action,
		StateBefore:       before,
		StateAfter:        after,
		RevisionRequestID: revisionID,
	}
}

func (s *applicationService) publish(entry *model.ActionLog) {
	if s.hub == nil || entry == nil {
		return
	}
	event := LedgerEvent{
		ApplicationID: entry.ApplicationID.String(),
		Action:        entry.Action,
		StateBefore:   string(entry.StateBefore),
		StateAfter:    string(entry.StateAfter),
		ActorName:     entry.ActorName,
		CreatedAt:     time.Now().Format(time.RFC3339),
	}
	if entry.RevisionRequestID != nil {
		id := entry.RevisionRequestID.String()
		event.RevisionRequestID = &id
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	s.hub.Publish(data)
}

func mergeContents(raw string, patch map[workflow.Section]map[string]interface{}) (string, error) {
	contents := make(map[string]map[string]interface{})
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &contents); err != nil {
			return "", err
		}
	}
	for section, fields := range patch {
		if contents[string(section)] == nil {
			contents[string(section)] = make(map[string]interface{})
		}
		for field, value := range fields {
			contents[string(section)][field] = value
		}
	}
	merged, err := json.Marshal(contents)
	if err != nil {
		return "", err
	}
	return string(merged), nil
}

func canView(actor Actor, app *model.Application) bool {
	switch actor.Role {
	case workflow.RoleApplicant:
		return app.UserID == actor.ID
	case workflow.RoleInstitutionalRep, workflow.RoleDACMember, workflow.RoleAdmin:
		return true
	default:
		return false
	}
}

func toApplicationResponse(app *model.Application) ApplicationResponse {
	resp := ApplicationResponse{
		ID:        app.ID.String(),
		UserID:    app.UserID.String(),
		DACID:     app.DACID,
		State:     string(app.State),
		Contents:  json.RawMessage(app.Contents),
		CreatedAt: app.CreatedAt.Format(time.RFC3339),
		UpdatedAt: app.UpdatedAt.Format(time.RFC3339),
	}
	if app.User != nil {
		resp.ApplicantName = app.User.Username
	}
	if app.ApprovedAt != nil {
		v := app.ApprovedAt.Format(time.RFC3339)
		resp.ApprovedAt = &v
	}
	if app.ExpiresAt != nil {
		v := app.ExpiresAt.Format(time.RFC3339)
		resp.ExpiresAt = &v
	}
	return resp
}
