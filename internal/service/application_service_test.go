package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"accessportal/internal/model"
	"accessportal/internal/repository"
	"accessportal/internal/workflow"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// --- In-memory fakes ---

type memDB struct {
	apps       map[uuid.UUID]model.Application
	revisions  []model.RevisionRequest
	ledger     []model.ActionLog
	signatures map[uuid.UUID]map[workflow.Role]model.Signature
}

func newMemDB() *memDB {
	return &memDB{
		apps:       make(map[uuid.UUID]model.Application),
		signatures: make(map[uuid.UUID]map[workflow.Role]model.Signature),
	}
}

type fakeTxManager struct{}

func (fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

type fakeAppRepo struct{ db *memDB }

func (r *fakeAppRepo) Create(_ context.Context, app *model.Application) error {
	app.ID = uuid.New()
	app.CreatedAt = time.Now()
	app.UpdatedAt = app.CreatedAt
	r.db.apps[app.ID] = *app
	return nil
}

func (r *fakeAppRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Application, error) {
	app, ok := r.db.apps[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &app, nil
}

func (r *fakeAppRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Application, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeAppRepo) Save(_ context.Context, app *model.Application) error {
	app.UpdatedAt = time.Now()
	r.db.apps[app.ID] = *app
	return nil
}

func (r *fakeAppRepo) List(_ context.Context, filter repository.ApplicationFilter) ([]model.Application, int64, error) {
	var apps []model.Application
	for _, app := range r.db.apps {
		if filter.State != "" && app.State != filter.State {
			continue
		}
		if filter.UserID != nil && app.UserID != *filter.UserID {
			continue
		}
		if filter.DACID != "" && app.DACID != filter.DACID {
			continue
		}
		apps = append(apps, app)
	}
	return apps, int64(len(apps)), nil
}

type fakeRevisionRepo struct{ db *memDB }

func copyRevision(rev model.RevisionRequest) model.RevisionRequest {
	sections := make([]model.RevisionSection, len(rev.Sections))
	copy(sections, rev.Sections)
	rev.Sections = sections
	return rev
}

func (r *fakeRevisionRepo) Create(_ context.Context, rev *model.RevisionRequest) error {
	rev.ID = uuid.New()
	rev.CreatedAt = time.Now()
	for i := range rev.Sections {
		rev.Sections[i].ID = uuid.New()
		rev.Sections[i].RevisionRequestID = rev.ID
	}
	r.db.revisions = append(r.db.revisions, copyRevision(*rev))
	return nil
}

func (r *fakeRevisionRepo) Active(_ context.Context, applicationID uuid.UUID) (*model.RevisionRequest, error) {
	for i := len(r.db.revisions) - 1; i >= 0; i-- {
		rev := r.db.revisions[i]
		if rev.ApplicationID == applicationID && !rev.Resolved {
			out := copyRevision(rev)
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRevisionRepo) Latest(_ context.Context, applicationID uuid.UUID) (*model.RevisionRequest, error) {
	for i := len(r.db.revisions) - 1; i >= 0; i-- {
		rev := r.db.revisions[i]
		if rev.ApplicationID == applicationID {
			out := copyRevision(rev)
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRevisionRepo) ListFor(_ context.Context, applicationID uuid.UUID) ([]model.RevisionRequest, error) {
	var revs []model.RevisionRequest
	for i := len(r.db.revisions) - 1; i >= 0; i-- {
		if r.db.revisions[i].ApplicationID == applicationID {
			revs = append(revs, copyRevision(r.db.revisions[i]))
		}
	}
	return revs, nil
}

func (r *fakeRevisionRepo) UpsertSection(_ context.Context, section *model.RevisionSection) error {
	for i := range r.db.revisions {
		if r.db.revisions[i].ID != section.RevisionRequestID {
			continue
		}
		for j := range r.db.revisions[i].Sections {
			if r.db.revisions[i].Sections[j].Section == section.Section {
				r.db.revisions[i].Sections[j].Approved = section.Approved
				r.db.revisions[i].Sections[j].Notes = section.Notes
				return nil
			}
		}
		section.ID = uuid.New()
		r.db.revisions[i].Sections = append(r.db.revisions[i].Sections, *section)
		return nil
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeRevisionRepo) Resolve(_ context.Context, revisionID uuid.UUID) error {
	for i := range r.db.revisions {
		if r.db.revisions[i].ID == revisionID {
			r.db.revisions[i].Resolved = true
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

type fakeLedgerRepo struct{ db *memDB }

func (r *fakeLedgerRepo) Append(_ context.Context, entry *model.ActionLog) error {
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()
	r.db.ledger = append(r.db.ledger, *entry)
	return nil
}

func (r *fakeLedgerRepo) ListFor(_ context.Context, applicationID uuid.UUID, page, limit int) ([]model.ActionLog, int64, error) {
	var entries []model.ActionLog
	for _, e := range r.db.ledger {
		if e.ApplicationID == applicationID {
			entries = append(entries, e)
		}
	}
	return entries, int64(len(entries)), nil
}

type fakeSignatureRepo struct{ db *memDB }

func (r *fakeSignatureRepo) Upsert(_ context.Context, sig *model.Signature) error {
	if r.db.signatures[sig.ApplicationID] == nil {
		r.db.signatures[sig.ApplicationID] = make(map[workflow.Role]model.Signature)
	}
	if existing, ok := r.db.signatures[sig.ApplicationID][sig.Role]; ok {
		sig.ID = existing.ID
	} else {
		sig.ID = uuid.New()
	}
	r.db.signatures[sig.ApplicationID][sig.Role] = *sig
	return nil
}

func (r *fakeSignatureRepo) For(_ context.Context, applicationID uuid.UUID) ([]model.Signature, error) {
	var sigs []model.Signature
	for _, sig := range r.db.signatures[applicationID] {
		sigs = append(sigs, sig)
	}
	return sigs, nil
}

type fakeHub struct{ messages [][]byte }

func (h *fakeHub) Publish(message []byte) {
	h.messages = append(h.messages, message)
}

// --- Fixture ---

type fixture struct {
	db         *memDB
	hub        *fakeHub
	apps       *fakeAppRepo
	revisions  *fakeRevisionRepo
	ledger     *fakeLedgerRepo
	signatures *fakeSignatureRepo
	service    ApplicationService

	applicant Actor
	rep       Actor
	dac       Actor
	admin     Actor
}

const testGrantTTL = 365 * 24 * time.Hour

func newFixture() *fixture {
	db := newMemDB()
	f := &fixture{
		db:         db,
		hub:        &fakeHub{},
		apps:       &fakeAppRepo{db: db},
		revisions:  &fakeRevisionRepo{db: db},
		ledger:     &fakeLedgerRepo{db: db},
		signatures: &fakeSignatureRepo{db: db},
		applicant:  Actor{ID: uuid.New(), Name: "Ada Applicant", Role: workflow.RoleApplicant},
		rep:        Actor{ID: uuid.New(), Name: "Rita Rep", Role: workflow.RoleInstitutionalRep},
		dac:        Actor{ID: uuid.New(), Name: "Dan DAC", Role: workflow.RoleDACMember},
		admin:      Actor{ID: uuid.New(), Name: "Root", Role: workflow.RoleAdmin},
	}
	f.service = NewApplicationService(f.apps, f.revisions, f.ledger, f.signatures, fakeTxManager{}, f.hub, testGrantTTL)
	return f
}

func (f *fixture) createDraft(t *testing.T) ApplicationResponse {
	t.Helper()
	app, err := f.service.Create(context.Background(), f.applicant, CreateApplicationRequest{DACID: "DAC-EGA-001"})
	require.NoError(t, err)
	return app
}

func (f *fixture) sign(t *testing.T, appID string, role workflow.Role) {
	t.Helper()
	id, err := uuid.Parse(appID)
	require.NoError(t, err)
	err = f.signatures.Upsert(context.Background(), &model.Signature{
		ApplicationID: id,
		Role:          role,
		ImageData:     "data:image/png;base64,iVBORw0KGgo=",
		SignedAt:      time.Now(),
	})
	require.NoError(t, err)
}

func (f *fixture) actions(t *testing.T, appID string) []string {
	t.Helper()
	id, err := uuid.Parse(appID)
	require.NoError(t, err)
	entries, _, err := f.ledger.ListFor(context.Background(), id, 1, 100)
	require.NoError(t, err)
	actions := make([]string, 0, len(entries))
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	return actions
}

// --- Tests ---

func TestCreateRequiresApplicantRole(t *testing.T) {
	f := newFixture()

	_, err := f.service.Create(context.Background(), f.rep, CreateApplicationRequest{DACID: "DAC-1"})
	assert.ErrorIs(t, err, workflow.ErrForbidden)

	app := f.createDraft(t)
	assert.Equal(t, string(workflow.StateDraft), app.State)
	assert.Equal(t, f.applicant.ID.String(), app.UserID)
}

func TestUpdateContentsInDraftRequiresEditMode(t *testing.T) {
	f := newFixture()
	app := f.createDraft(t)

	fields := map[string]interface{}{"projectTitle": "Cohort reanalysis"}

	_, err := f.service.UpdateContents(context.Background(), f.applicant, app.ID, UpdateContentsRequest{EditMode: false, Fields: fields})
	assert.ErrorIs(t, err, workflow.ErrForbidden)

	updated, err := f.service.UpdateContents(context.Background(), f.applicant, app.ID, UpdateContentsRequest{EditMode: true, Fields: fields})
	require.NoError(t, err)

	var contents map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(updated.Contents, &contents))
	assert.Equal(t, "Cohort reanalysis", contents["project"]["projectTitle"])
}

func TestUpdateContentsRejectsUnknownField(t *testing.T) {
	f := newFixture()
	app := f.createDraft(t)

	_, err := f.service.UpdateContents(context.Background(), f.applicant, app.ID, UpdateContentsRequest{
		EditMode: true,
		Fields:   map[string]interface{}{"favouriteColour": "blue"},
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateContentsForbiddenForOtherApplicant(t *testing.T) {
	f := newFixture()
	app := f.createDraft(t)

	stranger := Actor{ID: uuid.New(), Name: "Someone Else", Role: workflow.RoleApplicant}
	_, err := f.service.UpdateContents(context.Background(), stranger, app.ID, UpdateContentsRequest{
		EditMode: true,
		Fields:   map[string]interface{}{"projectTitle": "hijack"},
	})
	assert.ErrorIs(t, err, workflow.ErrForbidden)
}

func TestSubmitRequiresApplicantSignature(t *testing.T) {
	f := newFixture()
	app := f.createDraft(t)

	_, err := f.service.Submit(context.Background(), f.applicant, app.ID)
	assert.ErrorIs(t, err, workflow.ErrForbidden)

	f.sign(t, app.ID, workflow.RoleApplicant)

	submitted, err := f.service.Submit(context.Background(), f.applicant, app.ID)
	require.NoError(t, err)
	assert.Equal(t, string(workflow.StateRepReview), submitted.State)
	assert.Equal(t, []string{model.ActionSubmit}, f.actions(t, app.ID))
	assert.Len(t, f.hub.messages, 1)
}

func TestSubmitFromReviewStateRejected(t *testing.T) {
	f := newFixture()
	app := f.createDraft(t)
	f.sign(t, app.ID, workflow.RoleApplicant)

	_, err := f.service.Submit(context.Background(), f.applicant, app.ID)
	require.NoError(t, err)

	// Already under review; there is nothing to submit.
	_, err = f.service.Submit(context.Background(), f.applicant, app.ID)
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)
}

func TestReviewUnknownDecision(t *testing.T) {
	f := newFixture()
	app := f.createDraft(t)

	_, err := f.service.Review(context.Background(), f.rep, app.ID, ReviewRequest{Decision: "escalate"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestReviewRoleEnforcement(t *testing.T) {
	f := newFixture()
	app := f.createDraft(t)
	f.sign(t, app.ID, workflow.RoleApplicant)
	_, err := f.service.Submit(context.Background(), f.applicant, app.ID)
	require.NoError(t, err)

	// A DAC member cannot act during institutional review.
	_, err = f.service.Review(context.Background(), f.dac, app.ID, ReviewRequest{Decision: DecisionReject})
	assert.ErrorIs(t, err, workflow.ErrForbidden)

	// An admin can stand in for the required role.
	rejected, err := f.service.Review(context.Background(), f.admin, app.ID, ReviewRequest{Decision: DecisionReject})
	require.NoError(t, err)
	assert.Equal(t, string(workflow.StateRejected), rejected.State)
}

func TestRepApproveRequiresRepSignature(t *testing.T) {
	f := newFixture()
	app := f.createDraft(t)
	f.sign(t, app.ID, workflow.RoleApplicant)
	_, err := f.service.Submit(context.Background(), f.applicant, app.ID)
	require.NoError(t, err)

	_, err = f.service.Review(context.Background(), f.rep, app.ID, ReviewRequest{Decision: DecisionApprove})
	assert.ErrorIs(t, err, workflow.ErrForbidden)

	f.sign(t, app.ID, workflow.RoleInstitutionalRep)

	forwarded, err := f.service.Review(context.Background(), f.rep, app.ID, ReviewRequest{Decision: DecisionApprove})
	require.NoError(t, err)
	assert.Equal(t, string(workflow.StateDACReview), forwarded.State)
}

func TestRevisionCycleLifecycle(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	app := f.createDraft(t)
	f.sign(t, app.ID, workflow.RoleApplicant)

	_, err := f.service.Submit(ctx, f.applicant, app.ID)
	require.NoError(t, err)

	// The representative sends the application back.
	returned, err := f.service.Review(ctx, f.rep, app.ID, ReviewRequest{
		Decision: DecisionRequestRevisions,
		Comments: "Project description is too thin",
	})
	require.NoError(t, err)
	require.Equal(t, string(workflow.StateRepRevisionRequested), returned.State)

	appID, err := uuid.Parse(app.ID)
	require.NoError(t, err)
	active, err := f.revisions.Active(ctx, appID)
	require.NoError(t, err)
	assert.Len(t, active.Sections, len(workflow.Sections))
	for _, s := range active.Sections {
		assert.False(t, s.Approved)
	}

	// Fresh cycle: everything still needs changes, so everything is editable.
	perms, err := f.service.Permissions(ctx, f.applicant, app.ID, false)
	require.NoError(t, err)
	for _, section := range workflow.Sections {
		assert.True(t, perms.Sections[string(section)], "section %s", section)
	}

	// Reviewer accepts every section except project.
	for _, section := range workflow.Sections {
		if section == workflow.SectionProject {
			continue
		}
		err = f.revisions.UpsertSection(ctx, &model.RevisionSection{
			RevisionRequestID: active.ID,
			Section:           section,
			Approved:          true,
		})
		require.NoError(t, err)
	}

	perms, err = f.service.Permissions(ctx, f.applicant, app.ID, false)
	require.NoError(t, err)
	for _, section := range workflow.Sections {
		want := section == workflow.SectionProject
		assert.Equal(t, want, perms.Sections[string(section)], "section %s", section)
	}

	// Accepted sections are locked for the applicant.
	_, err = f.service.UpdateContents(ctx, f.applicant, app.ID, UpdateContentsRequest{
		Fields: map[string]interface{}{"email": "new@example.org"},
	})
	assert.ErrorIs(t, err, workflow.ErrForbidden)

	_, err = f.service.UpdateContents(ctx, f.applicant, app.ID, UpdateContentsRequest{
		Fields: map[string]interface{}{"projectDescription": "A much longer description"},
	})
	require.NoError(t, err)

	// Resubmission closes the cycle and goes back to the representative.
	resubmitted, err := f.service.Submit(ctx, f.applicant, app.ID)
	require.NoError(t, err)
	assert.Equal(t, string(workflow.StateRepReview), resubmitted.State)

	_, err = f.revisions.Active(ctx, appID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	latest, err := f.revisions.Latest(ctx, appID)
	require.NoError(t, err)
	assert.True(t, latest.Resolved)

	assert.Equal(t, []string{
		model.ActionSubmit,
		model.ActionRepRevisionRequest,
		model.ActionResubmit,
	}, f.actions(t, app.ID))
}

func TestDACApprovalStampsGrantWindow(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	app := f.createDraft(t)
	f.sign(t, app.ID, workflow.RoleApplicant)

	_, err := f.service.Submit(ctx, f.applicant, app.ID)
	require.NoError(t, err)

	f.sign(t, app.ID, workflow.RoleInstitutionalRep)
	_, err = f.service.Review(ctx, f.rep, app.ID, ReviewRequest{Decision: DecisionApprove})
	require.NoError(t, err)

	approved, err := f.service.Review(ctx, f.dac, app.ID, ReviewRequest{Decision: DecisionApprove})
	require.NoError(t, err)
	assert.Equal(t, string(workflow.StateApproved), approved.State)
	require.NotNil(t, approved.ApprovedAt)
	require.NotNil(t, approved.ExpiresAt)

	approvedAt, err := time.Parse(time.RFC3339, *approved.ApprovedAt)
	require.NoError(t, err)
	expiresAt, err := time.Parse(time.RFC3339, *approved.ExpiresAt)
	require.NoError(t, err)
	assert.WithinDuration(t, approvedAt.Add(testGrantTTL), expiresAt, time.Second)

	// The grant can later be revoked, but never re-approved.
	revoked, err := f.service.Review(ctx, f.dac, app.ID, ReviewRequest{Decision: DecisionRevoke})
	require.NoError(t, err)
	assert.Equal(t, string(workflow.StateRevoked), revoked.State)

	_, err = f.service.Review(ctx, f.dac, app.ID, ReviewRequest{Decision: DecisionApprove})
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)

	assert.Equal(t, []string{
		model.ActionSubmit,
		model.ActionRepApprove,
		model.ActionDACApprove,
		model.ActionRevoke,
	}, f.actions(t, app.ID))
	assert.Len(t, f.hub.messages, 4)
}

func TestApplicantVisibilityScopedToOwn(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	app := f.createDraft(t)

	other := Actor{ID: uuid.New(), Name: "Nora Nosy", Role: workflow.RoleApplicant}
	_, err := f.service.Get(ctx, other, app.ID)
	assert.ErrorIs(t, err, workflow.ErrForbidden)

	// Reviewers see everything.
	_, err = f.service.Get(ctx, f.rep, app.ID)
	assert.NoError(t, err)

	list, total, err := f.service.List(ctx, other, ListApplicationsFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list)
}

func TestPermissionsEditModeOnlyInDraft(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	app := f.createDraft(t)

	perms, err := f.service.Permissions(ctx, f.applicant, app.ID, true)
	require.NoError(t, err)
	assert.True(t, perms.EditMode)
	assert.True(t, perms.Sections[string(workflow.SectionProject)])
	assert.True(t, perms.Signature.CanSign)
	// Not signed yet, so not submittable.
	assert.False(t, perms.Signature.CanSubmit)

	f.sign(t, app.ID, workflow.RoleApplicant)
	_, err = f.service.Submit(ctx, f.applicant, app.ID)
	require.NoError(t, err)

	// Under review the edit_mode flag is ignored and everything locks.
	perms, err = f.service.Permissions(ctx, f.applicant, app.ID, true)
	require.NoError(t, err)
	assert.False(t, perms.EditMode)
	for _, section := range workflow.Sections {
		assert.False(t, perms.Sections[string(section)])
	}

	// The representative now holds the signature rights.
	perms, err = f.service.Permissions(ctx, f.rep, app.ID, false)
	require.NoError(t, err)
	assert.True(t, perms.Signature.CanSign)
	assert.False(t, perms.Signature.CanSubmit)
}
