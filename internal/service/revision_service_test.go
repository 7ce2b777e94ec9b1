package service

import (
	"context"
	"testing"

	"accessportal/internal/workflow"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRevisionFixture() (*fixture, RevisionService) {
	f := newFixture()
	return f, NewRevisionService(f.apps, f.revisions, fakeTxManager{})
}

// Drives the application into INSTITUTIONAL_REP_REVISION_REQUESTED and
// returns the open cycle id.
func openCycle(t *testing.T, f *fixture) (appID string, revisionID string) {
	t.Helper()
	ctx := context.Background()
	app := f.createDraft(t)
	f.sign(t, app.ID, workflow.RoleApplicant)

	_, err := f.service.Submit(ctx, f.applicant, app.ID)
	require.NoError(t, err)
	_, err = f.service.Review(ctx, f.rep, app.ID, ReviewRequest{Decision: DecisionRequestRevisions, Comments: "see notes"})
	require.NoError(t, err)

	id, err := uuid.Parse(app.ID)
	require.NoError(t, err)
	active, err := f.revisions.Active(ctx, id)
	require.NoError(t, err)
	return app.ID, active.ID.String()
}

func TestMarkSectionUpdatesActiveCycle(t *testing.T) {
	f, svc := newRevisionFixture()
	ctx := context.Background()
	appID, revID := openCycle(t, f)

	notes := "tighten the data management plan"
	result, err := svc.MarkSection(ctx, f.rep, appID, revID, string(workflow.SectionProject), MarkSectionRequest{
		Approved: false,
		Notes:    &notes,
	})
	require.NoError(t, err)

	var found bool
	for _, s := range result.Sections {
		if s.Section == string(workflow.SectionProject) {
			found = true
			assert.False(t, s.Approved)
			require.NotNil(t, s.Notes)
			assert.Equal(t, notes, *s.Notes)
		}
	}
	assert.True(t, found)

	// Marking again flips the flag in place instead of adding a row.
	result, err = svc.MarkSection(ctx, f.rep, appID, revID, string(workflow.SectionProject), MarkSectionRequest{Approved: true})
	require.NoError(t, err)
	assert.Len(t, result.Sections, len(workflow.Sections))
}

func TestMarkSectionRejectsApplicant(t *testing.T) {
	f, svc := newRevisionFixture()
	appID, revID := openCycle(t, f)

	_, err := svc.MarkSection(context.Background(), f.applicant, appID, revID, string(workflow.SectionEthics), MarkSectionRequest{Approved: true})
	assert.ErrorIs(t, err, workflow.ErrForbidden)
}

func TestMarkSectionUnknownSection(t *testing.T) {
	f, svc := newRevisionFixture()
	appID, revID := openCycle(t, f)

	_, err := svc.MarkSection(context.Background(), f.rep, appID, revID, "budget", MarkSectionRequest{Approved: true})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestMarkSectionStaleCycleNotWritable(t *testing.T) {
	f, svc := newRevisionFixture()
	ctx := context.Background()
	appID, revID := openCycle(t, f)

	// Resubmission resolves the cycle; the old id must stop accepting writes.
	_, err := f.service.Submit(ctx, f.applicant, appID)
	require.NoError(t, err)

	_, err = svc.MarkSection(ctx, f.rep, appID, revID, string(workflow.SectionProject), MarkSectionRequest{Approved: true})
	assert.ErrorIs(t, err, workflow.ErrNotFound)
}

func TestLatestSurvivesResolution(t *testing.T) {
	f, svc := newRevisionFixture()
	ctx := context.Background()
	appID, revID := openCycle(t, f)

	_, err := f.service.Submit(ctx, f.applicant, appID)
	require.NoError(t, err)

	latest, err := svc.Latest(ctx, f.rep, appID)
	require.NoError(t, err)
	assert.Equal(t, revID, latest.ID)
	assert.True(t, latest.Resolved)
}

func TestLatestWithoutCycles(t *testing.T) {
	f, svc := newRevisionFixture()
	app := f.createDraft(t)

	_, err := svc.Latest(context.Background(), f.rep, app.ID)
	assert.ErrorIs(t, err, workflow.ErrNotFound)
}

func TestListReturnsNewestFirst(t *testing.T) {
	f, svc := newRevisionFixture()
	ctx := context.Background()
	appID, firstRevID := openCycle(t, f)

	// Resubmit and get sent back a second time.
	_, err := f.service.Submit(ctx, f.applicant, appID)
	require.NoError(t, err)
	_, err = f.service.Review(ctx, f.rep, appID, ReviewRequest{Decision: DecisionRequestRevisions, Comments: "round two"})
	require.NoError(t, err)

	revs, err := svc.List(ctx, f.rep, appID)
	require.NoError(t, err)
	require.Len(t, revs, 2)
	assert.False(t, revs[0].Resolved)
	assert.Equal(t, "round two", revs[0].Comments)
	assert.Equal(t, firstRevID, revs[1].ID)
	assert.True(t, revs[1].Resolved)
}
