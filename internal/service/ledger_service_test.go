package service

import (
	"context"
	"testing"

	"accessportal/internal/model"
	"accessportal/internal/workflow"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerListChronologicalWithChain(t *testing.T) {
	f := newFixture()
	svc := NewLedgerService(f.apps, f.ledger)
	ctx := context.Background()

	app := f.createDraft(t)
	f.sign(t, app.ID, workflow.RoleApplicant)
	_, err := f.service.Submit(ctx, f.applicant, app.ID)
	require.NoError(t, err)
	_, err = f.service.Review(ctx, f.rep, app.ID, ReviewRequest{Decision: DecisionRequestRevisions})
	require.NoError(t, err)

	entries, total, err := svc.List(ctx, f.applicant, app.ID, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, entries, 2)

	assert.Equal(t, model.ActionSubmit, entries[0].Action)
	assert.Equal(t, string(workflow.StateDraft), entries[0].StateBefore)
	assert.Equal(t, string(workflow.StateRepReview), entries[0].StateAfter)
	assert.Equal(t, f.applicant.Name, entries[0].ActorName)
	assert.Nil(t, entries[0].RevisionRequestID)

	// Each entry's before-state chains to the previous after-state.
	assert.Equal(t, entries[0].StateAfter, entries[1].StateBefore)
	assert.Equal(t, model.ActionRepRevisionRequest, entries[1].Action)
	require.NotNil(t, entries[1].RevisionRequestID)
}

func TestLedgerVisibilityFollowsApplication(t *testing.T) {
	f := newFixture()
	svc := NewLedgerService(f.apps, f.ledger)
	ctx := context.Background()
	app := f.createDraft(t)

	stranger := Actor{ID: uuid.New(), Name: "Nora Nosy", Role: workflow.RoleApplicant}
	_, _, err := svc.List(ctx, stranger, app.ID, 1, 20)
	assert.ErrorIs(t, err, workflow.ErrForbidden)

	_, _, err = svc.List(ctx, f.dac, app.ID, 1, 20)
	assert.NoError(t, err)
}
