package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func loaded(applicant, rep bool) SignatureSet {
	return SignatureSet{Loaded: true, ApplicantSigned: applicant, InstitutionalSigned: rep}
}

func TestSignatureRightsFailClosedWhileLoading(t *testing.T) {
	rights := ResolveSignatureRights(SignatureInput{
		Role:       RoleApplicant,
		State:      StateDraft,
		EditMode:   true,
		Signatures: SignatureSet{Loaded: false, ApplicantSigned: true},
	})
	assert.Equal(t, SignatureRights{}, rights)
}

func TestSignatureRightsDraft(t *testing.T) {
	// Applicant in edit mode may sign; submit additionally needs a signature.
	rights := ResolveSignatureRights(SignatureInput{
		Role: RoleApplicant, State: StateDraft, EditMode: true, Signatures: loaded(false, false),
	})
	assert.Equal(t, SignatureRights{CanSign: true, CanSubmit: false}, rights)

	rights = ResolveSignatureRights(SignatureInput{
		Role: RoleApplicant, State: StateDraft, EditMode: true, Signatures: loaded(true, false),
	})
	assert.Equal(t, SignatureRights{CanSign: true, CanSubmit: true}, rights)

	// Outside edit mode nothing is allowed, signed or not.
	rights = ResolveSignatureRights(SignatureInput{
		Role: RoleApplicant, State: StateDraft, EditMode: false, Signatures: loaded(true, false),
	})
	assert.Equal(t, SignatureRights{}, rights)

	rights = ResolveSignatureRights(SignatureInput{
		Role: RoleInstitutionalRep, State: StateDraft, EditMode: true, Signatures: loaded(true, true),
	})
	assert.Equal(t, SignatureRights{}, rights)
}

func TestSignatureRightsRepReview(t *testing.T) {
	rights := ResolveSignatureRights(SignatureInput{
		Role: RoleInstitutionalRep, State: StateRepReview, Signatures: loaded(true, true),
	})
	assert.Equal(t, SignatureRights{CanSign: true, CanSubmit: true}, rights)

	rights = ResolveSignatureRights(SignatureInput{
		Role: RoleInstitutionalRep, State: StateRepReview, Signatures: loaded(true, false),
	})
	assert.Equal(t, SignatureRights{CanSign: true, CanSubmit: false}, rights)

	rights = ResolveSignatureRights(SignatureInput{
		Role: RoleApplicant, State: StateRepReview, Signatures: loaded(true, true),
	})
	assert.Equal(t, SignatureRights{}, rights)
}

func TestSignatureRightsDACReviewNever(t *testing.T) {
	rights := ResolveSignatureRights(SignatureInput{
		Role: RoleApplicant, State: StateDACReview, Signatures: loaded(true, true),
	})
	assert.Equal(t, SignatureRights{}, rights)
}

func TestSignatureRightsRevisionStates(t *testing.T) {
	for _, state := range []State{StateRepRevisionRequested, StateDACRevisionsRequested} {
		snap := NewRevisionSnapshot()

		rights := ResolveSignatureRights(SignatureInput{
			Role: RoleApplicant, State: state, Signatures: loaded(true, false), ActiveRevision: snap,
		})
		assert.Equal(t, SignatureRights{CanSign: true, CanSubmit: true}, rights, state)

		// Once the reviewer accepts the sign section, re-signing closes but
		// submission is still possible.
		snap[SectionSign] = SectionReview{Approved: true}
		rights = ResolveSignatureRights(SignatureInput{
			Role: RoleApplicant, State: state, Signatures: loaded(true, false), ActiveRevision: snap,
		})
		assert.Equal(t, SignatureRights{CanSign: false, CanSubmit: true}, rights, state)

		// No snapshot at all fails closed for signing.
		rights = ResolveSignatureRights(SignatureInput{
			Role: RoleApplicant, State: state, Signatures: loaded(false, false),
		})
		assert.Equal(t, SignatureRights{}, rights, state)

		rights = ResolveSignatureRights(SignatureInput{
			Role: RoleInstitutionalRep, State: state, Signatures: loaded(true, true), ActiveRevision: NewRevisionSnapshot(),
		})
		assert.Equal(t, SignatureRights{}, rights, state)
	}
}

func TestSignatureRightsTerminalStates(t *testing.T) {
	for _, state := range []State{StateApproved, StateRejected, StateClosed, StateRevoked} {
		for _, role := range []Role{RoleApplicant, RoleInstitutionalRep} {
			rights := ResolveSignatureRights(SignatureInput{
				Role: role, State: state, EditMode: true, Signatures: loaded(true, true),
			})
			assert.Equalf(t, SignatureRights{}, rights, "%s/%s", state, role)
		}
	}
}
