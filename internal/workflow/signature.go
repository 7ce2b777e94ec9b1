package workflow

// SignatureSet is the engine's view of the application's signatures.
// Loaded must be set by the caller once both slots reflect stored data;
// until then every right resolves to denied.
type SignatureSet struct {
	Loaded              bool
	ApplicantSigned     bool
	InstitutionalSigned bool
}

// SignatureRights is the derived permission pair for the sign section.
type SignatureRights struct {
	CanSign   bool `json:"can_sign"`
	CanSubmit bool `json:"can_submit"`
}

// SignatureInput carries everything the signature rule table keys off.
type SignatureInput struct {
	Role           Role
	State          State
	EditMode       bool
	Signatures     SignatureSet
	ActiveRevision RevisionSnapshot
}

// ResolveSignatureRights derives whether the actor may create or replace a
// signature and whether the application may be submitted, per the
// state-keyed rule table. Unknown states and unloaded signatures resolve
// to denied.
func ResolveSignatureRights(in SignatureInput) SignatureRights {
	if !in.Signatures.Loaded {
		return SignatureRights{}
	}

	switch in.State {
	case StateDraft:
		allowed := in.Role == RoleApplicant && in.EditMode
		return SignatureRights{
			CanSign:   allowed,
			CanSubmit: allowed && in.Signatures.ApplicantSigned,
		}
	case StateRepReview:
		allowed := in.Role == RoleInstitutionalRep
		return SignatureRights{
			CanSign:   allowed,
			CanSubmit: allowed && in.Signatures.InstitutionalSigned,
		}
	case StateRepRevisionRequested, StateDACRevisionsRequested:
		if in.Role != RoleApplicant {
			return SignatureRights{}
		}
		return SignatureRights{
			// Re-signing is only open while the reviewer still wants the
			// sign section changed. No snapshot at all stays closed.
			CanSign:   in.ActiveRevision != nil && in.ActiveRevision.NeedsChanges(SectionSign),
			CanSubmit: in.Signatures.ApplicantSigned,
		}
	default:
		// DAC_REVIEW, APPROVED, REJECTED, CLOSED, REVOKED: never.
		return SignatureRights{}
	}
}
