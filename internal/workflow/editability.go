package workflow

// SectionReview is one section's outcome inside a revision cycle.
// Approved=true means the reviewer considers the section acceptable as-is;
// Approved=false means the reviewer wants it changed. New cycles start with
// every section unapproved.
type SectionReview struct {
	Approved bool
	Notes    string
}

// RevisionSnapshot is the engine's view of one revision cycle: the
// per-section review flags of the application's most recent (active) cycle.
type RevisionSnapshot map[Section]SectionReview

// NewRevisionSnapshot returns a fresh cycle snapshot with every section
// flagged as needing changes.
func NewRevisionSnapshot() RevisionSnapshot {
	snap := make(RevisionSnapshot, len(Sections))
	for _, s := range Sections {
		snap[s] = SectionReview{Approved: false}
	}
	return snap
}

// NeedsChanges reports whether the cycle asks for changes to the section.
// A section missing from the snapshot counts as needing changes, matching
// the unapproved default of a freshly opened cycle.
func (r RevisionSnapshot) NeedsChanges(s Section) bool {
	return !r[s].Approved
}

// CanEdit decides whether the section's body fields may be modified right
// now. Without an active revision cycle, editing is allowed only in edit
// mode (legitimate only while the application is in DRAFT). With one,
// editing is allowed for sections the reviewer flagged as needing changes,
// or in edit mode. The nil-revision default is deliberately closed so a
// stale flag from a superseded cycle can never reopen a section.
func CanEdit(active RevisionSnapshot, section Section, editMode bool) bool {
	if active == nil {
		return editMode
	}
	return active.NeedsChanges(section) || editMode
}
