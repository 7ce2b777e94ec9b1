package model

import (
	"time"

	"accessportal/internal/workflow"

	"github.com/google/uuid"
)

// RevisionRequest is one revision cycle: created when a reviewer sends the
// application back for changes, resolved when the applicant resubmits. Only
// the most recent unresolved cycle drives editability; older rows stay for
// audit.
type RevisionRequest struct {
	ID            uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ApplicationID uuid.UUID         `gorm:"type:uuid;not null;index" json:"application_id"`
	Comments      string            `gorm:"type:text" json:"comments"`
	Resolved      bool              `gorm:"not null;default:false;index" json:"resolved"`
	Sections      []RevisionSection `gorm:"foreignKey:RevisionRequestID;constraint:OnDelete:CASCADE" json:"sections"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// RevisionSection is one section's review flag inside a cycle.
// Approved=true means the reviewer accepted the section as-is; false means
// it needs changes. Fresh cycles start with every section unapproved.
type RevisionSection struct {
	ID                uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RevisionRequestID uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_revision_section" json:"revision_request_id"`
	Section           workflow.Section `gorm:"type:varchar(30);not null;uniqueIndex:idx_revision_section" json:"section"`
	Approved          bool             `gorm:"not null;default:false" json:"approved"`
	Notes             *string          `gorm:"type:text" json:"notes"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// Snapshot converts the cycle's section rows into the engine's view.
func (r *RevisionRequest) Snapshot() workflow.RevisionSnapshot {
	if r == nil {
		return nil
	}
	snap := make(workflow.RevisionSnapshot, len(r.Sections))
	for _, s := range r.Sections {
		notes := ""
		if s.Notes != nil {
			notes = *s.Notes
		}
		snap[s.Section] = workflow.SectionReview{Approved: s.Approved, Notes: notes}
	}
	return snap
}
