package model

import (
	"time"

	"accessportal/internal/workflow"

	"github.com/google/uuid"
)

// Action codes recorded in the ledger, one per accepted transition.
const (
	ActionSubmit             = "SUBMIT"
	ActionResubmit           = "RESUBMIT"
	ActionRepApprove         = "INSTITUTIONAL_REP_APPROVE"
	ActionRepRevisionRequest = "INSTITUTIONAL_REP_REVISION_REQUEST"
	ActionDACApprove         = "DAC_APPROVE"
	ActionDACRevisionRequest = "DAC_REVISION_REQUEST"
	ActionReject             = "REJECT"
	ActionRevoke             = "REVOKE"
	ActionClose              = "CLOSE"
)

// ActionLog is the append-only ledger of accepted transitions: who moved
// the application, from which state to which, and the revision cycle the
// move created or resolved, if any. Rows are never updated or deleted.
type ActionLog struct {
	ID                uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ApplicationID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"application_id"`
	ActorID           *uuid.UUID     `gorm:"type:uuid;index" json:"actor_id"`
	Actor             *User          `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	ActorName         string         `gorm:"type:varchar(255)" json:"actor_name"` // display name at the time of the action
	Action            string         `gorm:"type:varchar(50);not null;index" json:"action"`
	StateBefore       workflow.State `gorm:"type:varchar(50);not null" json:"state_before"`
	StateAfter        workflow.State `gorm:"type:varchar(50);not null" json:"state_after"`
	RevisionRequestID *uuid.UUID     `gorm:"type:uuid" json:"revision_request_id"`
	CreatedAt         time.Time      `gorm:"index" json:"created_at"`
}
