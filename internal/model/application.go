package model

import (
	"time"

	"accessportal/internal/workflow"

	"github.com/google/uuid"
)

// Application is a data access application: a multi-section document moving
// through applicant, institutional representative and DAC review.
type Application struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	User       *User          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	DACID      string         `gorm:"type:varchar(100);not null;index" json:"dac_id"` // target data access committee
	State      workflow.State `gorm:"type:varchar(50);not null;index;default:'DRAFT'" json:"state"`
	Contents   string         `gorm:"type:jsonb;not null;default:'{}'" json:"contents"` // section field values keyed by section
	ApprovedAt *time.Time     `json:"approved_at"`
	ExpiresAt  *time.Time     `json:"expires_at"` // end of the access grant once approved
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}
