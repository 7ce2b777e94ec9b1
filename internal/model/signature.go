package model

import (
	"time"

	"accessportal/internal/workflow"

	"github.com/google/uuid"
)

// Signature is one role's signature on an application: a base64-encoded
// image plus the signing timestamp. At most one per (application, role);
// re-signing replaces the image.
type Signature struct {
	ID            uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ApplicationID uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_signature_app_role" json:"application_id"`
	Role          workflow.Role `gorm:"type:varchar(30);not null;uniqueIndex:idx_signature_app_role" json:"role"`
	ImageData     string        `gorm:"type:text;not null" json:"image_data"` // base64 image blob
	SignedAt      time.Time     `gorm:"not null" json:"signed_at"`
}
