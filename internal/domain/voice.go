package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// VoiceProfile is per-org brand voice configuration. The engine and the
// humanizer read it; nothing in the pipeline mutates it.
type VoiceProfile struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OrgID           *uuid.UUID     `gorm:"type:uuid;column:org_id;uniqueIndex" json:"org_id,omitempty"`
	Persona         string         `gorm:"column:persona" json:"persona"`
	Audience        string         `gorm:"column:audience" json:"audience"`
	Tone            string         `gorm:"column:tone" json:"tone"`
	NeverSay        datatypes.JSON `gorm:"column:never_say;type:jsonb" json:"never_say"`
	AlwaysDo        datatypes.JSON `gorm:"column:always_do;type:jsonb" json:"always_do"`
	BrandKeywords   datatypes.JSON `gorm:"column:brand_keywords;type:jsonb" json:"brand_keywords"`
	ChannelStyles   datatypes.JSON `gorm:"column:channel_styles;type:jsonb" json:"channel_styles"`
	WritingExamples datatypes.JSON `gorm:"column:writing_examples;type:jsonb" json:"writing_examples"`
	CreatedAt       time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (VoiceProfile) TableName() string { return "voice_profile" }

// Setting is one org-scoped (or account-level when org_id is NULL) key/value
// pair: scout source lists, publish tokens, auto-run flags. Resolution is a
// pure two-level merge, org value over account default.
type Setting struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OrgID     *uuid.UUID `gorm:"type:uuid;column:org_id;index" json:"org_id,omitempty"`
	Key       string     `gorm:"column:key;not null;index" json:"key"`
	Value     string     `gorm:"column:value" json:"value"`
	UpdatedAt time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (Setting) TableName() string { return "setting" }
