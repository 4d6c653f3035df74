package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Content is one channel-specific generated draft tracked through the
// approval lifecycle. SourceSignalIDs is the denormalized provenance list:
// the exact signal set that fed the brief this draft came from.
type Content struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OrgID           *uuid.UUID     `gorm:"type:uuid;column:org_id;index" json:"org_id,omitempty"`
	StoryID         *uuid.UUID     `gorm:"type:uuid;column:story_id;index" json:"story_id,omitempty"`
	BriefID         *uuid.UUID     `gorm:"type:uuid;column:brief_id;index" json:"brief_id,omitempty"`
	Channel         Channel        `gorm:"column:channel;not null;index" json:"channel"`
	Status          ContentStatus  `gorm:"column:status;not null;default:queued;index" json:"status"`
	Headline        string         `gorm:"column:headline" json:"headline"`
	Body            string         `gorm:"column:body;not null" json:"body"`
	BodyRaw         string         `gorm:"column:body_raw" json:"body_raw,omitempty"`
	Humanized       bool           `gorm:"column:humanized;not null;default:true" json:"humanized"`
	Author          string         `gorm:"column:author;default:company" json:"author"`
	SourceSignalIDs datatypes.JSON `gorm:"column:source_signal_ids;type:jsonb" json:"source_signal_ids"`
	ScheduledAt     *time.Time     `gorm:"column:scheduled_at;index" json:"scheduled_at,omitempty"`
	ApprovedAt      *time.Time     `gorm:"column:approved_at" json:"approved_at,omitempty"`
	PublishedAt     *time.Time     `gorm:"column:published_at" json:"published_at,omitempty"`
	PublishResult   datatypes.JSON `gorm:"column:publish_result;type:jsonb" json:"publish_result,omitempty"`
	CreatedAt       time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Content) TableName() string { return "content" }

// Brief is the persisted synthesis of a signal set: the shared context one
// generation batch fans out from. Kept so regeneration can re-run a channel
// against the original context.
type Brief struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OrgID     *uuid.UUID     `gorm:"type:uuid;column:org_id;index" json:"org_id,omitempty"`
	Date      string         `gorm:"column:date;not null" json:"date"`
	Summary   string         `gorm:"column:summary;not null" json:"summary"`
	Angle     string         `gorm:"column:angle" json:"angle"`
	SignalIDs datatypes.JSON `gorm:"column:signal_ids;type:jsonb" json:"signal_ids"`
	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
}

func (Brief) TableName() string { return "brief" }
