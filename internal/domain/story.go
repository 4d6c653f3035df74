package domain

import (
	"time"

	"github.com/google/uuid"
)

// Story is an editor-curated bundle of signals plus an editorial angle, the
// unit submitted to the generation engine.
type Story struct {
	ID             uuid.UUID   `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OrgID          *uuid.UUID  `gorm:"type:uuid;column:org_id;index" json:"org_id,omitempty"`
	Title          string      `gorm:"column:title;not null" json:"title"`
	Angle          string      `gorm:"column:angle" json:"angle"`
	EditorialNotes string      `gorm:"column:editorial_notes" json:"editorial_notes"`
	Status         StoryStatus `gorm:"column:status;not null;default:draft;index" json:"status"`
	CreatedAt      time.Time   `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt      time.Time   `gorm:"not null;default:now()" json:"updated_at"`
}

func (Story) TableName() string { return "story" }

// StorySignal joins a story to a signal with per-signal editor notes.
// SortOrder preserves insertion order for display.
type StorySignal struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	StoryID     uuid.UUID `gorm:"type:uuid;column:story_id;not null;index" json:"story_id"`
	SignalID    uuid.UUID `gorm:"type:uuid;column:signal_id;not null;index" json:"signal_id"`
	EditorNotes string    `gorm:"column:editor_notes" json:"editor_notes"`
	SortOrder   int       `gorm:"column:sort_order;not null;default:0" json:"sort_order"`
	CreatedAt   time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (StorySignal) TableName() string { return "story_signal" }
