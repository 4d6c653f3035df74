package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Signal is one discrete external observation pulled in by the scout.
// Identity within an org is the dedup fingerprint; usage counters feed the
// editor-facing performance view and survive enrichment rewrites.
type Signal struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OrgID       *uuid.UUID     `gorm:"type:uuid;column:org_id;index" json:"org_id,omitempty"`
	Type        SignalType     `gorm:"column:type;not null;index" json:"type"`
	Source      string         `gorm:"column:source;not null" json:"source"`
	Title       string         `gorm:"column:title;not null" json:"title"`
	Body        string         `gorm:"column:body" json:"body"`
	URL         string         `gorm:"column:url" json:"url"`
	Raw         datatypes.JSON `gorm:"column:raw;type:jsonb" json:"raw,omitempty"`
	Fingerprint string         `gorm:"column:fingerprint;not null" json:"-"`
	Prioritized bool           `gorm:"column:prioritized;not null;default:false" json:"prioritized"`
	TimesUsed   int            `gorm:"column:times_used;not null;default:0" json:"times_used"`
	TimesSpiked int            `gorm:"column:times_spiked;not null;default:0" json:"times_spiked"`
	CreatedAt   time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Signal) TableName() string { return "signal" }

// SignalStat is the advisory performance read exposed to the editor. High
// spike rates flag a source for human review, never automatic filtering.
type SignalStat struct {
	SignalID    uuid.UUID  `json:"signal_id"`
	Type        SignalType `json:"type"`
	Source      string     `json:"source"`
	Title       string     `json:"title"`
	TimesUsed   int        `json:"times_used"`
	TimesSpiked int        `json:"times_spiked"`
}
