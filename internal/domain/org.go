package domain

import (
	"time"

	"github.com/google/uuid"
)

// Org is the tenant boundary. Every other entity carries a nullable org_id;
// NULL means account-level shared configuration.
type Org struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name      string    `gorm:"not null;column:name" json:"name"`
	Domain    string    `gorm:"column:domain" json:"domain"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Org) TableName() string { return "org" }
