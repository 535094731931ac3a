package model

import (
	"time"

	"github.com/google/uuid"
)

// Warehouse is master data owned by the surrounding directory service.
// The counting engine only reads it: the short Code feeds session codes
// (INV-{code}-{year}-{seq}) and the ID scopes snapshots and adjustments.
type Warehouse struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Code      string    `gorm:"uniqueIndex;not null"`
	Name      string    `gorm:"not null"`
	Active    bool      `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
