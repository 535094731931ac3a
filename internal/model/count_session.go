package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SessionStatus is the closed set of count-session states. Transitions are
// enforced through CanTransitionTo — services never compare raw strings.
type SessionStatus string

const (
	SessionDraft         SessionStatus = "DRAFT"
	SessionInProgress    SessionStatus = "IN_PROGRESS"
	SessionPendingReview SessionStatus = "PENDING_REVIEW"
	SessionCompleted     SessionStatus = "COMPLETED"
	SessionCancelled     SessionStatus = "CANCELLED"
)

// CanTransitionTo encodes the session state machine:
// DRAFT → IN_PROGRESS → {PENDING_REVIEW → COMPLETED | COMPLETED};
// DRAFT/IN_PROGRESS/PENDING_REVIEW → CANCELLED. COMPLETED and CANCELLED are
// terminal.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	switch s {
	case SessionDraft:
		return next == SessionInProgress || next == SessionCancelled
	case SessionInProgress:
		return next == SessionPendingReview || next == SessionCompleted || next == SessionCancelled
	case SessionPendingReview:
		return next == SessionCompleted || next == SessionCancelled
	case SessionCompleted, SessionCancelled:
		return false
	}
	return false
}

// IsTerminal reports whether no further transitions are accepted.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionCompleted || s == SessionCancelled
}

// CountType classifies the breadth of a session.
type CountType string

const (
	CountFull  CountType = "FULL"
	CountCycle CountType = "CYCLE"
	CountSpot  CountType = "SPOT"
)

func (t CountType) Valid() bool {
	return t == CountFull || t == CountCycle || t == CountSpot
}

// CountScope restricts a snapshot to one side of the catalog.
type CountScope string

const (
	ScopeAll           CountScope = "ALL"
	ScopeProductsOnly  CountScope = "PRODUCTS_ONLY"
	ScopeMaterialsOnly CountScope = "MATERIALS_ONLY"
)

func (s CountScope) Valid() bool {
	return s == ScopeAll || s == ScopeProductsOnly || s == ScopeMaterialsOnly
}

// SessionFilter is the snapshot scoping criteria. It is fixed once the
// session leaves DRAFT and only ever applied at snapshot time. Empty
// Categories/Locations mean "no restriction".
type SessionFilter struct {
	Categories []string   `gorm:"serializer:json"`
	Locations  []string   `gorm:"serializer:json"`
	SKUPrefix  string     `gorm:"type:varchar(64)"`
	Scope      CountScope `gorm:"type:varchar(20);not null;default:'ALL'"`
}

// CountSession is one physical inventory counting exercise. Rollup fields
// (TotalItems, CountedItems, DiscrepancyCount, TotalVarianceValue) are
// recomputed from the full item set after every mutation — they are never
// written directly by callers.
type CountSession struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Code        string    `gorm:"uniqueIndex;not null"`
	WarehouseID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name        string    `gorm:"not null"`
	Description *string
	CountType   CountType `gorm:"type:varchar(10);not null"`
	PlannedDate *time.Time

	Filter SessionFilter `gorm:"embedded;embeddedPrefix:filter_"`

	RequireDoubleCount bool `gorm:"not null;default:false"`
	// FreezeInventory is informational for the external ledger — the engine
	// records the intent but does not enforce a freeze itself.
	FreezeInventory bool `gorm:"not null;default:false"`
	AllowBlindCount bool `gorm:"not null;default:false"`

	Status SessionStatus `gorm:"type:varchar(20);not null;default:'DRAFT';index"`

	TotalItems         int             `gorm:"not null;default:0"`
	CountedItems       int             `gorm:"not null;default:0"`
	DiscrepancyCount   int             `gorm:"not null;default:0"`
	TotalVarianceValue decimal.Decimal `gorm:"type:decimal(14,4);not null;default:0"`

	Notes string

	CreatedBy   uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt   time.Time
	StartedBy   *uuid.UUID `gorm:"type:uuid"`
	StartedAt   *time.Time
	CompletedBy *uuid.UUID `gorm:"type:uuid"`
	CompletedAt *time.Time
	CancelledAt *time.Time
	UpdatedAt   time.Time

	Warehouse *Warehouse  `gorm:"foreignKey:WarehouseID"`
	Items     []CountItem `gorm:"foreignKey:SessionID"`
}

func (CountSession) TableName() string { return "count_sessions" }
