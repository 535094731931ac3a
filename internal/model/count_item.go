package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemStatus is the closed set of count-line states.
//
//	NOT_COUNTED → COUNTED → {VERIFIED | DISCREPANCY}   (double count)
//	NOT_COUNTED → {RECONCILED | DISCREPANCY}           (single count)
//	DISCREPANCY → RECONCILED                           (manual resolution)
type ItemStatus string

const (
	ItemNotCounted  ItemStatus = "NOT_COUNTED"
	ItemCounted     ItemStatus = "COUNTED"
	ItemVerified    ItemStatus = "VERIFIED"
	ItemDiscrepancy ItemStatus = "DISCREPANCY"
	ItemReconciled  ItemStatus = "RECONCILED"
)

// Resolved reports whether the line needs no further work before the
// session can complete.
func (s ItemStatus) Resolved() bool {
	return s == ItemVerified || s == ItemReconciled
}

// CountItem is one stock-keeping line within a session. ExpectedQuantity and
// UnitCost are frozen at snapshot time and immutable thereafter. Variance and
// VarianceValue are only ever written together with FinalQuantity.
//
// There is no optimistic-concurrency stamp on this row: two operators racing
// on the same line overwrite each other last-write-wins. Floor teams divide
// work by location, so contention on a single line is not expected.
type CountItem struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionID uuid.UUID  `gorm:"type:uuid;not null;index:idx_count_items_session"`
	Ref       CatalogRef `gorm:"embedded"`

	SKU         string `gorm:"not null;index"`
	Description string
	Unit        string `gorm:"not null"`
	Category    string `gorm:"index"`
	Location    string `gorm:"not null"`

	ExpectedQuantity decimal.Decimal `gorm:"type:decimal(14,4);not null"`
	UnitCost         decimal.Decimal `gorm:"type:decimal(12,4);not null"`

	CountedQuantity *decimal.Decimal `gorm:"type:decimal(14,4)"`
	CountedBy       *uuid.UUID       `gorm:"type:uuid"`
	CountedAt       *time.Time

	VerifiedQuantity *decimal.Decimal `gorm:"type:decimal(14,4)"`
	VerifiedBy       *uuid.UUID       `gorm:"type:uuid"`
	VerifiedAt       *time.Time

	FinalQuantity *decimal.Decimal `gorm:"type:decimal(14,4)"`
	// Variance = FinalQuantity − ExpectedQuantity; nil until FinalQuantity is
	// set. VarianceValue = UnitCost × |Variance|.
	Variance      *decimal.Decimal `gorm:"type:decimal(14,4)"`
	VarianceValue *decimal.Decimal `gorm:"type:decimal(14,4)"`

	Status ItemStatus `gorm:"type:varchar(20);not null;default:'NOT_COUNTED';index"`
	Notes  string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (CountItem) TableName() string { return "count_items" }

// SetFinal writes FinalQuantity together with the derived variance pair —
// the only sanctioned way to touch these three fields.
func (i *CountItem) SetFinal(qty decimal.Decimal) {
	variance := qty.Sub(i.ExpectedQuantity)
	value := i.UnitCost.Mul(variance.Abs())
	i.FinalQuantity = &qty
	i.Variance = &variance
	i.VarianceValue = &value
}

// HasVariance reports whether the line's final quantity deviates from the
// frozen expectation.
func (i *CountItem) HasVariance() bool {
	return i.Variance != nil && !i.Variance.IsZero()
}
