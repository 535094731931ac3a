package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockLevel is one live stock-ledger row: the on-hand quantity of a catalog
// entry at a storage location inside a warehouse. The counting engine reads
// these at snapshot time and overwrites Quantity when a completed session
// applies its adjustments.
type StockLevel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	WarehouseID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Location    string          `gorm:"not null;index"`
	Ref         CatalogRef      `gorm:"embedded"`
	SKU         string          `gorm:"not null;index"`
	Quantity    decimal.Decimal `gorm:"type:decimal(14,4);not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (StockLevel) TableName() string { return "stock_levels" }

// Movement kinds. The counting engine only ever appends ADJUSTMENT entries;
// the other kinds belong to collaborators writing to the same log.
const (
	MovementAdjustment = "ADJUSTMENT"

	AdjustmentSurplus   = "surplus"
	AdjustmentShortfall = "shortfall"
)

// StockMovement is an immutable audit entry describing one change to a stock
// ledger row. Entries are NEVER updated or deleted — corrections append
// inverse entries.
type StockMovement struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Kind        string     `gorm:"type:varchar(20);not null;index"`
	WarehouseID uuid.UUID  `gorm:"type:uuid;not null;index"`
	Location    string     `gorm:"not null"`
	Ref         CatalogRef `gorm:"embedded"`
	SKU         string     `gorm:"not null;index"`
	// Quantity is signed: positive = surplus (ledger raised), negative =
	// shortfall (ledger lowered).
	Quantity  decimal.Decimal `gorm:"type:decimal(14,4);not null"`
	Direction string          `gorm:"type:varchar(10);not null"`
	// Reference carries the session code that produced the entry.
	Reference string `gorm:"index"`
	Notes     string
	ActorID   uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt time.Time
}

func (StockMovement) TableName() string { return "stock_movements" }

// SnapshotRow is a ledger row joined with the catalog attributes a count line
// needs frozen. Repositories produce these for the snapshot builder.
type SnapshotRow struct {
	Ref         CatalogRef
	SKU         string
	Description string
	Unit        string
	Category    string
	Location    string
	Quantity    decimal.Decimal
	UnitCost    decimal.Decimal
}
