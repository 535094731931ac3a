package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog entry managed elsewhere; the engine reads SKU, unit
// and cost at snapshot time and never writes back.
type Product struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SKU         string    `gorm:"uniqueIndex;not null"`
	Name        string    `gorm:"index;not null"`
	Description *string
	Category    string          `gorm:"index;not null"`
	Unit        string          `gorm:"not null;default:'unit'"`
	UnitCost    decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	Active      bool            `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProductVariant is an optional refinement of a Product (size, color).
// A stock line may reference product+variant; cost falls back to the parent
// product when the variant has none of its own.
type ProductVariant struct {
	ID        uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID uuid.UUID        `gorm:"type:uuid;not null;index"`
	SKU       string           `gorm:"uniqueIndex;not null"`
	Name      string           `gorm:"not null"`
	UnitCost  *decimal.Decimal `gorm:"type:decimal(12,4)"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Product *Product `gorm:"foreignKey:ProductID"`
}

// Material is a raw-material catalog entry. StockOnHand is a denormalized
// cache of the sum of the material's ledger rows across locations — a derived
// figure, never a source of truth. The adjustment applier resyncs it after
// rewriting ledger rows.
type Material struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SKU         string    `gorm:"uniqueIndex;not null"`
	Name        string    `gorm:"index;not null"`
	Description *string
	Category    string          `gorm:"index;not null"`
	Unit        string          `gorm:"not null;default:'unit'"`
	UnitCost    decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	StockOnHand decimal.Decimal `gorm:"type:decimal(14,4);not null;default:0"`
	Active      bool            `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
