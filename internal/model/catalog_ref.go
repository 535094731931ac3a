package model

import (
	"github.com/google/uuid"
)

// CatalogKind discriminates what a stock-keeping line points at.
type CatalogKind string

const (
	CatalogProduct  CatalogKind = "PRODUCT"
	CatalogMaterial CatalogKind = "MATERIAL"
)

// CatalogRef is a tagged reference to either a product (with optional
// variant) or a material — never both. Build one through ProductRef or
// MaterialRef; the constructors are the only way the exclusivity holds, so
// don't populate the fields by hand.
type CatalogRef struct {
	Kind       CatalogKind `gorm:"type:varchar(10);not null"`
	ProductID  *uuid.UUID  `gorm:"type:uuid;index"`
	VariantID  *uuid.UUID  `gorm:"type:uuid"`
	MaterialID *uuid.UUID  `gorm:"type:uuid;index"`
}

func ProductRef(productID uuid.UUID, variantID *uuid.UUID) CatalogRef {
	return CatalogRef{Kind: CatalogProduct, ProductID: &productID, VariantID: variantID}
}

func MaterialRef(materialID uuid.UUID) CatalogRef {
	return CatalogRef{Kind: CatalogMaterial, MaterialID: &materialID}
}

// Equal reports whether two refs address the same catalog entry.
func (r CatalogRef) Equal(other CatalogRef) bool {
	if r.Kind != other.Kind {
		return false
	}
	switch r.Kind {
	case CatalogProduct:
		if !uuidPtrEqual(r.ProductID, other.ProductID) {
			return false
		}
		return uuidPtrEqual(r.VariantID, other.VariantID)
	case CatalogMaterial:
		return uuidPtrEqual(r.MaterialID, other.MaterialID)
	}
	return false
}

func (r CatalogRef) IsMaterial() bool { return r.Kind == CatalogMaterial }

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
