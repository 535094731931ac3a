package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"stocktake/internal/model"
)

type StockRepository interface {
	// ListByWarehouse returns every active ledger row in the warehouse joined
	// with the catalog attributes a count line freezes. Scope/category/SKU
	// filtering happens in the service layer.
	ListByWarehouse(ctx context.Context, warehouseID uuid.UUID) ([]model.SnapshotRow, error)
	// OverwriteQuantityTx sets the ledger row addressed by (warehouse,
	// location, ref) to qty, creating the row if the ledger lost it since the
	// snapshot was taken.
	OverwriteQuantityTx(ctx context.Context, tx *gorm.DB, warehouseID uuid.UUID, location string, ref model.CatalogRef, sku string, qty decimal.Decimal) error
	CreateMovementTx(ctx context.Context, tx *gorm.DB, m *model.StockMovement) error
	// ResyncMaterialStockTx recomputes the material's denormalized
	// stock_on_hand from its ledger rows.
	ResyncMaterialStockTx(ctx context.Context, tx *gorm.DB, materialID uuid.UUID) error
	DB() *gorm.DB
}

type stockRepo struct{ db *gorm.DB }

func NewStockRepository(db *gorm.DB) StockRepository { return &stockRepo{db: db} }

func (r *stockRepo) DB() *gorm.DB { return r.db }

// snapshotScan is the flat row shape of the snapshot join; assembled into
// model.SnapshotRow because Raw().Scan() does not fill embedded structs.
type snapshotScan struct {
	Kind        model.CatalogKind
	ProductID   *uuid.UUID
	VariantID   *uuid.UUID
	MaterialID  *uuid.UUID
	SKU         string
	Location    string
	Quantity    decimal.Decimal
	Description string
	Unit        string
	Category    string
	UnitCost    decimal.Decimal
}

func (r *stockRepo) ListByWarehouse(ctx context.Context, warehouseID uuid.UUID) ([]model.SnapshotRow, error) {
	var scans []snapshotScan
	err := r.db.WithContext(ctx).Raw(`
		SELECT sl.kind, sl.product_id, sl.variant_id, sl.material_id,
		       sl.sku, sl.location, sl.quantity,
		       COALESCE(pv.name, p.name, m.name, sl.sku)           AS description,
		       COALESCE(p.unit, m.unit, 'unit')                    AS unit,
		       COALESCE(p.category, m.category, '')                AS category,
		       COALESCE(pv.unit_cost, p.unit_cost, m.unit_cost, 0) AS unit_cost
		FROM stock_levels sl
		LEFT JOIN products p          ON sl.kind = 'PRODUCT'  AND p.id = sl.product_id
		LEFT JOIN product_variants pv ON sl.kind = 'PRODUCT'  AND pv.id = sl.variant_id
		LEFT JOIN materials m         ON sl.kind = 'MATERIAL' AND m.id = sl.material_id
		WHERE sl.warehouse_id = ?
		  AND COALESCE(p.active, m.active, TRUE)
		ORDER BY sl.location, sl.sku`, warehouseID).
		Scan(&scans).Error
	if err != nil {
		return nil, err
	}

	rows := make([]model.SnapshotRow, 0, len(scans))
	for _, s := range scans {
		rows = append(rows, model.SnapshotRow{
			Ref: model.CatalogRef{
				Kind:       s.Kind,
				ProductID:  s.ProductID,
				VariantID:  s.VariantID,
				MaterialID: s.MaterialID,
			},
			SKU:         s.SKU,
			Description: s.Description,
			Unit:        s.Unit,
			Category:    s.Category,
			Location:    s.Location,
			Quantity:    s.Quantity,
			UnitCost:    s.UnitCost,
		})
	}
	return rows, nil
}

func (r *stockRepo) OverwriteQuantityTx(ctx context.Context, tx *gorm.DB, warehouseID uuid.UUID, location string, ref model.CatalogRef, sku string, qty decimal.Decimal) error {
	q := tx.WithContext(ctx).
		Model(&model.StockLevel{}).
		Where("warehouse_id = ? AND location = ? AND kind = ?", warehouseID, location, ref.Kind)

	switch ref.Kind {
	case model.CatalogProduct:
		q = q.Where("product_id = ?", ref.ProductID)
		if ref.VariantID != nil {
			q = q.Where("variant_id = ?", ref.VariantID)
		} else {
			q = q.Where("variant_id IS NULL")
		}
	case model.CatalogMaterial:
		q = q.Where("material_id = ?", ref.MaterialID)
	}

	res := q.Updates(map[string]interface{}{
		"quantity":   qty,
		"updated_at": time.Now(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	level := model.StockLevel{
		WarehouseID: warehouseID,
		Location:    location,
		Ref:         ref,
		SKU:         sku,
		Quantity:    qty,
	}
	return tx.WithContext(ctx).Create(&level).Error
}

func (r *stockRepo) CreateMovementTx(ctx context.Context, tx *gorm.DB, m *model.StockMovement) error {
	return tx.WithContext(ctx).Create(m).Error
}

func (r *stockRepo) ResyncMaterialStockTx(ctx context.Context, tx *gorm.DB, materialID uuid.UUID) error {
	return tx.WithContext(ctx).Exec(`
		UPDATE materials
		SET stock_on_hand = (
			SELECT COALESCE(SUM(quantity), 0)
			FROM stock_levels
			WHERE kind = 'MATERIAL' AND material_id = ?
		), updated_at = NOW()
		WHERE id = ?`, materialID, materialID).Error
}
