package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"stocktake/internal/model"
)

type WarehouseRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Warehouse, error)
}

type warehouseRepo struct{ db *gorm.DB }

func NewWarehouseRepository(db *gorm.DB) WarehouseRepository { return &warehouseRepo{db: db} }

func (r *warehouseRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Warehouse, error) {
	var w model.Warehouse
	err := r.db.WithContext(ctx).First(&w, id).Error
	return &w, err
}
