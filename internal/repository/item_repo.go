package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"stocktake/internal/dto"
	"stocktake/internal/model"
)

type ItemRepository interface {
	BulkCreateTx(ctx context.Context, tx *gorm.DB, items []model.CountItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.CountItem, error)
	FindBySessionAndSKU(ctx context.Context, sessionID uuid.UUID, sku string) (*model.CountItem, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.CountItem, error)
	ListBySessionPaged(ctx context.Context, sessionID uuid.UUID, filter dto.ItemFilter) ([]model.CountItem, int64, error)
	Update(ctx context.Context, i *model.CountItem) error
	UpdateTx(ctx context.Context, tx *gorm.DB, i *model.CountItem) error
}

type itemRepo struct{ db *gorm.DB }

func NewItemRepository(db *gorm.DB) ItemRepository { return &itemRepo{db: db} }

func (r *itemRepo) BulkCreateTx(ctx context.Context, tx *gorm.DB, items []model.CountItem) error {
	if len(items) == 0 {
		return nil
	}
	return tx.WithContext(ctx).CreateInBatches(items, 500).Error
}

func (r *itemRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.CountItem, error) {
	var i model.CountItem
	err := r.db.WithContext(ctx).First(&i, id).Error
	return &i, err
}

func (r *itemRepo) FindBySessionAndSKU(ctx context.Context, sessionID uuid.UUID, sku string) (*model.CountItem, error) {
	var i model.CountItem
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND sku = ?", sessionID, sku).
		First(&i).Error
	return &i, err
}

func (r *itemRepo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.CountItem, error) {
	var items []model.CountItem
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("location, sku").
		Find(&items).Error
	return items, err
}

func (r *itemRepo) ListBySessionPaged(ctx context.Context, sessionID uuid.UUID, filter dto.ItemFilter) ([]model.CountItem, int64, error) {
	var items []model.CountItem
	var total int64
	offset := (filter.Page - 1) * filter.Limit

	q := r.db.WithContext(ctx).Model(&model.CountItem{}).Where("session_id = ?", sessionID)

	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Location != "" {
		q = q.Where("location = ?", filter.Location)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Order("location, sku").
		Offset(offset).Limit(filter.Limit).
		Find(&items).Error

	return items, total, err
}

func (r *itemRepo) Update(ctx context.Context, i *model.CountItem) error {
	return r.db.WithContext(ctx).Save(i).Error
}

func (r *itemRepo) UpdateTx(ctx context.Context, tx *gorm.DB, i *model.CountItem) error {
	return tx.WithContext(ctx).Save(i).Error
}
