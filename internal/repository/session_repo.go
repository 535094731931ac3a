package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"stocktake/internal/dto"
	"stocktake/internal/model"
)

type SessionRepository interface {
	Create(ctx context.Context, s *model.CountSession) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.CountSession, error)
	Update(ctx context.Context, s *model.CountSession) error
	UpdateTx(ctx context.Context, tx *gorm.DB, s *model.CountSession) error
	// LastCodeWithPrefix returns the highest session code starting with
	// prefix, or "" when none exists yet.
	LastCodeWithPrefix(ctx context.Context, prefix string) (string, error)
	List(ctx context.Context, filter dto.SessionFilter) ([]model.CountSession, int64, error)
	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type sessionRepo struct{ db *gorm.DB }

func NewSessionRepository(db *gorm.DB) SessionRepository { return &sessionRepo{db: db} }

func (r *sessionRepo) DB() *gorm.DB { return r.db }

func (r *sessionRepo) Create(ctx context.Context, s *model.CountSession) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *sessionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.CountSession, error) {
	var s model.CountSession
	err := r.db.WithContext(ctx).First(&s, id).Error
	return &s, err
}

func (r *sessionRepo) Update(ctx context.Context, s *model.CountSession) error {
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *sessionRepo) UpdateTx(ctx context.Context, tx *gorm.DB, s *model.CountSession) error {
	return tx.WithContext(ctx).Save(s).Error
}

func (r *sessionRepo) LastCodeWithPrefix(ctx context.Context, prefix string) (string, error) {
	var code string
	// length-first ordering keeps INV-X-2026-010 above INV-X-2026-9
	err := r.db.WithContext(ctx).
		Model(&model.CountSession{}).
		Select("code").
		Where("code LIKE ?", prefix+"%").
		Order("length(code) DESC, code DESC").
		Limit(1).
		Scan(&code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	return code, err
}

func (r *sessionRepo) List(ctx context.Context, filter dto.SessionFilter) ([]model.CountSession, int64, error) {
	var sessions []model.CountSession
	var total int64
	offset := (filter.Page - 1) * filter.Limit

	q := r.db.WithContext(ctx).Model(&model.CountSession{})

	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.WarehouseID != "" {
		q = q.Where("warehouse_id = ?", filter.WarehouseID)
	}
	if filter.CountType != "" {
		q = q.Where("count_type = ?", filter.CountType)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&sessions).Error

	return sessions, total, err
}
