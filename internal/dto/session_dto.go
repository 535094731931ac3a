package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"stocktake/internal/model"
)

// ─── Filter / List ──────────────────────────────────────────────────────────

// SessionFilter is bound from query string of GET /v1/sessions.
type SessionFilter struct {
	Status      string `form:"status"`       // DRAFT | IN_PROGRESS | ... ; empty = all
	WarehouseID string `form:"warehouse_id"  validate:"omitempty,uuid"`
	CountType   string `form:"count_type"    validate:"omitempty,oneof=FULL CYCLE SPOT"`
	Page        int    `form:"page,default=1"   validate:"min=1"`
	Limit       int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type SessionListResponse struct {
	Data  []SessionResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

// SnapshotFilterRequest narrows what the snapshot freezes when the session
// starts. All fields optional; empty means "everything in the warehouse".
type SnapshotFilterRequest struct {
	Categories []string `json:"categories"`
	Locations  []string `json:"locations"`
	SKUPrefix  string   `json:"sku_prefix"`
	Scope      string   `json:"scope" validate:"omitempty,oneof=ALL PRODUCTS_ONLY MATERIALS_ONLY"`
}

type CreateSessionRequest struct {
	WarehouseID string  `json:"warehouse_id" validate:"required,uuid"`
	Name        string  `json:"name"         validate:"required,min=3"`
	Description *string `json:"description"`
	CountType   string  `json:"count_type"   validate:"required,oneof=FULL CYCLE SPOT"`
	PlannedDate *string `json:"planned_date" validate:"omitempty,datetime=2006-01-02"`

	Filter SnapshotFilterRequest `json:"filter"`

	RequireDoubleCount bool `json:"require_double_count"`
	FreezeInventory    bool `json:"freeze_inventory"`
	AllowBlindCount    bool `json:"allow_blind_count"`

	Notes string `json:"notes"`
}

type CompleteSessionRequest struct {
	// ApplyAdjustments defaults to true; pass false to close the session
	// without touching the ledger (dry-run counts).
	ApplyAdjustments *bool `json:"apply_adjustments"`
	// NotifyEmail: optional — when present, the report worker mails the
	// variance report PDF after the adjustments commit.
	NotifyEmail *string `json:"notify_email" validate:"omitempty,email"`
	Notes       string  `json:"notes"`
}

type CancelSessionRequest struct {
	Reason string `json:"reason" validate:"required,min=5"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SessionResponse struct {
	ID          string  `json:"id"`
	Code        string  `json:"code"`
	WarehouseID string  `json:"warehouse_id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	CountType   string  `json:"count_type"`
	PlannedDate *string `json:"planned_date,omitempty"`

	Filter SnapshotFilterRequest `json:"filter"`

	RequireDoubleCount bool `json:"require_double_count"`
	FreezeInventory    bool `json:"freeze_inventory"`
	AllowBlindCount    bool `json:"allow_blind_count"`

	Status string `json:"status"`

	TotalItems         int             `json:"total_items"`
	CountedItems       int             `json:"counted_items"`
	DiscrepancyCount   int             `json:"discrepancy_count"`
	TotalVarianceValue decimal.Decimal `json:"total_variance_value"`

	Notes string `json:"notes,omitempty"`

	CreatedBy   string  `json:"created_by"`
	CreatedAt   string  `json:"created_at"`
	StartedAt   *string `json:"started_at,omitempty"`
	CompletedAt *string `json:"completed_at,omitempty"`
	CancelledAt *string `json:"cancelled_at,omitempty"`
}

// NewSessionResponse maps a model.CountSession to its API shape.
func NewSessionResponse(s *model.CountSession) SessionResponse {
	resp := SessionResponse{
		ID:          s.ID.String(),
		Code:        s.Code,
		WarehouseID: s.WarehouseID.String(),
		Name:        s.Name,
		Description: s.Description,
		CountType:   string(s.CountType),
		Filter: SnapshotFilterRequest{
			Categories: s.Filter.Categories,
			Locations:  s.Filter.Locations,
			SKUPrefix:  s.Filter.SKUPrefix,
			Scope:      string(s.Filter.Scope),
		},
		RequireDoubleCount: s.RequireDoubleCount,
		FreezeInventory:    s.FreezeInventory,
		AllowBlindCount:    s.AllowBlindCount,
		Status:             string(s.Status),
		TotalItems:         s.TotalItems,
		CountedItems:       s.CountedItems,
		DiscrepancyCount:   s.DiscrepancyCount,
		TotalVarianceValue: s.TotalVarianceValue,
		Notes:              s.Notes,
		CreatedBy:          s.CreatedBy.String(),
		CreatedAt:          s.CreatedAt.Format(time.RFC3339),
	}
	if s.PlannedDate != nil {
		d := s.PlannedDate.Format("2006-01-02")
		resp.PlannedDate = &d
	}
	if s.StartedAt != nil {
		t := s.StartedAt.Format(time.RFC3339)
		resp.StartedAt = &t
	}
	if s.CompletedAt != nil {
		t := s.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &t
	}
	if s.CancelledAt != nil {
		t := s.CancelledAt.Format(time.RFC3339)
		resp.CancelledAt = &t
	}
	return resp
}
