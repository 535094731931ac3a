package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"stocktake/internal/model"
)

// ─── Filter / List ──────────────────────────────────────────────────────────

// ItemFilter is bound from query string of GET /v1/sessions/:id/items.
type ItemFilter struct {
	Status   string `form:"status"`
	Location string `form:"location"`
	Category string `form:"category"`
	Page     int    `form:"page,default=1"    validate:"min=1"`
	Limit    int    `form:"limit,default=100" validate:"min=1,max=500"`
}

type ItemListResponse struct {
	Data  []ItemResponse `json:"data"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

type RecordCountRequest struct {
	Quantity decimal.Decimal `json:"quantity" validate:"min=0"`
	Notes    string          `json:"notes"`
}

type VerifyItemRequest struct {
	Quantity decimal.Decimal `json:"quantity" validate:"min=0"`
	Notes    string          `json:"notes"`
}

type ReconcileItemRequest struct {
	Quantity decimal.Decimal `json:"quantity" validate:"min=0"`
	Reason   string          `json:"reason"   validate:"required,min=5"`
}

type BatchCountEntry struct {
	SKU      string          `json:"sku"      validate:"required"`
	Quantity decimal.Decimal `json:"quantity" validate:"min=0"`
	Notes    string          `json:"notes"`
}

type BatchCountRequest struct {
	Counts []BatchCountEntry `json:"counts" validate:"required,min=1,dive"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

// ItemResponse renders one count line. ExpectedQuantity is a pointer so blind
// sessions can omit it for lines the operator has not counted yet.
type ItemResponse struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"` // PRODUCT | MATERIAL
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Unit     string `json:"unit"`
	Category string `json:"category,omitempty"`
	Location string `json:"location"`

	ExpectedQuantity *decimal.Decimal `json:"expected_quantity,omitempty"`
	UnitCost         *decimal.Decimal `json:"unit_cost,omitempty"`

	CountedQuantity  *decimal.Decimal `json:"counted_quantity,omitempty"`
	CountedAt        *string          `json:"counted_at,omitempty"`
	VerifiedQuantity *decimal.Decimal `json:"verified_quantity,omitempty"`
	VerifiedAt       *string          `json:"verified_at,omitempty"`

	FinalQuantity *decimal.Decimal `json:"final_quantity,omitempty"`
	Variance      *decimal.Decimal `json:"variance,omitempty"`
	VarianceValue *decimal.Decimal `json:"variance_value,omitempty"`

	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

// NewItemResponse maps a count line to its API shape. blind strips the frozen
// expectation (and everything derived from it) from lines not yet counted, so
// operators cannot anchor on the book quantity. Lines awaiting verification
// additionally hide the first count — the second count must be independent.
func NewItemResponse(i *model.CountItem, blind bool) ItemResponse {
	resp := ItemResponse{
		ID:       i.ID.String(),
		Kind:     string(i.Ref.Kind),
		SKU:      i.SKU,
		Name:     i.Description,
		Unit:     i.Unit,
		Category: i.Category,
		Location: i.Location,

		CountedQuantity:  i.CountedQuantity,
		VerifiedQuantity: i.VerifiedQuantity,

		Status: string(i.Status),
		Notes:  i.Notes,
	}
	if i.CountedAt != nil {
		t := i.CountedAt.Format(time.RFC3339)
		resp.CountedAt = &t
	}
	if i.VerifiedAt != nil {
		t := i.VerifiedAt.Format(time.RFC3339)
		resp.VerifiedAt = &t
	}

	if blind && (i.Status == model.ItemNotCounted || i.Status == model.ItemCounted) {
		resp.CountedQuantity = nil
		return resp
	}

	expected := i.ExpectedQuantity
	cost := i.UnitCost
	resp.ExpectedQuantity = &expected
	resp.UnitCost = &cost
	resp.FinalQuantity = i.FinalQuantity
	resp.Variance = i.Variance
	resp.VarianceValue = i.VarianceValue
	return resp
}

// ─── Batch result ────────────────────────────────────────────────────────────

type BatchCountError struct {
	SKU   string `json:"sku"`
	Error string `json:"error"`
}

type BatchCountResponse struct {
	Success int               `json:"success"`
	Errors  []BatchCountError `json:"errors"`
}
