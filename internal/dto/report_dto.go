package dto

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"stocktake/internal/model"
)

// VarianceBucket aggregates one side of the variance (surplus or shortfall).
// Units and Value are positive magnitudes.
type VarianceBucket struct {
	ItemCount int             `json:"item_count"`
	Units     decimal.Decimal `json:"units"`
	Value     decimal.Decimal `json:"value"`
}

// CategoryVariance is the per-category rollup inside a variance report.
type CategoryVariance struct {
	Category      string          `json:"category"`
	ItemCount     int             `json:"item_count"`
	NetUnits      decimal.Decimal `json:"net_units"`
	VarianceValue decimal.Decimal `json:"variance_value"`
}

// VarianceLine is one discrepant count line inside the report.
type VarianceLine struct {
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Category      string          `json:"category,omitempty"`
	Location      string          `json:"location"`
	Expected      decimal.Decimal `json:"expected"`
	Final         decimal.Decimal `json:"final"`
	Variance      decimal.Decimal `json:"variance"`
	VarianceValue decimal.Decimal `json:"variance_value"`
}

// VarianceReportResponse is the full reconciliation summary for a session.
// It can be generated at any point in the session lifecycle; before completion
// it reflects only the lines that have a final quantity so far.
type VarianceReportResponse struct {
	SessionID   string `json:"session_id"`
	SessionCode string `json:"session_code"`
	WarehouseID string `json:"warehouse_id"`
	Status      string `json:"status"`
	GeneratedAt string `json:"generated_at"`

	TotalItems        int `json:"total_items"`
	CountedItems      int `json:"counted_items"`
	ItemsWithVariance int `json:"items_with_variance"`

	Surplus   VarianceBucket  `json:"surplus"`
	Shortfall VarianceBucket  `json:"shortfall"`
	NetUnits  decimal.Decimal `json:"net_units"`
	NetValue  decimal.Decimal `json:"net_value"`

	ByCategory   []CategoryVariance `json:"by_category"`
	TopVariances []VarianceLine     `json:"top_variances"`
}

const topVarianceLines = 10

// NewVarianceReport aggregates a session's count lines into the report shape.
// Pure mapping over the passed lines — callers decide how fresh they are.
func NewVarianceReport(s *model.CountSession, items []model.CountItem) *VarianceReportResponse {
	report := &VarianceReportResponse{
		SessionID:   s.ID.String(),
		SessionCode: s.Code,
		WarehouseID: s.WarehouseID.String(),
		Status:      string(s.Status),
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		TotalItems:  len(items),
		NetUnits:    decimal.Zero,
		NetValue:    decimal.Zero,
	}
	report.Surplus = VarianceBucket{Units: decimal.Zero, Value: decimal.Zero}
	report.Shortfall = VarianceBucket{Units: decimal.Zero, Value: decimal.Zero}

	byCategory := make(map[string]*CategoryVariance)
	var discrepant []model.CountItem

	for _, item := range items {
		if item.Status != model.ItemNotCounted {
			report.CountedItems++
		}
		if !item.HasVariance() {
			continue
		}
		report.ItemsWithVariance++

		variance := *item.Variance
		value := *item.VarianceValue
		if variance.IsPositive() {
			report.Surplus.ItemCount++
			report.Surplus.Units = report.Surplus.Units.Add(variance)
			report.Surplus.Value = report.Surplus.Value.Add(value)
		} else {
			report.Shortfall.ItemCount++
			report.Shortfall.Units = report.Shortfall.Units.Add(variance.Abs())
			report.Shortfall.Value = report.Shortfall.Value.Add(value)
		}
		report.NetUnits = report.NetUnits.Add(variance)
		if variance.IsPositive() {
			report.NetValue = report.NetValue.Add(value)
		} else {
			report.NetValue = report.NetValue.Sub(value)
		}

		cat, ok := byCategory[item.Category]
		if !ok {
			cat = &CategoryVariance{Category: item.Category, NetUnits: decimal.Zero, VarianceValue: decimal.Zero}
			byCategory[item.Category] = cat
		}
		cat.ItemCount++
		cat.NetUnits = cat.NetUnits.Add(variance)
		cat.VarianceValue = cat.VarianceValue.Add(value)

		discrepant = append(discrepant, item)
	}

	report.ByCategory = make([]CategoryVariance, 0, len(byCategory))
	for _, cat := range byCategory {
		report.ByCategory = append(report.ByCategory, *cat)
	}
	sort.Slice(report.ByCategory, func(i, j int) bool {
		return report.ByCategory[i].Category < report.ByCategory[j].Category
	})

	sort.Slice(discrepant, func(i, j int) bool {
		return discrepant[i].VarianceValue.GreaterThan(*discrepant[j].VarianceValue)
	})
	if len(discrepant) > topVarianceLines {
		discrepant = discrepant[:topVarianceLines]
	}
	report.TopVariances = make([]VarianceLine, 0, len(discrepant))
	for _, item := range discrepant {
		report.TopVariances = append(report.TopVariances, VarianceLine{
			SKU:           item.SKU,
			Name:          item.Description,
			Category:      item.Category,
			Location:      item.Location,
			Expected:      item.ExpectedQuantity,
			Final:         *item.FinalQuantity,
			Variance:      *item.Variance,
			VarianceValue: *item.VarianceValue,
		})
	}

	return report
}
