package service

// snapshot.go — materializes a session's count lines from the live stock
// ledger. Runs exactly once per session, guarded by the DRAFT → IN_PROGRESS
// transition.

import (
	"strings"

	"github.com/google/uuid"

	"stocktake/internal/model"
)

// matchesFilter applies the session's scoping criteria to one ledger row.
func matchesFilter(f model.SessionFilter, row model.SnapshotRow) bool {
	switch f.Scope {
	case model.ScopeProductsOnly:
		if row.Ref.IsMaterial() {
			return false
		}
	case model.ScopeMaterialsOnly:
		if !row.Ref.IsMaterial() {
			return false
		}
	}

	if len(f.Categories) > 0 && !containsString(f.Categories, row.Category) {
		return false
	}
	if len(f.Locations) > 0 && !containsString(f.Locations, row.Location) {
		return false
	}
	if f.SKUPrefix != "" && !strings.HasPrefix(row.SKU, f.SKUPrefix) {
		return false
	}
	return true
}

// buildSnapshot freezes the matching ledger rows into NOT_COUNTED count lines.
func buildSnapshot(sessionID uuid.UUID, f model.SessionFilter, rows []model.SnapshotRow) []model.CountItem {
	items := make([]model.CountItem, 0, len(rows))
	for _, row := range rows {
		if !matchesFilter(f, row) {
			continue
		}
		items = append(items, model.CountItem{
			SessionID:        sessionID,
			Ref:              row.Ref,
			SKU:              row.SKU,
			Description:      row.Description,
			Unit:             row.Unit,
			Category:         row.Category,
			Location:         row.Location,
			ExpectedQuantity: row.Quantity,
			UnitCost:         row.UnitCost,
			Status:           model.ItemNotCounted,
		})
	}
	return items
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
