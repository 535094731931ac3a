package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"stocktake/internal/model"
)

func TestMatchesFilter(t *testing.T) {
	product := productRow("PRD-1", "drinks", "A-01", 10, 1)
	material := materialRow("MAT-1", "raw", "M-01", 5, 2)

	tests := []struct {
		name   string
		filter model.SessionFilter
		row    model.SnapshotRow
		want   bool
	}{
		{"empty filter matches everything", model.SessionFilter{}, product, true},
		{"products scope keeps product", model.SessionFilter{Scope: model.ScopeProductsOnly}, product, true},
		{"products scope drops material", model.SessionFilter{Scope: model.ScopeProductsOnly}, material, false},
		{"materials scope keeps material", model.SessionFilter{Scope: model.ScopeMaterialsOnly}, material, true},
		{"materials scope drops product", model.SessionFilter{Scope: model.ScopeMaterialsOnly}, product, false},
		{"category membership", model.SessionFilter{Categories: []string{"drinks", "snacks"}}, product, true},
		{"category mismatch", model.SessionFilter{Categories: []string{"snacks"}}, product, false},
		{"location membership", model.SessionFilter{Locations: []string{"A-01"}}, product, true},
		{"location mismatch", model.SessionFilter{Locations: []string{"B-07"}}, product, false},
		{"sku prefix match", model.SessionFilter{SKUPrefix: "PRD-"}, product, true},
		{"sku prefix mismatch", model.SessionFilter{SKUPrefix: "MAT-"}, product, false},
		{
			"all criteria combine with AND",
			model.SessionFilter{Scope: model.ScopeProductsOnly, Categories: []string{"drinks"}, Locations: []string{"A-01"}, SKUPrefix: "PRD-"},
			product,
			true,
		},
		{
			"one failing criterion rejects",
			model.SessionFilter{Categories: []string{"drinks"}, Locations: []string{"B-07"}},
			product,
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchesFilter(tt.filter, tt.row))
		})
	}
}
