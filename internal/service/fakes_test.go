package service

// In-memory repository fakes. The services run their transactions through
// runTx, which short-circuits when DB() returns nil, so the full lifecycle is
// exercisable without Postgres.

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"stocktake/internal/dto"
	"stocktake/internal/model"
	"stocktake/internal/repository"
)

// ── Warehouse ────────────────────────────────────────────────────────────────

type fakeWarehouseRepo struct {
	warehouses map[uuid.UUID]*model.Warehouse
}

var _ repository.WarehouseRepository = (*fakeWarehouseRepo)(nil)

func newFakeWarehouseRepo() *fakeWarehouseRepo {
	return &fakeWarehouseRepo{warehouses: make(map[uuid.UUID]*model.Warehouse)}
}

func (r *fakeWarehouseRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Warehouse, error) {
	w, ok := r.warehouses[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return w, nil
}

// ── Sessions ─────────────────────────────────────────────────────────────────

type fakeSessionRepo struct {
	sessions map[uuid.UUID]*model.CountSession
}

var _ repository.SessionRepository = (*fakeSessionRepo)(nil)

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[uuid.UUID]*model.CountSession)}
}

func (r *fakeSessionRepo) DB() *gorm.DB { return nil }

func (r *fakeSessionRepo) Create(_ context.Context, s *model.CountSession) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.CreatedAt = time.Now()
	r.sessions[s.ID] = s
	return nil
}

func (r *fakeSessionRepo) FindByID(_ context.Context, id uuid.UUID) (*model.CountSession, error) {
	s, ok := r.sessions[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return s, nil
}

func (r *fakeSessionRepo) Update(_ context.Context, s *model.CountSession) error {
	r.sessions[s.ID] = s
	return nil
}

func (r *fakeSessionRepo) UpdateTx(_ context.Context, _ *gorm.DB, s *model.CountSession) error {
	r.sessions[s.ID] = s
	return nil
}

func (r *fakeSessionRepo) LastCodeWithPrefix(_ context.Context, prefix string) (string, error) {
	best := ""
	for _, s := range r.sessions {
		if !strings.HasPrefix(s.Code, prefix) {
			continue
		}
		if len(s.Code) > len(best) || (len(s.Code) == len(best) && s.Code > best) {
			best = s.Code
		}
	}
	return best, nil
}

func (r *fakeSessionRepo) List(_ context.Context, filter dto.SessionFilter) ([]model.CountSession, int64, error) {
	var out []model.CountSession
	for _, s := range r.sessions {
		if filter.Status != "" && string(s.Status) != filter.Status {
			continue
		}
		if filter.WarehouseID != "" && s.WarehouseID.String() != filter.WarehouseID {
			continue
		}
		if filter.CountType != "" && string(s.CountType) != filter.CountType {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, int64(len(out)), nil
}

// ── Items ────────────────────────────────────────────────────────────────────

type fakeItemRepo struct {
	items     []*model.CountItem
	txUpdates int // writes routed through UpdateTx
}

var _ repository.ItemRepository = (*fakeItemRepo)(nil)

func newFakeItemRepo() *fakeItemRepo { return &fakeItemRepo{} }

func (r *fakeItemRepo) BulkCreateTx(_ context.Context, _ *gorm.DB, items []model.CountItem) error {
	for i := range items {
		item := items[i]
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		r.items = append(r.items, &item)
	}
	return nil
}

func (r *fakeItemRepo) FindByID(_ context.Context, id uuid.UUID) (*model.CountItem, error) {
	for _, item := range r.items {
		if item.ID == id {
			return item, nil
		}
	}
	return nil, errors.New("not found")
}

func (r *fakeItemRepo) FindBySessionAndSKU(_ context.Context, sessionID uuid.UUID, sku string) (*model.CountItem, error) {
	for _, item := range r.items {
		if item.SessionID == sessionID && item.SKU == sku {
			return item, nil
		}
	}
	return nil, errors.New("not found")
}

func (r *fakeItemRepo) ListBySession(_ context.Context, sessionID uuid.UUID) ([]model.CountItem, error) {
	var out []model.CountItem
	for _, item := range r.items {
		if item.SessionID == sessionID {
			out = append(out, *item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Location != out[j].Location {
			return out[i].Location < out[j].Location
		}
		return out[i].SKU < out[j].SKU
	})
	return out, nil
}

func (r *fakeItemRepo) ListBySessionPaged(ctx context.Context, sessionID uuid.UUID, filter dto.ItemFilter) ([]model.CountItem, int64, error) {
	all, err := r.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, 0, err
	}
	var out []model.CountItem
	for _, item := range all {
		if filter.Status != "" && string(item.Status) != filter.Status {
			continue
		}
		if filter.Location != "" && item.Location != filter.Location {
			continue
		}
		if filter.Category != "" && item.Category != filter.Category {
			continue
		}
		out = append(out, item)
	}
	return out, int64(len(out)), nil
}

func (r *fakeItemRepo) Update(_ context.Context, i *model.CountItem) error {
	for idx, item := range r.items {
		if item.ID == i.ID {
			r.items[idx] = i
			return nil
		}
	}
	return errors.New("not found")
}

func (r *fakeItemRepo) UpdateTx(ctx context.Context, _ *gorm.DB, i *model.CountItem) error {
	r.txUpdates++
	return r.Update(ctx, i)
}

// ── Stock ledger ─────────────────────────────────────────────────────────────

type fakeStockRepo struct {
	rows      []model.SnapshotRow
	levels    map[string]decimal.Decimal // warehouse|location|sku → quantity
	movements []model.StockMovement
	resynced  map[uuid.UUID]int
	failOnSKU string // forces OverwriteQuantityTx to fail for atomicity tests
}

var _ repository.StockRepository = (*fakeStockRepo)(nil)

func newFakeStockRepo() *fakeStockRepo {
	return &fakeStockRepo{
		levels:   make(map[string]decimal.Decimal),
		resynced: make(map[uuid.UUID]int),
	}
}

func (r *fakeStockRepo) DB() *gorm.DB { return nil }

func levelKey(warehouseID uuid.UUID, location, sku string) string {
	return warehouseID.String() + "|" + location + "|" + sku
}

func (r *fakeStockRepo) ListByWarehouse(_ context.Context, _ uuid.UUID) ([]model.SnapshotRow, error) {
	return r.rows, nil
}

func (r *fakeStockRepo) OverwriteQuantityTx(_ context.Context, _ *gorm.DB, warehouseID uuid.UUID, location string, _ model.CatalogRef, sku string, qty decimal.Decimal) error {
	if r.failOnSKU != "" && sku == r.failOnSKU {
		return errors.New("forced ledger failure")
	}
	r.levels[levelKey(warehouseID, location, sku)] = qty
	return nil
}

func (r *fakeStockRepo) CreateMovementTx(_ context.Context, _ *gorm.DB, m *model.StockMovement) error {
	r.movements = append(r.movements, *m)
	return nil
}

func (r *fakeStockRepo) ResyncMaterialStockTx(_ context.Context, _ *gorm.DB, materialID uuid.UUID) error {
	r.resynced[materialID]++
	return nil
}

// ── Harness ──────────────────────────────────────────────────────────────────

type testEnv struct {
	warehouses *fakeWarehouseRepo
	sessions   *fakeSessionRepo
	items      *fakeItemRepo
	stock      *fakeStockRepo

	sessionSvc SessionService
	countSvc   CountService
	reportSvc  ReportService

	warehouseID uuid.UUID
	actor       uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		warehouses:  newFakeWarehouseRepo(),
		sessions:    newFakeSessionRepo(),
		items:       newFakeItemRepo(),
		stock:       newFakeStockRepo(),
		warehouseID: uuid.New(),
		actor:       uuid.New(),
	}
	env.warehouses.warehouses[env.warehouseID] = &model.Warehouse{
		ID: env.warehouseID, Code: "CEN", Name: "Central", Active: true,
	}

	env.sessionSvc = NewSessionService(env.sessions, env.items, env.stock, env.warehouses, nil)
	env.countSvc = NewCountService(env.sessions, env.items)
	env.reportSvc = NewReportService(env.sessions, env.items)
	return env
}

// productRow seeds one product ledger row for the snapshot.
func productRow(sku, category, location string, qty, cost float64) model.SnapshotRow {
	pid := uuid.New()
	return model.SnapshotRow{
		Ref:         model.ProductRef(pid, nil),
		SKU:         sku,
		Description: "Item " + sku,
		Unit:        "unit",
		Category:    category,
		Location:    location,
		Quantity:    decimal.NewFromFloat(qty),
		UnitCost:    decimal.NewFromFloat(cost),
	}
}

// materialRow seeds one material ledger row for the snapshot.
func materialRow(sku, category, location string, qty, cost float64) model.SnapshotRow {
	mid := uuid.New()
	return model.SnapshotRow{
		Ref:         model.MaterialRef(mid),
		SKU:         sku,
		Description: "Material " + sku,
		Unit:        "kg",
		Category:    category,
		Location:    location,
		Quantity:    decimal.NewFromFloat(qty),
		UnitCost:    decimal.NewFromFloat(cost),
	}
}

type sessionOpts struct {
	requireDoubleCount bool
	allowBlindCount    bool
	filter             dto.SnapshotFilterRequest
}

// startedSession creates a session and starts it against the seeded ledger.
func (env *testEnv) startedSession(t *testing.T, opts sessionOpts) *dto.SessionResponse {
	t.Helper()
	ctx := context.Background()

	created, err := env.sessionSvc.CreateSession(ctx, env.actor, dto.CreateSessionRequest{
		WarehouseID:        env.warehouseID.String(),
		Name:               "Quarterly count",
		CountType:          "FULL",
		Filter:             opts.filter,
		RequireDoubleCount: opts.requireDoubleCount,
		AllowBlindCount:    opts.allowBlindCount,
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	id := uuid.MustParse(created.ID)
	started, err := env.sessionSvc.StartSession(ctx, id, env.actor)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	return started
}

// itemBySKU fetches a line directly from the fake store.
func (env *testEnv) itemBySKU(t *testing.T, sessionID uuid.UUID, sku string) *model.CountItem {
	t.Helper()
	item, err := env.items.FindBySessionAndSKU(context.Background(), sessionID, sku)
	if err != nil {
		t.Fatalf("item %s: %v", sku, err)
	}
	return item
}
