package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocktake/internal/dto"
	"stocktake/internal/model"
)

func TestSingleCountSettlesImmediately(t *testing.T) {
	env := newTestEnv(t)
	env.stock.rows = []model.SnapshotRow{
		productRow("SKU-A", "drinks", "A-01", 100, 2),
		productRow("SKU-B", "drinks", "A-02", 30, 4),
	}
	ctx := context.Background()

	session := env.startedSession(t, sessionOpts{})
	sid := uuid.MustParse(session.ID)

	// Matching count → RECONCILED with zero variance
	a := env.itemBySKU(t, sid, "SKU-A")
	resp, err := env.countSvc.RecordCount(ctx, sid, a.ID, env.actor, dto.RecordCountRequest{
		Quantity: decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	assert.Equal(t, "RECONCILED", resp.Status)
	require.NotNil(t, resp.FinalQuantity)
	assert.True(t, resp.FinalQuantity.Equal(decimal.NewFromInt(100)))
	assert.True(t, resp.Variance.IsZero())

	// Deviating count → DISCREPANCY with final quantity and priced variance
	b := env.itemBySKU(t, sid, "SKU-B")
	resp, err = env.countSvc.RecordCount(ctx, sid, b.ID, env.actor, dto.RecordCountRequest{
		Quantity: decimal.NewFromInt(27),
	})
	require.NoError(t, err)
	assert.Equal(t, "DISCREPANCY", resp.Status)
	assert.True(t, resp.Variance.Equal(decimal.NewFromInt(-3)))
	assert.True(t, resp.VarianceValue.Equal(decimal.NewFromInt(12)), "3 units at cost 4")
}

// Scenario C: double count, both counts match the expectation.
func TestDoubleCountVerifiedWhenCountsAgree(t *testing.T) {
	env := newTestEnv(t)
	env.stock.rows = []model.SnapshotRow{productRow("SKU-A", "drinks", "A-01", 50, 2)}
	ctx := context.Background()

	session := env.startedSession(t, sessionOpts{requireDoubleCount: true})
	sid := uuid.MustParse(session.ID)
	item := env.itemBySKU(t, sid, "SKU-A")

	resp, err := env.countSvc.RecordCount(ctx, sid, item.ID, env.actor, dto.RecordCountRequest{
		Quantity: decimal.NewFromInt(50),
	})
	require.NoError(t, err)
	assert.Equal(t, "COUNTED", resp.Status)
	assert.Nil(t, resp.FinalQuantity, "final stays unset until verification")

	resp, err = env.countSvc.VerifyItem(ctx, sid, item.ID, env.actor, dto.VerifyItemRequest{
		Quantity: decimal.NewFromInt(50),
	})
	require.NoError(t, err)
	assert.Equal(t, "VERIFIED", resp.Status)
	require.NotNil(t, resp.Variance)
	assert.True(t, resp.Variance.IsZero())
}

// Counts agree with each other but not with the book → DISCREPANCY with the
// agreed value as final.
func TestDoubleCountAgreeingCountsWithVariance(t *testing.T) {
	env := newTestEnv(t)
	env.stock.rows = []model.SnapshotRow{productRow("SKU-A", "drinks", "A-01", 50, 2)}
	ctx := context.Background()

	session := env.startedSession(t, sessionOpts{requireDoubleCount: true})
	sid := uuid.MustParse(session.ID)
	item := env.itemBySKU(t, sid, "SKU-A")

	_, err := env.countSvc.RecordCount(ctx, sid, item.ID, env.actor, dto.RecordCountRequest{
		Quantity: decimal.NewFromInt(48),
	})
	require.NoError(t, err)

	resp, err := env.countSvc.VerifyItem(ctx, sid, item.ID, env.actor, dto.VerifyItemRequest{
		Quantity: decimal.NewFromInt(48),
	})
	require.NoError(t, err)
	assert.Equal(t, "DISCREPANCY", resp.Status)
	require.NotNil(t, resp.FinalQuantity)
	assert.True(t, resp.FinalQuantity.Equal(decimal.NewFromInt(48)))
	assert.True(t, resp.Variance.Equal(decimal.NewFromInt(-2)))
}

// Scenario D: the two counts disagree — no trustworthy value, final unset.
func TestDoubleCountDisagreeingCounts(t *testing.T) {
	env := newTestEnv(t)
	env.stock.rows = []model.SnapshotRow{productRow("SKU-A", "drinks", "A-01", 50, 2)}
	ctx := context.Background()

	session := env.startedSession(t, sessionOpts{requireDoubleCount: true})
	sid := uuid.MustParse(session.ID)
	item := env.itemBySKU(t, sid, "SKU-A")

	_, err := env.countSvc.RecordCount(ctx, sid, item.ID, env.actor, dto.RecordCountRequest{
		Quantity: decimal.NewFromInt(50),
	})
	require.NoError(t, err)

	resp, err := env.countSvc.VerifyItem(ctx, sid, item.ID, env.actor, dto.VerifyItemRequest{
		Quantity: decimal.NewFromInt(48),
	})
	require.NoError(t, err)
	assert.Equal(t, "DISCREPANCY", resp.Status)
	assert.Nil(t, resp.FinalQuantity)
	assert.Nil(t, resp.Variance)

	// Only reconciliation closes it
	resp, err = env.countSvc.ReconcileItem(ctx, sid, item.ID, env.actor, dto.ReconcileItemRequest{
		Quantity: decimal.NewFromInt(49),
		Reason:   "recount with supervisor present",
	})
	require.NoError(t, err)
	assert.Equal(t, "RECONCILED", resp.Status)
	assert.True(t, resp.FinalQuantity.Equal(decimal.NewFromInt(49)))
}

func TestVerifyRejectedOnSingleCountSession(t *testing.T) {
	env := newTestEnv(t)
	env.stock.rows = []model.SnapshotRow{productRow("SKU-A", "drinks", "A-01", 50, 2)}
	ctx := context.Background()

	session := env.startedSession(t, sessionOpts{})
	sid := uuid.MustParse(session.ID)
	item := env.itemBySKU(t, sid, "SKU-A")

	_, err := env.countSvc.VerifyItem(ctx, sid, item.ID, env.actor, dto.VerifyItemRequest{
		Quantity: decimal.NewFromInt(50),
	})
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
}

func TestVerifyRequiresCountedItem(t *testing.T) {
	env := newTestEnv(t)
	env.stock.rows = []model.SnapshotRow{productRow("SKU-A", "drinks", "A-01", 50, 2)}
	ctx := context.Background()

	session := env.startedSession(t, sessionOpts{requireDoubleCount: true})
	sid := uuid.MustParse(session.ID)
	item := env.itemBySKU(t, sid, "SKU-A")

	_, err := env.countSvc.VerifyItem(ctx, sid, item.ID, env.actor, dto.VerifyItemRequest{
		Quantity: decimal.NewFromInt(50),
	})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestDuplicateFirstCountRejected(t *testing.T) {
	env := newTestEnv(t)
	env.stock.rows = []model.SnapshotRow{productRow("SKU-A", "drinks", "A-01", 50, 2)}
	ctx := context.Background()

	session := env.startedSession(t, sessionOpts{})
	sid := uuid.MustParse(session.ID)
	item := env.itemBySKU(t, sid, "SKU-A")

	_, err := env.countSvc.RecordCount(ctx, sid, item.ID, env.actor, dto.RecordCountRequest{
		Quantity: decimal.NewFromInt(50),
	})
	require.NoError(t, err)

	_, err = env.countSvc.RecordCount(ctx, sid, item.ID, env.actor, dto.RecordCountRequest{
		Quantity: decimal.NewFromInt(51),
	})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestNegativeQuantityRejected(t *testing.T) {
	env := newTestEnv(t)
	env.stock.rows = []model.SnapshotRow{productRow("SKU-A", "drinks", "A-01", 50, 2)}
	ctx := context.Background()

	session := env.startedSession(t, sessionOpts{})
	sid := uuid.MustParse(session.ID)
	item := env.itemBySKU(t, sid, "SKU-A")

	_, err := env.countSvc.RecordCount(ctx, sid, item.ID, env.actor, dto.RecordCountRequest{
		Quantity: decimal.NewFromInt(-1),
	})
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestReconcileOverwritesAndConcatenatesReasons(t *testing.T) {
	env := newTestEnv(t)
	env.stock.rows = []model.SnapshotRow{productRow("SKU-A", "drinks", "A-01", 100, 2)}
	ctx := context.Background()

	session := env.startedSession(t, sessionOpts{})
	sid := uuid.MustParse(session.ID)
	item := env.itemBySKU(t, sid, "SKU-A")

	_, err := env.countSvc.RecordCount(ctx, sid, item.ID, env.actor, dto.RecordCountRequest{
		Quantity: decimal.NewFromInt(90),
	})
	require.NoError(t, err)

	_, err = env.countSvc.ReconcileItem(ctx, sid, item.ID, env.actor, dto.ReconcileItemRequest{
		Quantity: decimal.NewFromInt(92), Reason: "found pallet behind rack",
	})
	require.NoError(t, err)

	resp, err := env.countSvc.ReconcileItem(ctx, sid, item.ID, env.actor, dto.ReconcileItemRequest{
		Quantity: decimal.NewFromInt(93), Reason: "one more box in receiving",
	})
	require.NoError(t, err)

	assert.True(t, resp.FinalQuantity.Equal(decimal.NewFromInt(93)), "later call overwrites the final value")
	assert.Contains(t, resp.Notes, "found pallet behind rack")
	assert.Contains(t, resp.Notes, "one more box in receiving")
}

func TestBatchCountPartialFailure(t *testing.T) {
	env := newTestEnv(t)
	env.stock.rows = []model.SnapshotRow{productRow("SKU-A", "drinks", "A-01", 10, 1)}
	ctx := context.Background()

	session := env.startedSession(t, sessionOpts{})
	sid := uuid.MustParse(session.ID)

	resp, err := env.countSvc.BatchCount(ctx, sid, env.actor, dto.BatchCountRequest{
		Counts: []dto.BatchCountEntry{
			{SKU: "SKU-A", Quantity: decimal.NewFromInt(10)},
			{SKU: "UNKNOWN", Quantity: decimal.NewFromInt(3)},
		},
	})
	require.NoError(t, err, "per-row failures never abort the batch")
	assert.Equal(t, 1, resp.Success)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "UNKNOWN", resp.Errors[0].SKU)
	assert.NotEmpty(t, resp.Errors[0].Error)

	item := env.itemBySKU(t, sid, "SKU-A")
	assert.Equal(t, model.ItemReconciled, item.Status)
}

func TestBlindListingHidesExpectedQuantity(t *testing.T) {
	env := newTestEnv(t)
	env.stock.rows = []model.SnapshotRow{
		productRow("SKU-A", "drinks", "A-01", 10, 1),
		productRow("SKU-B", "drinks", "A-02", 20, 1),
	}
	ctx := context.Background()

	session := env.startedSession(t, sessionOpts{allowBlindCount: true})
	sid := uuid.MustParse(session.ID)

	a := env.itemBySKU(t, sid, "SKU-A")
	_, err := env.countSvc.RecordCount(ctx, sid, a.ID, env.actor, dto.RecordCountRequest{
		Quantity: decimal.NewFromInt(10),
	})
	require.NoError(t, err)

	resp, err := env.countSvc.ListItems(ctx, sid, dto.ItemFilter{Page: 1, Limit: 100})
	require.NoError(t, err)
	require.Len(t, resp.Data, 2)

	for _, line := range resp.Data {
		switch line.SKU {
		case "SKU-A":
			assert.NotNil(t, line.ExpectedQuantity, "counted lines show the expectation")
		case "SKU-B":
			assert.Nil(t, line.ExpectedQuantity, "blind mode hides uncounted expectations")
			assert.Nil(t, line.UnitCost)
		}
	}
}

func TestBlindDoubleCountHidesFirstCountFromVerifier(t *testing.T) {
	env := newTestEnv(t)
	env.stock.rows = []model.SnapshotRow{productRow("SKU-A", "drinks", "A-01", 50, 2)}
	ctx := context.Background()

	session := env.startedSession(t, sessionOpts{requireDoubleCount: true, allowBlindCount: true})
	sid := uuid.MustParse(session.ID)
	item := env.itemBySKU(t, sid, "SKU-A")

	_, err := env.countSvc.RecordCount(ctx, sid, item.ID, env.actor, dto.RecordCountRequest{
		Quantity: decimal.NewFromInt(48),
	})
	require.NoError(t, err)

	resp, err := env.countSvc.ListItems(ctx, sid, dto.ItemFilter{Page: 1, Limit: 100})
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)

	line := resp.Data[0]
	assert.Equal(t, "COUNTED", line.Status)
	assert.Nil(t, line.ExpectedQuantity, "verifier must not see the book quantity")
	assert.Nil(t, line.CountedQuantity, "verifier must not see the first count")
	assert.Nil(t, line.UnitCost)

	// Once verified the line is settled and everything is visible again.
	_, err = env.countSvc.VerifyItem(ctx, sid, item.ID, env.actor, dto.VerifyItemRequest{
		Quantity: decimal.NewFromInt(48),
	})
	require.NoError(t, err)

	resp, err = env.countSvc.ListItems(ctx, sid, dto.ItemFilter{Page: 1, Limit: 100})
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.NotNil(t, resp.Data[0].ExpectedQuantity)
	assert.NotNil(t, resp.Data[0].CountedQuantity)
}

func TestItemWritesCommitWithRollups(t *testing.T) {
	env := newTestEnv(t)
	env.stock.rows = []model.SnapshotRow{productRow("SKU-A", "drinks", "A-01", 50, 2)}
	ctx := context.Background()

	session := env.startedSession(t, sessionOpts{requireDoubleCount: true})
	sid := uuid.MustParse(session.ID)
	item := env.itemBySKU(t, sid, "SKU-A")

	_, err := env.countSvc.RecordCount(ctx, sid, item.ID, env.actor, dto.RecordCountRequest{
		Quantity: decimal.NewFromInt(48),
	})
	require.NoError(t, err)
	_, err = env.countSvc.VerifyItem(ctx, sid, item.ID, env.actor, dto.VerifyItemRequest{
		Quantity: decimal.NewFromInt(47),
	})
	require.NoError(t, err)
	_, err = env.countSvc.ReconcileItem(ctx, sid, item.ID, env.actor, dto.ReconcileItemRequest{
		Quantity: decimal.NewFromInt(47), Reason: "recount with supervisor",
	})
	require.NoError(t, err)

	// Each mutation persists the line through the transactional update path,
	// paired with its rollup refresh.
	assert.Equal(t, 3, env.items.txUpdates)
}

func TestRollupsRecomputedAfterEveryMutation(t *testing.T) {
	env := newTestEnv(t)
	env.stock.rows = []model.SnapshotRow{
		productRow("SKU-A", "drinks", "A-01", 10, 2),
		productRow("SKU-B", "drinks", "A-02", 20, 3),
		productRow("SKU-C", "snacks", "B-01", 5, 1),
	}
	ctx := context.Background()

	session := env.startedSession(t, sessionOpts{})
	sid := uuid.MustParse(session.ID)

	a := env.itemBySKU(t, sid, "SKU-A")
	_, err := env.countSvc.RecordCount(ctx, sid, a.ID, env.actor, dto.RecordCountRequest{
		Quantity: decimal.NewFromInt(10),
	})
	require.NoError(t, err)

	b := env.itemBySKU(t, sid, "SKU-B")
	_, err = env.countSvc.RecordCount(ctx, sid, b.ID, env.actor, dto.RecordCountRequest{
		Quantity: decimal.NewFromInt(18),
	})
	require.NoError(t, err)

	stored, err := env.sessions.FindByID(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.TotalItems)
	assert.Equal(t, 2, stored.CountedItems)
	assert.Equal(t, 1, stored.DiscrepancyCount)
	assert.True(t, stored.TotalVarianceValue.Equal(decimal.NewFromInt(6)), "2 units short at cost 3")
}

func TestCountingRejectedOutsideInProgress(t *testing.T) {
	env := newTestEnv(t)
	env.stock.rows = []model.SnapshotRow{productRow("SKU-A", "drinks", "A-01", 10, 1)}
	ctx := context.Background()

	created, err := env.sessionSvc.CreateSession(ctx, env.actor, dto.CreateSessionRequest{
		WarehouseID: env.warehouseID.String(),
		Name:        "Not yet started",
		CountType:   "FULL",
	})
	require.NoError(t, err)
	sid := uuid.MustParse(created.ID)

	_, err = env.countSvc.BatchCount(ctx, sid, env.actor, dto.BatchCountRequest{
		Counts: []dto.BatchCountEntry{{SKU: "SKU-A", Quantity: decimal.NewFromInt(1)}},
	})
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
}
