package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"stocktake/internal/dto"
	"stocktake/internal/model"
	"stocktake/internal/repository"
)

type CountService interface {
	// RecordCount is the first-count submission for a line. Single-count
	// sessions settle immediately (RECONCILED or DISCREPANCY); double-count
	// sessions park the line in COUNTED until verification.
	RecordCount(ctx context.Context, sessionID, itemID, actorID uuid.UUID, req dto.RecordCountRequest) (*dto.ItemResponse, error)
	// VerifyItem is the second, independent count. Only valid on COUNTED
	// lines in double-count sessions.
	VerifyItem(ctx context.Context, sessionID, itemID, actorID uuid.UUID, req dto.VerifyItemRequest) (*dto.ItemResponse, error)
	// ReconcileItem is the only path out of DISCREPANCY. Re-callable: a later
	// call overwrites the final quantity, reasons concatenate.
	ReconcileItem(ctx context.Context, sessionID, itemID, actorID uuid.UUID, req dto.ReconcileItemRequest) (*dto.ItemResponse, error)
	// BatchCount applies RecordCount per SKU row, accumulating per-row
	// failures instead of aborting.
	BatchCount(ctx context.Context, sessionID, actorID uuid.UUID, req dto.BatchCountRequest) (*dto.BatchCountResponse, error)
	ListItems(ctx context.Context, sessionID uuid.UUID, filter dto.ItemFilter) (*dto.ItemListResponse, error)
}

type countService struct {
	sessions repository.SessionRepository
	items    repository.ItemRepository
}

func NewCountService(sessions repository.SessionRepository, items repository.ItemRepository) CountService {
	return &countService{sessions: sessions, items: items}
}

// loadSessionItem fetches the session and one of its lines, rejecting
// mismatched or terminal sessions up front.
func (s *countService) loadSessionItem(ctx context.Context, sessionID, itemID uuid.UUID) (*model.CountSession, *model.CountItem, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, nil, &NotFoundError{Entity: "session", ID: sessionID.String()}
	}
	item, err := s.items.FindByID(ctx, itemID)
	if err != nil || item.SessionID != sessionID {
		return nil, nil, &NotFoundError{Entity: "count item", ID: itemID.String()}
	}
	if session.Status.IsTerminal() {
		return nil, nil, &InvalidTransitionError{
			Entity: "session", ID: sessionID.String(), Status: string(session.Status),
			Detail: "session accepts no further counting",
		}
	}
	return session, item, nil
}

// ── RecordCount ───────────────────────────────────────────────────────────────

func (s *countService) RecordCount(ctx context.Context, sessionID, itemID, actorID uuid.UUID, req dto.RecordCountRequest) (*dto.ItemResponse, error) {
	if req.Quantity.IsNegative() {
		return nil, &ValidationError{Detail: "quantity cannot be negative"}
	}

	session, item, err := s.loadSessionItem(ctx, sessionID, itemID)
	if err != nil {
		return nil, err
	}
	if session.Status != model.SessionInProgress {
		return nil, &InvalidTransitionError{
			Entity: "session", ID: sessionID.String(), Status: string(session.Status),
			Detail: "counting is only allowed while the session is IN_PROGRESS",
		}
	}
	if item.Status != model.ItemNotCounted {
		return nil, &ConflictError{
			Detail: fmt.Sprintf("item %s already has a first count (status %s)", item.SKU, item.Status),
		}
	}

	applyFirstCount(session, item, req.Quantity, actorID)
	if req.Notes != "" {
		item.Notes = appendNote(item.Notes, req.Notes)
	}

	if err := s.commitItem(ctx, item, session); err != nil {
		return nil, err
	}

	resp := dto.NewItemResponse(item, false)
	return &resp, nil
}

// commitItem persists the mutated line together with the refreshed session
// rollups, so a reader never sees a counted line next to stale totals.
func (s *countService) commitItem(ctx context.Context, item *model.CountItem, session *model.CountSession) error {
	return runTx(ctx, s.sessions.DB(), func(tx *gorm.DB) error {
		if err := s.items.UpdateTx(ctx, tx, item); err != nil {
			return err
		}
		return s.refreshRollups(ctx, tx, session)
	})
}

// applyFirstCount mutates the line for a first-count submission.
func applyFirstCount(session *model.CountSession, item *model.CountItem, qty decimal.Decimal, actorID uuid.UUID) {
	now := time.Now()
	item.CountedQuantity = &qty
	item.CountedBy = &actorID
	item.CountedAt = &now

	if session.RequireDoubleCount {
		// Final quantity stays unset until the verification count agrees.
		item.Status = model.ItemCounted
		return
	}

	item.SetFinal(qty)
	if item.HasVariance() {
		item.Status = model.ItemDiscrepancy
	} else {
		item.Status = model.ItemReconciled
	}
}

// ── VerifyItem ────────────────────────────────────────────────────────────────

func (s *countService) VerifyItem(ctx context.Context, sessionID, itemID, actorID uuid.UUID, req dto.VerifyItemRequest) (*dto.ItemResponse, error) {
	if req.Quantity.IsNegative() {
		return nil, &ValidationError{Detail: "quantity cannot be negative"}
	}

	session, item, err := s.loadSessionItem(ctx, sessionID, itemID)
	if err != nil {
		return nil, err
	}
	if !session.RequireDoubleCount {
		return nil, &InvalidTransitionError{
			Entity: "session", ID: sessionID.String(), Status: string(session.Status),
			Detail: "session does not use double counting",
		}
	}
	if item.Status != model.ItemCounted {
		return nil, &ConflictError{
			Detail: fmt.Sprintf("item %s is not awaiting verification (status %s)", item.SKU, item.Status),
		}
	}

	now := time.Now()
	item.VerifiedQuantity = &req.Quantity
	item.VerifiedBy = &actorID
	item.VerifiedAt = &now

	if req.Quantity.Equal(*item.CountedQuantity) {
		// Counts agree — accept the value; discrepancy only against expected.
		item.SetFinal(req.Quantity)
		if item.HasVariance() {
			item.Status = model.ItemDiscrepancy
		} else {
			item.Status = model.ItemVerified
		}
	} else {
		// Two counts disagree: no trustworthy value exists yet, so the final
		// quantity stays unset and a supervisor must reconcile.
		item.Status = model.ItemDiscrepancy
	}
	if req.Notes != "" {
		item.Notes = appendNote(item.Notes, req.Notes)
	}

	if err := s.commitItem(ctx, item, session); err != nil {
		return nil, err
	}

	resp := dto.NewItemResponse(item, false)
	return &resp, nil
}

// ── ReconcileItem ─────────────────────────────────────────────────────────────

func (s *countService) ReconcileItem(ctx context.Context, sessionID, itemID, actorID uuid.UUID, req dto.ReconcileItemRequest) (*dto.ItemResponse, error) {
	if req.Quantity.IsNegative() {
		return nil, &ValidationError{Detail: "quantity cannot be negative"}
	}

	session, item, err := s.loadSessionItem(ctx, sessionID, itemID)
	if err != nil {
		return nil, err
	}
	if item.Status != model.ItemDiscrepancy && item.Status != model.ItemReconciled {
		return nil, &InvalidTransitionError{
			Entity: "count item", ID: itemID.String(), Status: string(item.Status),
			Detail: "only discrepant items can be reconciled",
		}
	}

	item.SetFinal(req.Quantity)
	item.Status = model.ItemReconciled
	item.Notes = appendNote(item.Notes, "reconciled: "+req.Reason)

	if err := s.commitItem(ctx, item, session); err != nil {
		return nil, err
	}

	resp := dto.NewItemResponse(item, false)
	return &resp, nil
}

// ── BatchCount ────────────────────────────────────────────────────────────────
// Scanner-driven path: rows fail independently so the device can retry only
// the rejected ones.

func (s *countService) BatchCount(ctx context.Context, sessionID, actorID uuid.UUID, req dto.BatchCountRequest) (*dto.BatchCountResponse, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, &NotFoundError{Entity: "session", ID: sessionID.String()}
	}
	if session.Status != model.SessionInProgress {
		return nil, &InvalidTransitionError{
			Entity: "session", ID: sessionID.String(), Status: string(session.Status),
			Detail: "counting is only allowed while the session is IN_PROGRESS",
		}
	}

	result := &dto.BatchCountResponse{Errors: []dto.BatchCountError{}}
	for _, row := range req.Counts {
		if err := s.applyBatchRow(ctx, session, row, actorID); err != nil {
			result.Errors = append(result.Errors, dto.BatchCountError{SKU: row.SKU, Error: err.Error()})
			continue
		}
		result.Success++
	}

	if result.Success > 0 {
		err := runTx(ctx, s.sessions.DB(), func(tx *gorm.DB) error {
			return s.refreshRollups(ctx, tx, session)
		})
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *countService) applyBatchRow(ctx context.Context, session *model.CountSession, row dto.BatchCountEntry, actorID uuid.UUID) error {
	if row.Quantity.IsNegative() {
		return &ValidationError{Detail: "quantity cannot be negative"}
	}
	item, err := s.items.FindBySessionAndSKU(ctx, session.ID, row.SKU)
	if err != nil {
		return &ValidationError{Detail: fmt.Sprintf("sku %s not in session", row.SKU)}
	}
	if item.Status != model.ItemNotCounted {
		return &ConflictError{
			Detail: fmt.Sprintf("item %s already has a first count (status %s)", item.SKU, item.Status),
		}
	}

	applyFirstCount(session, item, row.Quantity, actorID)
	if row.Notes != "" {
		item.Notes = appendNote(item.Notes, row.Notes)
	}
	return s.items.Update(ctx, item)
}

// ── ListItems ─────────────────────────────────────────────────────────────────

func (s *countService) ListItems(ctx context.Context, sessionID uuid.UUID, filter dto.ItemFilter) (*dto.ItemListResponse, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, &NotFoundError{Entity: "session", ID: sessionID.String()}
	}

	items, total, err := s.items.ListBySessionPaged(ctx, sessionID, filter)
	if err != nil {
		return nil, err
	}

	data := make([]dto.ItemResponse, 0, len(items))
	for i := range items {
		data = append(data, dto.NewItemResponse(&items[i], session.AllowBlindCount))
	}
	return &dto.ItemListResponse{
		Data:  data,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

// ── Rollups ───────────────────────────────────────────────────────────────────
// Full recomputation from the current item set rather than counter deltas —
// idempotent, so concurrent writers can each run it and converge on the same
// figures. Fine at session sizes in the low thousands of lines.

func (s *countService) refreshRollups(ctx context.Context, tx *gorm.DB, session *model.CountSession) error {
	items, err := s.items.ListBySession(ctx, session.ID)
	if err != nil {
		return err
	}

	counted := 0
	discrepancies := 0
	totalValue := decimal.Zero
	for _, item := range items {
		if item.Status != model.ItemNotCounted {
			counted++
		}
		if item.HasVariance() {
			discrepancies++
		}
		if item.VarianceValue != nil {
			totalValue = totalValue.Add(*item.VarianceValue)
		}
	}

	session.TotalItems = len(items)
	session.CountedItems = counted
	session.DiscrepancyCount = discrepancies
	session.TotalVarianceValue = totalValue
	return s.sessions.UpdateTx(ctx, tx, session)
}
