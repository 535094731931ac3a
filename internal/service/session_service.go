package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"stocktake/internal/dto"
	"stocktake/internal/model"
	"stocktake/internal/repository"
	"stocktake/internal/worker"
)

type SessionService interface {
	CreateSession(ctx context.Context, actorID uuid.UUID, req dto.CreateSessionRequest) (*dto.SessionResponse, error)
	GetSession(ctx context.Context, id uuid.UUID) (*dto.SessionResponse, error)
	ListSessions(ctx context.Context, filter dto.SessionFilter) (*dto.SessionListResponse, error)
	StartSession(ctx context.Context, id, actorID uuid.UUID) (*dto.SessionResponse, error)
	SubmitForReview(ctx context.Context, id uuid.UUID) (*dto.SessionResponse, error)
	CompleteSession(ctx context.Context, id, actorID uuid.UUID, req dto.CompleteSessionRequest) (*dto.SessionResponse, error)
	CancelSession(ctx context.Context, id uuid.UUID, req dto.CancelSessionRequest) (*dto.SessionResponse, error)
}

type sessionService struct {
	sessions   repository.SessionRepository
	items      repository.ItemRepository
	stock      repository.StockRepository
	warehouses repository.WarehouseRepository
	dispatcher *worker.Dispatcher
}

func NewSessionService(
	sessions repository.SessionRepository,
	items repository.ItemRepository,
	stock repository.StockRepository,
	warehouses repository.WarehouseRepository,
	dispatcher *worker.Dispatcher,
) SessionService {
	return &sessionService{
		sessions:   sessions,
		items:      items,
		stock:      stock,
		warehouses: warehouses,
		dispatcher: dispatcher,
	}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// ── CreateSession ─────────────────────────────────────────────────────────────

func (s *sessionService) CreateSession(ctx context.Context, actorID uuid.UUID, req dto.CreateSessionRequest) (*dto.SessionResponse, error) {
	warehouseID, err := uuid.Parse(req.WarehouseID)
	if err != nil {
		return nil, &ValidationError{Detail: "invalid warehouse_id"}
	}
	warehouse, err := s.warehouses.FindByID(ctx, warehouseID)
	if err != nil {
		return nil, &NotFoundError{Entity: "warehouse", ID: req.WarehouseID}
	}

	countType := model.CountType(req.CountType)
	if !countType.Valid() {
		return nil, &ValidationError{Detail: "invalid count_type: " + req.CountType}
	}
	scope := model.CountScope(req.Filter.Scope)
	if scope == "" {
		scope = model.ScopeAll
	}
	if !scope.Valid() {
		return nil, &ValidationError{Detail: "invalid filter scope: " + req.Filter.Scope}
	}

	var plannedDate *time.Time
	if req.PlannedDate != nil {
		d, err := time.Parse("2006-01-02", *req.PlannedDate)
		if err != nil {
			return nil, &ValidationError{Detail: "invalid planned_date"}
		}
		plannedDate = &d
	}

	code, err := s.generateSessionCode(ctx, warehouse.Code)
	if err != nil {
		return nil, fmt.Errorf("generate session code: %w", err)
	}

	session := &model.CountSession{
		ID:          uuid.New(),
		Code:        code,
		WarehouseID: warehouseID,
		Name:        req.Name,
		Description: req.Description,
		CountType:   countType,
		PlannedDate: plannedDate,
		Filter: model.SessionFilter{
			Categories: req.Filter.Categories,
			Locations:  req.Filter.Locations,
			SKUPrefix:  req.Filter.SKUPrefix,
			Scope:      scope,
		},
		RequireDoubleCount: req.RequireDoubleCount,
		FreezeInventory:    req.FreezeInventory,
		AllowBlindCount:    req.AllowBlindCount,
		Status:             model.SessionDraft,
		Notes:              req.Notes,
		CreatedBy:          actorID,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	log.Info().Str("code", code).Str("warehouse", warehouse.Code).Msg("count session created")
	resp := dto.NewSessionResponse(session)
	return &resp, nil
}

// generateSessionCode yields INV-{warehouseCode}-{year}-{seq:03}, seq strictly
// increasing per warehouse+year, derived from the highest existing suffix.
func (s *sessionService) generateSessionCode(ctx context.Context, warehouseCode string) (string, error) {
	prefix := fmt.Sprintf("INV-%s-%d-", warehouseCode, time.Now().Year())
	last, err := s.sessions.LastCodeWithPrefix(ctx, prefix)
	if err != nil {
		return "", err
	}

	seq := 1
	if last != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(last, prefix))
		if err != nil {
			return "", fmt.Errorf("malformed session code %q", last)
		}
		seq = n + 1
	}
	return fmt.Sprintf("%s%03d", prefix, seq), nil
}

// ── Read side ─────────────────────────────────────────────────────────────────

func (s *sessionService) GetSession(ctx context.Context, id uuid.UUID) (*dto.SessionResponse, error) {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		return nil, &NotFoundError{Entity: "session", ID: id.String()}
	}
	resp := dto.NewSessionResponse(session)
	return &resp, nil
}

func (s *sessionService) ListSessions(ctx context.Context, filter dto.SessionFilter) (*dto.SessionListResponse, error) {
	sessions, total, err := s.sessions.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.SessionResponse, 0, len(sessions))
	for i := range sessions {
		data = append(data, dto.NewSessionResponse(&sessions[i]))
	}
	return &dto.SessionListResponse{
		Data:  data,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

// ── StartSession ──────────────────────────────────────────────────────────────
// DRAFT → IN_PROGRESS. Freezes the snapshot: every ledger row matching the
// session filter becomes a NOT_COUNTED line with expected quantity and unit
// cost fixed as of this moment. One-shot — the transition guard means the
// snapshot can never run twice for the same session.

func (s *sessionService) StartSession(ctx context.Context, id, actorID uuid.UUID) (*dto.SessionResponse, error) {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		return nil, &NotFoundError{Entity: "session", ID: id.String()}
	}
	if !session.Status.CanTransitionTo(model.SessionInProgress) {
		return nil, &InvalidTransitionError{
			Entity: "session", ID: id.String(), Status: string(session.Status),
			Detail: "only DRAFT sessions can be started",
		}
	}

	rows, err := s.stock.ListByWarehouse(ctx, session.WarehouseID)
	if err != nil {
		return nil, fmt.Errorf("read stock ledger: %w", err)
	}
	items := buildSnapshot(session.ID, session.Filter, rows)
	if len(items) == 0 {
		return nil, &ValidationError{Detail: "session filter matches no stock lines"}
	}

	now := time.Now()
	session.Status = model.SessionInProgress
	session.TotalItems = len(items)
	session.StartedBy = &actorID
	session.StartedAt = &now

	txErr := runTx(ctx, s.sessions.DB(), func(tx *gorm.DB) error {
		if err := s.items.BulkCreateTx(ctx, tx, items); err != nil {
			return err
		}
		return s.sessions.UpdateTx(ctx, tx, session)
	})
	if txErr != nil {
		return nil, txErr
	}

	log.Info().Str("code", session.Code).Int("items", len(items)).Msg("count session started")
	resp := dto.NewSessionResponse(session)
	return &resp, nil
}

// ── SubmitForReview ───────────────────────────────────────────────────────────

func (s *sessionService) SubmitForReview(ctx context.Context, id uuid.UUID) (*dto.SessionResponse, error) {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		return nil, &NotFoundError{Entity: "session", ID: id.String()}
	}
	if session.Status != model.SessionInProgress {
		return nil, &InvalidTransitionError{
			Entity: "session", ID: id.String(), Status: string(session.Status),
			Detail: "only IN_PROGRESS sessions can be submitted for review",
		}
	}

	items, err := s.items.ListBySession(ctx, id)
	if err != nil {
		return nil, err
	}
	uncounted := 0
	for _, item := range items {
		if item.Status == model.ItemNotCounted {
			uncounted++
		}
	}
	if uncounted > 0 {
		return nil, &InvalidTransitionError{
			Entity: "session", ID: id.String(), Status: string(session.Status),
			Detail: fmt.Sprintf("%d items not yet counted", uncounted),
		}
	}

	session.Status = model.SessionPendingReview
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, err
	}
	resp := dto.NewSessionResponse(session)
	return &resp, nil
}

// ── CompleteSession ───────────────────────────────────────────────────────────
// IN_PROGRESS / PENDING_REVIEW → COMPLETED. Every line must be VERIFIED or
// RECONCILED. The ledger rewrite, the audit movements, the material resyncs
// and the status flip commit as one transaction — a failure anywhere rolls
// back everything so a half-applied count can never corrupt the ledger.

func (s *sessionService) CompleteSession(ctx context.Context, id, actorID uuid.UUID, req dto.CompleteSessionRequest) (*dto.SessionResponse, error) {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		return nil, &NotFoundError{Entity: "session", ID: id.String()}
	}
	if !session.Status.CanTransitionTo(model.SessionCompleted) {
		return nil, &InvalidTransitionError{
			Entity: "session", ID: id.String(), Status: string(session.Status),
			Detail: "session cannot be completed from this status",
		}
	}

	items, err := s.items.ListBySession(ctx, id)
	if err != nil {
		return nil, err
	}

	unresolved := 0
	for _, item := range items {
		switch {
		case item.Status == model.ItemNotCounted:
			unresolved++
		case item.Status == model.ItemCounted && session.RequireDoubleCount:
			unresolved++
		case item.Status == model.ItemDiscrepancy:
			unresolved++
		}
	}
	if unresolved > 0 {
		return nil, &InvalidTransitionError{
			Entity: "session", ID: id.String(), Status: string(session.Status),
			Detail: fmt.Sprintf("%d items still unresolved", unresolved),
		}
	}

	applyAdjustments := req.ApplyAdjustments == nil || *req.ApplyAdjustments

	now := time.Now()
	session.Status = model.SessionCompleted
	session.CompletedBy = &actorID
	session.CompletedAt = &now
	if req.Notes != "" {
		session.Notes = appendNote(session.Notes, req.Notes)
	}

	adjusted := 0
	txErr := runTx(ctx, s.sessions.DB(), func(tx *gorm.DB) error {
		if applyAdjustments {
			n, err := s.applyAdjustments(ctx, tx, session, items, actorID)
			if err != nil {
				return err
			}
			adjusted = n
		}
		return s.sessions.UpdateTx(ctx, tx, session)
	})
	if txErr != nil {
		return nil, txErr
	}

	log.Info().
		Str("code", session.Code).
		Int("adjusted", adjusted).
		Bool("apply_adjustments", applyAdjustments).
		Msg("count session completed")

	// Fire-and-forget: the session is already committed; report delivery
	// failures are retried from the DLQ, never bounced to the caller.
	if s.dispatcher != nil {
		payload := worker.ReportJobPayload{SessionID: session.ID.String()}
		if req.NotifyEmail != nil {
			payload.ToEmail = *req.NotifyEmail
		}
		if err := s.dispatcher.EnqueueReport(ctx, payload); err != nil {
			log.Error().Err(err).Str("code", session.Code).Msg("failed to enqueue variance report job")
		}
	}

	resp := dto.NewSessionResponse(session)
	return &resp, nil
}

// applyAdjustments rewrites the ledger to the reconciled quantities. One
// overwrite plus one audit movement per discrepant line; material aggregates
// resynced at the end. Must run inside the caller's transaction.
func (s *sessionService) applyAdjustments(ctx context.Context, tx *gorm.DB, session *model.CountSession, items []model.CountItem, actorID uuid.UUID) (int, error) {
	adjusted := 0
	materials := make(map[uuid.UUID]struct{})

	for i := range items {
		item := &items[i]
		if !item.HasVariance() || item.FinalQuantity == nil {
			continue
		}

		if err := s.stock.OverwriteQuantityTx(ctx, tx, session.WarehouseID, item.Location, item.Ref, item.SKU, *item.FinalQuantity); err != nil {
			return 0, fmt.Errorf("overwrite ledger for %s: %w", item.SKU, err)
		}

		direction := model.AdjustmentSurplus
		if item.Variance.IsNegative() {
			direction = model.AdjustmentShortfall
		}
		movement := &model.StockMovement{
			ID:          uuid.New(),
			Kind:        model.MovementAdjustment,
			WarehouseID: session.WarehouseID,
			Location:    item.Location,
			Ref:         item.Ref,
			SKU:         item.SKU,
			Quantity:    *item.Variance,
			Direction:   direction,
			Reference:   session.Code,
			Notes:       "physical count adjustment",
			ActorID:     actorID,
		}
		if err := s.stock.CreateMovementTx(ctx, tx, movement); err != nil {
			return 0, fmt.Errorf("append movement for %s: %w", item.SKU, err)
		}

		if item.Ref.IsMaterial() && item.Ref.MaterialID != nil {
			materials[*item.Ref.MaterialID] = struct{}{}
		}
		adjusted++
	}

	for materialID := range materials {
		if err := s.stock.ResyncMaterialStockTx(ctx, tx, materialID); err != nil {
			return 0, fmt.Errorf("resync material %s: %w", materialID, err)
		}
	}

	return adjusted, nil
}

// ── CancelSession ─────────────────────────────────────────────────────────────

func (s *sessionService) CancelSession(ctx context.Context, id uuid.UUID, req dto.CancelSessionRequest) (*dto.SessionResponse, error) {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		return nil, &NotFoundError{Entity: "session", ID: id.String()}
	}
	if !session.Status.CanTransitionTo(model.SessionCancelled) {
		return nil, &InvalidTransitionError{
			Entity: "session", ID: id.String(), Status: string(session.Status),
			Detail: "completed or cancelled sessions cannot be cancelled",
		}
	}

	now := time.Now()
	session.Status = model.SessionCancelled
	session.CancelledAt = &now
	session.Notes = appendNote(session.Notes, "cancelled: "+req.Reason)

	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, err
	}

	log.Info().Str("code", session.Code).Str("reason", req.Reason).Msg("count session cancelled")
	resp := dto.NewSessionResponse(session)
	return &resp, nil
}

func appendNote(existing, note string) string {
	if existing == "" {
		return note
	}
	return existing + "\n" + note
}
