package service

import (
	"context"

	"github.com/google/uuid"

	"stocktake/internal/dto"
	"stocktake/internal/repository"
)

type ReportService interface {
	// GenerateVarianceReport is a pure read — usable at any session status.
	// Before completion it reflects only the lines finalized so far.
	GenerateVarianceReport(ctx context.Context, sessionID uuid.UUID) (*dto.VarianceReportResponse, error)
}

type reportService struct {
	sessions repository.SessionRepository
	items    repository.ItemRepository
}

func NewReportService(sessions repository.SessionRepository, items repository.ItemRepository) ReportService {
	return &reportService{sessions: sessions, items: items}
}

func (s *reportService) GenerateVarianceReport(ctx context.Context, sessionID uuid.UUID) (*dto.VarianceReportResponse, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, &NotFoundError{Entity: "session", ID: sessionID.String()}
	}
	items, err := s.items.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return dto.NewVarianceReport(session, items), nil
}
