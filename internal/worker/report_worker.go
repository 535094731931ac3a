package worker

// report_worker.go
// Processes variance-report jobs from QueueReports.
// Renders the report PDF for archival and optionally mails it to the reviewer
// who completed the session.

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"stocktake/internal/dto"
	"stocktake/internal/infra"
	"stocktake/internal/repository"
)

// ReportJobPayload is the job envelope sent to QueueReports.
type ReportJobPayload struct {
	SessionID string `json:"session_id"`
	ToEmail   string `json:"to_email"`
}

// ReportWorker renders and delivers variance report PDFs.
type ReportWorker struct {
	rdb         *redis.Client
	sessions    repository.SessionRepository
	items       repository.ItemRepository
	mailer      *infra.Mailer
	storagePath string
}

func NewReportWorker(rdb *redis.Client, sessions repository.SessionRepository, items repository.ItemRepository, mailer *infra.Mailer, storagePath string) *ReportWorker {
	return &ReportWorker{
		rdb:         rdb,
		sessions:    sessions,
		items:       items,
		mailer:      mailer,
		storagePath: storagePath,
	}
}

// Process renders the PDF and mails it when a recipient was requested.
// Failures after the payload parses go to the DLQ so a completed session's
// report is never silently lost.
func (w *ReportWorker) Process(ctx context.Context, raw json.RawMessage) {
	var payload ReportJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("report_worker: invalid payload")
		return
	}

	sessionID, err := uuid.Parse(payload.SessionID)
	if err != nil {
		log.Error().Err(err).Str("session_id", payload.SessionID).Msg("report_worker: invalid session id")
		return
	}

	session, err := w.sessions.FindByID(ctx, sessionID)
	if err != nil {
		w.fail(ctx, raw, fmt.Sprintf("load session: %v", err))
		return
	}
	items, err := w.items.ListBySession(ctx, sessionID)
	if err != nil {
		w.fail(ctx, raw, fmt.Sprintf("load items: %v", err))
		return
	}

	report := dto.NewVarianceReport(session, items)
	pdfPath, err := infra.GenerateVarianceReportPDF(report, w.storagePath)
	if err != nil {
		w.fail(ctx, raw, fmt.Sprintf("render pdf: %v", err))
		return
	}
	log.Info().Str("session", session.Code).Str("pdf", pdfPath).Msg("report_worker: variance report rendered")

	if payload.ToEmail == "" {
		return
	}

	subject := fmt.Sprintf("Variance report %s", session.Code)
	body := fmt.Sprintf(
		"Stock count %s has been completed.\n\nLines counted: %d/%d\nLines with variance: %d\nTotal variance value: $%s\n\nThe full report is attached.",
		session.Code, session.CountedItems, session.TotalItems,
		session.DiscrepancyCount, session.TotalVarianceValue.StringFixed(2),
	)
	if err := w.mailer.SendReport(payload.ToEmail, subject, body, pdfPath); err != nil {
		w.fail(ctx, raw, fmt.Sprintf("send email: %v", err))
		return
	}
	log.Info().Str("to", payload.ToEmail).Str("session", session.Code).Msg("report_worker: report sent")
}

func (w *ReportWorker) fail(ctx context.Context, raw json.RawMessage, reason string) {
	log.Error().Str("reason", reason).Msg("report_worker: job failed")
	deadLetter(ctx, w.rdb, QueueReports, JobTypeReport, raw, reason)
}
