package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stocktake/internal/service"
)

type ReportsHandler struct{ svc service.ReportService }

func NewReportsHandler(svc service.ReportService) *ReportsHandler {
	return &ReportsHandler{svc: svc}
}

// VarianceReport returns the reconciliation summary for a session at any
// point in its lifecycle.
func (h *ReportsHandler) VarianceReport(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	resp, err := h.svc.GenerateVarianceReport(c.Request.Context(), id)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
