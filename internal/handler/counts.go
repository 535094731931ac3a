package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"stocktake/internal/apierror"
	"stocktake/internal/dto"
	"stocktake/internal/service"
)

type CountsHandler struct{ svc service.CountService }

func NewCountsHandler(svc service.CountService) *CountsHandler {
	return &CountsHandler{svc: svc}
}

func itemID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("itemID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid item id"))
		return uuid.Nil, false
	}
	return id, true
}

// ListItems returns the session's count lines. Blind sessions omit the
// expected quantity on lines not yet counted.
func (h *CountsHandler) ListItems(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	var filter dto.ItemFilter
	if !bindQuery(c, &filter) {
		return
	}

	resp, err := h.svc.ListItems(c.Request.Context(), sid, filter)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Count records the first count for a line.
func (h *CountsHandler) Count(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	iid, ok := itemID(c)
	if !ok {
		return
	}
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.RecordCountRequest
	if !bindAndValidate(c, &req) {
		return
	}

	resp, err := h.svc.RecordCount(c.Request.Context(), sid, iid, actor, req)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Verify records the second, independent count for a double-count line.
func (h *CountsHandler) Verify(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	iid, ok := itemID(c)
	if !ok {
		return
	}
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.VerifyItemRequest
	if !bindAndValidate(c, &req) {
		return
	}

	resp, err := h.svc.VerifyItem(c.Request.Context(), sid, iid, actor, req)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Reconcile settles a discrepant line with a supervisor-chosen quantity.
func (h *CountsHandler) Reconcile(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	iid, ok := itemID(c)
	if !ok {
		return
	}
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.ReconcileItemRequest
	if !bindAndValidate(c, &req) {
		return
	}

	resp, err := h.svc.ReconcileItem(c.Request.Context(), sid, iid, actor, req)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// BatchCount is the scanner upload path — per-row failures are reported in
// the response body, the call itself succeeds.
func (h *CountsHandler) BatchCount(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.BatchCountRequest
	if !bindAndValidate(c, &req) {
		return
	}

	resp, err := h.svc.BatchCount(c.Request.Context(), sid, actor, req)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
