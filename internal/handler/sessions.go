package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"stocktake/internal/apierror"
	"stocktake/internal/dto"
	"stocktake/internal/middleware"
	"stocktake/internal/service"
)

type SessionsHandler struct{ svc service.SessionService }

func NewSessionsHandler(svc service.SessionService) *SessionsHandler {
	return &SessionsHandler{svc: svc}
}

// actorID extracts the acting user from the JWT claims.
func actorID(c *gin.Context) (uuid.UUID, bool) {
	claims := middleware.GetClaims(c)
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid user id in token"))
		return uuid.Nil, false
	}
	return id, true
}

func sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid session id"))
		return uuid.Nil, false
	}
	return id, true
}

// Create registers a new count session in DRAFT.
func (h *SessionsHandler) Create(c *gin.Context) {
	var req dto.CreateSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	actor, ok := actorID(c)
	if !ok {
		return
	}

	resp, err := h.svc.CreateSession(c.Request.Context(), actor, req)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// List returns sessions filtered by status / warehouse / type.
func (h *SessionsHandler) List(c *gin.Context) {
	var filter dto.SessionFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.ListSessions(c.Request.Context(), filter)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SessionsHandler) Get(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	resp, err := h.svc.GetSession(c.Request.Context(), id)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Start freezes the snapshot and opens the session for counting.
func (h *SessionsHandler) Start(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	actor, ok := actorID(c)
	if !ok {
		return
	}

	resp, err := h.svc.StartSession(c.Request.Context(), id, actor)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SessionsHandler) Submit(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	resp, err := h.svc.SubmitForReview(c.Request.Context(), id)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Complete applies the ledger adjustments and closes the session.
func (h *SessionsHandler) Complete(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	actor, ok := actorID(c)
	if !ok {
		return
	}
	// Every field defaults, so the body may be omitted entirely.
	var req dto.CompleteSessionRequest
	if c.Request.ContentLength > 0 && !bindAndValidate(c, &req) {
		return
	}

	resp, err := h.svc.CompleteSession(c.Request.Context(), id, actor, req)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SessionsHandler) Cancel(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var req dto.CancelSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}

	resp, err := h.svc.CancelSession(c.Request.Context(), id, req)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
