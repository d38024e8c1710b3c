package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/ujian-proctor/internal/model"
	"github.com/stemsi/ujian-proctor/internal/response"
	"github.com/stemsi/ujian-proctor/internal/service"
	"github.com/stemsi/ujian-proctor/internal/validator"
)

// LockHandler exposes session locks and the security event log to proctors.
type LockHandler struct {
	lockService  *service.SessionLockService
	eventService *service.SecurityEventService
}

// NewLockHandler creates a new LockHandler.
func NewLockHandler(lockService *service.SessionLockService, eventService *service.SecurityEventService) *LockHandler {
	return &LockHandler{lockService: lockService, eventService: eventService}
}

// ListActive godoc
// GET /api/v1/admin/locks/active?exam_id=
// Lists locks that are valid right now.
func (h *LockHandler) ListActive(c *gin.Context) {
	var examID *int
	if raw := c.Query("exam_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}
		examID = &id
	}

	locks, err := h.lockService.ListActive(c.Request.Context(), examID)
	if err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"locks": locks})
}

// Tokens godoc
// GET /api/v1/admin/locks/:id/tokens
func (h *LockHandler) Tokens(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	t, err := h.lockService.Tokens(c.Request.Context(), id)
	if err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusOK, t)
}

// Unlock godoc
// POST /api/v1/admin/locks/:id/unlock
// Every try is counted and audited, including wrong tokens.
func (h *LockHandler) Unlock(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req model.UnlockRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	st, err := h.lockService.Unlock(c.Request.Context(), id, req.UnlockToken, claims.UserID, clientInfo(c))
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Fail(c, http.StatusUnauthorized, response.ErrUnlockTokenInvalid)
			return
		}
		failService(c, err)
		return
	}
	response.Success(c, http.StatusOK, st)
}

// RegenerateTokens godoc
// POST /api/v1/admin/locks/:id/regenerate
func (h *LockHandler) RegenerateTokens(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	t, err := h.lockService.RegenerateTokens(c.Request.Context(), id, claims.UserID)
	if err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusOK, t)
}

type eventQuery struct {
	LockID   int   `form:"lock_id" binding:"omitempty,min=1"`
	BeforeID int64 `form:"before_id" binding:"omitempty,min=1"`
	Limit    int   `form:"limit" binding:"omitempty,min=1,max=500"`
}

// ListEvents godoc
// GET /api/v1/admin/security-events?lock_id=&before_id=&limit=
// Newest first. before_id pages further back.
func (h *LockHandler) ListEvents(c *gin.Context) {
	var q eventQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	f := model.SecurityEventFilter{Limit: q.Limit}
	if q.LockID > 0 {
		f.SessionLockID = &q.LockID
	}
	if q.BeforeID > 0 {
		f.BeforeID = &q.BeforeID
	}

	events, err := h.eventService.ListRecent(c.Request.Context(), f)
	if err != nil {
		failService(c, err)
		return
	}

	var next *int64
	if len(events) > 0 && len(events) == effectiveLimit(q.Limit) {
		last := events[len(events)-1].ID
		next = &last
	}
	response.Success(c, http.StatusOK, gin.H{"events": events, "next_before_id": next})
}

func effectiveLimit(limit int) int {
	if limit <= 0 {
		return service.DefaultEventLimit
	}
	return limit
}
