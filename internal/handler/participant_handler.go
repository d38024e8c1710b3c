package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/ujian-proctor/internal/model"
	"github.com/stemsi/ujian-proctor/internal/response"
	"github.com/stemsi/ujian-proctor/internal/service"
	"github.com/stemsi/ujian-proctor/internal/validator"
)

// ParticipantHandler handles participant-facing endpoints: code redemption,
// answer submission, violation reports and the session lock.
type ParticipantHandler struct {
	redemptionService *service.RedemptionService
	attemptService    *service.AttemptService
	lockService       *service.SessionLockService
}

// NewParticipantHandler creates a new ParticipantHandler.
func NewParticipantHandler(
	redemptionService *service.RedemptionService,
	attemptService *service.AttemptService,
	lockService *service.SessionLockService,
) *ParticipantHandler {
	return &ParticipantHandler{
		redemptionService: redemptionService,
		attemptService:    attemptService,
		lockService:       lockService,
	}
}

// Redeem godoc
// POST /api/v1/participant/redeem
// Exchanges an access code for the participant's attempt and session lock.
// Only codes of the exam the participant logged in to are accepted.
func (h *ParticipantHandler) Redeem(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}

	var req model.RedeemRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.redemptionService.Redeem(c.Request.Context(), service.RedeemInput{
		Code:          req.Code,
		ParticipantID: claims.UserID,
		ExamID:        claims.ExamID,
		Client:        clientInfo(c),
	})
	if err != nil {
		failService(c, err)
		return
	}

	res.Exam.PIN = ""
	response.Success(c, http.StatusOK, res)
}

// GetAttempt godoc
// GET /api/v1/participant/attempts/:id
func (h *ParticipantHandler) GetAttempt(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	a, err := h.attemptService.GetOwned(c.Request.Context(), id, claims.UserID)
	if err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"attempt": a})
}

// SubmitAnswers godoc
// POST /api/v1/participant/attempts/:id/submit
// Stores the answers and finishes the attempt. A finished or disqualified
// attempt cannot be submitted again.
func (h *ParticipantHandler) SubmitAnswers(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req model.SubmitAnswersRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	a, err := h.attemptService.SubmitAnswers(c.Request.Context(), id, claims.UserID, req.Answers)
	if err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"attempt": a})
}

// ReportViolation godoc
// POST /api/v1/participant/attempts/:id/violations
// Records a violation. The attempt stays started.
func (h *ParticipantHandler) ReportViolation(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req model.ReportViolationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	a, err := h.attemptService.ReportViolation(c.Request.Context(), service.ViolationInput{
		AttemptID:     id,
		ParticipantID: claims.UserID,
		Type:          req.Type,
		Detail:        req.Detail,
		Client:        clientInfo(c),
	})
	if err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"attempt_id":    a.ID,
		"exit_attempts": a.ExitAttempts,
		"status":        a.Status,
	})
}

// Consent godoc
// POST /api/v1/participant/lock/consent
func (h *ParticipantHandler) Consent(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}

	var req model.ConsentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	client := clientInfo(c)
	if req.BrowserFingerprint != "" {
		client.BrowserFingerprint = req.BrowserFingerprint
	}

	st, err := h.lockService.Consent(c.Request.Context(), service.ConsentInput{
		SessionToken:     req.SessionToken,
		ParticipantID:    claims.UserID,
		ScreenResolution: req.ScreenResolution,
		Client:           client,
	})
	if err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusOK, st)
}

// Engage godoc
// POST /api/v1/participant/lock/engage
func (h *ParticipantHandler) Engage(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}

	var req model.SessionTokenRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	st, err := h.lockService.Engage(c.Request.Context(), req.SessionToken, claims.UserID, clientInfo(c))
	if err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusOK, st)
}

// LockStatus godoc
// GET /api/v1/participant/lock/status?session_token=
// Validity is recomputed from the lock and its attempt on every call.
func (h *ParticipantHandler) LockStatus(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}

	token := c.Query("session_token")
	if token == "" {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
			"session_token": "session_token is a required field",
		})
		return
	}

	st, err := h.lockService.Status(c.Request.Context(), token, claims.UserID, clientInfo(c))
	if err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusOK, st)
}
