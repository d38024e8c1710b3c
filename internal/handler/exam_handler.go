package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/ujian-proctor/internal/model"
	"github.com/stemsi/ujian-proctor/internal/response"
	"github.com/stemsi/ujian-proctor/internal/service"
	"github.com/stemsi/ujian-proctor/internal/validator"
)

// ExamHandler handles exam, access code and attempt administration.
type ExamHandler struct {
	examService    *service.ExamService
	attemptService *service.AttemptService
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(examService *service.ExamService, attemptService *service.AttemptService) *ExamHandler {
	return &ExamHandler{
		examService:    examService,
		attemptService: attemptService,
	}
}

// ListExams godoc
// GET /api/v1/admin/exams
func (h *ExamHandler) ListExams(c *gin.Context) {
	exams, err := h.examService.List(c.Request.Context())
	if err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"exams": exams})
}

// CreateExam godoc
// POST /api/v1/admin/exams
// Two active exams may not share a PIN.
func (h *ExamHandler) CreateExam(c *gin.Context) {
	var req model.CreateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	e, err := h.examService.Create(c.Request.Context(), &req)
	if err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"exam": e})
}

// SetExamActive godoc
// PATCH /api/v1/admin/exams/:id/active
func (h *ExamHandler) SetExamActive(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req model.SetExamActiveRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	e, err := h.examService.SetActive(c.Request.Context(), id, *req.Active)
	if err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"exam": e})
}

// GenerateCodes godoc
// POST /api/v1/admin/exams/:id/codes
func (h *ExamHandler) GenerateCodes(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req model.GenerateCodesRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	length := req.Length
	if length == 0 {
		length = service.DefaultAccessCodeLength
	}

	codes, err := h.examService.GenerateCodes(c.Request.Context(), id, req.Count, length)
	if err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"exam_id": id, "codes": codes})
}

// ListCodes godoc
// GET /api/v1/admin/exams/:id/codes?used=
func (h *ExamHandler) ListCodes(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var used *bool
	if raw := c.Query("used"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
				"used": "used must be true or false",
			})
			return
		}
		used = &b
	}

	codes, err := h.examService.ListCodes(c.Request.Context(), id, used)
	if err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"codes": codes})
}

// ListAttempts godoc
// GET /api/v1/admin/exams/:id/attempts?status=
func (h *ExamHandler) ListAttempts(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	status := c.Query("status")
	switch model.AttemptStatus(status) {
	case "", model.AttemptStarted, model.AttemptFinished, model.AttemptDisqualified:
	default:
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
			"status": "status must be one of [started finished disqualified]",
		})
		return
	}

	page, perPage := pageParams(c)
	items, total, err := h.attemptService.ListByExam(c.Request.Context(), id, status, page, perPage)
	if err != nil {
		failService(c, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"attempts": items}, pagination(page, perPage, total))
}

// BulkTransition godoc
// POST /api/v1/admin/attempts/transition
// Disqualifies or resets many attempts and reports how many changed.
func (h *ExamHandler) BulkTransition(c *gin.Context) {
	var req model.BulkTransitionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	n, err := h.attemptService.BulkTransition(c.Request.Context(), req.AttemptIDs, req.Status)
	if err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": req.Status, "updated": n})
}
