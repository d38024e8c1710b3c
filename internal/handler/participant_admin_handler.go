package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/ujian-proctor/internal/model"
	"github.com/stemsi/ujian-proctor/internal/response"
	"github.com/stemsi/ujian-proctor/internal/service"
	"github.com/stemsi/ujian-proctor/internal/validator"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ParticipantAdminHandler handles admin-facing participant management.
type ParticipantAdminHandler struct {
	participantService *service.ParticipantService
	authService        *service.AuthService
}

// NewParticipantAdminHandler creates a new ParticipantAdminHandler.
func NewParticipantAdminHandler(
	participantService *service.ParticipantService,
	authService *service.AuthService,
) *ParticipantAdminHandler {
	return &ParticipantAdminHandler{
		participantService: participantService,
		authService:        authService,
	}
}

// ListParticipants godoc
// GET /api/v1/admin/participants
// Lists participants with their attempt counts, optionally filtered by a name search.
func (h *ParticipantAdminHandler) ListParticipants(c *gin.Context) {
	page, perPage := pageParams(c)

	items, total, err := h.participantService.List(c.Request.Context(), c.Query("search"), page, perPage)
	if err != nil {
		failService(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"participants": items}, pagination(page, perPage, total))
}

// CreateParticipant godoc
// POST /api/v1/admin/participants
func (h *ParticipantAdminHandler) CreateParticipant(c *gin.Context) {
	var req model.CreateParticipantRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	p, err := h.participantService.Create(c.Request.Context(), &req)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"participant": p})
}

// ImportRoster godoc
// POST /api/v1/admin/participants/import
// Creates a participant for every roster entry not yet in the directory.
func (h *ParticipantAdminHandler) ImportRoster(c *gin.Context) {
	res, err := h.participantService.ImportRoster(c.Request.Context())
	if err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// ExportParticipants godoc
// GET /api/v1/admin/participants/export
// Streams all participants as an XLSX workbook.
func (h *ParticipantAdminHandler) ExportParticipants(c *gin.Context) {
	// Buffer first so a failure can still produce a JSON error.
	var buf bytes.Buffer
	if err := h.participantService.ExportXLSX(c.Request.Context(), &buf); err != nil {
		failService(c, err)
		return
	}

	filename := fmt.Sprintf("peserta-%s.xlsx", time.Now().Format("20060102-150405"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ResetSession godoc
// POST /api/v1/admin/participants/:id/reset-session
// Clears a participant's active session, allowing them to log in on a new device.
func (h *ParticipantAdminHandler) ResetSession(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.authService.ResetParticipantSession(c.Request.Context(), id); err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "sesi peserta berhasil direset"})
}
