package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/ujian-proctor/internal/model"
	"github.com/stemsi/ujian-proctor/internal/response"
	"github.com/stemsi/ujian-proctor/internal/service"
	"github.com/stemsi/ujian-proctor/internal/validator"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService        *service.AuthService
	loginService       *service.LoginService
	participantService *service.ParticipantService
	examService        *service.ExamService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(
	authService *service.AuthService,
	loginService *service.LoginService,
	participantService *service.ParticipantService,
	examService *service.ExamService,
) *AuthHandler {
	return &AuthHandler{
		authService:        authService,
		loginService:       loginService,
		participantService: participantService,
		examService:        examService,
	}
}

// ParticipantLogin godoc
// POST /api/v1/auth/login
// Checks the exam PIN, resolves the participant by name (creating them from
// the roster on first login) and returns a JWT bound to the exam.
func (h *AuthHandler) ParticipantLogin(c *gin.Context) {
	var req model.LoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.loginService.LoginParticipant(c.Request.Context(), req.Name, req.PIN)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrParticipantNotFound)
			return
		}
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, res)
}

// GetParticipantProfile godoc
// GET /api/v1/auth/me
// Returns the authenticated participant and the exam their token is bound to.
func (h *AuthHandler) GetParticipantProfile(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}

	p, err := h.participantService.Get(c.Request.Context(), claims.UserID)
	if err != nil {
		failService(c, err)
		return
	}
	exam, err := h.examService.Get(c.Request.Context(), claims.ExamID)
	if err != nil {
		failService(c, err)
		return
	}
	exam.PIN = ""

	response.Success(c, http.StatusOK, gin.H{"participant": p, "exam": exam})
}

// ParticipantLogout godoc
// POST /api/v1/auth/logout
func (h *AuthHandler) ParticipantLogout(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}

	if err := h.authService.ResetParticipantSession(c.Request.Context(), claims.UserID); err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// AdminLogin godoc
// POST /api/v1/auth/admin/login
// Validates email + password, returns JWT with the role's permissions.
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req model.AdminLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.loginService.LoginAdmin(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token":       res.Token,
		"admin":       res.Admin,
		"permissions": res.Admin.Role.Permissions(),
	})
}

// GetAdminProfile godoc
// GET /api/v1/auth/admin/me
func (h *AuthHandler) GetAdminProfile(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}

	admin, err := h.loginService.GetAdmin(c.Request.Context(), claims.UserID)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"admin":       admin,
		"permissions": admin.Role.Permissions(),
	})
}
