package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/ujian-proctor/internal/model"
	"github.com/stemsi/ujian-proctor/internal/response"
	"github.com/stemsi/ujian-proctor/internal/service"
	"github.com/stemsi/ujian-proctor/internal/validator"
)

// AlertHandler accepts alerts posted by the exam page and relays them to the
// notification sink.
type AlertHandler struct {
	notificationService *service.NotificationService
}

// NewAlertHandler creates a new AlertHandler.
func NewAlertHandler(notificationService *service.NotificationService) *AlertHandler {
	return &AlertHandler{notificationService: notificationService}
}

// TelegramAlert godoc
// POST /api/v1/alerts/telegram
// Formats the alert, logs it and enqueues it for delivery. Delivery is
// asynchronous, so success only means the alert was accepted.
func (h *AlertHandler) TelegramAlert(c *gin.Context) {
	var req model.TelegramAlertRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	kind := h.notificationService.RelayAlert(c.Request.Context(), &req)
	response.Success(c, http.StatusOK, gin.H{"accepted": true, "kind": kind})
}

// ViolationAlert godoc
// POST /api/v1/alerts/violation
// Fallback used when the page cannot reach the relay: the alert is only logged.
func (h *AlertHandler) ViolationAlert(c *gin.Context) {
	var req model.TelegramAlertRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	h.notificationService.LogViolation(&req)
	response.Success(c, http.StatusOK, gin.H{"logged": true})
}
