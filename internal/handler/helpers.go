package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/ujian-proctor/internal/middleware"
	"github.com/stemsi/ujian-proctor/internal/response"
	"github.com/stemsi/ujian-proctor/internal/service"
)

const (
	defaultPerPage = 20
	maxPerPage     = 200
)

// paramID parses a positive integer path parameter, writing a 400 on failure.
func paramID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return id, true
}

// pageParams reads page and per_page, clamped to sane bounds.
func pageParams(c *gin.Context) (page, perPage int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ = strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(defaultPerPage)))
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}

func pagination(page, perPage, total int) *response.Pagination {
	totalPages := (total + perPage - 1) / perPage
	return &response.Pagination{Page: page, PerPage: perPage, TotalItems: total, TotalPages: totalPages}
}

// clientInfo captures the request origin for locks and audit events.
func clientInfo(c *gin.Context) service.ClientInfo {
	return service.ClientInfo{
		IPAddress:          c.ClientIP(),
		UserAgent:          c.Request.UserAgent(),
		BrowserFingerprint: c.GetHeader("X-Browser-Fingerprint"),
	}
}

// requireClaims returns the JWT claims or writes a 401.
func requireClaims(c *gin.Context) (*service.Claims, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, false
	}
	return claims, true
}
