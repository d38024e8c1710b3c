package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/ujian-proctor/internal/response"
	"github.com/stemsi/ujian-proctor/internal/service"
)

// failService writes the response for a service error. Unknown errors are
// attached to the gin context for the request log and reported as 500.
func failService(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
	case errors.Is(err, service.ErrSessionInvalidated):
		response.Fail(c, http.StatusUnauthorized, response.ErrSessionInvalidated)
	case errors.Is(err, service.ErrInvalidCode):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidCode)
	case errors.Is(err, service.ErrAlreadyUsed):
		response.Fail(c, http.StatusConflict, response.ErrAlreadyUsed)
	case errors.Is(err, service.ErrAlreadyFinished):
		response.Fail(c, http.StatusConflict, response.ErrAlreadyFinished)
	case errors.Is(err, service.ErrInvalidState):
		response.Fail(c, http.StatusConflict, response.ErrInvalidState)
	case errors.Is(err, service.ErrConflict):
		response.Fail(c, http.StatusConflict, response.ErrConflict)
	case errors.Is(err, service.ErrNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrAmbiguousExam):
		response.Fail(c, http.StatusInternalServerError, response.ErrAmbiguousExam)
	default:
		_ = c.Error(err)
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
