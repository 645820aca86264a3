package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperr "github.com/notewise/notewise-backend/internal/pkg/errors"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondDomainError maps the pipeline error taxonomy onto HTTP statuses.
func RespondDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrQuotaExceeded):
		RespondError(c, http.StatusTooManyRequests, "quota_exceeded", err)
	case errors.Is(err, apperr.ErrUnsupportedModality):
		RespondError(c, http.StatusUnsupportedMediaType, "unsupported_modality", err)
	case errors.Is(err, apperr.ErrExtractionFailed):
		RespondError(c, http.StatusUnprocessableEntity, "extraction_failed", err)
	case errors.Is(err, apperr.ErrAllFeaturesFailed):
		RespondError(c, http.StatusBadGateway, "generation_failed", err)
	case errors.Is(err, apperr.ErrJobNotFound), errors.Is(err, apperr.ErrNotFound):
		RespondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, apperr.ErrResultNotReady):
		RespondError(c, http.StatusConflict, "result_not_ready", err)
	case errors.Is(err, apperr.ErrJobFailed):
		RespondError(c, http.StatusUnprocessableEntity, "job_failed", err)
	case errors.Is(err, apperr.ErrUnauthorized):
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
	default:
		RespondError(c, http.StatusInternalServerError, "internal", err)
	}
}
