package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/notewise/notewise-backend/internal/middleware"
	apperr "github.com/notewise/notewise-backend/internal/pkg/errors"
	"github.com/notewise/notewise-backend/internal/pkg/logger"
	"github.com/notewise/notewise-backend/internal/services"
)

type JobHandler struct {
	log    *logger.Logger
	jobSvc services.JobService
}

func NewJobHandler(log *logger.Logger, jobSvc services.JobService) *JobHandler {
	return &JobHandler{
		log:    log.With("handler", "JobHandler"),
		jobSvc: jobSvc,
	}
}

func (h *JobHandler) Status(c *gin.Context) {
	account, ok := middleware.Account(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "unauthorized", apperr.ErrUnauthorized)
		return
	}
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("invalid job id"))
		return
	}

	snap, err := h.jobSvc.GetStatus(c.Request.Context(), account, jobID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, snap)
}

func (h *JobHandler) Result(c *gin.Context) {
	account, ok := middleware.Account(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "unauthorized", apperr.ErrUnauthorized)
		return
	}
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("invalid job id"))
		return
	}

	result, err := h.jobSvc.GetResult(c.Request.Context(), account, jobID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, result)
}
