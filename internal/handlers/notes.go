package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/notewise/notewise-backend/internal/domain"
	"github.com/notewise/notewise-backend/internal/middleware"
	apperr "github.com/notewise/notewise-backend/internal/pkg/errors"
	"github.com/notewise/notewise-backend/internal/pkg/logger"
	"github.com/notewise/notewise-backend/internal/services"
)

// 25 MB upload ceiling, matching typical lecture recordings and scans.
const maxUploadBytes = 25 << 20

type NoteHandler struct {
	log     *logger.Logger
	jobSvc  services.JobService
	noteSvc services.NoteService
}

func NewNoteHandler(log *logger.Logger, jobSvc services.JobService, noteSvc services.NoteService) *NoteHandler {
	return &NoteHandler{
		log:     log.With("handler", "NoteHandler"),
		jobSvc:  jobSvc,
		noteSvc: noteSvc,
	}
}

type processRequest struct {
	Title    string   `json:"title"`
	Text     string   `json:"text"`
	Features []string `json:"features"`
}

// Process runs the pipeline synchronously and returns the finished note.
func (h *NoteHandler) Process(c *gin.Context) {
	account, ok := middleware.Account(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "unauthorized", apperr.ErrUnauthorized)
		return
	}
	in, err := h.bindInput(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	note, bundle, err := h.jobSvc.RunSync(c.Request.Context(), account, *in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{
		"note_id": note.ID,
		"title":   note.Title,
		"bundle":  bundle,
	})
}

// ProcessAsync queues a job and returns its id immediately.
func (h *NoteHandler) ProcessAsync(c *gin.Context) {
	account, ok := middleware.Account(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "unauthorized", apperr.ErrUnauthorized)
		return
	}
	in, err := h.bindInput(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	jobID, err := h.jobSvc.Submit(c.Request.Context(), account, *in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"job_id": jobID,
		"status": types.JobStatusPending,
	})
}

func (h *NoteHandler) Get(c *gin.Context) {
	account, ok := middleware.Account(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "unauthorized", apperr.ErrUnauthorized)
		return
	}
	noteID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("invalid note id"))
		return
	}
	note, err := h.noteSvc.Get(c.Request.Context(), account, noteID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, note)
}

func (h *NoteHandler) List(c *gin.Context) {
	account, ok := middleware.Account(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "unauthorized", apperr.ErrUnauthorized)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	notes, err := h.noteSvc.List(c.Request.Context(), account, limit, offset)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"notes": notes})
}

func (h *NoteHandler) Search(c *gin.Context) {
	account, ok := middleware.Account(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "unauthorized", apperr.ErrUnauthorized)
		return
	}
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("missing query parameter q"))
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	notes, err := h.noteSvc.Search(c.Request.Context(), account, query, limit)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"notes": notes})
}

func (h *NoteHandler) Delete(c *gin.Context) {
	account, ok := middleware.Account(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "unauthorized", apperr.ErrUnauthorized)
		return
	}
	noteID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("invalid note id"))
		return
	}
	if err := h.noteSvc.Delete(c.Request.Context(), account, noteID); err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": noteID})
}

// bindInput accepts either a multipart upload (file + title fields) or a
// JSON body with inline text.
func (h *NoteHandler) bindInput(c *gin.Context) (*services.ProcessInput, error) {
	ct := c.ContentType()
	if strings.HasPrefix(ct, "multipart/form-data") {
		return h.bindMultipart(c)
	}

	var req processRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, fmt.Errorf("invalid body: %w", err)
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("text is required")
	}
	return &services.ProcessInput{
		Title:    req.Title,
		Artifact: types.InputArtifact{Text: req.Text},
		Features: parseFeatures(req.Features),
	}, nil
}

func (h *NoteHandler) bindMultipart(c *gin.Context) (*services.ProcessInput, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("file is required: %w", err)
	}
	if fh.Size > maxUploadBytes {
		return nil, fmt.Errorf("file exceeds %d byte limit", maxUploadBytes)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) > maxUploadBytes {
		return nil, fmt.Errorf("file exceeds %d byte limit", maxUploadBytes)
	}

	return &services.ProcessInput{
		Title: c.PostForm("title"),
		Artifact: types.InputArtifact{
			Filename: fh.Filename,
			MimeType: fh.Header.Get("Content-Type"),
			Data:     data,
		},
		Features: parseFeatures(c.PostFormArray("features")),
	}, nil
}

func parseFeatures(raw []string) []types.Feature {
	out := make([]types.Feature, 0, len(raw))
	for _, f := range raw {
		out = append(out, types.Feature(strings.TrimSpace(f)))
	}
	return out
}
