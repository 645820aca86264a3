package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/notewise/notewise-backend/internal/agents"
	"github.com/notewise/notewise-backend/internal/data/repos"
	types "github.com/notewise/notewise-backend/internal/domain"
	"github.com/notewise/notewise-backend/internal/gate"
	"github.com/notewise/notewise-backend/internal/ingestion"
	"github.com/notewise/notewise-backend/internal/jobs/notegen"
	"github.com/notewise/notewise-backend/internal/pkg/dbctx"
	apperr "github.com/notewise/notewise-backend/internal/pkg/errors"
	"github.com/notewise/notewise-backend/internal/pkg/logger"
)

// ProcessInput is one note submission, sync or async.
type ProcessInput struct {
	Title    string
	Artifact types.InputArtifact
	Features []types.Feature
}

// StatusSnapshot is the polling view of a job.
type StatusSnapshot struct {
	JobID    uuid.UUID       `json:"job_id"`
	Status   types.JobStatus `json:"status"`
	Stage    string          `json:"stage,omitempty"`
	Progress int             `json:"progress"`
	Error    string          `json:"error,omitempty"`
}

type JobService interface {
	// Submit consumes quota, freezes the feature decision into a pending
	// job row and returns its id. The worker picks it up asynchronously.
	Submit(ctx context.Context, account types.AccountContext, in ProcessInput) (uuid.UUID, error)

	// RunSync executes the whole pipeline inline and persists the note.
	// No job row is created.
	RunSync(ctx context.Context, account types.AccountContext, in ProcessInput) (*types.Note, *types.Bundle, error)

	GetStatus(ctx context.Context, account types.AccountContext, jobID uuid.UUID) (*StatusSnapshot, error)
	GetResult(ctx context.Context, account types.AccountContext, jobID uuid.UUID) (*notegen.Result, error)
}

type jobService struct {
	log        *logger.Logger
	db         *gorm.DB
	rdb        *redis.Client
	repos      *repos.Repos
	gate       gate.Gate
	normalizer ingestion.Normalizer
	pipeline   agents.Pipeline
	notify     JobNotifier
}

const statusCacheTTL = 2 * time.Second

func NewJobService(
	log *logger.Logger,
	db *gorm.DB,
	rdb *redis.Client,
	r *repos.Repos,
	g gate.Gate,
	normalizer ingestion.Normalizer,
	pipeline agents.Pipeline,
	notify JobNotifier,
) JobService {
	return &jobService{
		log:        log.With("service", "JobService"),
		db:         db,
		rdb:        rdb,
		repos:      r,
		gate:       g,
		normalizer: normalizer,
		pipeline:   pipeline,
		notify:     notify,
	}
}

func (s *jobService) Submit(ctx context.Context, account types.AccountContext, in ProcessInput) (uuid.UUID, error) {
	// Unsupported input is rejected before the gate runs: no quota is
	// consumed and no job row is created for content that can never be
	// extracted.
	if _, ok := ingestion.DetectModality(&in.Artifact); !ok {
		return uuid.Nil, fmt.Errorf("%w: name=%q mime=%q declared=%q",
			apperr.ErrUnsupportedModality, in.Artifact.Filename, in.Artifact.MimeType, in.Artifact.Declared)
	}

	decision, err := s.gate.Decide(ctx, account, in.Features)
	if err != nil {
		return uuid.Nil, err
	}

	payload, err := json.Marshal(notegen.Payload{
		UserID:   account.AccountID,
		Title:    in.Title,
		Artifact: in.Artifact,
		Decision: decision,
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("encode payload: %w", err)
	}

	run := &types.JobRun{
		OwnerUserID: account.AccountID,
		JobType:     types.JobTypeNoteGeneration,
		Payload:     datatypes.JSON(payload),
	}
	if err := s.repos.JobRun.Create(s.dbc(ctx), run); err != nil {
		return uuid.Nil, fmt.Errorf("create job: %w", err)
	}

	s.log.Info("job queued",
		"job_id", run.ID.String(),
		"user_id", account.AccountID.String(),
		"model", decision.Model,
	)
	if s.notify != nil {
		s.notify.JobQueued(account.AccountID, run)
	}
	return run.ID, nil
}

func (s *jobService) RunSync(ctx context.Context, account types.AccountContext, in ProcessInput) (*types.Note, *types.Bundle, error) {
	normalized, err := s.normalizer.Normalize(ctx, &in.Artifact)
	if err != nil {
		return nil, nil, err
	}

	decision, err := s.gate.Decide(ctx, account, in.Features)
	if err != nil {
		return nil, nil, err
	}

	bundle, err := s.pipeline.Generate(ctx, normalized.ProcessedText, decision, nil)
	if err != nil {
		return nil, nil, err
	}
	bundle.RawText = normalized.RawText

	note, err := s.saveNote(ctx, account.AccountID, in, normalized, bundle)
	if err != nil {
		return nil, nil, err
	}
	return note, bundle, nil
}

func (s *jobService) GetStatus(ctx context.Context, account types.AccountContext, jobID uuid.UUID) (*StatusSnapshot, error) {
	if snap := s.cachedStatus(ctx, account.AccountID, jobID); snap != nil {
		return snap, nil
	}

	run, err := s.repos.JobRun.GetByIDForUser(s.dbc(ctx), jobID, account.AccountID)
	if err != nil {
		return nil, err
	}
	snap := &StatusSnapshot{
		JobID:    run.ID,
		Status:   run.Status,
		Stage:    run.Stage,
		Progress: run.Progress,
		Error:    run.Error,
	}
	s.cacheStatus(ctx, account.AccountID, snap)
	return snap, nil
}

func (s *jobService) GetResult(ctx context.Context, account types.AccountContext, jobID uuid.UUID) (*notegen.Result, error) {
	run, err := s.repos.JobRun.GetByIDForUser(s.dbc(ctx), jobID, account.AccountID)
	if err != nil {
		return nil, err
	}
	switch run.Status {
	case types.JobStatusCompleted:
	case types.JobStatusFailed:
		return nil, fmt.Errorf("%w: %s", apperr.ErrJobFailed, run.Error)
	default:
		return nil, fmt.Errorf("%w: status=%s", apperr.ErrResultNotReady, run.Status)
	}

	var result notegen.Result
	if err := json.Unmarshal(run.Result, &result); err != nil {
		return nil, fmt.Errorf("decode stored result: %w", err)
	}
	return &result, nil
}

func (s *jobService) saveNote(ctx context.Context, userID uuid.UUID, in ProcessInput, normalized *types.NormalizedText, bundle *types.Bundle) (*types.Note, error) {
	now := time.Now().UTC()
	note := &types.Note{
		UserID:        userID,
		Title:         in.Title,
		Modality:      normalized.Modality,
		Filename:      in.Artifact.Filename,
		RawText:       normalized.RawText,
		ProcessedText: normalized.ProcessedText,
		Summary:       bundle.Summary,
		ProcessedAt:   &now,
	}
	if note.Title == "" {
		note.Title = "Untitled note"
	}

	var err error
	if note.Summaries, err = toJSON(bundle.Summaries); err != nil {
		return nil, err
	}
	if note.Questions, err = toJSON(bundle.Questions); err != nil {
		return nil, err
	}
	if note.MCQs, err = toJSON(bundle.MCQs); err != nil {
		return nil, err
	}
	if note.Review, err = toJSON(bundle.Review); err != nil {
		return nil, err
	}

	if err := s.repos.Note.Create(s.dbc(ctx), note); err != nil {
		return nil, fmt.Errorf("persist note: %w", err)
	}
	return note, nil
}

func toJSON(v any) (datatypes.JSON, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

// Cache keys are scoped to the owner so a snapshot can never leak across
// accounts.
func statusCacheKey(userID, jobID uuid.UUID) string {
	return "notewise:job_status:" + userID.String() + ":" + jobID.String()
}

func (s *jobService) cachedStatus(ctx context.Context, userID, jobID uuid.UUID) *StatusSnapshot {
	if s.rdb == nil {
		return nil
	}
	raw, err := s.rdb.Get(ctx, statusCacheKey(userID, jobID)).Bytes()
	if err != nil {
		return nil
	}
	var snap StatusSnapshot
	if json.Unmarshal(raw, &snap) != nil {
		return nil
	}
	return &snap
}

func (s *jobService) cacheStatus(ctx context.Context, userID uuid.UUID, snap *StatusSnapshot) {
	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, statusCacheKey(userID, snap.JobID), raw, statusCacheTTL).Err(); err != nil {
		s.log.Debug("status cache write failed", "error", err.Error())
	}
}

func (s *jobService) dbc(ctx context.Context) dbctx.Context {
	return dbctx.Context{Ctx: ctx, Tx: s.db}
}
