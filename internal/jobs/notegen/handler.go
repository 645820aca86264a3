// Package notegen implements the note_generation job: normalize the stored
// artifact, run the agent pipeline with the frozen feature decision, and
// persist the finished note.
package notegen

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/notewise/notewise-backend/internal/agents"
	"github.com/notewise/notewise-backend/internal/data/repos"
	types "github.com/notewise/notewise-backend/internal/domain"
	"github.com/notewise/notewise-backend/internal/ingestion"
	"github.com/notewise/notewise-backend/internal/jobs/runtime"
	"github.com/notewise/notewise-backend/internal/pkg/dbctx"
	"github.com/notewise/notewise-backend/internal/pkg/logger"
)

const (
	StageExtracting = "extracting_text"
	StageCleaning   = "cleaning_text"
	StageFinalizing = "finalizing"
	StageDone       = "completed"
)

// Payload is frozen at submission time. The feature decision inside it is
// never re-derived during the run.
type Payload struct {
	UserID   uuid.UUID             `json:"user_id"`
	Title    string                `json:"title,omitempty"`
	Artifact types.InputArtifact   `json:"artifact"`
	Decision types.FeatureDecision `json:"decision"`
}

// Result is stored on the completed job_run row.
type Result struct {
	NoteID uuid.UUID     `json:"note_id"`
	Bundle *types.Bundle `json:"bundle"`
}

type Handler struct {
	log        *logger.Logger
	normalizer ingestion.Normalizer
	pipeline   agents.Pipeline
	notes      repos.NoteRepo
}

func NewHandler(log *logger.Logger, normalizer ingestion.Normalizer, pipeline agents.Pipeline, notes repos.NoteRepo) *Handler {
	return &Handler{
		log:        log.With("handler", types.JobTypeNoteGeneration),
		normalizer: normalizer,
		pipeline:   pipeline,
		notes:      notes,
	}
}

func (h *Handler) Type() string { return types.JobTypeNoteGeneration }

func (h *Handler) Run(jc *runtime.Context) error {
	var p Payload
	if err := jc.DecodePayload(&p); err != nil {
		jc.Fail("payload", fmt.Errorf("malformed payload: %w", err))
		return nil
	}
	if p.UserID == uuid.Nil {
		jc.Fail("payload", fmt.Errorf("payload missing user_id"))
		return nil
	}

	jc.Progress(StageExtracting, 10)

	normalized, err := h.normalizer.Normalize(jc.Ctx, &p.Artifact)
	if err != nil {
		jc.Fail(StageExtracting, err)
		return nil
	}

	jc.Progress(StageCleaning, 30)

	bundle, err := h.pipeline.Generate(jc.Ctx, normalized.ProcessedText, p.Decision, func(stage string, pct int) {
		jc.Progress(stage, pct)
	})
	if err != nil {
		jc.Fail(agents.StageGenerating, err)
		return nil
	}
	bundle.RawText = normalized.RawText

	jc.Progress(StageFinalizing, 90)

	note, err := h.saveNote(jc, &p, normalized, bundle)
	if err != nil {
		jc.Fail(StageFinalizing, err)
		return nil
	}

	jc.Complete(StageDone, Result{NoteID: note.ID, Bundle: bundle})
	return nil
}

func (h *Handler) saveNote(jc *runtime.Context, p *Payload, normalized *types.NormalizedText, bundle *types.Bundle) (*types.Note, error) {
	now := time.Now().UTC()
	note := &types.Note{
		UserID:        p.UserID,
		Title:         noteTitle(p.Title, normalized.ProcessedText),
		Modality:      normalized.Modality,
		Filename:      p.Artifact.Filename,
		RawText:       normalized.RawText,
		ProcessedText: normalized.ProcessedText,
		Summary:       bundle.Summary,
		ProcessedAt:   &now,
	}

	var err error
	if note.Summaries, err = marshalJSON(bundle.Summaries); err != nil {
		return nil, err
	}
	if note.Questions, err = marshalJSON(bundle.Questions); err != nil {
		return nil, err
	}
	if note.MCQs, err = marshalJSON(bundle.MCQs); err != nil {
		return nil, err
	}
	if note.Review, err = marshalJSON(bundle.Review); err != nil {
		return nil, err
	}

	c := dbctx.Context{Ctx: jc.Ctx, Tx: jc.DB}
	if err := h.notes.Create(c, note); err != nil {
		return nil, fmt.Errorf("persist note: %w", err)
	}
	return note, nil
}

func marshalJSON(v any) (datatypes.JSON, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

// noteTitle falls back to the opening words of the content.
func noteTitle(explicit, text string) string {
	if t := strings.TrimSpace(explicit); t != "" {
		return t
	}
	words := strings.Fields(text)
	if len(words) > 8 {
		words = words[:8]
	}
	if len(words) == 0 {
		return "Untitled note"
	}
	return strings.Join(words, " ")
}
