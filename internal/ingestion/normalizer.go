// Package ingestion turns heterogeneous user uploads into clean text the
// generation pipeline can work with.
package ingestion

import (
	"context"
	"fmt"
	"strings"

	types "github.com/notewise/notewise-backend/internal/domain"
	"github.com/notewise/notewise-backend/internal/pkg/ctxutil"
	apperr "github.com/notewise/notewise-backend/internal/pkg/errors"
	"github.com/notewise/notewise-backend/internal/pkg/logger"
	"github.com/notewise/notewise-backend/internal/platform/gcp"
)

type Normalizer interface {
	Normalize(ctx context.Context, a *types.InputArtifact) (*types.NormalizedText, error)
}

type normalizer struct {
	log      *logger.Logger
	adapters map[types.Modality]Adapter
}

// NewNormalizer builds the modality dispatch table. Image and audio are
// registered only when their backing client exists, so a missing client
// surfaces as ErrUnsupportedModality instead of a nil call.
func NewNormalizer(log *logger.Logger, vision gcp.Vision, speech gcp.Speech) Normalizer {
	adapters := map[types.Modality]Adapter{
		types.ModalityText: textAdapter{},
		types.ModalityPDF:  pdfAdapter{},
		types.ModalityDocx: docxAdapter{},
	}
	if vision != nil {
		adapters[types.ModalityImage] = imageAdapter{vision: vision}
	}
	if speech != nil {
		adapters[types.ModalityAudio] = audioAdapter{speech: speech}
	}
	return &normalizer{
		log:      log.With("service", "Normalizer"),
		adapters: adapters,
	}
}

func (n *normalizer) Normalize(ctx context.Context, a *types.InputArtifact) (*types.NormalizedText, error) {
	ctx = ctxutil.Default(ctx)

	modality, ok := DetectModality(a)
	if !ok {
		return nil, fmt.Errorf("%w: name=%q mime=%q declared=%q",
			apperr.ErrUnsupportedModality, a.Filename, a.MimeType, a.Declared)
	}

	adapter, ok := n.adapters[modality]
	if !ok {
		return nil, fmt.Errorf("%w: no adapter for %q", apperr.ErrUnsupportedModality, modality)
	}

	raw, err := adapter.Extract(ctx, a)
	if err != nil {
		n.log.Warn("extraction failed", "modality", string(modality), "filename", a.Filename, "error", err.Error())
		return nil, fmt.Errorf("%w: %s: %v", apperr.ErrExtractionFailed, modality, err)
	}

	processed := CleanText(raw)
	if processed == "" && !artifactEmpty(a) {
		return nil, fmt.Errorf("%w: %s produced no text", apperr.ErrExtractionFailed, modality)
	}

	return &types.NormalizedText{
		Modality:      modality,
		RawText:       raw,
		ProcessedText: processed,
	}, nil
}

func artifactEmpty(a *types.InputArtifact) bool {
	return len(a.Data) == 0 && strings.TrimSpace(a.Text) == ""
}
