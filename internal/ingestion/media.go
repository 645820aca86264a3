package ingestion

import (
	"context"

	types "github.com/notewise/notewise-backend/internal/domain"
	"github.com/notewise/notewise-backend/internal/platform/gcp"
)

type imageAdapter struct {
	vision gcp.Vision
}

func (ad imageAdapter) Extract(ctx context.Context, a *types.InputArtifact) (string, error) {
	return ad.vision.OCRImageBytes(ctx, a.Data, a.MimeType)
}

type audioAdapter struct {
	speech gcp.Speech
}

func (ad audioAdapter) Extract(ctx context.Context, a *types.InputArtifact) (string, error) {
	return ad.speech.TranscribeAudioBytes(ctx, a.Data, a.MimeType)
}
