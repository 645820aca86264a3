package ingestion

import (
	"bytes"
	"path/filepath"
	"strings"

	types "github.com/notewise/notewise-backend/internal/domain"
)

var mimeModality = map[string]types.Modality{
	"text/plain":      types.ModalityText,
	"text/markdown":   types.ModalityText,
	"application/pdf": types.ModalityPDF,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": types.ModalityDocx,
	"image/png":    types.ModalityImage,
	"image/jpeg":   types.ModalityImage,
	"image/gif":    types.ModalityImage,
	"image/webp":   types.ModalityImage,
	"image/bmp":    types.ModalityImage,
	"image/tiff":   types.ModalityImage,
	"audio/mpeg":   types.ModalityAudio,
	"audio/mp3":    types.ModalityAudio,
	"audio/wav":    types.ModalityAudio,
	"audio/x-wav":  types.ModalityAudio,
	"audio/flac":   types.ModalityAudio,
	"audio/ogg":    types.ModalityAudio,
	"audio/webm":   types.ModalityAudio,
	"audio/mp4":    types.ModalityAudio,
	"audio/m4a":    types.ModalityAudio,
}

var extModality = map[string]types.Modality{
	".txt":  types.ModalityText,
	".md":   types.ModalityText,
	".pdf":  types.ModalityPDF,
	".docx": types.ModalityDocx,
	".png":  types.ModalityImage,
	".jpg":  types.ModalityImage,
	".jpeg": types.ModalityImage,
	".gif":  types.ModalityImage,
	".webp": types.ModalityImage,
	".bmp":  types.ModalityImage,
	".tiff": types.ModalityImage,
	".mp3":  types.ModalityAudio,
	".wav":  types.ModalityAudio,
	".flac": types.ModalityAudio,
	".ogg":  types.ModalityAudio,
	".opus": types.ModalityAudio,
	".m4a":  types.ModalityAudio,
}

// DetectModality resolves an artifact's modality: an explicit declaration
// wins, then mime type, then content sniffing, then filename extension.
// Inline text with no file attached is always text.
func DetectModality(a *types.InputArtifact) (types.Modality, bool) {
	if a == nil {
		return "", false
	}
	if a.Declared != "" {
		if m, ok := knownModality(a.Declared); ok {
			return m, true
		}
		return "", false
	}
	if len(a.Data) == 0 {
		if strings.TrimSpace(a.Text) != "" {
			return types.ModalityText, true
		}
		return "", false
	}

	if mt := strings.ToLower(strings.TrimSpace(a.MimeType)); mt != "" {
		if semi := strings.Index(mt, ";"); semi >= 0 {
			mt = mt[:semi]
		}
		if m, ok := mimeModality[mt]; ok {
			return m, true
		}
	}
	if m, ok := sniffContent(a.Data); ok {
		return m, true
	}
	if ext := strings.ToLower(filepath.Ext(a.Filename)); ext != "" {
		if m, ok := extModality[ext]; ok {
			return m, true
		}
	}
	return "", false
}

func knownModality(m types.Modality) (types.Modality, bool) {
	switch m {
	case types.ModalityText, types.ModalityImage, types.ModalityAudio,
		types.ModalityPDF, types.ModalityDocx:
		return m, true
	}
	return "", false
}

func sniffContent(data []byte) (types.Modality, bool) {
	switch {
	case bytes.HasPrefix(data, []byte("%PDF-")):
		return types.ModalityPDF, true
	case bytes.HasPrefix(data, []byte("PK\x03\x04")):
		// OpenXML container; the docx adapter rejects non-word zips
		return types.ModalityDocx, true
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return types.ModalityImage, true
	case bytes.HasPrefix(data, []byte("\xff\xd8\xff")):
		return types.ModalityImage, true
	case bytes.HasPrefix(data, []byte("GIF8")):
		return types.ModalityImage, true
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return types.ModalityAudio, true
	case bytes.HasPrefix(data, []byte("fLaC")):
		return types.ModalityAudio, true
	case bytes.HasPrefix(data, []byte("OggS")):
		return types.ModalityAudio, true
	case bytes.HasPrefix(data, []byte("ID3")):
		return types.ModalityAudio, true
	case len(data) >= 2 && data[0] == 0xff && data[1]&0xe0 == 0xe0:
		// bare MPEG audio frame sync
		return types.ModalityAudio, true
	}
	return "", false
}
