package ingestion

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/notewise/notewise-backend/internal/data/repos/testutil"
	types "github.com/notewise/notewise-backend/internal/domain"
	apperr "github.com/notewise/notewise-backend/internal/pkg/errors"
)

type fakeVision struct {
	text string
	err  error
}

func (f fakeVision) OCRImageBytes(_ context.Context, _ []byte, _ string) (string, error) {
	return f.text, f.err
}
func (f fakeVision) Close() error { return nil }

type fakeSpeech struct {
	text string
	err  error
}

func (f fakeSpeech) TranscribeAudioBytes(_ context.Context, _ []byte, _ string) (string, error) {
	return f.text, f.err
}
func (f fakeSpeech) Close() error { return nil }

func TestDetectModality(t *testing.T) {
	cases := []struct {
		name     string
		artifact types.InputArtifact
		want     types.Modality
		ok       bool
	}{
		{"inline text", types.InputArtifact{Text: "hello"}, types.ModalityText, true},
		{"declared wins", types.InputArtifact{Declared: types.ModalityAudio, Data: []byte("%PDF-1.7")}, types.ModalityAudio, true},
		{"pdf magic", types.InputArtifact{Data: []byte("%PDF-1.7 rest")}, types.ModalityPDF, true},
		{"zip magic", types.InputArtifact{Data: []byte("PK\x03\x04more")}, types.ModalityDocx, true},
		{"png magic", types.InputArtifact{Data: []byte("\x89PNG\r\n\x1a\nxxxx")}, types.ModalityImage, true},
		{"mp3 id3", types.InputArtifact{Data: []byte("ID3\x04rest")}, types.ModalityAudio, true},
		{"mime type", types.InputArtifact{MimeType: "image/jpeg; charset=binary", Data: []byte("opaque")}, types.ModalityImage, true},
		{"extension fallback", types.InputArtifact{Filename: "notes.MD", Data: []byte("# heading")}, types.ModalityText, true},
		{"unknown", types.InputArtifact{Filename: "data.bin", Data: []byte{0x00, 0x01}}, "", false},
		{"empty", types.InputArtifact{}, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := DetectModality(&tc.artifact)
			if ok != tc.ok || got != tc.want {
				t.Fatalf("got (%q,%v), want (%q,%v)", got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestCleanText(t *testing.T) {
	in := "  Hello\u200b   world\x00\n\n\n\nSecond\tparagraph  here \n"
	got := CleanText(in)
	want := "Hello world\n\nSecond paragraph here"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestNormalize_Text(t *testing.T) {
	n := NewNormalizer(testutil.Logger(t), fakeVision{}, fakeSpeech{})

	out, err := n.Normalize(context.Background(), &types.InputArtifact{Text: "  Cells divide   by mitosis.  "})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if out.Modality != types.ModalityText {
		t.Fatalf("expected text modality, got %q", out.Modality)
	}
	if out.ProcessedText != "Cells divide by mitosis." {
		t.Fatalf("unexpected processed text %q", out.ProcessedText)
	}
}

func TestNormalize_ImageUsesOCR(t *testing.T) {
	n := NewNormalizer(testutil.Logger(t), fakeVision{text: "ocr result text"}, fakeSpeech{})

	out, err := n.Normalize(context.Background(), &types.InputArtifact{
		Filename: "scan.png",
		Data:     []byte("\x89PNG\r\n\x1a\npixels"),
	})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if out.Modality != types.ModalityImage {
		t.Fatalf("expected image modality, got %q", out.Modality)
	}
	if out.ProcessedText != "ocr result text" {
		t.Fatalf("unexpected processed text %q", out.ProcessedText)
	}
}

func TestNormalize_AdapterErrorWrapsExtractionFailed(t *testing.T) {
	n := NewNormalizer(testutil.Logger(t), fakeVision{err: errors.New("quota")}, fakeSpeech{})

	_, err := n.Normalize(context.Background(), &types.InputArtifact{
		Data: []byte("\x89PNG\r\n\x1a\npixels"),
	})
	if !errors.Is(err, apperr.ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed, got %v", err)
	}
}

func TestNormalize_EmptyExtractionFails(t *testing.T) {
	n := NewNormalizer(testutil.Logger(t), fakeVision{text: "   "}, fakeSpeech{})

	_, err := n.Normalize(context.Background(), &types.InputArtifact{
		Data: []byte("\x89PNG\r\n\x1a\npixels"),
	})
	if !errors.Is(err, apperr.ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed for empty OCR, got %v", err)
	}
}

func TestNormalize_UnknownModality(t *testing.T) {
	n := NewNormalizer(testutil.Logger(t), fakeVision{}, fakeSpeech{})

	_, err := n.Normalize(context.Background(), &types.InputArtifact{
		Filename: "data.bin",
		Data:     []byte{0x00, 0x01, 0x02},
	})
	if !errors.Is(err, apperr.ErrUnsupportedModality) {
		t.Fatalf("expected ErrUnsupportedModality, got %v", err)
	}
}

func TestNormalize_Docx(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	doc := `<?xml version="1.0"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>Lecture notes</w:t></w:r><w:r><w:t>on osmosis</w:t></w:r></w:p></w:body></w:document>`
	if _, err := w.Write([]byte(doc)); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}

	n := NewNormalizer(testutil.Logger(t), fakeVision{}, fakeSpeech{})
	out, err := n.Normalize(context.Background(), &types.InputArtifact{
		Filename: "notes.docx",
		Data:     buf.Bytes(),
	})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if out.Modality != types.ModalityDocx {
		t.Fatalf("expected docx modality, got %q", out.Modality)
	}
	if out.ProcessedText != "Lecture notes on osmosis" {
		t.Fatalf("unexpected processed text %q", out.ProcessedText)
	}
}

func TestNormalize_DocxMissingDocumentPart(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if _, err := zw.Create("ppt/slides/slide1.xml"); err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}

	n := NewNormalizer(testutil.Logger(t), fakeVision{}, fakeSpeech{})
	_, err := n.Normalize(context.Background(), &types.InputArtifact{
		Filename: "deck.docx",
		Data:     buf.Bytes(),
	})
	if !errors.Is(err, apperr.ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed, got %v", err)
	}
}
