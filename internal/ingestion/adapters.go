package ingestion

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	pdf "github.com/ledongthuc/pdf"

	types "github.com/notewise/notewise-backend/internal/domain"
)

// Adapter turns one modality of artifact into raw text. Adapters are the
// only place extraction backends are touched; they never retry and never
// clean the text they return.
type Adapter interface {
	Extract(ctx context.Context, a *types.InputArtifact) (string, error)
}

type textAdapter struct{}

func (textAdapter) Extract(_ context.Context, a *types.InputArtifact) (string, error) {
	if strings.TrimSpace(a.Text) != "" {
		return a.Text, nil
	}
	return string(a.Data), nil
}

type pdfAdapter struct{}

func (pdfAdapter) Extract(_ context.Context, a *types.InputArtifact) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(a.Data), int64(len(a.Data)))
	if err != nil {
		return "", fmt.Errorf("pdf reader: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf plaintext: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("pdf read: %w", err)
	}
	return string(b), nil
}

type docxAdapter struct{}

func (docxAdapter) Extract(_ context.Context, a *types.InputArtifact) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(a.Data), int64(len(a.Data)))
	if err != nil {
		return "", fmt.Errorf("docx is not a valid zip container: %w", err)
	}

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", fmt.Errorf("zip has no word/document.xml part")
	}

	rc, err := doc.Open()
	if err != nil {
		return "", fmt.Errorf("docx open part: %w", err)
	}
	raw, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		return "", fmt.Errorf("docx read part: %w", err)
	}
	return harvestXMLText(raw, "t"), nil
}

// harvestXMLText walks the XML token stream gathering the character data of
// every element whose local name matches tag (<w:t> runs for docx).
func harvestXMLText(xmlBytes []byte, tag string) string {
	dec := xml.NewDecoder(bytes.NewReader(xmlBytes))
	var out strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != tag {
			continue
		}
		var v string
		_ = dec.DecodeElement(&v, &se)
		if v != "" {
			out.WriteString(v)
			out.WriteString(" ")
		}
	}
	return out.String()
}
