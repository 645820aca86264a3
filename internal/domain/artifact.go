package domain

// Modality is the input category driving extraction-adapter selection.
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityImage Modality = "image"
	ModalityAudio Modality = "audio"
	ModalityPDF   Modality = "pdf"
	ModalityDocx  Modality = "docx"
)

// InputArtifact is the user-submitted content for one pipeline run.
// Ephemeral: it exists only until the normalizer has derived text.
// Either Text is set (bare text submission) or Data carries file bytes.
type InputArtifact struct {
	Text     string
	Filename string
	MimeType string
	Data     []byte
	// Declared is an optional client-declared modality; detection prefers
	// it over sniffing when it names a supported modality.
	Declared Modality
}

// NormalizedText pairs an adapter's direct output with the cleaned text
// the pipeline actually consumes. ProcessedText is always derived from
// RawText and is non-empty whenever RawText is.
type NormalizedText struct {
	Modality      Modality `json:"modality"`
	RawText       string   `json:"raw_text"`
	ProcessedText string   `json:"processed_text"`
}
