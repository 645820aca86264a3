package errors

import "errors"

// Pipeline error taxonomy. Callers branch with errors.Is; repos and
// services wrap these with %w to add detail.
var (
	// ErrUnsupportedModality means the artifact's declared or sniffed type
	// is not one of text/image/audio/pdf/docx.
	ErrUnsupportedModality = errors.New("unsupported input modality")
	// ErrExtractionFailed means an extraction adapter errored or produced
	// empty text for a non-empty artifact.
	ErrExtractionFailed = errors.New("text extraction failed")
	// ErrQuotaExceeded means the account is at its tier's note ceiling.
	ErrQuotaExceeded = errors.New("daily note quota exceeded")
	// ErrGenerationStepFailed is a recoverable per-feature generation
	// failure; the pipeline retries it with backoff.
	ErrGenerationStepFailed = errors.New("generation step failed")
	// ErrAllFeaturesFailed means every enabled generation step exhausted
	// its retries. Fatal to the run.
	ErrAllFeaturesFailed = errors.New("all enabled generation features failed")
	// ErrJobNotFound means the job id is unknown.
	ErrJobNotFound = errors.New("job not found")
	// ErrResultNotReady means the job exists but has not completed.
	ErrResultNotReady = errors.New("job result not ready")
	// ErrJobFailed means the job terminally failed; the wrap carries the
	// stored failure reason.
	ErrJobFailed = errors.New("job failed")
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is a generic sentinel for auth failures.
	ErrUnauthorized = errors.New("unauthorized")
)
