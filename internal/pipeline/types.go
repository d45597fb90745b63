package pipeline

import (
	"time"

	"mediasift/internal/services/imagesafety"
	"mediasift/internal/services/summarizer"
)

// StageStatus tracks the lifecycle of a single pipeline stage.
type StageStatus string

const (
	StatusPending   StageStatus = "pending"
	StatusRunning   StageStatus = "running"
	StatusCompleted StageStatus = "completed"
	StatusFailed    StageStatus = "failed"
	StatusSkipped   StageStatus = "skipped"
)

// Verdict is the pipeline's final safety classification for a run.
type Verdict string

const (
	VerdictSafe   Verdict = "safe"
	VerdictUnsafe Verdict = "unsafe"
	VerdictError  Verdict = "error"
)

// StageResult records the outcome of one stage attempt. It is created once
// and never mutated afterward.
type StageResult struct {
	Stage       string         `json:"stage"`
	Status      StageStatus    `json:"status"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	DurationMS  *int64         `json:"duration_ms,omitempty"`
	Error       string         `json:"error,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
}

// Segment is a timed span of transcript text.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// TranscriptionData is the transcription stage output.
type TranscriptionData struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
	Duration float64   `json:"duration"`
	Language string    `json:"language,omitempty"`
	VTT      string    `json:"vtt,omitempty"`
}

// TextModerationData is the text moderation stage output.
type TextModerationData struct {
	Verdict           string   `json:"verdict"`
	IsSafe            bool     `json:"is_safe"`
	FlaggedCategories []string `json:"flagged_categories"`
	MaxViolationScore float64  `json:"max_violation_score"`
	Explanation       string   `json:"explanation"`
}

// SummarizationData is the summarization stage output.
type SummarizationData struct {
	Summary string `json:"summary"`
	Style   string `json:"style"`
}

// ImageModerationData is the image moderation stage output.
type ImageModerationData struct {
	IsSafe     bool     `json:"is_safe"`
	Reason     string   `json:"reason"`
	Categories []string `json:"categories"`
	Level      string   `json:"level"`
}

// VideoRequest describes a video/audio pipeline run.
type VideoRequest struct {
	FileURL        string           `json:"file_url"`
	Language       string           `json:"language,omitempty"`
	SummaryStyle   summarizer.Style `json:"summary_style,omitempty"`
	SkipModeration bool             `json:"skip_moderation,omitempty"`
	SkipSummary    bool             `json:"skip_summary,omitempty"`
}

// ImageRequest describes an image pipeline run.
type ImageRequest struct {
	FileURL     string            `json:"file_url"`
	SafetyLevel imagesafety.Level `json:"safety_level,omitempty"`
	User        string            `json:"user,omitempty"`
}

// VideoResult is the complete outcome of a video pipeline run. Fatal stage
// failures are represented in the verdict and stage records, not as errors,
// so partial results like a transcript stay visible.
type VideoResult struct {
	Pipeline           string              `json:"pipeline"`
	FileURL            string              `json:"file_url"`
	Verdict            Verdict             `json:"verdict"`
	IsSafe             bool                `json:"is_safe"`
	ProcessingTimeMS   int64               `json:"processing_time_ms"`
	StartedAt          time.Time           `json:"started_at"`
	CompletedAt        time.Time           `json:"completed_at"`
	Stages             []StageResult       `json:"stages"`
	Transcription      *TranscriptionData  `json:"transcription,omitempty"`
	TextModeration     *TextModerationData `json:"text_moderation,omitempty"`
	Summary            *SummarizationData  `json:"summary,omitempty"`
	ShortCircuited     bool                `json:"short_circuited"`
	ShortCircuitReason string              `json:"short_circuit_reason,omitempty"`
}

// Publishable reports whether the run's content may be published. Only an
// explicit safe verdict qualifies; unsafe and error (safety undetermined)
// are both withheld.
func (r *VideoResult) Publishable() bool {
	return r.Verdict == VerdictSafe
}

// ImageResult is the complete outcome of an image pipeline run.
type ImageResult struct {
	Pipeline         string               `json:"pipeline"`
	FileURL          string               `json:"file_url"`
	Verdict          Verdict              `json:"verdict"`
	IsSafe           bool                 `json:"is_safe"`
	ProcessingTimeMS int64                `json:"processing_time_ms"`
	StartedAt        time.Time            `json:"started_at"`
	CompletedAt      time.Time            `json:"completed_at"`
	Stages           []StageResult        `json:"stages"`
	Moderation       *ImageModerationData `json:"moderation,omitempty"`
}

// Publishable reports whether the image may be published. Only an explicit
// safe verdict qualifies.
func (r *ImageResult) Publishable() bool {
	return r.Verdict == VerdictSafe
}
