package pipeline

import (
	"context"

	"mediasift/internal/services/imagesafety"
	"mediasift/internal/services/summarizer"
	"mediasift/internal/services/textsafety"
	"mediasift/internal/services/transcriber"
)

// Transcriber turns a media locator into transcript text and segments.
type Transcriber interface {
	Transcribe(ctx context.Context, fileURL, languageHint string) (transcriber.Result, error)
}

// TextModerator classifies text against the safety policies.
type TextModerator interface {
	Moderate(ctx context.Context, text string, categories ...textsafety.Category) (textsafety.Result, error)
}

// Summarizer generates a summary of text in a requested style.
type Summarizer interface {
	Summarize(ctx context.Context, text string, style summarizer.Style) (summarizer.Result, error)
}

// ImageModerator classifies image bytes at a strictness level.
type ImageModerator interface {
	Moderate(ctx context.Context, payload []byte, mimeType string, level imagesafety.Level) (imagesafety.Result, error)
	DefaultLevel() imagesafety.Level
}

// Fetcher retrieves remote bytes together with their content type.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, string, error)
}
