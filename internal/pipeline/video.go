package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mediasift/internal/logging"
	"mediasift/internal/media"
	"mediasift/internal/services"
	"mediasift/internal/services/imagesafety"
	"mediasift/internal/services/transcriber"
)

// Stage names as they appear in run records.
const (
	StageTranscription      = "transcription"
	StageTextModeration     = "text_moderation"
	StageSummarization      = "summarization"
	StageDownload           = "download"
	StageImageModeration    = "image_moderation"
	StageGIFImageModeration = "gif_image_moderation"
)

const (
	reasonSkippedByRequest    = "Skipped by request"
	reasonPreviousStageFailed = "Previous stage failed"
	reasonGIFRouted           = "routed through image moderation"
)

// VideoOrchestrator sequences transcription, text moderation, and
// summarization over a single media file.
type VideoOrchestrator struct {
	transcriber Transcriber
	moderator   TextModerator
	summarizer  Summarizer
	images      *ImageOrchestrator
	logger      *slog.Logger
}

// NewVideoOrchestrator builds the video pipeline. The image orchestrator
// handles animated-image inputs that cannot go through the audio path.
func NewVideoOrchestrator(t Transcriber, m TextModerator, s Summarizer, images *ImageOrchestrator, logger *slog.Logger) *VideoOrchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &VideoOrchestrator{
		transcriber: t,
		moderator:   m,
		summarizer:  s,
		images:      images,
		logger:      logger.With(logging.String(logging.FieldComponent, "video_pipeline")),
	}
}

// Process runs the full video pipeline. Expected failure modes are encoded
// in the result's verdict and stage records rather than returned as errors;
// the error return is reserved for unusable requests.
func (o *VideoOrchestrator) Process(ctx context.Context, req VideoRequest) (*VideoResult, error) {
	fileURL := strings.TrimSpace(req.FileURL)
	if fileURL == "" {
		return nil, services.Wrap(services.ErrValidation, "video_pipeline", "process", "file url required", nil)
	}
	ctx = services.WithPipeline(ctx, "video")

	if media.IsAnimatedImagePath(fileURL) {
		return o.routeAnimatedImage(ctx, fileURL)
	}

	start := time.Now().UTC()
	logger := logging.WithContext(ctx, o.logger)
	logger.Info("video pipeline started",
		logging.String(logging.FieldEventType, "pipeline_started"),
		logging.String("file_url", fileURL))

	result := &VideoResult{
		Pipeline:  "video",
		FileURL:   fileURL,
		Verdict:   VerdictSafe,
		IsSafe:    true,
		StartedAt: start,
	}

	transcription := o.runTranscription(ctx, result, req)

	o.runTextModeration(ctx, result, req, transcription)

	o.runSummarization(ctx, result, req, transcription)

	result.CompletedAt = time.Now().UTC()
	result.ProcessingTimeMS = result.CompletedAt.Sub(start).Milliseconds()

	logger.Info("video pipeline completed",
		logging.String(logging.FieldEventType, "pipeline_completed"),
		logging.String(logging.FieldVerdict, string(result.Verdict)),
		logging.Int64("processing_time_ms", result.ProcessingTimeMS),
		logging.Bool("short_circuited", result.ShortCircuited))
	return result, nil
}

func (o *VideoOrchestrator) runTranscription(ctx context.Context, result *VideoResult, req VideoRequest) *TranscriptionData {
	ctx = services.WithStage(ctx, StageTranscription)
	var data *TranscriptionData

	stage, err := runStage(StageTranscription, func() (map[string]any, error) {
		out, err := o.transcriber.Transcribe(ctx, result.FileURL, req.Language)
		if err != nil {
			return nil, err
		}
		language := out.Language
		if language == "" {
			language = req.Language
		}
		data = &TranscriptionData{
			Text:     out.Text,
			Segments: convertSegments(out.Segments),
			Duration: out.DurationSeconds,
			Language: language,
			VTT:      out.VTT,
		}
		return map[string]any{
			"text_length":   len(data.Text),
			"segment_count": len(data.Segments),
			"duration":      data.Duration,
		}, nil
	})

	if err != nil {
		stage.Error, result.ShortCircuitReason = classifyTranscriptionError(err)
		result.Stages = append(result.Stages, stage)
		result.ShortCircuited = true
		result.Verdict = VerdictError
		logging.WithContext(ctx, o.logger).Error("transcription failed",
			logging.String(logging.FieldEventType, "stage_failed"),
			logging.Error(err))
		return nil
	}

	result.Stages = append(result.Stages, stage)
	result.Transcription = data

	if strings.TrimSpace(data.Text) == "" {
		result.ShortCircuited = true
		result.ShortCircuitReason = "Transcription returned empty text - no audio content detected"
		result.Verdict = VerdictError
		logging.WithContext(ctx, o.logger).Warn("transcription returned empty text",
			logging.String(logging.FieldEventType, "empty_transcript"))
		return nil
	}
	return data
}

func (o *VideoOrchestrator) runTextModeration(ctx context.Context, result *VideoResult, req VideoRequest, transcription *TranscriptionData) {
	switch {
	case req.SkipModeration:
		result.Stages = append(result.Stages, skippedStage(StageTextModeration, reasonSkippedByRequest))
		return
	case result.ShortCircuited:
		result.Stages = append(result.Stages, skippedStage(StageTextModeration, reasonPreviousStageFailed))
		return
	}

	ctx = services.WithStage(ctx, StageTextModeration)
	var data *TextModerationData

	stage, err := runStage(StageTextModeration, func() (map[string]any, error) {
		out, err := o.moderator.Moderate(ctx, transcription.Text)
		if err != nil {
			return nil, err
		}
		data = &TextModerationData{
			Verdict:           string(out.Verdict),
			IsSafe:            out.IsSafe,
			FlaggedCategories: out.FlaggedCategories,
			MaxViolationScore: out.MaxScore,
			Explanation:       out.Explanation,
		}
		return map[string]any{
			"verdict":            data.Verdict,
			"is_safe":            data.IsSafe,
			"flagged_categories": data.FlaggedCategories,
			"max_score":          data.MaxViolationScore,
		}, nil
	})
	result.Stages = append(result.Stages, stage)

	if err != nil {
		// A moderation outage must not block delivery, but it must never
		// claim the content is safe either.
		result.TextModeration = &TextModerationData{
			Verdict:           "error",
			IsSafe:            false,
			FlaggedCategories: []string{},
			Explanation:       fmt.Sprintf("Moderation service error: %v", err),
		}
		logging.WithContext(ctx, o.logger).Error("text moderation failed, continuing degraded",
			logging.String(logging.FieldEventType, "stage_failed"),
			logging.Error(err))
		return
	}

	result.TextModeration = data
	if !data.IsSafe {
		result.ShortCircuited = true
		result.ShortCircuitReason = "Content moderation failed: " + truncate(data.Explanation, 200)
		result.Verdict = VerdictUnsafe
		result.IsSafe = false
		logging.WithContext(ctx, o.logger).Warn("content flagged unsafe",
			logging.String(logging.FieldEventType, "content_flagged"),
			logging.Any("flagged_categories", data.FlaggedCategories))
	}
}

func (o *VideoOrchestrator) runSummarization(ctx context.Context, result *VideoResult, req VideoRequest, transcription *TranscriptionData) {
	switch {
	case req.SkipSummary:
		result.Stages = append(result.Stages, skippedStage(StageSummarization, reasonSkippedByRequest))
		return
	case result.ShortCircuited:
		reason := result.ShortCircuitReason
		if reason == "" {
			reason = "Content flagged as unsafe"
		}
		result.Stages = append(result.Stages, skippedStage(StageSummarization, reason))
		return
	}

	ctx = services.WithStage(ctx, StageSummarization)
	var data *SummarizationData

	stage, err := runStage(StageSummarization, func() (map[string]any, error) {
		out, err := o.summarizer.Summarize(ctx, transcription.Text, req.SummaryStyle)
		if err != nil {
			return nil, err
		}
		data = &SummarizationData{Summary: out.Summary, Style: string(out.Style)}
		return map[string]any{
			"summary_length": len(data.Summary),
			"style":          data.Style,
		}, nil
	})
	result.Stages = append(result.Stages, stage)

	if err != nil {
		// Partial results are still useful; the verdict stands.
		logging.WithContext(ctx, o.logger).Error("summarization failed",
			logging.String(logging.FieldEventType, "stage_failed"),
			logging.Error(err))
		return
	}
	result.Summary = data
}

// routeAnimatedImage sends a GIF locator through the image pipeline instead
// of the audio path and reports the delegation as one synthetic stage.
func (o *VideoOrchestrator) routeAnimatedImage(ctx context.Context, fileURL string) (*VideoResult, error) {
	if o.images == nil {
		return nil, services.Wrap(services.ErrConfiguration, "video_pipeline", "route animated image",
			"image pipeline unavailable for animated image input", nil)
	}

	start := time.Now().UTC()
	logging.WithContext(ctx, o.logger).Info("animated image routed to image pipeline",
		logging.String(logging.FieldEventType, "gif_routed"),
		logging.String("file_url", fileURL))

	level := imagesafety.LevelModerate
	if o.images.moderator != nil {
		level = o.images.moderator.DefaultLevel()
	}
	imageResult, err := o.images.Process(ctx, ImageRequest{FileURL: fileURL, SafetyLevel: level})
	if err != nil {
		return nil, err
	}

	completed := time.Now().UTC()
	duration := completed.Sub(start).Milliseconds()
	stage := StageResult{
		Stage:       StageGIFImageModeration,
		Status:      StatusCompleted,
		StartedAt:   &start,
		CompletedAt: &completed,
		DurationMS:  &duration,
		Data: map[string]any{
			"verdict": string(imageResult.Verdict),
			"is_safe": imageResult.IsSafe,
		},
	}
	if imageResult.Verdict == VerdictError {
		stage.Status = StatusFailed
		stage.Error = "image moderation did not complete"
	}

	return &VideoResult{
		Pipeline:           "video",
		FileURL:            fileURL,
		Verdict:            imageResult.Verdict,
		IsSafe:             imageResult.IsSafe,
		ProcessingTimeMS:   duration,
		StartedAt:          start,
		CompletedAt:        completed,
		Stages:             []StageResult{stage},
		ShortCircuited:     true,
		ShortCircuitReason: reasonGIFRouted,
	}, nil
}

func classifyTranscriptionError(err error) (stageError, reason string) {
	switch {
	case errors.Is(err, media.ErrDownload):
		return fmt.Sprintf("Download failed: %v", err), fmt.Sprintf("Failed to download media: %v", err)
	case errors.Is(err, transcriber.ErrUnsupportedMedia):
		return fmt.Sprintf("Unsupported media: %v", err), fmt.Sprintf("Unsupported media format: %v", err)
	default:
		return err.Error(), fmt.Sprintf("Transcription error: %v", err)
	}
}

func convertSegments(segments []transcriber.Segment) []Segment {
	out := make([]Segment, 0, len(segments))
	for _, seg := range segments {
		out = append(out, Segment{Start: seg.Start, End: seg.End, Text: strings.TrimSpace(seg.Text)})
	}
	return out
}

// truncate limits s to a number of characters, never splitting a rune.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
