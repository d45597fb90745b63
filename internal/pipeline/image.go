package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mediasift/internal/logging"
	"mediasift/internal/services"
	"mediasift/internal/services/imagesafety"
)

// errGIFConversion tags first-frame normalization failures, which force
// is_safe false instead of leaving safety undetermined.
var errGIFConversion = errors.New("GIF conversion failed")

// ImageOrchestrator sequences download and still-image moderation.
type ImageOrchestrator struct {
	fetcher   Fetcher
	moderator ImageModerator
	logger    *slog.Logger
}

// NewImageOrchestrator builds the image pipeline.
func NewImageOrchestrator(fetcher Fetcher, moderator ImageModerator, logger *slog.Logger) *ImageOrchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ImageOrchestrator{
		fetcher:   fetcher,
		moderator: moderator,
		logger:    logger.With(logging.String(logging.FieldComponent, "image_pipeline")),
	}
}

// Process runs the image pipeline. Like the video pipeline, expected failure
// modes are encoded in the result rather than returned as errors.
func (o *ImageOrchestrator) Process(ctx context.Context, req ImageRequest) (*ImageResult, error) {
	fileURL := strings.TrimRight(strings.TrimSpace(req.FileURL), "/")
	if fileURL == "" {
		return nil, services.Wrap(services.ErrValidation, "image_pipeline", "process", "file url required", nil)
	}
	ctx = services.WithPipeline(ctx, "image")

	level := req.SafetyLevel
	if level == "" {
		level = o.moderator.DefaultLevel()
	}

	start := time.Now().UTC()
	logger := logging.WithContext(ctx, o.logger)
	logger.Info("image pipeline started",
		logging.String(logging.FieldEventType, "pipeline_started"),
		logging.String("file_url", fileURL),
		logging.String("level", string(level)))

	result := &ImageResult{
		Pipeline:  "image",
		FileURL:   fileURL,
		Verdict:   VerdictSafe,
		IsSafe:    true,
		StartedAt: start,
	}

	payload, mimeType := o.runDownload(ctx, result)

	if payload != nil {
		o.runModeration(ctx, result, payload, mimeType, level)
	} else {
		result.Stages = append(result.Stages, skippedStage(StageImageModeration, "Download failed"))
	}

	result.CompletedAt = time.Now().UTC()
	result.ProcessingTimeMS = result.CompletedAt.Sub(start).Milliseconds()

	logger.Info("image pipeline completed",
		logging.String(logging.FieldEventType, "pipeline_completed"),
		logging.String(logging.FieldVerdict, string(result.Verdict)),
		logging.Int64("processing_time_ms", result.ProcessingTimeMS))
	return result, nil
}

func (o *ImageOrchestrator) runDownload(ctx context.Context, result *ImageResult) ([]byte, string) {
	ctx = services.WithStage(ctx, StageDownload)
	var (
		payload  []byte
		mimeType string
	)

	stage, err := runStage(StageDownload, func() (map[string]any, error) {
		fetched, contentType, err := o.fetcher.Fetch(ctx, result.FileURL)
		if err != nil {
			return nil, err
		}
		mimeType = strings.ToLower(strings.TrimSpace(contentType))
		if mimeType == "" {
			mimeType = "image/jpeg"
		}
		if strings.HasPrefix(mimeType, "image/gif") {
			// The classifier handles stills only; reduce to the first frame.
			normalized, normalizedMIME, err := imagesafety.NormalizeGIF(fetched)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", errGIFConversion, err)
			}
			fetched = normalized
			mimeType = normalizedMIME
		}
		payload = fetched
		return map[string]any{
			"size_bytes": len(payload),
			"mime_type":  mimeType,
		}, nil
	})
	result.Stages = append(result.Stages, stage)

	if err != nil {
		result.Verdict = VerdictError
		if errors.Is(err, errGIFConversion) {
			result.IsSafe = false
		}
		logging.WithContext(ctx, o.logger).Error("image download failed",
			logging.String(logging.FieldEventType, "stage_failed"),
			logging.Error(err))
		return nil, ""
	}
	return payload, mimeType
}

func (o *ImageOrchestrator) runModeration(ctx context.Context, result *ImageResult, payload []byte, mimeType string, level imagesafety.Level) {
	ctx = services.WithStage(ctx, StageImageModeration)
	var data *ImageModerationData

	stage, err := runStage(StageImageModeration, func() (map[string]any, error) {
		out, err := o.moderator.Moderate(ctx, payload, mimeType, level)
		if err != nil {
			return nil, err
		}
		data = &ImageModerationData{
			IsSafe:     out.IsSafe,
			Reason:     out.Reason,
			Categories: out.Categories,
			Level:      string(out.Level),
		}
		return map[string]any{
			"is_safe":    data.IsSafe,
			"categories": data.Categories,
			"level":      data.Level,
		}, nil
	})
	result.Stages = append(result.Stages, stage)

	if err != nil {
		// Fail safe: an inability to classify is never treated as safe.
		result.Verdict = VerdictError
		result.IsSafe = false
		logging.WithContext(ctx, o.logger).Error("image moderation failed",
			logging.String(logging.FieldEventType, "stage_failed"),
			logging.Error(err))
		return
	}

	result.Moderation = data
	if !data.IsSafe {
		result.Verdict = VerdictUnsafe
		result.IsSafe = false
		logging.WithContext(ctx, o.logger).Warn("image flagged unsafe",
			logging.String(logging.FieldEventType, "content_flagged"),
			logging.String("reason", data.Reason))
	}
}
