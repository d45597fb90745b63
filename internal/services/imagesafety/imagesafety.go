package imagesafety

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"mediasift/internal/logging"
	"mediasift/internal/services"
	"mediasift/internal/services/llm"
	"mediasift/internal/services/retry"
)

var supportedMIMETypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/heic": {},
	"image/heif": {},
}

// Result is the outcome of a still-image moderation call.
type Result struct {
	IsSafe     bool
	Reason     string
	Categories []string
	Level      Level
}

// Config holds image moderation settings.
type Config struct {
	DefaultLevel Level
	// MaxImageBytes triggers downscale and re-encode above this size.
	MaxImageBytes  int64
	TimeoutSeconds int
}

type visionClient interface {
	CompleteJSONWithImage(ctx context.Context, systemPrompt, userPrompt string, image []byte, mimeType string) (string, error)
}

// Service moderates still images with a vision-capable LLM and applies the
// severity threshold for the requested strictness level.
type Service struct {
	cfg    Config
	client visionClient
	logger *slog.Logger
	retry  retry.Options
}

// NewService creates an image safety service.
func NewService(cfg Config, client visionClient, logger *slog.Logger, retryOpts retry.Options) *Service {
	if cfg.DefaultLevel == "" {
		cfg.DefaultLevel = LevelModerate
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.With(logging.String(logging.FieldComponent, "imagesafety"))
	retryOpts.Logger = logger
	return &Service{cfg: cfg, client: client, logger: logger, retry: retryOpts}
}

// DefaultLevel returns the configured fallback strictness.
func (s *Service) DefaultLevel() Level {
	return s.cfg.DefaultLevel
}

const systemPrompt = `You are an image safety classifier for a social media platform.
Analyze the image and decide if it should be allowed for a general-audience website.

Return a JSON object with the following fields:
  - is_flagged (boolean): true if the image is NOT safe for a general audience.
  - categories (array of strings): applicable categories with severity, using
    the format "<category>:<severity>". Categories are chosen from: nudity,
    sexual_content, violence, graphic_violence, self_harm, hate_symbol, drugs,
    other. Severities must be one of: none, mild, moderate, severe.
    Example: ["nudity:severe", "violence:mild"].
  - reason (string): short human-readable explanation.

The JSON MUST be valid and parsable. Do NOT include any text outside of the JSON.`

// Moderate classifies an image. Unsupported MIME types fail immediately
// without a classifier call. The final safety decision requires both the
// classifier's own judgment and the severity threshold to agree.
func (s *Service) Moderate(ctx context.Context, payload []byte, mimeType string, level Level) (Result, error) {
	var result Result
	mimeType = normalizeMIME(mimeType)
	if _, ok := supportedMIMETypes[mimeType]; !ok {
		return result, services.Wrap(services.ErrValidation, "image_moderation", "moderate",
			fmt.Sprintf("unsupported image type %q (supported: JPEG, PNG, WebP, HEIC, HEIF)", mimeType), nil)
	}
	if len(payload) == 0 {
		return result, services.Wrap(services.ErrValidation, "image_moderation", "moderate", "empty image payload", nil)
	}
	if level == "" {
		level = s.cfg.DefaultLevel
	}

	originalSize := len(payload)
	payload, compressedMIME, compressed := compressIfNeeded(payload, s.cfg.MaxImageBytes)
	if compressed {
		mimeType = compressedMIME
		s.logger.Info("image compressed for moderation",
			logging.String(logging.FieldEventType, "image_compressed"),
			logging.Int("original_bytes", originalSize),
			logging.Int("compressed_bytes", len(payload)))
	}

	var content string
	err := retry.Do(ctx, "image moderation", func(ctx context.Context) error {
		raw, err := s.client.CompleteJSONWithImage(ctx, systemPrompt, "", payload, mimeType)
		if err != nil {
			if !llm.Retryable(err) {
				return retry.Permanent(services.Wrap(services.ErrExternalService, "image_moderation", "classify", "moderation request rejected", err))
			}
			return err
		}
		content = raw
		return nil
	}, s.retry)
	if err != nil {
		return result, err
	}

	var parsed struct {
		IsFlagged  bool     `json:"is_flagged"`
		Categories []string `json:"categories"`
		Reason     string   `json:"reason"`
	}
	if err := llm.DecodeLLMJSON(content, &parsed); err != nil {
		return result, services.Wrap(services.ErrExternalService, "image_moderation", "classify", "parse moderation payload", err)
	}

	categories := parsed.Categories
	if categories == nil {
		categories = []string{}
	}
	reason := strings.TrimSpace(parsed.Reason)
	if reason == "" {
		reason = "No reason provided"
	}

	isSafe := passesThreshold(categories, level) && !parsed.IsFlagged

	s.logger.Info("image moderation complete",
		logging.String(logging.FieldEventType, "image_moderation_complete"),
		logging.Bool("is_safe", isSafe),
		logging.String("level", string(level)),
		logging.Bool("flagged", parsed.IsFlagged),
		logging.Int("categories", len(categories)))

	return Result{
		IsSafe:     isSafe,
		Reason:     reason,
		Categories: categories,
		Level:      level,
	}, nil
}

func normalizeMIME(mimeType string) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if idx := strings.Index(mimeType, ";"); idx >= 0 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	return mimeType
}
