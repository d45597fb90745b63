package summarizer

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

// Style selects the shape of the generated summary.
type Style string

const (
	StyleBrief        Style = "brief"
	StyleDetailed     Style = "detailed"
	StyleBulletPoints Style = "bullet_points"
)

// ParseStyle normalizes a caller-supplied style, falling back to the given
// default for empty input. Unknown styles are rejected.
func ParseStyle(value string, fallback Style) (Style, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return fallback, nil
	}
	switch Style(value) {
	case StyleBrief, StyleDetailed, StyleBulletPoints:
		return Style(value), nil
	}
	return "", services.Wrap(services.ErrValidation, "summarization", "parse style",
		fmt.Sprintf("unknown summary style %q", value), nil)
}

// Result carries the generated summary and the style that produced it.
type Result struct {
	Summary string
	Style   Style
}

// Config holds summarizer settings.
type Config struct {
	DefaultStyle   Style
	TimeoutSeconds int
}

type completionClient interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Service generates transcript summaries through the LLM.
type Service struct {
	cfg    Config
	client completionClient
	logger *slog.Logger
	retry  retry.Options
}

// NewService creates a summarization service.
func NewService(cfg Config, client completionClient, logger *slog.Logger, retryOpts retry.Options) *Service {
	if cfg.DefaultStyle == "" {
		cfg.DefaultStyle = StyleBrief
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.With(logging.String(logging.FieldComponent, "summarizer"))
	retryOpts.Logger = logger
	return &Service{cfg: cfg, client: client, logger: logger, retry: retryOpts}
}

// DefaultStyle returns the configured fallback style.
func (s *Service) DefaultStyle() Style {
	return s.cfg.DefaultStyle
}

const systemPrompt = `You are an expert summarization assistant.
Read the user text and generate a concise, accurate summary.
%s
Return a JSON object of the form {"summary": "<the summary>"}.
The JSON MUST be valid with no text outside it.`

func styleInstruction(style Style) string {
	switch style {
	case StyleDetailed:
		return "Write a detailed, well-structured summary in multiple paragraphs. Include key context, important details, and any conclusions or recommendations."
	case StyleBulletPoints:
		return "Summarize the text as a list of bullet points. Each bullet should represent one key idea or takeaway."
	default:
		return "Write a very concise summary in 2-3 sentences. Focus only on the main point and outcome."
	}
}

// Summarize generates a summary of text in the requested style. Empty input
// is an input error and is never retried.
func (s *Service) Summarize(ctx context.Context, text string, style Style) (Result, error) {
	var result Result
	if strings.TrimSpace(text) == "" {
		return result, services.Wrap(services.ErrValidation, "summarization", "summarize", "input text is empty", nil)
	}
	if style == "" {
		style = s.cfg.DefaultStyle
	}

	prompt := fmt.Sprintf(systemPrompt, styleInstruction(style))
	var content string
	err := retry.Do(ctx, "summarization", func(ctx context.Context) error {
		raw, err := s.client.CompleteJSON(ctx, prompt, text)
		if err != nil {
			if !llm.Retryable(err) {
				return retry.Permanent(services.Wrap(services.ErrExternalService, "summarization", "generate", "summary request rejected", err))
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
		Summary string `json:"summary"`
	}
	if err := llm.DecodeLLMJSON(content, &parsed); err != nil {
		return result, services.Wrap(services.ErrExternalService, "summarization", "generate", "parse summary payload", err)
	}
	summary := strings.TrimSpace(parsed.Summary)
	if summary == "" {
		return result, services.Wrap(services.ErrExternalService, "summarization", "generate", "model returned empty summary", nil)
	}

	s.logger.Info("summary generated",
		logging.String(logging.FieldEventType, "summary_generated"),
		logging.String("style", string(style)),
		logging.Int("summary_chars", len(summary)))
	return Result{Summary: summary, Style: style}, nil
}
