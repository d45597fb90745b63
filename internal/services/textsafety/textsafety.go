package textsafety

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"mediasift/internal/logging"
	"mediasift/internal/services"
	"mediasift/internal/services/llm"
	"mediasift/internal/services/retry"
)

// Category names content policies checked against transcript text.
type Category string

const (
	CategoryDangerousContent Category = "Dangerous Content"
	CategoryHarassment       Category = "Harassment"
	CategoryHateSpeech       Category = "Hate Speech"
	CategorySexuallyExplicit Category = "Sexually Explicit"
)

// AllCategories returns the full policy set in canonical order.
func AllCategories() []Category {
	return []Category{
		CategoryDangerousContent,
		CategoryHarassment,
		CategoryHateSpeech,
		CategorySexuallyExplicit,
	}
}

var policies = map[Category]string{
	CategoryDangerousContent: `"Dangerous Content": content that enables, encourages, or excuses dangerous acts or violent crimes, including unlawful violence or threats, promotion or creation of weapons, and illegal drug use.`,
	CategoryHarassment:       `"Harassment": malicious, intimidating, bullying, or abusive content targeting an individual, including harmful characterizations based on sensitive attributes, dehumanization, and threats or incitement to violence.`,
	CategoryHateSpeech:       `"Hate Speech": content hateful toward people based on protected characteristics, or containing slurs.`,
	CategorySexuallyExplicit: `"Sexually Explicit": depictions of graphic sexual activity, content intended for arousal, or descriptions of sexual services.`,
}

// Verdict is the overall moderation outcome for a text.
type Verdict string

const (
	VerdictSafe    Verdict = "safe"
	VerdictWarning Verdict = "warning"
	VerdictUnsafe  Verdict = "unsafe"
)

// CategoryResult is the per-category judgment.
type CategoryResult struct {
	Violated   bool    `json:"violated"`
	Confidence float64 `json:"confidence"`
}

// Result is the full moderation outcome.
type Result struct {
	Verdict           Verdict
	IsSafe            bool
	Categories        map[string]CategoryResult
	FlaggedCategories []string
	MaxScore          float64
	Explanation       string
}

// Config holds moderation thresholds. A max score at or above
// UnsafeThreshold yields an unsafe verdict; at or above WarningThreshold,
// a warning.
type Config struct {
	WarningThreshold float64
	UnsafeThreshold  float64
	TimeoutSeconds   int
}

type completionClient interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Service classifies text against the safety policies using the LLM.
type Service struct {
	cfg    Config
	client completionClient
	logger *slog.Logger
	retry  retry.Options
}

// NewService creates a text safety service.
func NewService(cfg Config, client completionClient, logger *slog.Logger, retryOpts retry.Options) *Service {
	if cfg.WarningThreshold <= 0 {
		cfg.WarningThreshold = 0.5
	}
	if cfg.UnsafeThreshold <= 0 {
		cfg.UnsafeThreshold = 0.7
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.With(logging.String(logging.FieldComponent, "textsafety"))
	retryOpts.Logger = logger
	return &Service{cfg: cfg, client: client, logger: logger, retry: retryOpts}
}

const systemPrompt = `You are a text safety classifier for a social media platform.
Judge the user text against each policy below.

%s

Return a JSON object of the form:
{
  "categories": {
    "<policy name>": {"violated": <boolean>, "confidence": <0.0-1.0>}
  },
  "explanation": "<one short sentence>"
}
Include every policy exactly once. The JSON MUST be valid with no text outside it.`

// Moderate classifies text against the given categories (all when empty).
// Empty or whitespace-only text is safe by definition and skips the
// classifier entirely.
func (s *Service) Moderate(ctx context.Context, text string, categories ...Category) (Result, error) {
	if len(categories) == 0 {
		categories = AllCategories()
	}
	if strings.TrimSpace(text) == "" {
		return Result{
			Verdict:           VerdictSafe,
			IsSafe:            true,
			Categories:        map[string]CategoryResult{},
			FlaggedCategories: []string{},
			Explanation:       "Empty text",
		}, nil
	}

	var content string
	err := retry.Do(ctx, "text moderation", func(ctx context.Context) error {
		raw, err := s.client.CompleteJSON(ctx, s.buildSystemPrompt(categories), text)
		if err != nil {
			if !llm.Retryable(err) {
				return retry.Permanent(services.Wrap(services.ErrExternalService, "text_moderation", "classify", "moderation request rejected", err))
			}
			return err
		}
		content = raw
		return nil
	}, s.retry)
	if err != nil {
		return Result{}, err
	}

	parsed, err := decodeResponse(content, categories)
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalService, "text_moderation", "classify", "parse moderation payload", err)
	}

	result := s.scoreResult(parsed, categories)
	s.logger.Info("text moderation complete",
		logging.String(logging.FieldEventType, "text_moderation_complete"),
		logging.String(logging.FieldVerdict, string(result.Verdict)),
		logging.Float64("max_score", result.MaxScore),
		logging.Int("flagged", len(result.FlaggedCategories)))
	return result, nil
}

func (s *Service) buildSystemPrompt(categories []Category) string {
	lines := make([]string, 0, len(categories))
	for _, category := range categories {
		if policy, ok := policies[category]; ok {
			lines = append(lines, policy)
		}
	}
	return fmt.Sprintf(systemPrompt, strings.Join(lines, "\n"))
}

type moderationResponse struct {
	Categories  map[string]CategoryResult `json:"categories"`
	Explanation string                    `json:"explanation"`
}

func decodeResponse(content string, categories []Category) (moderationResponse, error) {
	var parsed moderationResponse
	if err := llm.DecodeLLMJSON(content, &parsed); err != nil {
		return parsed, err
	}
	if parsed.Categories == nil {
		return parsed, fmt.Errorf("missing categories object")
	}
	// Missing policies default to clean rather than silently vanishing.
	for _, category := range categories {
		if _, ok := parsed.Categories[string(category)]; !ok {
			parsed.Categories[string(category)] = CategoryResult{}
		}
	}
	return parsed, nil
}

func (s *Service) scoreResult(parsed moderationResponse, categories []Category) Result {
	results := make(map[string]CategoryResult, len(categories))
	flagged := make([]string, 0, len(categories))
	var maxScore float64

	for _, category := range categories {
		entry := parsed.Categories[string(category)]
		entry.Confidence = clamp01(entry.Confidence)
		results[string(category)] = entry
		if entry.Violated {
			flagged = append(flagged, string(category))
			if entry.Confidence > maxScore {
				maxScore = entry.Confidence
			}
		}
	}
	sort.Strings(flagged)

	verdict := VerdictSafe
	switch {
	case maxScore >= s.cfg.UnsafeThreshold:
		verdict = VerdictUnsafe
	case maxScore >= s.cfg.WarningThreshold:
		verdict = VerdictWarning
	}

	explanation := strings.TrimSpace(parsed.Explanation)
	if explanation == "" {
		explanation = "No explanation provided"
	}

	return Result{
		Verdict:           verdict,
		IsSafe:            verdict != VerdictUnsafe,
		Categories:        results,
		FlaggedCategories: flagged,
		MaxScore:          maxScore,
		Explanation:       explanation,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
